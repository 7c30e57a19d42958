package plugins

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

//ErrLoadFailure marks every error that caused a plugin to be excluded
var ErrLoadFailure = errors.New("plugin failed to load")

//Factory creates a fresh, unconfigured plugin instance
type Factory func() Plugin

//Registration binds a plugin name to its factory. A catalog is an ordered list of registrations and
//that order is the order plugins run in.
type Registration struct {
	Name    string
	Factory Factory
}

//LoadError describes why a plugin was excluded
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadError(name string, err error) *LoadError {
	return &LoadError{Name: name, Err: errors.Mark(err, ErrLoadFailure)}
}

// Registry holds the plugins that loaded successfully, per kind, in registration order.
// It is populated at startup and only read afterwards.
type Registry struct {
	logger     *zap.SugaredLogger
	version    *semver.Version
	names      map[string]struct{}
	loaded     []Metadata
	bulk       []BulkTransformer
	individual []IndividualTransformer
}

// NewRegistry creates a registry for a drone running at droneVersion
func NewRegistry(droneVersion string, logger *zap.SugaredLogger) (*Registry, error) {
	v, err := semver.NewVersion(droneVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid drone version %s", droneVersion)
	}
	return &Registry{
		logger:  logger,
		version: v,
		names:   make(map[string]struct{}),
	}, nil
}

// LoadAll loads, in catalog order, every plugin that has a section in the analysis configuration.
// Failures are logged and returned, and never stop the remaining plugins from loading.
func (r *Registry) LoadAll(catalog []Registration, sections map[string]map[string]interface{}) []error {
	var errs []error

	known := make(map[string]struct{}, len(catalog))
	for _, reg := range catalog {
		known[reg.Name] = struct{}{}
		section, enabled := sections[reg.Name]
		if !enabled {
			r.logger.Debugw("Analysis plugin not configured, skipping", "plugin", reg.Name)
			continue
		}
		if _, err := r.Load(reg, Config(section)); err != nil {
			errs = append(errs, err)
		}
	}

	unknown := []string{}
	for name := range sections {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		err := loadError(name, errors.New("no such analysis plugin"))
		r.logger.Errorw("Error loading analysis plugin", "plugin", name, "error", err)
		errs = append(errs, err)
	}

	return errs
}

// Load instantiates, checks and configures a single plugin. On failure the plugin is excluded.
func (r *Registry) Load(reg Registration, config Config) (plugin Plugin, err error) {
	defer func() {
		if err != nil {
			plugin = nil
			r.logger.Errorw("Error loading analysis plugin", "plugin", reg.Name, "error", err)
		}
	}()

	if _, exists := r.names[reg.Name]; exists {
		return nil, loadError(reg.Name, errors.New("analysis plugin already registered"))
	}

	if plugin, err = instantiate(reg); err != nil {
		return nil, loadError(reg.Name, err)
	}

	md := plugin.Metadata()
	if md.Name != reg.Name {
		return nil, loadError(reg.Name, errors.Newf("plugin reports name %q", md.Name))
	}

	if err := r.validateVersion(md); err != nil {
		return nil, loadError(reg.Name, err)
	}

	if err := configure(plugin, config); err != nil {
		return nil, loadError(reg.Name, err)
	}

	switch md.Kind {
	case Bulk:
		bt, ok := plugin.(BulkTransformer)
		if !ok {
			return nil, loadError(reg.Name, errors.New("declared Bulk but does not implement BulkTransformer"))
		}
		r.bulk = append(r.bulk, bt)
	case Individual:
		it, ok := plugin.(IndividualTransformer)
		if !ok {
			return nil, loadError(reg.Name, errors.New("declared Individual but does not implement IndividualTransformer"))
		}
		r.individual = append(r.individual, it)
	default:
		return nil, loadError(reg.Name, errors.Newf("unknown plugin kind %d", md.Kind))
	}

	r.names[reg.Name] = struct{}{}
	r.loaded = append(r.loaded, md)
	r.logger.Infow("Loaded analysis plugin", "plugin", md.Name, "kind", md.Kind, "version", md.Version)
	return plugin, nil
}

func instantiate(reg Registration) (plugin Plugin, err error) {
	if reg.Factory == nil {
		return nil, errors.New("no factory")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("panic while creating plugin: %v", rec)
		}
	}()
	plugin = reg.Factory()
	if plugin == nil {
		return nil, errors.New("factory returned nil")
	}
	return plugin, nil
}

func configure(plugin Plugin, config Config) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Newf("panic while configuring plugin: %v", rec)
		}
	}()
	if config == nil {
		config = Config{}
	}
	return plugin.Configure(config)
}

func (r *Registry) validateVersion(md Metadata) error {
	if md.DroneVersion == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(md.DroneVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %s", md.DroneVersion)
	}
	if !constraint.Check(r.version) {
		return errors.Newf("plugin requires drone %s, but running %s", md.DroneVersion, r.version)
	}
	return nil
}

//BulkPlugins returns the loaded Bulk plugins in registration order
func (r *Registry) BulkPlugins() []BulkTransformer {
	return append([]BulkTransformer(nil), r.bulk...)
}

//IndividualPlugins returns the loaded Individual plugins in registration order
func (r *Registry) IndividualPlugins() []IndividualTransformer {
	return append([]IndividualTransformer(nil), r.individual...)
}

//Loaded lists the metadata of every loaded plugin, in load order
func (r *Registry) Loaded() []Metadata {
	return append([]Metadata(nil), r.loaded...)
}
