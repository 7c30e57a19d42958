package plugins

import (
	"bytes"
	"context"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

//Kind says which stage of the pipeline a plugin runs in
type Kind int

const (
	//Bulk plugins see the whole issue sequence of a report once, before any issue is delivered
	Bulk Kind = iota
	//Individual plugins see one issue at a time, right before it is delivered
	Individual
)

func (k Kind) String() string {
	switch k {
	case Bulk:
		return "Bulk"
	case Individual:
		return "Individual"
	default:
		return "Unknown"
	}
}

//Metadata describes a plugin
type Metadata struct {
	Name        string
	Version     string
	Description string
	Kind        Kind
	//DroneVersion is a semver constraint on the drone, e.g. ">= 1.0.0, < 2.0.0". Empty means any.
	DroneVersion string
}

//Plugin is the part common to every analysis plugin
type Plugin interface {
	Metadata() Metadata
	//Configure receives the plugin's section of the analysis configuration, which may be empty
	Configure(config Config) error
}

//BulkTransformer rewrites the full issue sequence of a report. It may drop, reorder or add issues.
type BulkTransformer interface {
	Plugin
	TransformAll(ctx context.Context, issues []diagnostics.Issue) []diagnostics.Issue
}

//IndividualTransformer rewrites a single issue
type IndividualTransformer interface {
	Plugin
	Transform(ctx context.Context, issue diagnostics.Issue) diagnostics.Issue
}

//Config is a plugin's sub-configuration, as found under analysis.<name>
type Config map[string]interface{}

//Decode fills out (a pointer to a struct with yaml tags) from the configuration. Unknown keys are an error.
func (c Config) Decode(out interface{}) error {
	if len(c) == 0 {
		return nil
	}
	data, err := yaml.Marshal(map[string]interface{}(c))
	if err != nil {
		return errors.Wrap(err, "failed to encode plugin configuration")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode plugin configuration")
	}
	return nil
}
