package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adedayo/checkmate-drone/pkg/util"
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	//DefaultFileName is looked up next to the drone executable when no path is given
	DefaultFileName = "config.yml"
	envPrefix       = "DRONE"
)

var (
	//ErrConfigMissing is returned when the configuration file does not exist
	ErrConfigMissing = errors.New("configuration file is missing")
	//ErrDirectoryMissing is returned when a configured directory does not exist
	ErrDirectoryMissing = errors.New("directory is missing")
)

//SetDefaults registers the default values of every key so that environment overrides are picked up on Unmarshal
func SetDefaults(v *viper.Viper) {
	v.SetDefault("plugin_name", "brakeman")
	v.SetDefault("tool_name", "brakeman")
	v.SetDefault("archive_directory", "")
	v.SetDefault("debug_level", 0)
	v.SetDefault("log_file", "")
	v.SetDefault("history_directory", "")
	v.SetDefault("xmpp.server", "")
	v.SetDefault("xmpp.importer_address", "")
	v.SetDefault("xmpp.reply_timeout_seconds", 60)
	v.SetDefault("xmpp.dial_timeout_seconds", 15)
	v.SetDefault("xmpp.messages_per_second", 0)
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.channel_id", "")
}

//DefaultPath is config.yml in the directory of the running executable
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(filepath.Dir(exe), DefaultFileName)
}

//LoadFromFile reads, expands and validates the configuration at configPath
func LoadFromFile(configPath string) (*Config, error) {
	configPath, err := homedir.Expand(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to expand %s", configPath)
	}

	if !util.FileExists(configPath) {
		return nil, errors.WithHint(errors.Wrapf(ErrConfigMissing, "%s", configPath),
			"create config.yml next to the drone executable or pass --config")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	config.Analysis = analysisSections(v)

	if err := config.expandPaths(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

//analysisSections keeps plugin entries that have no settings ("dedupe:" or "dedupe: {}"), which Unmarshal would drop
func analysisSections(v *viper.Viper) map[string]map[string]interface{} {
	sections := make(map[string]map[string]interface{})
	for name, raw := range v.GetStringMap("analysis") {
		settings, ok := raw.(map[string]interface{})
		if !ok || settings == nil {
			settings = make(map[string]interface{})
		}
		sections[name] = settings
	}
	return sections
}

func (c *Config) expandPaths() (err error) {
	expand := func(p *string) {
		if err != nil || *p == "" {
			return
		}
		*p, err = homedir.Expand(*p)
	}

	expand(&c.ArchiveDirectory)
	expand(&c.LogFile)
	expand(&c.HistoryDirectory)
	for i := range c.Sources {
		expand(&c.Sources[i].InputDirectory)
		expand(&c.Sources[i].CodeDirectory)
	}
	return errors.Wrap(err, "failed to expand configured path")
}
