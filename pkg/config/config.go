package config

import (
	"regexp"
	"time"
)

var validatorPattern = regexp.MustCompile(`validator`)

//Config is the drone configuration. It is loaded once at startup and not modified afterwards.
type Config struct {
	PluginName       string                            `mapstructure:"plugin_name"`
	ToolName         string                            `mapstructure:"tool_name"`
	Sources          []Source                          `mapstructure:"sources"`
	ArchiveDirectory string                            `mapstructure:"archive_directory"`
	XMPP             ChannelConfig                     `mapstructure:"xmpp"`
	Analysis         map[string]map[string]interface{} `mapstructure:"-"`
	DebugLevel       int                               `mapstructure:"debug_level"`
	LogFile          string                            `mapstructure:"log_file"`
	HistoryDirectory string                            `mapstructure:"history_directory"`
	Slack            SlackConfig                       `mapstructure:"slack"`
}

//Source is one directory of reports belonging to a client project
type Source struct {
	InputDirectory string `mapstructure:"input_directory"`
	ClientID       string `mapstructure:"client_id"`
	ProjectID      string `mapstructure:"project_id"`
	//optional git working tree of the scanned application, used to stamp the revision
	CodeDirectory string `mapstructure:"code_directory"`
}

//ChannelConfig describes the messaging channel to the importer
type ChannelConfig struct {
	Server              string  `mapstructure:"server"`
	ImporterAddress     string  `mapstructure:"importer_address"`
	ReplyTimeoutSeconds int     `mapstructure:"reply_timeout_seconds"`
	DialTimeoutSeconds  int     `mapstructure:"dial_timeout_seconds"`
	MessagesPerSecond   float64 `mapstructure:"messages_per_second"`
}

//SlackConfig enables the run summary notification when both fields are set
type SlackConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

//ValidatorMode is true when the importer endpoint is a validator that answers every message
func (c ChannelConfig) ValidatorMode() bool {
	return validatorPattern.MatchString(c.ImporterAddress)
}

//ReplyTimeout is how long to wait for a validator reply; zero waits indefinitely
func (c ChannelConfig) ReplyTimeout() time.Duration {
	return time.Duration(c.ReplyTimeoutSeconds) * time.Second
}

func (c ChannelConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSeconds) * time.Second
}

//Enabled reports whether a summary should be posted
func (s SlackConfig) Enabled() bool {
	return s.Token != "" && s.ChannelID != ""
}
