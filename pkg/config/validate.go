package config

import (
	"github.com/adedayo/checkmate-drone/pkg/util"
	"github.com/cockroachdb/errors"
)

// Validate checks the configuration, including that every configured directory exists
func (c *Config) Validate() error {
	if c.XMPP.Server == "" {
		return errors.New("xmpp.server cannot be empty")
	}

	if c.XMPP.ReplyTimeoutSeconds < 0 {
		return errors.Newf("xmpp.reply_timeout_seconds must be >= 0, got %d", c.XMPP.ReplyTimeoutSeconds)
	}
	if c.XMPP.DialTimeoutSeconds < 0 {
		return errors.Newf("xmpp.dial_timeout_seconds must be >= 0, got %d", c.XMPP.DialTimeoutSeconds)
	}
	// 0 = unlimited
	if c.XMPP.MessagesPerSecond < 0 {
		return errors.Newf("xmpp.messages_per_second must be >= 0, got %f", c.XMPP.MessagesPerSecond)
	}

	for i, source := range c.Sources {
		if source.InputDirectory == "" {
			return errors.Newf("sources[%d].input_directory cannot be empty", i)
		}
		if !util.DirectoryExists(source.InputDirectory) {
			return errors.WithHintf(errors.Wrapf(ErrDirectoryMissing, "input directory %s", source.InputDirectory),
				"create the directory or fix sources[%d].input_directory", i)
		}
	}

	if c.ArchiveDirectory != "" && !util.DirectoryExists(c.ArchiveDirectory) {
		return errors.WithHint(errors.Wrapf(ErrDirectoryMissing, "archive directory %s", c.ArchiveDirectory),
			"create the directory or remove archive_directory")
	}

	return nil
}
