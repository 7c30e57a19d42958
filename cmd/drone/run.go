package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adedayo/checkmate-drone/pkg/analysis"
	"github.com/adedayo/checkmate-drone/pkg/channel"
	"github.com/adedayo/checkmate-drone/pkg/config"
	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/drone"
	"github.com/adedayo/checkmate-drone/pkg/notify"
	"github.com/adedayo/checkmate-drone/pkg/parse/brakeman"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"github.com/adedayo/checkmate-drone/pkg/projects"
	"github.com/adedayo/checkmate-drone/pkg/util"
	"github.com/adedayo/checkmate-drone/pkg/version"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Make one delivery pass over the configured input directories",
	RunE:  runDrone,
}

//loadConfig reads the configuration, reporting a missing file the way operators expect. Other errors are
//printed with their hints by main, before any logger exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, config.ErrConfigMissing) {
		fmt.Fprintln(os.Stderr, "Configuration file is missing.")
		return nil, errors.Mark(err, errReported)
	}
	return nil, errors.Wrapf(err, "invalid configuration %s", configPath)
}

func runDrone(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := util.NewLogger(cfg.DebugLevel, cfg.LogFile)
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := plugins.NewRegistry(version.Version, logger)
	if err != nil {
		return err
	}
	if errs := registry.LoadAll(analysis.Catalog(logger), cfg.Analysis); len(errs) > 0 {
		logger.Warnw("Some analysis plugins were not loaded", "failed", len(errs), "loaded", len(registry.Loaded()))
	}

	ch, err := channel.Dial(ctx, channel.Options{
		Server:            cfg.XMPP.Server,
		Importer:          cfg.XMPP.ImporterAddress,
		ReplyTimeout:      cfg.XMPP.ReplyTimeout(),
		DialTimeout:       cfg.XMPP.DialTimeout(),
		MessagesPerSecond: cfg.XMPP.MessagesPerSecond,
	}, logger)
	if err != nil {
		logger.Errorw("Messaging channel is not active", "server", cfg.XMPP.Server, "error", err)
		return errors.Mark(err, errReported)
	}
	defer func() {
		if err := ch.Close(); err != nil {
			logger.Debugw("Error closing messaging channel", "error", err)
		}
	}()

	history := openHistory(cfg, logger)
	defer func() { _ = history.Close() }()

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Slack.Enabled() {
		notifier = notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, logger)
	}

	d := drone.New(cfg, brakeman.Parser{}, registry, ch, logger,
		drone.WithHistory(history),
		drone.WithNotifier(notifier),
		drone.WithProgress(func(p diagnostics.Progress) {
			logger.Debugw("Progress", "client", p.ClientID, "project", p.ProjectID, "file", p.CurrentFile,
				"position", p.Position, "total", p.Total, "state", p.State)
		}))

	if _, err := d.Run(ctx); err != nil {
		logger.Errorw("Run failed", "error", err, "hints", errors.GetAllHints(err))
		return errors.Mark(err, errReported)
	}
	return nil
}

//openHistory falls back to no history when the store cannot be opened; history never blocks delivery
func openHistory(cfg *config.Config, logger *zap.SugaredLogger) projects.History {
	if cfg.HistoryDirectory == "" {
		return projects.NopHistory{}
	}
	history, err := projects.NewDBHistory(cfg.HistoryDirectory)
	if err != nil {
		logger.Warnw("Could not open delivery history", "directory", cfg.HistoryDirectory, "error", err)
		return projects.NopHistory{}
	}
	return history
}
