package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adedayo/checkmate-drone/pkg/analysis"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"github.com/adedayo/checkmate-drone/pkg/util"
	"github.com/adedayo/checkmate-drone/pkg/version"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var (
	servePlugin string
	serveListen string
)

var serveTransformCmd = &cobra.Command{
	Use:   "serve-transform",
	Short: "Serve a built-in bulk analysis plugin over HTTP",
	Long: `Run one of the built-in bulk analysis plugins as a transform service, configured from its
section under "analysis". Another drone reaches it through the "remote" analysis plugin.

Example:
  drone serve-transform --plugin exclude --listen :9090`,
	RunE: runServeTransform,
}

func init() {
	serveTransformCmd.Flags().StringVar(&servePlugin, "plugin", "", "name of the bulk plugin to serve")
	serveTransformCmd.Flags().StringVar(&serveListen, "listen", "127.0.0.1:9090", "address to listen on")
	_ = serveTransformCmd.MarkFlagRequired("plugin")
}

func runServeTransform(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := util.NewLogger(cfg.DebugLevel, cfg.LogFile)
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}
	defer closeLog()

	if servePlugin == analysis.RemoteName {
		return errors.New("the remote plugin cannot be served")
	}

	registry, err := plugins.NewRegistry(version.Version, logger)
	if err != nil {
		return err
	}
	var transformer plugins.BulkTransformer
	for _, reg := range analysis.Catalog(logger) {
		if reg.Name != servePlugin {
			continue
		}
		plugin, err := registry.Load(reg, plugins.Config(cfg.Analysis[reg.Name]))
		if err != nil {
			return err
		}
		bt, ok := plugin.(plugins.BulkTransformer)
		if !ok || plugin.Metadata().Kind != plugins.Bulk {
			return errors.Newf("%s is not a bulk plugin", servePlugin)
		}
		transformer = bt
	}
	if transformer == nil {
		return errors.WithHintf(errors.Newf("no such analysis plugin %s", servePlugin),
			"available plugins: %s, %s", analysis.ExcludeName, analysis.DedupeName)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              serveListen,
		Handler:           plugins.NewTransformHandler(transformer, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdown)
	}()

	logger.Infow("Serving analysis plugin", "plugin", servePlugin, "address", serveListen, "path", plugins.TransformPath)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "failed to serve on %s", serveListen)
	}
	return nil
}
