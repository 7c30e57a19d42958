package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const RemoteName = "remote"

//Remote hands the report's issues to a transform microservice (see plugins.NewTransformHandler).
//Any failure leaves the issues as they were.
type Remote struct {
	logger       *zap.SugaredLogger
	transformURL string
	client       *http.Client
}

var _ plugins.BulkTransformer = (*Remote)(nil)

type remoteConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (p *Remote) Metadata() plugins.Metadata {
	return plugins.Metadata{
		Name:         RemoteName,
		Version:      "1.0.0",
		Description:  "delegates the bulk transform to an HTTP microservice",
		Kind:         plugins.Bulk,
		DroneVersion: droneConstraint,
	}
}

func (p *Remote) Configure(config plugins.Config) error {
	cfg := remoteConfig{TimeoutSeconds: 30}
	if err := config.Decode(&cfg); err != nil {
		return err
	}
	if cfg.URL == "" {
		return errors.New("remote needs a url")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf("bad remote url %q", cfg.URL)
	}
	if !strings.HasSuffix(u.Path, plugins.TransformPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + plugins.TransformPath
	}
	if cfg.TimeoutSeconds < 0 {
		return errors.Newf("timeout_seconds must be >= 0, got %d", cfg.TimeoutSeconds)
	}

	p.transformURL = u.String()
	p.client = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	return nil
}

func (p *Remote) TransformAll(ctx context.Context, issues []diagnostics.Issue) []diagnostics.Issue {
	data, err := json.Marshal(plugins.TransformRequest{Issues: issues})
	if err != nil {
		p.logger.Errorw("Error marshalling issues", "error", err)
		return issues //noop
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.transformURL, bytes.NewReader(data))
	if err != nil {
		p.logger.Errorw("Error creating transform request", "url", p.transformURL, "error", err)
		return issues
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Errorw("Error invoking microservice transform endpoint", "url", p.transformURL, "error", err)
		return issues
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Errorw("Microservice transform endpoint failed", "url", p.transformURL, "status", resp.StatusCode)
		return issues
	}

	out := []diagnostics.Issue{}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		p.logger.Errorw("Error decoding transformed issues", "url", p.transformURL, "error", err)
		return issues
	}
	return out
}
