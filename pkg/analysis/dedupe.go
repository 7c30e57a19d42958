package analysis

import (
	"context"
	"strings"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
)

const DedupeName = "dedupe"

//Dedupe keeps the first of several issues sharing the same identity attributes
type Dedupe struct {
	keys []string
}

var _ plugins.BulkTransformer = (*Dedupe)(nil)

type dedupeConfig struct {
	Keys []string `yaml:"keys"`
}

func (d *Dedupe) Metadata() plugins.Metadata {
	return plugins.Metadata{
		Name:         DedupeName,
		Version:      "1.0.0",
		Description:  "removes repeated issues",
		Kind:         plugins.Bulk,
		DroneVersion: droneConstraint,
	}
}

func (d *Dedupe) Configure(config plugins.Config) error {
	cfg := dedupeConfig{Keys: []string{diagnostics.AttrFingerprint}}
	if err := config.Decode(&cfg); err != nil {
		return err
	}
	if len(cfg.Keys) == 0 {
		cfg.Keys = []string{diagnostics.AttrFingerprint}
	}
	d.keys = cfg.Keys
	return nil
}

func (d *Dedupe) TransformAll(_ context.Context, issues []diagnostics.Issue) []diagnostics.Issue {
	seen := make(map[string]struct{}, len(issues))
	out := make([]diagnostics.Issue, 0, len(issues))
	for _, issue := range issues {
		key, ok := d.identity(issue)
		if !ok {
			//nothing to compare on
			out = append(out, issue)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, issue)
	}
	return out
}

func (d *Dedupe) identity(issue diagnostics.Issue) (string, bool) {
	parts := make([]string, len(d.keys))
	found := false
	for i, k := range d.keys {
		parts[i] = issue.String(k)
		found = found || parts[i] != ""
	}
	return strings.Join(parts, "\x00"), found
}
