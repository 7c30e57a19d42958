package analysis

import (
	"context"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
)

const SeverityName = "severity"

//Severity derives the importer's severity attribute from the scanner's confidence
type Severity struct {
	mapping   map[diagnostics.Confidence]string
	overwrite bool
}

var _ plugins.IndividualTransformer = (*Severity)(nil)

type severityConfig struct {
	High      string `yaml:"high"`
	Medium    string `yaml:"medium"`
	Low       string `yaml:"low"`
	Overwrite bool   `yaml:"overwrite"`
}

func (s *Severity) Metadata() plugins.Metadata {
	return plugins.Metadata{
		Name:         SeverityName,
		Version:      "1.0.0",
		Description:  "maps confidence to severity",
		Kind:         plugins.Individual,
		DroneVersion: droneConstraint,
	}
}

func (s *Severity) Configure(config plugins.Config) error {
	cfg := severityConfig{High: "high", Medium: "medium", Low: "low"}
	if err := config.Decode(&cfg); err != nil {
		return err
	}
	s.mapping = map[diagnostics.Confidence]string{
		diagnostics.High:   cfg.High,
		diagnostics.Medium: cfg.Medium,
		diagnostics.Low:    cfg.Low,
	}
	s.overwrite = cfg.Overwrite
	return nil
}

func (s *Severity) Transform(_ context.Context, issue diagnostics.Issue) diagnostics.Issue {
	if issue.Has(diagnostics.AttrSeverity) && !s.overwrite {
		return issue
	}
	out := issue.Clone()
	out[diagnostics.AttrSeverity] = s.mapping[issue.Confidence()]
	return out
}
