package analysis

import (
	"context"
	"os"
	"strings"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const ExcludeName = "exclude"

//Exclude drops false positives using exclusion rules kept in their own YAML file (see
//diagnostics.GenerateSampleExclusion) and, optionally, anything below a minimum confidence
type Exclude struct {
	logger        *zap.SugaredLogger
	provider      diagnostics.ExclusionProvider
	minConfidence diagnostics.Confidence
}

var _ plugins.BulkTransformer = (*Exclude)(nil)

type excludeConfig struct {
	File          string `yaml:"file"`
	MinConfidence string `yaml:"min_confidence"`
}

func (e *Exclude) Metadata() plugins.Metadata {
	return plugins.Metadata{
		Name:         ExcludeName,
		Version:      "1.0.0",
		Description:  "drops issues matching exclusion rules",
		Kind:         plugins.Bulk,
		DroneVersion: droneConstraint,
	}
}

func (e *Exclude) Configure(config plugins.Config) error {
	var cfg excludeConfig
	if err := config.Decode(&cfg); err != nil {
		return err
	}
	if cfg.File == "" && cfg.MinConfidence == "" {
		return errors.New("exclude needs a rules file or a min_confidence")
	}

	e.provider = diagnostics.MakeEmptyExcludes()
	if cfg.File != "" {
		provider, err := loadExclusions(cfg.File)
		if err != nil {
			return err
		}
		e.provider = provider
	}

	e.minConfidence = diagnostics.Low
	if cfg.MinConfidence != "" {
		c, err := diagnostics.ParseConfidence(cfg.MinConfidence)
		if err != nil {
			return errors.Wrap(err, "bad min_confidence")
		}
		e.minConfidence = c
	}
	return nil
}

func loadExclusions(file string) (diagnostics.ExclusionProvider, error) {
	path, err := homedir.Expand(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to expand %s", file)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read exclusion rules %s", path)
	}
	var def diagnostics.ExcludeDefinition
	if strings.TrimSpace(string(data)) != "" {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, errors.Wrapf(err, "failed to parse exclusion rules %s", path)
		}
	}
	provider, err := diagnostics.CompileExcludes(&def)
	if err != nil {
		return nil, errors.Wrapf(err, "bad exclusion rule in %s", path)
	}
	return provider, nil
}

func (e *Exclude) TransformAll(_ context.Context, issues []diagnostics.Issue) []diagnostics.Issue {
	out := make([]diagnostics.Issue, 0, len(issues))
	for _, issue := range issues {
		if e.provider.ShouldExclude(issue) || issue.Confidence() < e.minConfidence {
			e.logger.Debugw("Excluding issue",
				"warning_type", issue.String(diagnostics.AttrWarningType),
				"file", issue.String(diagnostics.AttrFile),
				"fingerprint", issue.String(diagnostics.AttrFingerprint))
			continue
		}
		out = append(out, issue)
	}
	return out
}
