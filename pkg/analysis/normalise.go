package analysis

import (
	"context"
	"strings"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

const NormaliseName = "normalise"

//Normalise puts every string attribute into a single Unicode normal form and trims surrounding
//whitespace, so the importer sees the same text for the same finding across runs
type Normalise struct {
	form norm.Form
	trim bool
}

var _ plugins.IndividualTransformer = (*Normalise)(nil)

type normaliseConfig struct {
	Form string `yaml:"form"`
	Trim *bool  `yaml:"trim"`
}

func (n *Normalise) Metadata() plugins.Metadata {
	return plugins.Metadata{
		Name:         NormaliseName,
		Version:      "1.0.0",
		Description:  "unicode-normalises issue text",
		Kind:         plugins.Individual,
		DroneVersion: droneConstraint,
	}
}

func (n *Normalise) Configure(config plugins.Config) error {
	var cfg normaliseConfig
	if err := config.Decode(&cfg); err != nil {
		return err
	}
	switch strings.ToUpper(cfg.Form) {
	case "", "NFC":
		n.form = norm.NFC
	case "NFD":
		n.form = norm.NFD
	case "NFKC":
		n.form = norm.NFKC
	case "NFKD":
		n.form = norm.NFKD
	default:
		return errors.Newf("unknown normal form %q", cfg.Form)
	}
	n.trim = cfg.Trim == nil || *cfg.Trim
	return nil
}

func (n *Normalise) Transform(_ context.Context, issue diagnostics.Issue) diagnostics.Issue {
	out := issue.Clone()
	for k, v := range out {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = n.form.String(s)
		if n.trim {
			s = strings.TrimSpace(s)
		}
		out[k] = s
	}
	return out
}
