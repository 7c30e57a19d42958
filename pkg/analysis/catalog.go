// Package analysis holds the analysis plugins built into the drone.
//
// A plugin runs when the configuration has a section for it under "analysis", even an empty one:
//
//	analysis:
//	  exclude:
//	    file: /etc/drone/exclusions.yml
//	  dedupe:
//	  severity:
//	    low: info
//
// Plugins run in catalog order, Bulk ones first for the whole report, then Individual ones per issue.
package analysis

import (
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"go.uber.org/zap"
)

const droneConstraint = ">= 1.0.0, < 2.0.0"

//Catalog lists the built-in plugins in the order they run
func Catalog(logger *zap.SugaredLogger) []plugins.Registration {
	return []plugins.Registration{
		{Name: ExcludeName, Factory: func() plugins.Plugin { return &Exclude{logger: logger} }},
		{Name: DedupeName, Factory: func() plugins.Plugin { return &Dedupe{} }},
		{Name: RemoteName, Factory: func() plugins.Plugin { return &Remote{logger: logger} }},
		{Name: NormaliseName, Factory: func() plugins.Plugin { return &Normalise{} }},
		{Name: SeverityName, Factory: func() plugins.Plugin { return &Severity{} }},
	}
}
