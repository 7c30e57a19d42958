package plugins

import (
	"context"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
)

//ApplyBulk runs every bulk plugin once over the issues, each plugin receiving the previous one's output
func ApplyBulk(ctx context.Context, transformers []BulkTransformer, issues []diagnostics.Issue) []diagnostics.Issue {
	for _, t := range transformers {
		issues = t.TransformAll(ctx, issues)
	}
	if issues == nil {
		issues = []diagnostics.Issue{}
	}
	return issues
}

//ApplyIndividual threads a single issue through the individual plugins
func ApplyIndividual(ctx context.Context, transformers []IndividualTransformer, issue diagnostics.Issue) diagnostics.Issue {
	for _, t := range transformers {
		issue = t.Transform(ctx, issue)
	}
	return issue
}
