package drone

import (
	"bytes"
	"context"

	"github.com/adedayo/checkmate-drone/pkg/channel"
	"github.com/adedayo/checkmate-drone/pkg/conviso"
	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"go.uber.org/zap"
)

//AcceptToken is what a validator reply must contain for the issue to count as delivered
var AcceptToken = []byte("[OK]")

//Outcome of delivering one report's issues
type Outcome struct {
	Total  int
	Sent   int
	Failed int
}

//Delivered is the AND over every issue's result; a report without issues is delivered
func (o Outcome) Delivered() bool {
	return o.Failed == 0
}

//Delivery applies the analysis plugins to a report and sends its issues over the channel
type Delivery struct {
	bulk       []plugins.BulkTransformer
	individual []plugins.IndividualTransformer
	channel    channel.Channel
	validator  bool
	logger     *zap.SugaredLogger
}

//NewDelivery uses the plugins loaded in registry. In validator mode every send waits for a verdict.
func NewDelivery(registry *plugins.Registry, ch channel.Channel, validator bool, logger *zap.SugaredLogger) *Delivery {
	return &Delivery{
		bulk:       registry.BulkPlugins(),
		individual: registry.IndividualPlugins(),
		channel:    ch,
		validator:  validator,
		logger:     logger,
	}
}

//Transform runs the bulk plugins over the report's issues
func (d *Delivery) Transform(ctx context.Context, issues []diagnostics.Issue) []diagnostics.Issue {
	return plugins.ApplyBulk(ctx, d.bulk, issues)
}

//DeliverAll runs the individual plugins on each issue and sends it. Every issue is attempted even after
//a failure, unless the context ends, in which case the rest count as failed without being sent.
func (d *Delivery) DeliverAll(ctx context.Context, issues []diagnostics.Issue, target conviso.Target) Outcome {
	outcome := Outcome{Total: len(issues)}
	for i, issue := range issues {
		if ctx.Err() != nil {
			d.logger.Warnw("Run cancelled, remaining issues not sent", "remaining", len(issues)-i)
			outcome.Failed += len(issues) - i
			break
		}
		issue = plugins.ApplyIndividual(ctx, d.individual, issue)
		if d.deliver(ctx, issue, target) {
			outcome.Sent++
		} else {
			outcome.Failed++
		}
	}
	return outcome
}

func (d *Delivery) deliver(ctx context.Context, issue diagnostics.Issue, target conviso.Target) bool {
	payload, err := conviso.BuildXML(issue, target)
	if err != nil {
		d.logger.Errorw("Error building message", "fingerprint", issue.String(diagnostics.AttrFingerprint), "error", err)
		return false
	}

	if err := d.channel.Send(ctx, payload); err != nil {
		d.logger.Errorw("Error sending issue", "fingerprint", issue.String(diagnostics.AttrFingerprint), "error", err)
		return false
	}

	if !d.validator {
		return true
	}

	reply, err := d.channel.Receive(ctx)
	if err != nil {
		d.logger.Errorw("No reply from validator", "fingerprint", issue.String(diagnostics.AttrFingerprint), "error", err)
		return false
	}
	if !bytes.Contains(reply, AcceptToken) {
		d.logger.Errorw("Invalid message", "fingerprint", issue.String(diagnostics.AttrFingerprint), "reply", string(reply))
		return false
	}
	d.logger.Debugw("Valid message", "fingerprint", issue.String(diagnostics.AttrFingerprint))
	return true
}
