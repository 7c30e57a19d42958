// Package notify tells humans how a drone run went.
package notify

import (
	"bytes"
	"context"
	"text/template"

	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	"github.com/cockroachdb/errors"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

const slackSummaryTemplate = `
{{- if .Clean }}{{ printf "%s drone run completed" .Drone }}{{ else }}{{ printf "%s drone run completed with files left for retry" .Drone }}{{ end }}
{{ printf "%15s%5d" "Sources: " .Sources }}
{{ printf "%15s%5d" "Files: " .Files }}
{{ printf "%15s%5d" "Delivered: " .Delivered }}
{{ printf "%15s%5d" "Archived: " .Archived }}
{{- if .PartialFailure }}
{{ printf "%15s%5d" "Failed: " .PartialFailure }}{{ end }}
{{- if .ParseErrors }}
{{ printf "%15s%5d" "Unparseable: " .ParseErrors }}{{ end }}
{{ printf "Issues sent: %d, failed: %d" .IssuesSent .IssuesFailed }}
{{ printf "Took %s" .Duration }}`

//Notifier publishes a run summary
type Notifier interface {
	Notify(ctx context.Context, summary diagnostics.RunSummary) error
}

//NopNotifier is used when no notification target is configured
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, diagnostics.RunSummary) error { return nil }

//SlackNotifier posts the run summary to a Slack channel
type SlackNotifier struct {
	client  *slack.Client
	channel string
	tmpl    *template.Template
	logger  *zap.SugaredLogger
}

var _ Notifier = (*SlackNotifier)(nil)

//NewSlackNotifier creates a notifier posting to channelID. Options are passed on to the Slack client.
func NewSlackNotifier(token, channelID string, logger *zap.SugaredLogger, options ...slack.Option) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token, options...),
		channel: channelID,
		tmpl:    template.Must(template.New("slack").Parse(slackSummaryTemplate)),
		logger:  logger,
	}
}

//Format renders the summary as message text
func (sn *SlackNotifier) Format(summary diagnostics.RunSummary) (string, error) {
	var buffer bytes.Buffer
	if err := sn.tmpl.Execute(&buffer, summary); err != nil {
		return "", errors.Wrap(err, "failed to render run summary")
	}
	return buffer.String(), nil
}

func (sn *SlackNotifier) Notify(ctx context.Context, summary diagnostics.RunSummary) error {
	text, err := sn.Format(summary)
	if err != nil {
		return err
	}
	block := slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", "```"+text+"```", false, false), nil, nil)
	channelID, timestamp, err := sn.client.PostMessageContext(ctx, sn.channel,
		slack.MsgOptionText(text, false), slack.MsgOptionBlocks(block))
	if err != nil {
		return errors.Wrapf(err, "failed to post run summary to %s", sn.channel)
	}
	sn.logger.Infow("Run summary sent to Slack", "channel", channelID, "timestamp", timestamp)
	return nil
}
