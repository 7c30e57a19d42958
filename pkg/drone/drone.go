// Package drone runs one delivery pass over the configured report directories.
package drone

import (
	"context"
	"time"

	"github.com/adedayo/checkmate-drone/pkg/archive"
	"github.com/adedayo/checkmate-drone/pkg/channel"
	"github.com/adedayo/checkmate-drone/pkg/config"
	"github.com/adedayo/checkmate-drone/pkg/conviso"
	"github.com/adedayo/checkmate-drone/pkg/diagnostics"
	gitutils "github.com/adedayo/checkmate-drone/pkg/git"
	"github.com/adedayo/checkmate-drone/pkg/notify"
	"github.com/adedayo/checkmate-drone/pkg/parse"
	"github.com/adedayo/checkmate-drone/pkg/plugins"
	"github.com/adedayo/checkmate-drone/pkg/projects"
	"github.com/adedayo/checkmate-drone/pkg/util"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//ErrChannelInactive is returned by Run when the channel is down at the start of the run
var ErrChannelInactive = errors.New("messaging channel is not active")

//Drone delivers the reports found in the configured sources and archives those fully delivered
type Drone struct {
	config    *config.Config
	parser    parse.Parser
	channel   channel.Channel
	delivery  *Delivery
	archiver  *archive.Manager
	history   projects.History
	notifier  notify.Notifier
	revisions *gitutils.RevisionCache
	progress  func(diagnostics.Progress)
	logger    *zap.SugaredLogger
}

//Option customises a Drone
type Option func(*Drone)

//WithHistory records every processed file in history
func WithHistory(history projects.History) Option {
	return func(d *Drone) {
		d.history = history
	}
}

//WithNotifier publishes the run summary through notifier
func WithNotifier(notifier notify.Notifier) Option {
	return func(d *Drone) {
		d.notifier = notifier
	}
}

//WithProgress calls callback every time a file changes state
func WithProgress(callback func(diagnostics.Progress)) Option {
	return func(d *Drone) {
		d.progress = callback
	}
}

//New creates a drone over the plugins loaded in registry
func New(cfg *config.Config, parser parse.Parser, registry *plugins.Registry, ch channel.Channel,
	logger *zap.SugaredLogger, options ...Option) *Drone {
	d := &Drone{
		config:    cfg,
		parser:    parser,
		channel:   ch,
		delivery:  NewDelivery(registry, ch, cfg.XMPP.ValidatorMode(), logger),
		archiver:  archive.NewManager(cfg.ArchiveDirectory, logger),
		history:   projects.NopHistory{},
		notifier:  notify.NopNotifier{},
		revisions: gitutils.NewRevisionCache(),
		progress:  func(diagnostics.Progress) {},
		logger:    logger,
	}
	for _, option := range options {
		option(d)
	}
	return d
}

//Run makes one pass over every source. Only an inactive channel or cancellation make it return an error;
//problems with individual files are logged, counted in the summary and left for the next run.
func (d *Drone) Run(ctx context.Context) (summary diagnostics.RunSummary, err error) {
	summary = diagnostics.RunSummary{Drone: d.config.PluginName, Started: time.Now()}
	d.logger.Infof("Starting %s Drone", d.config.PluginName)

	if !d.channel.Active() {
		summary.Finished = time.Now()
		return summary, errors.WithHint(ErrChannelInactive, "check the xmpp server address and that the importer is reachable")
	}

	for _, source := range d.config.Sources {
		if ctx.Err() != nil {
			break
		}
		summary.Sources++
		d.runSource(ctx, source, &summary)
	}

	summary.Finished = time.Now()
	d.logger.Infow("Run finished",
		"files", summary.Files,
		"delivered", summary.Delivered,
		"archived", summary.Archived,
		"partiallyFailed", summary.PartialFailure,
		"parseErrors", summary.ParseErrors,
		"issuesSent", summary.IssuesSent,
		"issuesFailed", summary.IssuesFailed,
		"duration", summary.Duration().String())

	if nerr := d.notifier.Notify(context.WithoutCancel(ctx), summary); nerr != nil {
		d.logger.Warnw("Could not publish run summary", "error", nerr)
	}

	if cerr := ctx.Err(); cerr != nil {
		return summary, errors.Wrap(cerr, "run interrupted")
	}
	return summary, nil
}

func (d *Drone) runSource(ctx context.Context, source config.Source, summary *diagnostics.RunSummary) {
	files, err := util.FindFiles(source.InputDirectory, d.parser.Pattern())
	if err != nil {
		d.logger.Errorw("Error scanning input directory", "directory", source.InputDirectory, "error", err)
		return
	}
	d.logger.Infow("Scanning source", "parser", d.parser.Name(), "directory", source.InputDirectory,
		"client", source.ClientID, "project", source.ProjectID, "files", len(files))

	target := conviso.Target{
		ClientID:  source.ClientID,
		ProjectID: source.ProjectID,
		ToolName:  d.config.ToolName,
	}
	commit, err := d.revisions.Head(source.CodeDirectory)
	if err != nil {
		d.logger.Warnw("Could not determine code revision", "directory", source.CodeDirectory, "error", err)
	}
	if commit != nil {
		target.Revision = commit.Hash
	}

	for i, file := range files {
		if ctx.Err() != nil {
			return
		}
		summary.Files++
		report := func(state State) {
			d.progress(diagnostics.Progress{
				ClientID:    source.ClientID,
				ProjectID:   source.ProjectID,
				Position:    int64(i + 1),
				Total:       int64(len(files)),
				CurrentFile: file,
				State:       state.String(),
			})
		}
		d.processFile(ctx, file, target, commit, summary, report)
	}
}

//processFile takes one report file through the pipeline and returns the state it ended in
func (d *Drone) processFile(ctx context.Context, file string, target conviso.Target, commit *gitutils.Commit,
	summary *diagnostics.RunSummary, progress func(State)) State {
	record := &projects.DeliveryRecord{
		ID:        uuid.NewString(),
		ClientID:  target.ClientID,
		ProjectID: target.ProjectID,
		Report:    file,
		Commit:    commit,
	}
	progress(Discovered)

	report, err := d.parser.ParseFile(file)
	if err != nil {
		d.logger.Errorw("Error parsing file", "file", file, "error", err)
		summary.ParseErrors++
		d.record(record, projects.ParseError)
		progress(ParseError)
		return ParseError
	}
	progress(Parsed)
	d.logger.Debugw("Parsed report", "file", file, "issues", report.Len(), "metadata", report.Metadata)

	issues := d.delivery.Transform(ctx, report.Issues)
	progress(BulkTransformed)

	progress(Delivering)
	outcome := d.delivery.DeliverAll(ctx, issues, target)
	summary.IssuesSent += outcome.Sent
	summary.IssuesFailed += outcome.Failed
	record.Issues = outcome.Total
	record.Sent = outcome.Sent
	record.Failed = outcome.Failed

	if !outcome.Delivered() {
		d.logger.Warnw("Report not fully delivered, leaving it for the next run", "file", file,
			"sent", outcome.Sent, "failed", outcome.Failed)
		summary.PartialFailure++
		d.record(record, projects.PartiallyFailed)
		progress(PartiallyFailed)
		return PartiallyFailed
	}
	summary.Delivered++
	progress(Delivered)
	d.logger.Infow("Report delivered", "file", file, "issues", outcome.Total)

	zipPath, err := d.archiver.Compress(file)
	if err != nil {
		d.logger.Errorw("Error compressing report", "file", file, "error", err)
		d.record(record, projects.ArchiveFailed)
		progress(ArchiveError)
		return ArchiveError
	}
	progress(Compressed)

	dest, err := d.archiver.Relocate(zipPath)
	record.Archive = dest
	if err != nil {
		d.logger.Errorw("Error moving archive", "archive", zipPath, "error", err)
		d.record(record, projects.ArchiveFailed)
		progress(ArchiveError)
		return ArchiveError
	}
	summary.Archived++
	d.record(record, projects.Delivered)
	progress(Archived)
	return Archived
}

func (d *Drone) record(record *projects.DeliveryRecord, status projects.Status) {
	record.Status = status
	record.Time = time.Now()
	if err := d.history.Record(record); err != nil {
		d.logger.Warnw("Could not record delivery history", "file", record.Report, "error", err)
	}
}
