package main

import (
	"encoding/json"
	"os"
	"strconv"

	gitutils "github.com/adedayo/checkmate-drone/pkg/git"
	"github.com/adedayo/checkmate-drone/pkg/projects"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	historyClient  string
	historyProject string
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the recorded deliveries of a client project",
	Long: `List the report files the drone processed for a client project, oldest first.
Requires history_directory to be set in the configuration.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyClient, "client", "", "client id")
	historyCmd.Flags().StringVar(&historyProject, "project", "", "project id")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print JSON instead of a table")
	_ = historyCmd.MarkFlagRequired("client")
	_ = historyCmd.MarkFlagRequired("project")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.HistoryDirectory == "" {
		return errors.WithHint(errors.New("no delivery history is kept"), "set history_directory in the configuration")
	}

	history, err := projects.NewDBHistory(cfg.HistoryDirectory)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	records, err := history.Deliveries(historyClient, historyProject)
	if err != nil {
		return err
	}
	summary, err := history.Summary(historyClient, historyProject)
	if err != nil {
		return err
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Summary    *projects.ProjectSummary
			Deliveries []*projects.DeliveryRecord
		}{summary, records})
	}

	pterm.Printf("%s client %s, project %s: %d deliveries, %d issues delivered\n",
		pterm.LightCyan("History"), summary.ClientID, summary.ProjectID, summary.Deliveries, summary.IssuesDelivered)
	if len(records) == 0 {
		return nil
	}

	data := pterm.TableData{{"Time", "Status", "Report", "Issues", "Sent", "Failed", "Commit", "Archive"}}
	for _, r := range records {
		data = append(data, []string{
			r.Time.Format("2006-01-02 15:04:05"),
			statusText(r.Status),
			r.Report,
			strconv.Itoa(r.Issues),
			strconv.Itoa(r.Sent),
			strconv.Itoa(r.Failed),
			commitText(r.Commit),
			r.Archive,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func statusText(status projects.Status) string {
	switch status {
	case projects.Delivered:
		return pterm.LightGreen(string(status))
	case projects.PartiallyFailed, projects.ArchiveFailed:
		return pterm.Yellow(string(status))
	default:
		return pterm.Red(string(status))
	}
}

func commitText(commit *gitutils.Commit) string {
	if commit == nil {
		return ""
	}
	if commit.Branch == "" {
		return commit.Short()
	}
	return commit.Short() + " (" + commit.Branch + ")"
}
