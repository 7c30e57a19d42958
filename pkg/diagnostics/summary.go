package diagnostics

import "time"

//RunSummary totals the outcome of one drone run
type RunSummary struct {
	Drone          string
	Started        time.Time
	Finished       time.Time
	Sources        int
	Files          int
	Delivered      int //files whose every issue was delivered
	Archived       int //delivered files that were compressed and relocated
	PartialFailure int //files left in place because an issue failed
	ParseErrors    int //files left in place because they could not be parsed
	IssuesSent     int
	IssuesFailed   int
}

//Duration of the run
func (s RunSummary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

//Clean is true when nothing was left behind for the next run
func (s RunSummary) Clean() bool {
	return s.PartialFailure == 0 && s.ParseErrors == 0 && s.Delivered == s.Archived
}
