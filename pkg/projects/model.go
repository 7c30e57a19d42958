package projects

import (
	"time"

	gitutils "github.com/adedayo/checkmate-drone/pkg/git"
)

//Status is the final state a report file reached in a run
type Status string

const (
	//Delivered every issue and archived the file
	Delivered Status = "DELIVERED"
	//Delivered every issue but compressing or moving the file failed
	ArchiveFailed Status = "ARCHIVE_FAILED"
	//At least one issue failed; the file was left for the next run
	PartiallyFailed Status = "PARTIALLY_FAILED"
	//The file could not be parsed and was left untouched
	ParseError Status = "PARSE_ERROR"
)

//DeliveryRecord is what the drone remembers about one report file in one run
type DeliveryRecord struct {
	ID        string
	ClientID  string
	ProjectID string
	Report    string           //path of the report file
	Archive   string           `json:",omitempty"` //where the archive ended up, if the file was archived
	Commit    *gitutils.Commit `json:",omitempty"` //HEAD of the source's code directory, when configured
	Issues    int              //issues left after bulk analysis
	Sent      int
	Failed    int
	Status    Status
	Time      time.Time
}

//ProjectSummary aggregates a project's delivery history
type ProjectSummary struct {
	ClientID        string
	ProjectID       string
	Deliveries      int
	IssuesDelivered int
	LastStatus      Status
	LastDelivery    time.Time
}

//History persists delivery records per client project
type History interface {
	Record(record *DeliveryRecord) error
	//Deliveries lists a project's records, oldest first
	Deliveries(clientID, projectID string) ([]*DeliveryRecord, error)
	Summary(clientID, projectID string) (*ProjectSummary, error)
	Close() error
}

//NopHistory is used when no history directory is configured
type NopHistory struct{}

var _ History = NopHistory{}

func (NopHistory) Record(*DeliveryRecord) error { return nil }

func (NopHistory) Deliveries(string, string) ([]*DeliveryRecord, error) { return nil, nil }

func (NopHistory) Summary(clientID, projectID string) (*ProjectSummary, error) {
	return &ProjectSummary{ClientID: clientID, ProjectID: projectID}, nil
}

func (NopHistory) Close() error { return nil }
