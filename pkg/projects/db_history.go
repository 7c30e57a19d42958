package projects

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

type dbHistory struct {
	location      string
	db            *badger.DB
	deliveryTable string
	summaryTable  string
}

//NewDBHistory opens (creating if needed) a badger-backed history under baseDir
func NewDBHistory(baseDir string) (History, error) {
	h := &dbHistory{
		location:      path.Join(baseDir, "history_db"),
		deliveryTable: "deliv_",
		summaryTable:  "psum_",
	}

	if err := os.MkdirAll(h.location, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", h.location)
	}

	opts := badger.DefaultOptions(h.location).WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open delivery history at %s", h.location)
	}
	h.db = db
	return h, nil
}

func (h *dbHistory) Close() error {
	if h.db != nil {
		return h.db.Close()
	}
	return errors.New("Attempting to close uninitialised DB")
}

func (h *dbHistory) Record(record *DeliveryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Time.IsZero() {
		record.Time = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "failed to encode delivery record")
	}

	return h.db.Update(func(txn *badger.Txn) error {
		key := toKey(string(projectPrefix(h.deliveryTable, record.ClientID, record.ProjectID)),
			fmt.Sprintf("%020d/", record.Time.UnixNano()), record.ID)
		if err := txn.Set(key, data); err != nil {
			return err
		}

		summary, err := h.loadSummary(txn, record.ClientID, record.ProjectID)
		if err != nil {
			return err
		}
		summary.Deliveries++
		summary.IssuesDelivered += record.Sent
		summary.LastStatus = record.Status
		if record.Time.After(summary.LastDelivery) {
			summary.LastDelivery = record.Time
		}
		sdata, err := json.Marshal(summary)
		if err != nil {
			return err
		}
		return txn.Set(projectPrefix(h.summaryTable, record.ClientID, record.ProjectID), sdata)
	})
}

func (h *dbHistory) Deliveries(clientID, projectID string) (records []*DeliveryRecord, err error) {
	err = h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := projectPrefix(h.deliveryTable, clientID, projectID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec DeliveryRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				records = append(records, &rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return
}

func (h *dbHistory) Summary(clientID, projectID string) (summary *ProjectSummary, err error) {
	err = h.db.View(func(txn *badger.Txn) error {
		summary, err = h.loadSummary(txn, clientID, projectID)
		return err
	})
	return
}

func (h *dbHistory) loadSummary(txn *badger.Txn, clientID, projectID string) (*ProjectSummary, error) {
	summary := &ProjectSummary{ClientID: clientID, ProjectID: projectID}
	item, err := txn.Get(projectPrefix(h.summaryTable, clientID, projectID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return summary, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, summary); err != nil {
		return nil, errors.Wrap(err, "failed to decode project summary")
	}
	return summary, nil
}

//client and project IDs are escaped so one project's prefix never matches another's
func projectPrefix(table, clientID, projectID string) []byte {
	return toKey(table, escape(clientID), "/", escape(projectID), "/")
}

func escape(s string) string {
	return strings.NewReplacer("%", "%25", "/", "%2F").Replace(s)
}

func toKey(keys ...string) []byte {
	return []byte(strings.Join(keys, ""))
}
