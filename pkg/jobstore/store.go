// Package jobstore persists the job records kept by the local service. Records
// are keyed by (jid, system id): one job dispatched to three systems is three
// records sharing a jid.
package jobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"time"

	"github.com/quatton/qsys/pkg/qsys/models"
)

// ErrNotFound is returned when no record exists for a (jid, system id) pair.
var ErrNotFound = errors.New("jobstore: job not found")

// Job is one job as seen by a single target system.
type Job struct {
	JID                  string          `json:"jid"`
	SystemID             string          `json:"id"`
	State                models.JobState `json:"state"`
	CreatedTimestamp     time.Time       `json:"createdTimestamp"`
	LastUpdatedTimestamp time.Time       `json:"lastUpdatedTimestamp"`
	DispatchedTimestamp  *time.Time      `json:"dispatchedTimestamp,omitempty"`
	Metadata             map[string]any  `json:"metadata,omitempty"`
	User                 string          `json:"user,omitempty"`
	Targets              []string        `json:"tgt"`
	Functions            []string        `json:"fun"`
	Arguments            [][]any         `json:"arg"`
	ReturnValues         []any           `json:"return,omitempty"`
	ReturnCodes          []int           `json:"retcode,omitempty"`
	Success              []bool          `json:"success,omitempty"`
}

// Key is the storage key of j.
func (j *Job) Key() string {
	return Key(j.JID, j.SystemID)
}

// Key joins a jid and system id into the key used by every backend. Both
// parts are path-escaped so a "/" inside either one cannot collide.
func Key(jid, systemID string) string {
	return url.PathEscape(jid) + "/" + url.PathEscape(systemID)
}

// decodeJob unmarshals a stored record, keeping numbers in metadata and
// arguments as json.Number.
func decodeJob(data []byte) (*Job, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var j Job
	if err := dec.Decode(&j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Store defines the persistence operations the job service needs.
type Store interface {
	// Put inserts or replaces the record for (j.JID, j.SystemID).
	Put(ctx context.Context, j *Job) error

	// Get returns ErrNotFound when the pair is unknown.
	Get(ctx context.Context, jid, systemID string) (*Job, error)

	// List returns every record, newest first.
	List(ctx context.Context) ([]*Job, error)

	Close() error
}

// SortNewestFirst orders jobs by creation time descending. Records created
// together keep a stable order by system id, then jid.
func SortNewestFirst(jobs []*Job) {
	sort.SliceStable(jobs, func(i, k int) bool {
		a, b := jobs[i], jobs[k]
		if !a.CreatedTimestamp.Equal(b.CreatedTimestamp) {
			return a.CreatedTimestamp.After(b.CreatedTimestamp)
		}
		if a.SystemID != b.SystemID {
			return a.SystemID < b.SystemID
		}
		return a.JID < b.JID
	})
}
