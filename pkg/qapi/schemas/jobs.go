package schemas

import (
	"time"

	"github.com/quatton/qsys/pkg/qsdk/qerr"
)

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Arguments [][]any        `json:"args,omitempty" doc:"One argument list per function"`
	Targets   []string       `json:"tgt,omitempty" doc:"Systems to run the job on"`
	Functions []string       `json:"fun,omitempty" doc:"Functions to run, in order"`
	Metadata  map[string]any `json:"metadata,omitempty" doc:"Free-form job metadata"`
}

// CreateJobResponse echoes the accepted job.
type CreateJobResponse struct {
	JID       string         `json:"jid" doc:"Job ID"`
	Targets   []string       `json:"tgt,omitempty" doc:"Systems the job was created for"`
	Arguments [][]any        `json:"arg,omitempty" doc:"Function arguments"`
	Functions []string       `json:"fun,omitempty" doc:"Functions"`
	Metadata  map[string]any `json:"metadata,omitempty" doc:"Job metadata"`
	Error     *qerr.APIError `json:"error,omitempty" doc:"Set when the job was only partially accepted"`
}

type JobConfig struct {
	User      string   `json:"user,omitempty" doc:"User that created the job"`
	Targets   []string `json:"tgt" doc:"Target system"`
	Functions []string `json:"fun" doc:"Functions"`
	Arguments [][]any  `json:"arg,omitempty" doc:"Function arguments"`
}

type JobResult struct {
	ReturnValues []any  `json:"return,omitempty" doc:"Return value per function"`
	ReturnCodes  []int  `json:"retcode,omitempty" doc:"Return code per function"`
	Success      []bool `json:"success,omitempty" doc:"Success flag per function"`
}

// Job is one job record as seen by a single system.
type Job struct {
	JID                  string         `json:"jid" doc:"Job ID"`
	SystemID             string         `json:"id" doc:"System ID"`
	CreatedTimestamp     time.Time      `json:"createdTimestamp" doc:"Creation time"`
	LastUpdatedTimestamp time.Time      `json:"lastUpdatedTimestamp" doc:"Last state change"`
	DispatchedTimestamp  *time.Time     `json:"dispatchedTimestamp,omitempty" doc:"Time the job reached the system"`
	State                string         `json:"state" enum:"SUCCEEDED,OUTOFQUEUE,INQUEUE,INPROGRESS,CANCELED,FAILED" doc:"Job state"`
	Metadata             map[string]any `json:"metadata,omitempty" doc:"Job metadata"`
	Config               JobConfig      `json:"config" doc:"Job configuration"`
	Result               *JobResult     `json:"result,omitempty" doc:"Job result, once finished"`
}

// QueryJobsRequest is the body of POST /query-jobs.
type QueryJobsRequest struct {
	Filter  string `json:"filter,omitempty" doc:"Filter expression, e.g. config.fun.Contains(\"test.ping\")"`
	Skip    *int   `json:"skip,omitempty" minimum:"0" doc:"Records to skip"`
	Take    *int   `json:"take,omitempty" minimum:"0" doc:"Maximum records to return"`
	OrderBy string `json:"orderBy,omitempty" doc:"Ordering, e.g. createdTimestamp descending"`
}

type QueryJobsResponse struct {
	Data  []Job `json:"data" doc:"Matching jobs"`
	Count int   `json:"count" doc:"Number of jobs in data"`
}

// CancelJobRequest identifies one (jid, system) pair to cancel.
type CancelJobRequest struct {
	JID      string `json:"jid,omitempty" doc:"Job ID"`
	SystemID string `json:"tgt,omitempty" doc:"System ID"`
}

// CancelJobsResponse carries a batch-level error when any pair was unknown.
type CancelJobsResponse struct {
	Error *qerr.APIError `json:"error,omitempty" doc:"Batch error with one inner error per unknown job"`
}

type JobSummaryResponse struct {
	ActiveCount    int            `json:"activeCount" doc:"Jobs queued or in progress"`
	FailedCount    int            `json:"failedCount" doc:"Failed jobs"`
	SucceededCount int            `json:"succeededCount" doc:"Succeeded jobs"`
	Error          *qerr.APIError `json:"error,omitempty"`
}

// CompleteJobRequest records the outcome of a job. Only the local service
// offers it.
type CompleteJobRequest struct {
	JID         string `json:"jid" doc:"Job ID"`
	SystemID    string `json:"id" doc:"System ID"`
	Success     bool   `json:"success" doc:"Whether the job succeeded"`
	ReturnValue any    `json:"return,omitempty" doc:"Value to record as the job's return"`
}
