package models

import "time"

// JobState is the lifecycle state the service reports for a job.
type JobState string

const (
	JobStateSucceeded  JobState = "SUCCEEDED"
	JobStateOutOfQueue JobState = "OUTOFQUEUE"
	JobStateInQueue    JobState = "INQUEUE"
	JobStateInProgress JobState = "INPROGRESS"
	JobStateCanceled   JobState = "CANCELED"
	JobStateFailed     JobState = "FAILED"
)

// Active reports whether the job has not reached a terminal state.
func (s JobState) Active() bool {
	switch s {
	case JobStateInQueue, JobStateInProgress, JobStateOutOfQueue:
		return true
	}
	return false
}

var JobConfigAliases = Aliases{
	{Name: "user", Wire: "user"},
	{Name: "target_systems", Wire: "tgt"},
	{Name: "functions", Wire: "fun"},
	{Name: "arguments", Wire: "arg"},
}

// JobConfig is the dispatch configuration recorded with a job.
type JobConfig struct {
	User          string
	TargetSystems []string
	Functions     []string
	Arguments     [][]any
}

func (c JobConfig) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("user", c.User)
	f.list("target_systems", c.TargetSystems)
	f.list("functions", c.Functions)
	f.value("arguments", c.Arguments, c.Arguments != nil)
	return JobConfigAliases.encode(f)
}

func (c *JobConfig) UnmarshalJSON(data []byte) error {
	var out JobConfig
	err := JobConfigAliases.decode(data, map[string]any{
		"user":           &out.User,
		"target_systems": &out.TargetSystems,
		"functions":      &out.Functions,
		"arguments":      &out.Arguments,
	})
	if err != nil {
		return err
	}
	*c = out
	return nil
}

var JobResultAliases = Aliases{
	{Name: "return_values", Wire: "return"},
	{Name: "return_codes", Wire: "retcode"},
	{Name: "success", Wire: "success"},
}

// JobResult holds one entry per function in the job's configuration.
type JobResult struct {
	ReturnValues []any
	ReturnCodes  []int
	Success      []bool
}

func (r JobResult) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.value("return_values", r.ReturnValues, r.ReturnValues != nil)
	f.value("return_codes", r.ReturnCodes, r.ReturnCodes != nil)
	f.value("success", r.Success, r.Success != nil)
	return JobResultAliases.encode(f)
}

func (r *JobResult) UnmarshalJSON(data []byte) error {
	var out JobResult
	err := JobResultAliases.decode(data, map[string]any{
		"return_values": &out.ReturnValues,
		"return_codes":  &out.ReturnCodes,
		"success":       &out.Success,
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

var JobAliases = Aliases{
	{Name: "jid", Wire: "jid"},
	{Name: "system_id", Wire: "id"},
	{Name: "created_timestamp", Wire: "createdTimestamp"},
	{Name: "last_updated_timestamp", Wire: "lastUpdatedTimestamp"},
	{Name: "dispatched_timestamp", Wire: "dispatchedTimestamp"},
	{Name: "state", Wire: "state"},
	{Name: "metadata", Wire: "metadata"},
	{Name: "config", Wire: "config"},
	{Name: "result", Wire: "result"},
}

// Job is one job record as listed or queried. A job created against several
// targets yields one record per target system, all sharing the jid.
type Job struct {
	JID                  string
	SystemID             string
	CreatedTimestamp     *time.Time
	LastUpdatedTimestamp *time.Time
	DispatchedTimestamp  *time.Time
	State                JobState
	Metadata             map[string]any
	Config               *JobConfig
	Result               *JobResult
}

func (j Job) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("jid", j.JID)
	f.str("system_id", j.SystemID)
	f.value("created_timestamp", j.CreatedTimestamp, j.CreatedTimestamp != nil)
	f.value("last_updated_timestamp", j.LastUpdatedTimestamp, j.LastUpdatedTimestamp != nil)
	f.value("dispatched_timestamp", j.DispatchedTimestamp, j.DispatchedTimestamp != nil)
	f.str("state", string(j.State))
	f.value("metadata", j.Metadata, j.Metadata != nil)
	f.value("config", j.Config, j.Config != nil)
	f.value("result", j.Result, j.Result != nil)
	return JobAliases.encode(f)
}

func (j *Job) UnmarshalJSON(data []byte) error {
	var out Job
	err := JobAliases.decode(data, map[string]any{
		"jid":                    &out.JID,
		"system_id":              &out.SystemID,
		"created_timestamp":      &out.CreatedTimestamp,
		"last_updated_timestamp": &out.LastUpdatedTimestamp,
		"dispatched_timestamp":   &out.DispatchedTimestamp,
		"state":                  &out.State,
		"metadata":               &out.Metadata,
		"config":                 &out.Config,
		"result":                 &out.Result,
	})
	if err != nil {
		return err
	}
	*j = out
	return nil
}
