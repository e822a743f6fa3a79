package models

import "github.com/quatton/qsys/pkg/qsdk/qerr"

var CreateJobRequestAliases = Aliases{
	{Name: "arguments", Wire: "args"},
	{Name: "target_systems", Wire: "tgt"},
	{Name: "functions", Wire: "fun"},
	{Name: "metadata", Wire: "metadata"},
}

// CreateJobRequest describes a job to dispatch. All fields are optional; the
// server decides what a usable job is.
type CreateJobRequest struct {
	// Arguments holds one argument list per entry in Functions.
	Arguments     [][]any
	TargetSystems []string
	Functions     []string
	Metadata      map[string]any
}

func (r CreateJobRequest) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.value("arguments", r.Arguments, r.Arguments != nil)
	f.list("target_systems", r.TargetSystems)
	f.list("functions", r.Functions)
	f.value("metadata", r.Metadata, r.Metadata != nil)
	return CreateJobRequestAliases.encode(f)
}

func (r *CreateJobRequest) UnmarshalJSON(data []byte) error {
	var out CreateJobRequest
	err := CreateJobRequestAliases.decode(data, map[string]any{
		"arguments":      &out.Arguments,
		"target_systems": &out.TargetSystems,
		"functions":      &out.Functions,
		"metadata":       &out.Metadata,
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

var CreateJobResponseAliases = Aliases{
	{Name: "jid", Wire: "jid"},
	{Name: "target_systems", Wire: "tgt"},
	{Name: "arguments", Wire: "arg"},
	{Name: "functions", Wire: "fun"},
	{Name: "metadata", Wire: "metadata"},
	{Name: "error", Wire: "error"},
}

// CreateJobResponse echoes the accepted job together with its server-assigned
// jid. Error is nil on success.
type CreateJobResponse struct {
	JID           string
	TargetSystems []string
	Arguments     [][]any
	Functions     []string
	Metadata      map[string]any
	Error         *qerr.APIError
}

func (r CreateJobResponse) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("jid", r.JID)
	f.list("target_systems", r.TargetSystems)
	f.value("arguments", r.Arguments, r.Arguments != nil)
	f.list("functions", r.Functions)
	f.value("metadata", r.Metadata, r.Metadata != nil)
	f.value("error", r.Error, r.Error != nil)
	return CreateJobResponseAliases.encode(f)
}

func (r *CreateJobResponse) UnmarshalJSON(data []byte) error {
	var out CreateJobResponse
	err := CreateJobResponseAliases.decode(data, map[string]any{
		"jid":            &out.JID,
		"target_systems": &out.TargetSystems,
		"arguments":      &out.Arguments,
		"functions":      &out.Functions,
		"metadata":       &out.Metadata,
		"error":          &out.Error,
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

var CancelJobRequestAliases = Aliases{
	{Name: "jid", Wire: "jid"},
	{Name: "system_id", Wire: "tgt"},
}

// CancelJobRequest names one job on one target system. The jid is not
// checked locally; an unknown jid is reported by the server in-band.
type CancelJobRequest struct {
	JID      string
	SystemID string
}

func (r CancelJobRequest) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("jid", r.JID)
	f.str("system_id", r.SystemID)
	return CancelJobRequestAliases.encode(f)
}

func (r *CancelJobRequest) UnmarshalJSON(data []byte) error {
	var out CancelJobRequest
	err := CancelJobRequestAliases.decode(data, map[string]any{
		"jid":       &out.JID,
		"system_id": &out.SystemID,
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

var CancelJobsResponseAliases = Aliases{
	{Name: "error", Wire: "error"},
}

// CancelJobsResponse is the batch outcome of a cancel call. A populated Error
// means at least one request failed; there is no per-job breakdown beyond
// Error.InnerErrors.
type CancelJobsResponse struct {
	Error *qerr.APIError
}

func (r CancelJobsResponse) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.value("error", r.Error, r.Error != nil)
	return CancelJobsResponseAliases.encode(f)
}

func (r *CancelJobsResponse) UnmarshalJSON(data []byte) error {
	var out CancelJobsResponse
	if err := CancelJobsResponseAliases.decode(data, map[string]any{"error": &out.Error}); err != nil {
		return err
	}
	*r = out
	return nil
}

var QueryJobsRequestAliases = Aliases{
	{Name: "filter", Wire: "filter"},
	{Name: "skip", Wire: "skip"},
	{Name: "take", Wire: "take"},
	{Name: "order_by", Wire: "orderBy"},
}

// QueryJobsRequest is sent as-is. Filter uses the server's expression syntax,
// e.g. `config.fun.Contains("system.set_computer_desc")` or `jid=...`.
type QueryJobsRequest struct {
	Filter  string
	Skip    *int
	Take    *int
	OrderBy string
}

func (r QueryJobsRequest) MarshalJSON() ([]byte, error) {
	f := fields{}
	f.str("filter", r.Filter)
	f.value("skip", r.Skip, r.Skip != nil)
	f.value("take", r.Take, r.Take != nil)
	f.str("order_by", r.OrderBy)
	return QueryJobsRequestAliases.encode(f)
}

func (r *QueryJobsRequest) UnmarshalJSON(data []byte) error {
	var out QueryJobsRequest
	err := QueryJobsRequestAliases.decode(data, map[string]any{
		"filter":   &out.Filter,
		"skip":     &out.Skip,
		"take":     &out.Take,
		"order_by": &out.OrderBy,
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

var QueryJobsResponseAliases = Aliases{
	{Name: "data", Wire: "data"},
	{Name: "count", Wire: "count"},
}

// QueryJobsResponse is one page of matching jobs.
type QueryJobsResponse struct {
	Data  []Job
	Count int
}

func (r QueryJobsResponse) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = []Job{}
	}
	return QueryJobsResponseAliases.encode(fields{"data": data, "count": r.Count})
}

func (r *QueryJobsResponse) UnmarshalJSON(data []byte) error {
	var out QueryJobsResponse
	err := QueryJobsResponseAliases.decode(data, map[string]any{
		"data":  &out.Data,
		"count": &out.Count,
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}

var JobSummaryResponseAliases = Aliases{
	{Name: "active_count", Wire: "activeCount"},
	{Name: "failed_count", Wire: "failedCount"},
	{Name: "succeeded_count", Wire: "succeededCount"},
	{Name: "error", Wire: "error"},
}

// JobSummaryResponse counts jobs by outcome across every managed system.
type JobSummaryResponse struct {
	ActiveCount    int
	FailedCount    int
	SucceededCount int
	Error          *qerr.APIError
}

func (r JobSummaryResponse) MarshalJSON() ([]byte, error) {
	f := fields{
		"active_count":    r.ActiveCount,
		"failed_count":    r.FailedCount,
		"succeeded_count": r.SucceededCount,
	}
	f.value("error", r.Error, r.Error != nil)
	return JobSummaryResponseAliases.encode(f)
}

func (r *JobSummaryResponse) UnmarshalJSON(data []byte) error {
	var out JobSummaryResponse
	err := JobSummaryResponseAliases.decode(data, map[string]any{
		"active_count":    &out.ActiveCount,
		"failed_count":    &out.FailedCount,
		"succeeded_count": &out.SucceededCount,
		"error":           &out.Error,
	})
	if err != nil {
		return err
	}
	*r = out
	return nil
}
