package qsys

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/quatton/qsys/pkg/qapi"
	"github.com/quatton/qsys/pkg/qapi/services"
	"github.com/quatton/qsys/pkg/qsdk/qerr"
	"github.com/quatton/qsys/pkg/qsys/models"
)

const testAPIKey = "test-api-key"

const testSystem = "HVM_domU--SN-ec200972-eeca-062e-5bf5-017a25451b39--MAC-0A-E1-20-D6-96-2B"

func newTestClient(t *testing.T) (*SystemClient, *services.Services) {
	t.Helper()
	svcs := services.NewMemoryServices(testAPIKey, "")
	api := qapi.NewApi()
	api.Register(svcs, nil)
	srv := httptest.NewServer(api.Router)
	t.Cleanup(srv.Close)

	transport, err := NewHTTPTransport(srv.URL, WithAPIKey(testAPIKey))
	if err != nil {
		t.Fatalf("NewHTTPTransport: %v", err)
	}
	return NewSystemClient(transport), svcs
}

func sampleJob(fun string, desc string) models.CreateJobRequest {
	return models.CreateJobRequest{
		Arguments:     [][]any{{desc}},
		TargetSystems: []string{testSystem},
		Functions:     []string{fun},
		Metadata: map[string]any{
			"queued":               true,
			"refresh_minion_cache": map[string]any{"grains": true},
		},
	}
}

func mustCreate(t *testing.T, c *SystemClient, job models.CreateJobRequest) *models.CreateJobResponse {
	t.Helper()
	resp, err := c.CreateJob(t.Context(), job)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return resp
}

func TestCreateJobEchoesFields(t *testing.T) {
	c, _ := newTestClient(t)
	job := sampleJob("system.set_computer_desc", "A description")

	resp := mustCreate(t, c, job)

	if resp.JID == "" {
		t.Fatal("expected a jid")
	}
	if resp.Error != nil {
		t.Fatalf("expected no error, got %+v", resp.Error)
	}
	if !reflect.DeepEqual(resp.Arguments, job.Arguments) {
		t.Errorf("arg = %#v, want %#v", resp.Arguments, job.Arguments)
	}
	if !reflect.DeepEqual(resp.TargetSystems, job.TargetSystems) {
		t.Errorf("tgt = %#v, want %#v", resp.TargetSystems, job.TargetSystems)
	}
	if !reflect.DeepEqual(resp.Functions, job.Functions) {
		t.Errorf("fun = %#v, want %#v", resp.Functions, job.Functions)
	}
	if !reflect.DeepEqual(resp.Metadata, job.Metadata) {
		t.Errorf("metadata = %#v, want %#v", resp.Metadata, job.Metadata)
	}
}

func TestListJobs(t *testing.T) {
	c, _ := newTestClient(t)
	first := mustCreate(t, c, sampleJob("system.set_computer_desc", "A description"))
	mustCreate(t, c, sampleJob("system.set_computer_asc", "Another description"))

	jobs, err := c.ListJobs(t.Context(), ListJobsParams{JID: first.JID})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	got := jobs[0]
	if got.JID != first.JID || got.Config == nil {
		t.Fatalf("unexpected job: %+v", got)
	}
	if !reflect.DeepEqual(got.Config.Arguments, first.Arguments) || !reflect.DeepEqual(got.Config.TargetSystems, first.TargetSystems) {
		t.Fatalf("config mismatch: %+v", got.Config)
	}
	if got.State != models.JobStateInQueue || !got.State.Active() {
		t.Fatalf("expected a queued job, got %s", got.State)
	}

	jobs, _ = c.ListJobs(t.Context(), ListJobsParams{SystemID: testSystem})
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs for the system, got %d", len(jobs))
	}
	jobs, _ = c.ListJobs(t.Context(), ListJobsParams{SystemID: testSystem, Take: Ptr(1)})
	if len(jobs) != 1 {
		t.Fatalf("take=1: expected 1 job, got %d", len(jobs))
	}
	jobs, _ = c.ListJobs(t.Context(), ListJobsParams{SystemID: testSystem, Skip: Ptr(1)})
	if len(jobs) != 1 {
		t.Fatalf("skip=1: expected 1 job, got %d", len(jobs))
	}
}

func TestListJobsUnknownIDsAreEmpty(t *testing.T) {
	c, _ := newTestClient(t)
	mustCreate(t, c, sampleJob("test.ping", "x"))

	for _, p := range []ListJobsParams{{SystemID: "Invalid_system_id"}, {JID: "Invalid_jid"}} {
		jobs, err := c.ListJobs(t.Context(), p)
		if err != nil {
			t.Fatalf("ListJobs(%+v) should not fail: %v", p, err)
		}
		if jobs == nil || len(jobs) != 0 {
			t.Fatalf("ListJobs(%+v) = %#v, want empty slice", p, jobs)
		}
	}
}

func TestGetJobSummary(t *testing.T) {
	c, svcs := newTestClient(t)
	a := mustCreate(t, c, sampleJob("test.ping", "a"))
	b := mustCreate(t, c, sampleJob("test.ping", "b"))
	mustCreate(t, c, sampleJob("test.ping", "c"))

	if err := svcs.Jobs.Complete(t.Context(), a.JID, testSystem, true, "ok"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := svcs.Jobs.Complete(t.Context(), b.JID, testSystem, false, "boom"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	sum, err := c.GetJobSummary(t.Context())
	if err != nil {
		t.Fatalf("GetJobSummary: %v", err)
	}
	if sum.Error != nil {
		t.Fatalf("unexpected error: %+v", sum.Error)
	}
	if sum.ActiveCount != 1 || sum.FailedCount != 1 || sum.SucceededCount != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}

	jobs, _ := c.ListJobs(t.Context(), ListJobsParams{JID: a.JID})
	if jobs[0].Result == nil || len(jobs[0].Result.Success) != 1 || !jobs[0].Result.Success[0] {
		t.Fatalf("expected a successful result, got %+v", jobs[0].Result)
	}
}

func TestQueryJobs(t *testing.T) {
	c, _ := newTestClient(t)
	first := mustCreate(t, c, sampleJob("system.set_computer_desc", "A description"))
	mustCreate(t, c, sampleJob("system.set_computer_asc", "Another description"))

	resp, err := c.QueryJobs(t.Context(), models.QueryJobsRequest{Take: Ptr(1)})
	if err != nil {
		t.Fatalf("QueryJobs: %v", err)
	}
	if len(resp.Data) != 1 || resp.Count != 1 {
		t.Fatalf("take=1: got %d records, count %d", len(resp.Data), resp.Count)
	}

	resp, err = c.QueryJobs(t.Context(), models.QueryJobsRequest{Skip: Ptr(1)})
	if err != nil {
		t.Fatalf("QueryJobs: %v", err)
	}
	if len(resp.Data) != 1 || resp.Count != 1 {
		t.Fatalf("skip=1: got %d records, count %d", len(resp.Data), resp.Count)
	}

	resp, err = c.QueryJobs(t.Context(), models.QueryJobsRequest{
		Filter: `config.fun.Contains("system.set_computer_desc")`,
	})
	if err != nil {
		t.Fatalf("QueryJobs: %v", err)
	}
	if resp.Count == 0 || len(resp.Data) != resp.Count {
		t.Fatalf("expected matches with count == len(data), got %d/%d", len(resp.Data), resp.Count)
	}

	resp, err = c.QueryJobs(t.Context(), models.QueryJobsRequest{Filter: "jid=" + first.JID})
	if err != nil {
		t.Fatalf("QueryJobs: %v", err)
	}
	if len(resp.Data) != 1 || resp.Count != 1 || resp.Data[0].JID != first.JID {
		t.Fatalf("jid filter: unexpected response %+v", resp)
	}

	resp, err = c.QueryJobs(t.Context(), models.QueryJobsRequest{Filter: `jid="no-such-job"`})
	if err != nil {
		t.Fatalf("QueryJobs: %v", err)
	}
	if resp.Data == nil || resp.Count != 0 {
		t.Fatalf("expected an empty, non-nil page, got %+v", resp)
	}
}

func TestQueryJobsMalformedFilterIsAnError(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.QueryJobs(t.Context(), models.QueryJobsRequest{Filter: "jid=Invalid_jid"})
	if err == nil {
		t.Fatalf("expected an error, got %+v", resp)
	}
	if !qerr.IsCode(err, qerr.CodeBadRequest) || qerr.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected bad_request (400), got %v", err)
	}
	e, _ := qerr.As(err)
	if e.Body == nil || e.Body.Message == "" {
		t.Fatalf("expected the server error record, got %+v", e)
	}
}

func TestCancelJobs(t *testing.T) {
	c, _ := newTestClient(t)
	a := mustCreate(t, c, sampleJob("system.set_computer_desc", "A description"))
	b := mustCreate(t, c, sampleJob("system.set_computer_desc", "Another description"))

	resp, err := c.CancelJobs(t.Context(), []models.CancelJobRequest{{JID: a.JID, SystemID: testSystem}})
	if err != nil {
		t.Fatalf("CancelJobs: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("expected no error, got %+v", resp.Error)
	}

	resp, err = c.CancelJobs(t.Context(), []models.CancelJobRequest{
		{JID: a.JID, SystemID: testSystem},
		{JID: b.JID, SystemID: testSystem},
	})
	if err != nil || resp.Error != nil {
		t.Fatalf("batch cancel failed: %v %+v", err, resp)
	}

	jobs, _ := c.ListJobs(t.Context(), ListJobsParams{JID: b.JID})
	if jobs[0].State != models.JobStateCanceled {
		t.Fatalf("expected CANCELED, got %s", jobs[0].State)
	}
}

func TestCancelJobsInvalidJIDIsInBand(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.CancelJobs(t.Context(), []models.CancelJobRequest{{JID: "Invalid_jid", SystemID: "Invalid_tgt"}})
	if err != nil {
		t.Fatalf("an invalid jid must not fail the call: %v", err)
	}
	if resp.Error == nil || resp.Error.Message == "" {
		t.Fatalf("expected an in-band error, got %+v", resp)
	}
	if len(resp.Error.InnerErrors) != 1 || resp.Error.InnerErrors[0].ResourceID != "Invalid_jid" {
		t.Fatalf("expected one inner error for the jid, got %+v", resp.Error.InnerErrors)
	}
}

func TestCancelJobsEmptyBatch(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.CancelJobs(t.Context(), nil)
	if err != nil {
		t.Fatalf("CancelJobs(nil): %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("expected no error, got %+v", resp.Error)
	}
}

func TestMissingAPIKeyIsUnauthorized(t *testing.T) {
	svcs := services.NewMemoryServices(testAPIKey, "")
	api := qapi.NewApi()
	api.Register(svcs, nil)
	srv := httptest.NewServer(api.Router)
	defer srv.Close()

	transport, _ := NewHTTPTransport(srv.URL)
	_, err := NewSystemClient(transport).GetJobSummary(t.Context())
	if !qerr.IsCode(err, qerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
