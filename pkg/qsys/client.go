// Package qsys is a client for the systems-management job service: create
// jobs against managed systems, list and query them, summarize outcomes and
// cancel them.
//
// The service reports failures through two channels. Transport and HTTP
// failures come back as a *qerr.Error. Some operations, cancellation in
// particular, answer with a success-shaped response whose Error field is
// populated instead; callers must check it.
package qsys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/quatton/qsys/pkg/qsdk/qerr"
	"github.com/quatton/qsys/pkg/qsys/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	pathJobs        = "jobs"
	pathJobsSummary = "get-jobs-summary"
	pathQueryJobs   = "query-jobs"
	pathCancelJobs  = "cancel-jobs"
)

var tracer = otel.Tracer("github.com/quatton/qsys/pkg/qsys")

// SystemClient issues job operations through a Transport. It keeps no state
// of its own; it is as safe for concurrent use as its transport.
type SystemClient struct {
	transport Transport
}

// NewSystemClient returns a client that sends every call through t.
func NewSystemClient(t Transport) *SystemClient {
	return &SystemClient{transport: t}
}

// CreateJob dispatches a job. The response echoes the accepted job and its jid.
func (c *SystemClient) CreateJob(ctx context.Context, job models.CreateJobRequest) (*models.CreateJobResponse, error) {
	ctx, span := tracer.Start(ctx, "qsys.CreateJob", trace.WithAttributes(
		attribute.StringSlice("qsys.tgt", job.TargetSystems),
		attribute.StringSlice("qsys.fun", job.Functions),
	))
	defer span.End()

	var resp models.CreateJobResponse
	if err := c.call(ctx, http.MethodPost, pathJobs, job, nil, &resp); err != nil {
		return nil, recordError(span, err)
	}
	span.SetAttributes(attribute.String("qsys.jid", resp.JID))
	return &resp, nil
}

// ListJobs lists jobs, optionally narrowed by jid or system id. A filter that
// matches nothing yields an empty, non-nil slice.
func (c *SystemClient) ListJobs(ctx context.Context, params ListJobsParams) ([]models.Job, error) {
	ctx, span := tracer.Start(ctx, "qsys.ListJobs", trace.WithAttributes(
		attribute.String("qsys.jid", params.JID),
		attribute.String("qsys.system_id", params.SystemID),
	))
	defer span.End()

	query, err := params.Values()
	if err != nil {
		return nil, recordError(span, fmt.Errorf("building list query: %w", err))
	}

	var jobs []models.Job
	if err := c.call(ctx, http.MethodGet, pathJobs, nil, query, &jobs); err != nil {
		return nil, recordError(span, err)
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	span.SetAttributes(attribute.Int("qsys.count", len(jobs)))
	return jobs, nil
}

// GetJobSummary returns the active, failed and succeeded job counts.
func (c *SystemClient) GetJobSummary(ctx context.Context) (*models.JobSummaryResponse, error) {
	ctx, span := tracer.Start(ctx, "qsys.GetJobSummary")
	defer span.End()

	var resp models.JobSummaryResponse
	if err := c.call(ctx, http.MethodGet, pathJobsSummary, nil, nil, &resp); err != nil {
		return nil, recordError(span, err)
	}
	return &resp, nil
}

// QueryJobs runs a server-side filter. The filter string is sent verbatim; a
// filter the server cannot parse is returned as a *qerr.Error rather than an
// empty page.
func (c *SystemClient) QueryJobs(ctx context.Context, query models.QueryJobsRequest) (*models.QueryJobsResponse, error) {
	ctx, span := tracer.Start(ctx, "qsys.QueryJobs", trace.WithAttributes(
		attribute.String("qsys.filter", query.Filter),
	))
	defer span.End()

	var resp models.QueryJobsResponse
	if err := c.call(ctx, http.MethodPost, pathQueryJobs, query, nil, &resp); err != nil {
		return nil, recordError(span, err)
	}
	if resp.Data == nil {
		resp.Data = []models.Job{}
	}
	span.SetAttributes(attribute.Int("qsys.count", resp.Count))
	return &resp, nil
}

// CancelJobs cancels a batch of jobs. Unknown jobs do not produce an error
// return; they are reported in the response's Error field.
func (c *SystemClient) CancelJobs(ctx context.Context, jobs []models.CancelJobRequest) (*models.CancelJobsResponse, error) {
	ctx, span := tracer.Start(ctx, "qsys.CancelJobs", trace.WithAttributes(
		attribute.Int("qsys.batch_size", len(jobs)),
	))
	defer span.End()

	if jobs == nil {
		jobs = []models.CancelJobRequest{}
	}

	var resp models.CancelJobsResponse
	if err := c.call(ctx, http.MethodPost, pathCancelJobs, jobs, nil, &resp); err != nil {
		return nil, recordError(span, err)
	}
	if resp.Error != nil {
		span.SetAttributes(attribute.String("qsys.inband_error", resp.Error.Message))
	}
	return &resp, nil
}

func (c *SystemClient) call(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	data, err := c.transport.Call(ctx, method, path, body, query)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return qerr.New(qerr.CodeDecode, fmt.Errorf("decoding %s response: %w", path, err))
	}
	return nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
