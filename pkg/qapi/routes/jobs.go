package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qsys/pkg/jobstore"
	"github.com/quatton/qsys/pkg/qapi/schemas"
	"github.com/quatton/qsys/pkg/qapi/services/iam"
	"github.com/quatton/qsys/pkg/qapi/services/jobs"
)

type CreateJobInput struct {
	Body schemas.CreateJobRequest
}

type CreateJobOutput struct {
	Body schemas.CreateJobResponse
}

type ListJobsInput struct {
	JID      string `query:"jid" doc:"Only jobs with this ID"`
	SystemID string `query:"systemId" doc:"Only jobs targeting this system"`
	Skip     int    `query:"skip" minimum:"0" doc:"Records to skip"`
	Take     int    `query:"take" minimum:"0" doc:"Maximum records to return"`

	hasTake bool
}

// Resolve records whether take was sent, since 0 is a valid page size.
func (i *ListJobsInput) Resolve(ctx huma.Context) []error {
	i.hasTake = ctx.Query("take") != ""
	return nil
}

type ListJobsOutput struct {
	Body []schemas.Job
}

type JobSummaryOutput struct {
	Body schemas.JobSummaryResponse
}

type QueryJobsInput struct {
	Body schemas.QueryJobsRequest
}

type QueryJobsOutput struct {
	Body schemas.QueryJobsResponse
}

type CancelJobsInput struct {
	Body []schemas.CancelJobRequest
}

type CancelJobsOutput struct {
	Body schemas.CancelJobsResponse
}

type CompleteJobInput struct {
	Body schemas.CompleteJobRequest
}

// RegisterJobs registers the job operations under ServicePath.
func RegisterJobs(api huma.API, svc *jobs.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-job",
		Method:        http.MethodPost,
		Path:          ServicePath + "/jobs",
		Summary:       "Create a job",
		Description:   "Creates one job record per target system under a new job ID",
		Tags:          []string{TagJobs.String()},
		Security:      Security,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateJobInput) (*CreateJobOutput, error) {
		jid, err := svc.Create(ctx, jobs.CreateParams{
			User:      iam.User(ctx),
			Targets:   input.Body.Targets,
			Functions: input.Body.Functions,
			Arguments: input.Body.Arguments,
			Metadata:  input.Body.Metadata,
		})
		if errors.Is(err, jobs.ErrInvalidJob) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to create job", err)
		}

		resp := &CreateJobOutput{}
		resp.Body = schemas.CreateJobResponse{
			JID:       jid,
			Targets:   input.Body.Targets,
			Arguments: input.Body.Arguments,
			Functions: input.Body.Functions,
			Metadata:  input.Body.Metadata,
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        ServicePath + "/jobs",
		Summary:     "List jobs",
		Description: "Lists jobs newest first. Unknown job or system IDs yield an empty list.",
		Tags:        []string{TagJobs.String()},
		Security:    Security,
	}, func(ctx context.Context, input *ListJobsInput) (*ListJobsOutput, error) {
		params := jobs.ListParams{
			JID:      input.JID,
			SystemID: input.SystemID,
			Skip:     input.Skip,
		}
		if input.hasTake {
			params.Take = &input.Take
		}
		found, err := svc.List(ctx, params)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list jobs", err)
		}
		return &ListJobsOutput{Body: toJobs(found)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-jobs-summary",
		Method:      http.MethodGet,
		Path:        ServicePath + "/get-jobs-summary",
		Summary:     "Summarize jobs",
		Description: "Counts active, failed and succeeded jobs",
		Tags:        []string{TagJobs.String()},
		Security:    Security,
	}, func(ctx context.Context, input *struct{}) (*JobSummaryOutput, error) {
		sum, err := svc.Summary(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to summarize jobs", err)
		}
		resp := &JobSummaryOutput{}
		resp.Body.ActiveCount = sum.Active
		resp.Body.FailedCount = sum.Failed
		resp.Body.SucceededCount = sum.Succeeded
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "query-jobs",
		Method:      http.MethodPost,
		Path:        ServicePath + "/query-jobs",
		Summary:     "Query jobs",
		Description: "Filters, orders and pages jobs. Malformed filters are rejected with 400.",
		Tags:        []string{TagJobs.String()},
		Security:    Security,
	}, func(ctx context.Context, input *QueryJobsInput) (*QueryJobsOutput, error) {
		params := jobs.QueryParams{
			Filter:  input.Body.Filter,
			OrderBy: input.Body.OrderBy,
			Take:    input.Body.Take,
		}
		if input.Body.Skip != nil {
			params.Skip = *input.Body.Skip
		}
		found, err := svc.Query(ctx, params)
		if errors.Is(err, jobs.ErrInvalidFilter) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to query jobs", err)
		}
		resp := &QueryJobsOutput{}
		resp.Body.Data = toJobs(found)
		resp.Body.Count = len(resp.Body.Data)
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-jobs",
		Method:      http.MethodPost,
		Path:        ServicePath + "/cancel-jobs",
		Summary:     "Cancel jobs",
		Description: "Cancels each (jid, tgt) pair. Unknown pairs are reported in the response error, not as a failed request.",
		Tags:        []string{TagJobs.String()},
		Security:    Security,
	}, func(ctx context.Context, input *CancelJobsInput) (*CancelJobsOutput, error) {
		targets := make([]jobs.CancelTarget, 0, len(input.Body))
		for _, r := range input.Body {
			targets = append(targets, jobs.CancelTarget{JID: r.JID, SystemID: r.SystemID})
		}
		missing, err := svc.Cancel(ctx, targets)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to cancel jobs", err)
		}

		resp := &CancelJobsOutput{}
		if len(missing) > 0 {
			reqs := make([]schemas.CancelJobRequest, 0, len(missing))
			for _, m := range missing {
				reqs = append(reqs, schemas.CancelJobRequest{JID: m.JID, SystemID: m.SystemID})
			}
			resp.Body.Error = schemas.JobsNotFound(reqs)
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "complete-job",
		Method:        http.MethodPost,
		Path:          ServicePath + "/complete-job",
		Summary:       "Record a job outcome",
		Description:   "Marks a job record succeeded or failed. Only the local service provides this.",
		Tags:          []string{TagJobs.String()},
		Security:      Security,
		Hidden:        true,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *CompleteJobInput) (*struct{}, error) {
		b := input.Body
		err := svc.Complete(ctx, b.JID, b.SystemID, b.Success, b.ReturnValue)
		if errors.Is(err, jobstore.ErrNotFound) {
			return nil, huma.Error404NotFound("job " + b.JID + " targeting system " + b.SystemID + " was not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to complete job", err)
		}
		return &struct{}{}, nil
	})
}

func toJobs(found []*jobstore.Job) []schemas.Job {
	out := make([]schemas.Job, 0, len(found))
	for _, j := range found {
		out = append(out, toJob(j))
	}
	return out
}

func toJob(j *jobstore.Job) schemas.Job {
	job := schemas.Job{
		JID:                  j.JID,
		SystemID:             j.SystemID,
		CreatedTimestamp:     j.CreatedTimestamp,
		LastUpdatedTimestamp: j.LastUpdatedTimestamp,
		DispatchedTimestamp:  j.DispatchedTimestamp,
		State:                string(j.State),
		Metadata:             j.Metadata,
		Config: schemas.JobConfig{
			User:      j.User,
			Targets:   j.Targets,
			Functions: j.Functions,
			Arguments: j.Arguments,
		},
	}
	if job.Config.Targets == nil {
		job.Config.Targets = []string{}
	}
	if job.Config.Functions == nil {
		job.Config.Functions = []string{}
	}
	if j.ReturnValues != nil || j.ReturnCodes != nil || j.Success != nil {
		job.Result = &schemas.JobResult{
			ReturnValues: j.ReturnValues,
			ReturnCodes:  j.ReturnCodes,
			Success:      j.Success,
		}
	}
	return job
}
