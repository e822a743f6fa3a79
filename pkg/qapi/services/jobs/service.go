// Package jobs implements the job bookkeeping behind the local service. It
// records jobs and answers list, query, summary and cancel requests; nothing
// is executed.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quatton/qsys/pkg/jobstore"
	"github.com/quatton/qsys/pkg/qsys/models"
)

// ErrInvalidJob is returned by Create for requests the service refuses.
var ErrInvalidJob = errors.New("invalid job")

type Service struct {
	store jobstore.Store

	// mu serializes writers so cancel's read-modify-write and timestamp
	// allocation are consistent.
	mu    sync.Mutex
	last  time.Time
	now   func() time.Time
	newID func() string
}

func NewService(store jobstore.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// stamp returns a strictly increasing UTC timestamp with microsecond
// precision so that creation order survives storage in postgres. Callers
// hold s.mu.
func (s *Service) stamp() time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

type CreateParams struct {
	User      string
	Targets   []string
	Functions []string
	Arguments [][]any
	Metadata  map[string]any
}

// Create records one job per distinct target under a fresh jid.
func (s *Service) Create(ctx context.Context, p CreateParams) (string, error) {
	if len(p.Targets) == 0 {
		return "", fmt.Errorf("%w: tgt must name at least one system", ErrInvalidJob)
	}
	if len(p.Functions) == 0 {
		return "", fmt.Errorf("%w: fun must name at least one function", ErrInvalidJob)
	}
	if p.Arguments != nil && len(p.Arguments) != len(p.Functions) {
		return "", fmt.Errorf("%w: arg has %d entries for %d functions", ErrInvalidJob, len(p.Arguments), len(p.Functions))
	}
	for _, t := range p.Targets {
		if strings.TrimSpace(t) == "" {
			return "", fmt.Errorf("%w: tgt contains an empty system id", ErrInvalidJob)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jid := s.newID()
	ts := s.stamp()
	seen := make(map[string]bool, len(p.Targets))
	for _, target := range p.Targets {
		if seen[target] {
			continue
		}
		seen[target] = true
		job := &jobstore.Job{
			JID:                  jid,
			SystemID:             target,
			State:                models.JobStateInQueue,
			CreatedTimestamp:     ts,
			LastUpdatedTimestamp: ts,
			Metadata:             p.Metadata,
			User:                 p.User,
			Targets:              []string{target},
			Functions:            p.Functions,
			Arguments:            p.Arguments,
		}
		if err := s.store.Put(ctx, job); err != nil {
			return "", err
		}
	}
	return jid, nil
}

type ListParams struct {
	JID      string
	SystemID string
	Skip     int
	Take     *int
}

// List returns matching jobs newest first. Unknown ids match nothing.
func (s *Service) List(ctx context.Context, p ListParams) ([]*jobstore.Job, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*jobstore.Job, 0, len(all))
	for _, j := range all {
		if p.JID != "" && j.JID != p.JID {
			continue
		}
		if p.SystemID != "" && j.SystemID != p.SystemID {
			continue
		}
		out = append(out, j)
	}
	return page(out, p.Skip, p.Take), nil
}

type QueryParams struct {
	Filter  string
	OrderBy string
	Skip    int
	Take    *int
}

// Query applies a filter and ordering. Parse failures wrap ErrInvalidFilter.
func (s *Service) Query(ctx context.Context, p QueryParams) ([]*jobstore.Job, error) {
	filter, err := ParseFilter(p.Filter)
	if err != nil {
		return nil, err
	}
	order, err := ParseOrderBy(p.OrderBy)
	if err != nil {
		return nil, err
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*jobstore.Job, 0, len(all))
	for _, j := range all {
		if filter.Match(j) {
			out = append(out, j)
		}
	}
	if order != nil {
		sort.SliceStable(out, func(i, k int) bool { return order(out[i], out[k]) })
	}
	return page(out, p.Skip, p.Take), nil
}

type Summary struct {
	Active    int
	Failed    int
	Succeeded int
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, j := range all {
		switch {
		case j.State.Active():
			sum.Active++
		case j.State == models.JobStateFailed:
			sum.Failed++
		case j.State == models.JobStateSucceeded:
			sum.Succeeded++
		}
	}
	return sum, nil
}

type CancelTarget struct {
	JID      string
	SystemID string
}

// Cancel moves every found, still active job to CANCELED. Finished jobs are
// left alone. Pairs with no record are returned, in request order, for the
// caller to report; they do not stop the rest of the batch.
func (s *Service) Cancel(ctx context.Context, targets []CancelTarget) ([]CancelTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []CancelTarget
	for _, t := range targets {
		job, err := s.store.Get(ctx, t.JID, t.SystemID)
		if errors.Is(err, jobstore.ErrNotFound) {
			missing = append(missing, t)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !job.State.Active() {
			continue
		}
		job.State = models.JobStateCanceled
		job.LastUpdatedTimestamp = s.stamp()
		if err := s.store.Put(ctx, job); err != nil {
			return nil, err
		}
	}
	return missing, nil
}

// Complete records a job outcome. The service never runs jobs; this is how
// tests and operators move a record out of the active states.
func (s *Service) Complete(ctx context.Context, jid, systemID string, success bool, returnValue any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.store.Get(ctx, jid, systemID)
	if err != nil {
		return err
	}
	ts := s.stamp()
	job.State = models.JobStateSucceeded
	retcode := 0
	if !success {
		job.State = models.JobStateFailed
		retcode = 1
	}
	if job.DispatchedTimestamp == nil {
		job.DispatchedTimestamp = &ts
	}
	job.LastUpdatedTimestamp = ts
	job.ReturnValues = []any{returnValue}
	job.ReturnCodes = []int{retcode}
	job.Success = []bool{success}
	return s.store.Put(ctx, job)
}

func page(jobs []*jobstore.Job, skip int, take *int) []*jobstore.Job {
	if skip >= len(jobs) {
		return []*jobstore.Job{}
	}
	if skip > 0 {
		jobs = jobs[skip:]
	}
	if take != nil && *take < len(jobs) {
		jobs = jobs[:max(*take, 0)]
	}
	return jobs
}

// ParseOrderBy accepts a comma separated list of `field [ascending|descending]`
// terms. An empty string keeps the store's newest-first order.
func ParseOrderBy(s string) (func(a, b *jobstore.Job) bool, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	type term struct {
		cmp  func(a, b *jobstore.Job) int
		desc bool
	}
	var terms []term
	for _, part := range strings.Split(s, ",") {
		words := strings.Fields(part)
		if len(words) == 0 || len(words) > 2 {
			return nil, fmt.Errorf("%w: bad orderBy term %q", ErrInvalidFilter, strings.TrimSpace(part))
		}
		cmp, ok := orderFields[words[0]]
		if !ok {
			return nil, fmt.Errorf("%w: cannot order by %q", ErrInvalidFilter, words[0])
		}
		t := term{cmp: cmp}
		if len(words) == 2 {
			switch strings.ToLower(words[1]) {
			case "asc", "ascending":
			case "desc", "descending":
				t.desc = true
			default:
				return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidFilter, words[1])
			}
		}
		terms = append(terms, t)
	}

	return func(a, b *jobstore.Job) bool {
		for _, t := range terms {
			c := t.cmp(a, b)
			if c == 0 {
				continue
			}
			if t.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	}, nil
}

var orderFields = map[string]func(a, b *jobstore.Job) int{
	"createdTimestamp":     func(a, b *jobstore.Job) int { return a.CreatedTimestamp.Compare(b.CreatedTimestamp) },
	"lastUpdatedTimestamp": func(a, b *jobstore.Job) int { return a.LastUpdatedTimestamp.Compare(b.LastUpdatedTimestamp) },
	"jid":                  func(a, b *jobstore.Job) int { return strings.Compare(a.JID, b.JID) },
	"id":                   func(a, b *jobstore.Job) int { return strings.Compare(a.SystemID, b.SystemID) },
	"state":                func(a, b *jobstore.Job) int { return strings.Compare(string(a.State), string(b.State)) },
}
