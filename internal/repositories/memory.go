package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"bhiv/hr-platform/internal/models"
)

// MemoryWorkflowRepository keeps workflows in process. It mirrors the SQL
// repository: terminal rows reject updates and progress never goes down.
type MemoryWorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[uuid.UUID]*models.Workflow
}

func NewMemoryWorkflowRepository() *MemoryWorkflowRepository {
	return &MemoryWorkflowRepository{workflows: make(map[uuid.UUID]*models.Workflow)}
}

func (r *MemoryWorkflowRepository) Create(_ context.Context, wf *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now
	r.workflows[wf.WorkflowID] = cloneWorkflow(wf)
	return nil
}

func (r *MemoryWorkflowRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, ok := r.workflows[id]
	if !ok {
		return nil, nil
	}
	return cloneWorkflow(wf), nil
}

func (r *MemoryWorkflowRepository) Update(_ context.Context, id uuid.UUID, data *WorkflowUpdateData) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wf, ok := r.workflows[id]
	if !ok {
		return ErrWorkflowNotFound
	}
	if wf.Status.IsTerminal() {
		return ErrWorkflowTerminal
	}

	if data.Status != nil {
		wf.Status = *data.Status
	}
	if data.ProgressPercentage != nil && *data.ProgressPercentage > wf.ProgressPercentage {
		wf.ProgressPercentage = *data.ProgressPercentage
	}
	if data.CurrentStep != nil {
		wf.CurrentStep = *data.CurrentStep
	}
	if data.OutputData != nil {
		wf.OutputData = copyJSONMap(data.OutputData)
	}
	if data.ErrorMessage != nil {
		msg := *data.ErrorMessage
		wf.ErrorMessage = &msg
	}
	if data.StartedAt != nil {
		t := *data.StartedAt
		wf.StartedAt = &t
	}
	if data.CompletedAt != nil {
		t := *data.CompletedAt
		wf.CompletedAt = &t
	}
	wf.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryWorkflowRepository) List(_ context.Context, limit int, status models.WorkflowStatus) ([]models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Workflow, 0, len(r.workflows))
	for _, wf := range r.workflows {
		if status != "" && wf.Status != status {
			continue
		}
		out = append(out, *cloneWorkflow(wf))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryWorkflowRepository) FindPending(ctx context.Context, limit int) ([]models.Workflow, error) {
	pending, err := r.List(ctx, 0, models.WorkflowPending)
	if err != nil {
		return nil, err
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func cloneWorkflow(wf *models.Workflow) *models.Workflow {
	c := *wf
	c.InputData = copyJSONMap(wf.InputData)
	c.OutputData = copyJSONMap(wf.OutputData)
	if wf.ErrorMessage != nil {
		msg := *wf.ErrorMessage
		c.ErrorMessage = &msg
	}
	return &c
}

func copyJSONMap(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MemoryCandidateRepository serves a fixed candidate pool.
type MemoryCandidateRepository struct {
	mu         sync.RWMutex
	candidates map[int64]models.Candidate
	Err        error
}

func NewMemoryCandidateRepository(candidates ...models.Candidate) *MemoryCandidateRepository {
	r := &MemoryCandidateRepository{candidates: make(map[int64]models.Candidate)}
	for _, c := range candidates {
		r.candidates[c.ID] = c
	}
	return r
}

func (r *MemoryCandidateRepository) List(_ context.Context, ids []int64) ([]models.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}

	out := make([]models.Candidate, 0, len(r.candidates))
	if len(ids) == 0 {
		for _, c := range r.candidates {
			out = append(out, c)
		}
	} else {
		for _, id := range ids {
			if c, ok := r.candidates[id]; ok {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryCandidateRepository) Upsert(_ context.Context, candidates []models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range candidates {
		r.candidates[c.ID] = c
	}
	return nil
}

type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[int64]models.Job
	Err  error
}

func NewMemoryJobRepository(jobs ...models.Job) *MemoryJobRepository {
	r := &MemoryJobRepository{jobs: make(map[int64]models.Job)}
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return r
}

func (r *MemoryJobRepository) FindByID(_ context.Context, id int64) (*models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.Err != nil {
		return nil, r.Err
	}
	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

func (r *MemoryJobRepository) Upsert(_ context.Context, jobs []models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		r.jobs[j.ID] = j
	}
	return nil
}
