package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bhiv/hr-platform/internal/models"
)

type CandidateRepository interface {
	// List returns the candidates with the given ids, or every candidate when ids is empty.
	List(ctx context.Context, ids []int64) ([]models.Candidate, error)
	Upsert(ctx context.Context, candidates []models.Candidate) error
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) List(ctx context.Context, ids []int64) ([]models.Candidate, error) {
	var candidates []models.Candidate
	query := r.db.WithContext(ctx).Order("id ASC")
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	if err := query.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) Upsert(ctx context.Context, candidates []models.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(candidates, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert candidates: %w", err)
	}
	return nil
}

type JobRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Job, error)
	Upsert(ctx context.Context, jobs []models.Job) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) FindByID(ctx context.Context, id int64) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) Upsert(ctx context.Context, jobs []models.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(jobs, 100).Error
	if err != nil {
		return fmt.Errorf("failed to upsert jobs: %w", err)
	}
	return nil
}
