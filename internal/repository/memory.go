package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"convertly/internal/model"

	"github.com/google/uuid"
)

// memoryRepository keeps conversions in a mutex-guarded map. It backs tests
// and deployments without a database.
type memoryRepository struct {
	mu          sync.Mutex
	conversions map[string]*model.Conversion
}

// NewMemory creates an in-memory conversion repository.
func NewMemory() ConversionRepository {
	return &memoryRepository{
		conversions: make(map[string]*model.Conversion),
	}
}

func (r *memoryRepository) Create(ctx context.Context, fileName, originalFormat, targetFormat string, settings model.ConversionSettings) (*model.Conversion, error) {
	conv := &model.Conversion{
		ID:             uuid.NewString(),
		FileName:       fileName,
		OriginalFormat: originalFormat,
		TargetFormat:   targetFormat,
		Settings:       settings,
		Status:         model.StatusPending,
		CreatedAt:      time.Now(),
	}

	r.mu.Lock()
	r.conversions[conv.ID] = conv
	r.mu.Unlock()

	snapshot := *conv
	return &snapshot, nil
}

func (r *memoryRepository) Update(ctx context.Context, id string, upd ConversionUpdate) (*model.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversions[id]
	if !ok {
		return nil, ErrNotFound
	}

	if upd.Status != "" {
		if !conv.Status.CanTransition(upd.Status) {
			return nil, fmt.Errorf("invalid status transition %s -> %s", conv.Status, upd.Status)
		}
		conv.Status = upd.Status
	}
	if upd.CompletedAt != nil {
		conv.CompletedAt = upd.CompletedAt
	}

	snapshot := *conv
	return &snapshot, nil
}

func (r *memoryRepository) Get(ctx context.Context, id string) (*model.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversions[id]
	if !ok {
		return nil, ErrNotFound
	}

	snapshot := *conv
	return &snapshot, nil
}

func (r *memoryRepository) List(ctx context.Context, limit int) ([]model.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Conversion, 0, len(r.conversions))
	for _, conv := range r.conversions {
		out = append(out, *conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
