package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"convertly/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "conversion:"
	redisRecentKey = "conversion:recent"
	// recentKeep bounds the recent-conversions index.
	recentKeep = 1000
)

type redisRepository struct {
	client *redis.Client
}

// NewRedis opens a Redis-backed conversion repository. Each record lives in
// a hash keyed by id; a capped list tracks recency for List.
func NewRedis(addr, password string, db int) (ConversionRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisRepository{client: client}, nil
}

func (r *redisRepository) Create(ctx context.Context, fileName, originalFormat, targetFormat string, settings model.ConversionSettings) (*model.Conversion, error) {
	conv := &model.Conversion{
		ID:             uuid.NewString(),
		FileName:       fileName,
		OriginalFormat: originalFormat,
		TargetFormat:   targetFormat,
		Settings:       settings,
		Status:         model.StatusPending,
		CreatedAt:      time.Now(),
	}

	if err := r.write(ctx, conv); err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, redisRecentKey, conv.ID)
	pipe.LTrim(ctx, redisRecentKey, 0, recentKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to index conversion: %w", err)
	}

	return conv, nil
}

func (r *redisRepository) Update(ctx context.Context, id string, upd ConversionUpdate) (*model.Conversion, error) {
	conv, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
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

	if err := r.write(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *redisRepository) Get(ctx context.Context, id string) (*model.Conversion, error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return fromFields(id, fields)
}

func (r *redisRepository) List(ctx context.Context, limit int) ([]model.Conversion, error) {
	ids, err := r.client.LRange(ctx, redisRecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}

	out := make([]model.Conversion, 0, len(ids))
	for _, id := range ids {
		conv, err := r.Get(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *conv)
	}
	return out, nil
}

func (r *redisRepository) write(ctx context.Context, conv *model.Conversion) error {
	settingsJSON, err := json.Marshal(conv.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	fields := map[string]interface{}{
		"file_name":       conv.FileName,
		"original_format": conv.OriginalFormat,
		"target_format":   conv.TargetFormat,
		"settings":        string(settingsJSON),
		"status":          string(conv.Status),
		"created_at":      conv.CreatedAt.Format(time.RFC3339Nano),
	}
	if conv.CompletedAt != nil {
		fields["completed_at"] = conv.CompletedAt.Format(time.RFC3339Nano)
	}

	if err := r.client.HSet(ctx, redisKeyPrefix+conv.ID, fields).Err(); err != nil {
		return fmt.Errorf("failed to write conversion: %w", err)
	}
	return nil
}

func fromFields(id string, fields map[string]string) (*model.Conversion, error) {
	conv := &model.Conversion{
		ID:             id,
		FileName:       fields["file_name"],
		OriginalFormat: fields["original_format"],
		TargetFormat:   fields["target_format"],
		Status:         model.Status(fields["status"]),
	}

	if raw := fields["settings"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &conv.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	conv.CreatedAt = createdAt

	if raw := fields["completed_at"]; raw != "" {
		completedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse completed_at: %w", err)
		}
		conv.CompletedAt = &completedAt
	}

	return conv, nil
}
