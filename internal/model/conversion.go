package model

import "time"

// Status is the lifecycle state of a conversion. Transitions only move
// forward: pending -> processing -> completed or failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next is a valid forward
// transition. Terminal states accept nothing, and a state never repeats.
func (s Status) CanTransition(next Status) bool {
	if s.rank() < 0 || next.rank() < 0 {
		return false
	}
	return next.rank() > s.rank()
}

// Conversion tracks one file-conversion job from upload to terminal status.
type Conversion struct {
	ID             string             `json:"id"`
	FileName       string             `json:"fileName"`
	OriginalFormat string             `json:"originalFormat"`
	TargetFormat   string             `json:"targetFormat"`
	Settings       ConversionSettings `json:"settings"`
	Status         Status             `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
	CompletedAt    *time.Time         `json:"completedAt"`
}
