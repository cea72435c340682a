// Package storage defines persistence for segments and saved models.
// Backends live in the memory, sqlite and postgres subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/revenue-forecast/pkg/projection"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a segment or model name is already
	// taken. Names are compared case-insensitively.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// Model is a saved revenue model: its parameters and the segments it was
// built from. TotalRevenue is the unseasoned revenue over the horizon at the
// time of saving.
type Model struct {
	ID           string                `json:"id" yaml:"id"`
	Name         string                `json:"name" yaml:"name"`
	Description  string                `json:"description,omitempty" yaml:"description,omitempty"`
	Parameters   projection.Parameters `json:"parameters" yaml:"parameters"`
	Segments     []projection.Segment  `json:"segments" yaml:"segments"`
	TotalRevenue float64               `json:"totalRevenue" yaml:"totalRevenue"`
	CreatedAt    time.Time             `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt" yaml:"updatedAt"`
}

// Store is the persistence interface shared by all backends.
type Store interface {
	// CreateSegment persists a new segment, assigning an ID when empty.
	CreateSegment(ctx context.Context, segment *projection.Segment) error
	GetSegment(ctx context.Context, id string) (*projection.Segment, error)
	// ListSegments returns segments in creation order.
	ListSegments(ctx context.Context) ([]projection.Segment, error)
	UpdateSegment(ctx context.Context, segment *projection.Segment) error
	DeleteSegment(ctx context.Context, id string) error
	// ReplaceSegments atomically swaps the stored set for segments.
	ReplaceSegments(ctx context.Context, segments []projection.Segment) ([]projection.Segment, error)

	// SaveModel inserts a model, or replaces the one with the same ID.
	SaveModel(ctx context.Context, model *Model) error
	GetModel(ctx context.Context, id string) (*Model, error)
	// ListModels returns models most recently updated first.
	ListModels(ctx context.Context) ([]Model, error)
	DeleteModel(ctx context.Context, id string) error

	Close() error
}

// NameKey is the uniqueness key for segment and model names.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PrepareSegment trims the name and assigns an ID when empty.
func PrepareSegment(segment *projection.Segment) error {
	if segment == nil {
		return fmt.Errorf("%w: segment is nil", ErrInvalidInput)
	}
	segment.Name = strings.TrimSpace(segment.Name)
	if segment.Name == "" {
		return fmt.Errorf("%w: segment name is required", ErrInvalidInput)
	}
	if segment.ID == "" {
		segment.ID = uuid.New().String()
	}
	return nil
}

// PrepareSegments prepares a batch and rejects repeated names.
func PrepareSegments(segments []projection.Segment) ([]projection.Segment, error) {
	prepared := make([]projection.Segment, len(segments))
	seen := make(map[string]struct{}, len(segments))
	for i := range segments {
		prepared[i] = CloneSegment(segments[i])
		if err := PrepareSegment(&prepared[i]); err != nil {
			return nil, err
		}
		key := NameKey(prepared[i].Name)
		if _, exists := seen[key]; exists {
			return nil, fmt.Errorf("%w: segment %q", ErrDuplicateKey, prepared[i].Name)
		}
		seen[key] = struct{}{}
	}
	return prepared, nil
}

// PrepareModel validates a model, assigns an ID when empty and stamps its
// timestamps. CreatedAt is kept when already set.
func PrepareModel(model *Model, now time.Time) error {
	if model == nil {
		return fmt.Errorf("%w: model is nil", ErrInvalidInput)
	}
	model.Name = strings.TrimSpace(model.Name)
	if model.Name == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidInput)
	}
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	now = now.UTC().Truncate(time.Millisecond)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now
	if model.Parameters.Months > 0 {
		model.TotalRevenue = projection.ModelTotalRevenue(model.Segments, model.Parameters.Months)
	}
	return nil
}

// CloneSegment returns a copy that shares no metadata map with segment.
func CloneSegment(segment projection.Segment) projection.Segment {
	clone := segment
	if segment.Metadata != nil {
		clone.Metadata = make(map[string]string, len(segment.Metadata))
		for k, v := range segment.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}

// CloneModel returns a deep copy of model.
func CloneModel(model Model) Model {
	clone := model
	if model.Segments != nil {
		clone.Segments = make([]projection.Segment, len(model.Segments))
		for i, segment := range model.Segments {
			clone.Segments[i] = CloneSegment(segment)
		}
	}
	return clone
}
