package patterns

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"patternwatch/internal/domain"
	"patternwatch/internal/fingerprint"
)

// ErrPatternLimitReached is returned when a user already has the maximum
// number of active patterns their plan allows.
var ErrPatternLimitReached = fmt.Errorf("active pattern limit reached")

// Service implements pattern registration and lifecycle on top of the repository.
// Fingerprints are computed synchronously at creation and recomputed wholesale
// whenever the reference image changes.
type Service struct {
	repo       *Repository
	images     domain.ImageFetcher
	maxActive  int // Per-user active pattern cap (plan-gated, external config)
	defaultThr int
	log        zerolog.Logger
}

// NewService creates a new pattern service
func NewService(repo *Repository, images domain.ImageFetcher, maxActive, defaultThreshold int, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		images:     images,
		maxActive:  maxActive,
		defaultThr: defaultThreshold,
		log:        log.With().Str("service", "patterns").Logger(),
	}
}

// CreateParams holds the user-supplied fields for pattern registration
type CreateParams struct {
	UserID         string           `json:"user_id"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	ImageRef       string           `json:"image_ref"`
	Pair           string           `json:"pair"`
	Timeframe      domain.Timeframe `json:"timeframe"`
	Direction      domain.Direction `json:"direction"`
	Threshold      *int             `json:"threshold,omitempty"`
	CheckFrequency string           `json:"check_frequency"`
}

// Create registers a new pattern. The fingerprint is extracted synchronously
// from the supplied reference image; creation fails if the image cannot be
// fetched. The per-plan active pattern cap is enforced here.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Pattern, error) {
	count, err := s.repo.CountActiveByUser(params.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pattern cap: %w", err)
	}
	if count >= s.maxActive {
		return nil, ErrPatternLimitReached
	}

	data, err := s.images.FetchBytes(ctx, params.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reference image: %w", err)
	}

	threshold := s.defaultThr
	if params.Threshold != nil {
		threshold = *params.Threshold
	}

	p := &Pattern{
		ID:             uuid.NewString(),
		UserID:         params.UserID,
		Name:           params.Name,
		Description:    params.Description,
		ImageRef:       params.ImageRef,
		Pair:           params.Pair,
		Timeframe:      params.Timeframe,
		Direction:      params.Direction,
		Fingerprint:    fingerprint.FromImage(data),
		Threshold:      threshold,
		CheckFrequency: params.CheckFrequency,
		Active:         true,
	}

	if err := s.repo.Create(p); err != nil {
		return nil, err
	}

	return p, nil
}

// UpdateParams holds optional pattern mutations. Nil fields are left unchanged.
type UpdateParams struct {
	Name           *string           `json:"name,omitempty"`
	Description    *string           `json:"description,omitempty"`
	ImageRef       *string           `json:"image_ref,omitempty"`
	Pair           *string           `json:"pair,omitempty"`
	Timeframe      *domain.Timeframe `json:"timeframe,omitempty"`
	Direction      *domain.Direction `json:"direction,omitempty"`
	Threshold      *int              `json:"threshold,omitempty"`
	CheckFrequency *string           `json:"check_frequency,omitempty"`
	Active         *bool             `json:"active,omitempty"`
}

// Update applies mutations to a pattern. Changing the reference image
// recomputes the fingerprint wholesale. Reactivating a soft-deleted pattern
// re-checks the active cap.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*Pattern, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("pattern not found: %s", id)
	}

	if params.Active != nil && *params.Active && !p.Active {
		count, err := s.repo.CountActiveByUser(p.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check pattern cap: %w", err)
		}
		if count >= s.maxActive {
			return nil, ErrPatternLimitReached
		}
	}

	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Pair != nil {
		p.Pair = *params.Pair
	}
	if params.Timeframe != nil {
		p.Timeframe = *params.Timeframe
	}
	if params.Direction != nil {
		p.Direction = *params.Direction
	}
	if params.Threshold != nil {
		p.Threshold = *params.Threshold
	}
	if params.CheckFrequency != nil {
		p.CheckFrequency = *params.CheckFrequency
	}
	if params.Active != nil {
		p.Active = *params.Active
	}

	if params.ImageRef != nil && *params.ImageRef != p.ImageRef {
		data, err := s.images.FetchBytes(ctx, *params.ImageRef)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch reference image: %w", err)
		}
		p.ImageRef = *params.ImageRef
		p.Fingerprint = fingerprint.FromImage(data)
		s.log.Info().Str("pattern_id", p.ID).Msg("Fingerprint recomputed from new reference image")
	}

	if err := s.repo.Update(p); err != nil {
		return nil, err
	}

	return p, nil
}

// Delete soft-deletes a pattern by flipping its active flag
func (s *Service) Delete(id string) error {
	return s.repo.SoftDelete(id)
}

// Get returns a pattern by id; (nil, nil) when not found
func (s *Service) Get(id string) (*Pattern, error) {
	return s.repo.GetByID(id)
}

// ListByUser returns all of a user's patterns, newest first
func (s *Service) ListByUser(userID string) ([]Pattern, error) {
	return s.repo.ListByUser(userID)
}
