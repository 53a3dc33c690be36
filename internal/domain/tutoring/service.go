package tutoring

import (
	"context"

	"github.com/google/uuid"

	"github.com/tutorlink/tutorlink-api/internal/pkg/logger"
)

// Service reads tutoring requests and records views.
type Service struct {
	repo  Repository
	views ViewDeduplicator
}

// NewService creates a tutoring service; views may be nil.
func NewService(repo Repository, views ViewDeduplicator) *Service {
	return &Service{repo: repo, views: views}
}

// View loads a request and records a view by viewerKey (user ID or client IP).
// Owners do not count as viewers. View recording is best effort: a counter
// failure is logged and never hides the request.
func (s *Service) View(ctx context.Context, id uuid.UUID, viewer uuid.UUID, viewerKey string) (*Request, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsOwner(viewer) || viewerKey == "" {
		return req, nil
	}

	first := true
	if s.views != nil {
		first, err = s.views.FirstView(ctx, viewerKey, id)
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("request_id", id.String()).Msg("view dedup unavailable")
			return req, nil
		}
	}
	if !first {
		return req, nil
	}

	if err := s.repo.IncrementViewCount(ctx, id); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("request_id", id.String()).Msg("failed to record request view")
		return req, nil
	}
	req.ViewCount.Int64 = req.Views() + 1
	req.ViewCount.Valid = true
	return req, nil
}
