// Package content resolves hospital and treatment reference data for quote
// documents and notification templates, with an optional redis read-through
// cache in front of postgres.
package content

import (
	"context"

	"medtour_backend/platform/logger"

	"github.com/google/uuid"
)

// Source loads reference records from the system of record.
type Source interface {
	Hospital(ctx context.Context, id uuid.UUID) (*Hospital, error)
	Treatment(ctx context.Context, id uuid.UUID) (*Treatment, error)
}

// Service looks up reference data.
type Service struct {
	source Source
	cache  *Cache
	log    *logger.Logger
}

// NewService creates the lookup service. cache may be nil.
func NewService(source Source, cache *Cache, log *logger.Logger) *Service {
	return &Service{source: source, cache: cache, log: log}
}

func (s *Service) Hospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return readThrough(ctx, s, "hospital:"+id.String(), func() (*Hospital, error) {
		return s.source.Hospital(ctx, id)
	})
}

func (s *Service) Treatment(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	return readThrough(ctx, s, "treatment:"+id.String(), func() (*Treatment, error) {
		return s.source.Treatment(ctx, id)
	})
}

// HospitalName returns the display name of a hospital.
func (s *Service) HospitalName(ctx context.Context, id uuid.UUID) (string, error) {
	h, err := s.Hospital(ctx, id)
	if err != nil {
		return "", err
	}
	return h.Name, nil
}

// TreatmentName returns the display name of a treatment.
func (s *Service) TreatmentName(ctx context.Context, id uuid.UUID) (string, error) {
	t, err := s.Treatment(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Name, nil
}

// readThrough serves key from the cache, loading and storing it on a miss.
// Cache errors degrade to a direct load.
func readThrough[T any](ctx context.Context, s *Service, key string, load func() (*T, error)) (*T, error) {
	if s.cache != nil {
		var cached T
		ok, err := s.cache.get(ctx, key, &cached)
		if err != nil {
			s.log.WithContext(ctx).Warn("content cache read failed", "key", key, "error", err)
		}
		if ok {
			return &cached, nil
		}
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.set(ctx, key, v); err != nil {
			s.log.WithContext(ctx).Warn("content cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}
