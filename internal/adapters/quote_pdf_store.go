package adapters

import (
	"context"
	"errors"
	"time"

	"medtour_backend/internal/adapters/storage"
	quotesvc "medtour_backend/internal/quotes/service"
)

const contentTypePDF = "application/pdf"

// QuotePDFStore caches rendered quote documents in object storage.
type QuotePDFStore struct {
	objects storage.ObjectStore
}

func NewQuotePDFStore(objects storage.ObjectStore) *QuotePDFStore {
	return &QuotePDFStore{objects: objects}
}

// Fetch returns the cached document. A missing key is a miss, not an error.
func (s *QuotePDFStore) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	content, err := s.objects.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrObjectNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return content, true, nil
}

func (s *QuotePDFStore) Put(ctx context.Context, key string, content []byte) error {
	return s.objects.Put(ctx, key, contentTypePDF, content)
}

func (s *QuotePDFStore) URL(ctx context.Context, key string) (string, time.Time, error) {
	return s.objects.Presign(ctx, key)
}

var _ quotesvc.PDFStore = (*QuotePDFStore)(nil)
