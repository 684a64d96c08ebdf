package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/project-koku/parquet-compactor/internal/model"
	"github.com/project-koku/parquet-compactor/internal/store"
)

// CrawlerService discovers leaf partitions under a root prefix
type CrawlerService struct {
	store  store.ObjectStore
	logger *zap.Logger
}

// NewCrawlerService creates a new crawler service
func NewCrawlerService(objectStore store.ObjectStore, logger *zap.Logger) *CrawlerService {
	return &CrawlerService{
		store:  objectStore,
		logger: logger,
	}
}

// Walk delivers every leaf partition under root to fn. A prefix with
// sub-prefixes is descended into and its direct entries are ignored; a
// prefix without sub-prefixes is a leaf, even when it holds no entries.
// Traversal uses an explicit stack so deeply nested layouts cannot exhaust
// call-stack depth. Listing errors and callback errors stop the walk
func (s *CrawlerService) Walk(ctx context.Context, root string, fn func(model.Partition) error) error {
	stack := []string{root}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		prefix := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subs, err := s.store.ListPrefixes(ctx, prefix)
		if err != nil {
			return err
		}
		if len(subs) > 0 {
			s.logger.Debug("Descending into prefix",
				zap.String("prefix", prefix),
				zap.Int("sub_prefixes", len(subs)))
			stack = append(stack, subs...)
			continue
		}

		files, err := s.store.ListEntries(ctx, prefix)
		if err != nil {
			return err
		}
		if err := fn(model.Partition{Prefix: prefix, Files: files}); err != nil {
			return err
		}
	}
	return nil
}
