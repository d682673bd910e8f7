// Package readsvc implements the read service: resolving selectors
// (including AS_OF on both the version and tag axes) to concrete tags.
package readsvc

import (
	"context"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/dal"
	"github.com/tracmeta/metacore/internal/svcerr"
)

// Service is the read service.
type Service struct {
	DB *dal.DB
}

// ReadObject resolves a single selector to its tag.
func (s *Service) ReadObject(ctx context.Context, tenant string, sel catalog.TagSelector) (catalog.Tag, error) {
	tags, err := s.ReadBatch(ctx, tenant, []catalog.TagSelector{sel})
	if err != nil {
		return catalog.Tag{}, err
	}
	return tags[0], nil
}

// ReadBatch resolves a batch of selectors in one transaction, returning
// tags positionally aligned with selectors (spec.md §4.6). Any unresolved
// selector aborts the whole batch, consistent with the key mapper's
// all-or-nothing batch semantics (spec.md §4.2).
func (s *Service) ReadBatch(ctx context.Context, tenant string, selectors []catalog.TagSelector) ([]catalog.Tag, error) {
	if len(selectors) == 0 {
		return nil, svcerr.New(svcerr.KindInputValidation, "readsvc.ReadBatch", "at least one selector is required")
	}
	return s.DB.LoadTags(ctx, tenant, selectors)
}
