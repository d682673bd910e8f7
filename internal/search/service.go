package search

import (
	"context"

	"github.com/tracmeta/metacore/internal/catalog"
	"github.com/tracmeta/metacore/internal/svcerr"
)

// Searcher is the DAL search operation that Service delegates to; *dal.DB
// implements it. It is an interface because internal/dal imports this
// package for Compile.
type Searcher interface {
	Search(ctx context.Context, tenant string, params catalog.SearchParameters) ([]catalog.SearchResult, error)
}

// Service is the externally-facing half of search: validates a search
// request's shape, then delegates compilation and execution to the DAL,
// which embeds this package's Compile function into its query.
type Service struct {
	DB Searcher
}

// Execute runs params against tenant's catalogue.
func (s *Service) Execute(ctx context.Context, tenant string, params catalog.SearchParameters) ([]catalog.SearchResult, error) {
	if err := validate(params); err != nil {
		return nil, err
	}
	return s.DB.Search(ctx, tenant, params)
}

func validate(p catalog.SearchParameters) error {
	return validateExpr(p.Expression)
}

func validateExpr(e *catalog.Expression) error {
	if e == nil {
		return nil
	}
	switch {
	case e.Term != nil:
		if e.Term.AttrName == "" {
			return svcerr.New(svcerr.KindInputValidation, "search.Execute", "search term is missing an attribute name")
		}
		return nil
	case e.Logical != nil:
		for i := range e.Logical.Exprs {
			if err := validateExpr(&e.Logical.Exprs[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return svcerr.New(svcerr.KindInputValidation, "search.Execute", "expression has neither a term nor a logical node")
	}
}
