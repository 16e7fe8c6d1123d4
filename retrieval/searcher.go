// Package retrieval looks up prior similar studies to pre-fill form fields.
package retrieval

import (
	"context"

	"github.com/dbhatt90/StudyBotAgent/types"
)

// Searcher is the retrieval collaborator. Implementations must treat failures
// as their own concern: a returned error degrades exactly one turn and never
// corrupts session state.
type Searcher interface {
	Search(ctx context.Context, query string) (*types.SearchResult, error)
}

// NoopSearcher always reports zero results. Used when no retrieval backend is
// configured.
type NoopSearcher struct{}

func (NoopSearcher) Search(ctx context.Context, query string) (*types.SearchResult, error) {
	return &types.SearchResult{FoundFields: map[string]string{}}, nil
}
