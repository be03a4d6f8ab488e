package retrieval

import "context"

// Fetcher retrieves content snippets from one named, resident index. The
// router only decides which indexes to query (spec §4.6); the actual
// corpus (embeddings, recipe/nutrition tables) is an external concern
// this interface abstracts so the orchestration pipeline never needs to
// know which backing store serves a given index.
type Fetcher interface {
	Fetch(ctx context.Context, index, message string) ([]string, error)
}

// NoopFetcher returns no snippets for any index. It lets the pipeline run
// end-to-end (and be tested) with no embedding backend configured.
type NoopFetcher struct{}

func (NoopFetcher) Fetch(ctx context.Context, index, message string) ([]string, error) {
	return nil, nil
}
