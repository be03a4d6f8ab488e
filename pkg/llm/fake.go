package llm

import "context"

// FakeClient is a deterministic ChatClient for tests: it replays a fixed
// chunk sequence regardless of the request.
type FakeClient struct {
	Chunks []StreamChunk
	Err    error
}

func (f *FakeClient) Stream(ctx context.Context, req Request) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, len(f.Chunks))
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		for _, c := range f.Chunks {
			select {
			case chunks <- c:
			case <-ctx.Done():
				return
			}
		}
		if f.Err != nil {
			errs <- f.Err
		}
	}()
	return chunks, errs
}

func (f *FakeClient) Close() error { return nil }
