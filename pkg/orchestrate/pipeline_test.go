package orchestrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/llm"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
	"github.com/kitchencore/reasoner/pkg/retrieval"
	"github.com/kitchencore/reasoner/pkg/session"
	"github.com/kitchencore/reasoner/pkg/stream"
)

type fakeMem struct{}

func (fakeMem) Sample(context.Context) (float64, float64, error) { return 10, 0, nil }

func testConfig() config.Config {
	return config.Config{
		Session:   config.SessionConfig{IdleDecayAfter: 12 * time.Hour},
		Policy:    config.PolicyConfig{ShortUtteranceTokens: 2},
		Resource:  config.ResourceConfig{HealthyRAMPercent: 90, HealthyGPUPercent: 90},
		Compounds: config.CompoundsConfig{RequestsPerSecond: 1000, RequestTimeout: time.Second, MaxRetries: 1},
	}
}

func testPipeline() *Pipeline {
	return &Pipeline{
		Config:   testConfig(),
		Monitor:  resourcemon.New(testConfig().Resource, fakeMem{}, nil),
		Sessions: session.NewMemStore(),
		Fetcher:  retrieval.NoopFetcher{},
		Client:   &llm.FakeClient{Chunks: []llm.StreamChunk{{Content: "a seared steak rests before slicing"}}},
		Identity: PolicyIdentity{RegistryVersion: "v1", RegistryHash: "abc", OntologyVersion: "v1", PolicyID: "p1", PolicyVersion: "1"},
	}
}

func TestPipeline_RunProducesDoneEvent(t *testing.T) {
	p := testPipeline()
	out := stream.New(64, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	var sawDone, sawToken bool
	go func() {
		out.Drain(ctx, func(ev stream.Event) {
			switch ev.Kind {
			case stream.KindDone:
				sawDone = true
			case stream.KindToken:
				sawToken = true
			}
		})
		close(done)
	}()

	p.Run(ctx, Request{SessionID: "sess-1", UserID: "user-a", Message: "how do I sear a steak"}, out)
	<-done

	require.True(t, sawDone)
	require.True(t, sawToken)
}

func TestPipeline_CrossOwnerAccessFails(t *testing.T) {
	p := testPipeline()
	ctx := context.Background()

	out1 := stream.New(64, 0)
	done1 := make(chan struct{})
	go func() { out1.Drain(ctx, func(stream.Event) {}); close(done1) }()
	p.Run(ctx, Request{SessionID: "sess-1", UserID: "user-a", Message: "hello"}, out1)
	<-done1

	out2 := stream.New(64, 0)
	var failed bool
	done2 := make(chan struct{})
	go func() {
		out2.Drain(ctx, func(ev stream.Event) {
			if ev.Kind == stream.KindDone {
				payload := ev.Payload.(stream.DonePayload)
				failed = payload.Status == stream.DoneFailed
			}
		})
		close(done2)
	}()
	p.Run(ctx, Request{SessionID: "sess-1", UserID: "user-b", Message: "hi"}, out2)
	<-done2

	require.True(t, failed)
}

func TestCancelRegistry_CancelStopsRegisteredContext(t *testing.T) {
	reg := NewCancelRegistry()
	ctx, release := reg.Register(context.Background(), "sess-1")
	defer release()

	require.True(t, reg.Active("sess-1"))
	require.True(t, reg.Cancel("sess-1"))

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled")
	}
}

func TestCancelRegistry_CancelUnknownSessionReturnsFalse(t *testing.T) {
	reg := NewCancelRegistry()
	require.False(t, reg.Cancel("ghost"))
}
