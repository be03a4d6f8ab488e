package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func constFn(v any) Fn {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return v, nil
	}
}

func TestExecute_IndependentNodesRunInParallel(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "a", Run: constFn(1)})
	s.AddNode(Node{Name: "b", Run: constFn(2)})

	results, err := s.Execute(context.Background(), Policy{EnabledAgents: map[string]bool{}})
	require.NoError(t, err)
	require.Equal(t, 1, results["a"].Value)
	require.Equal(t, 2, results["b"].Value)
}

func TestExecute_DependentNodeWaitsForDependency(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "a", Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		time.Sleep(20 * time.Millisecond)
		return "a-result", nil
	}})
	s.AddNode(Node{
		Name:      "b",
		DependsOn: []string{"a"},
		Args:      []any{"a"},
		Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
			return args[0], nil
		},
	})

	results, err := s.Execute(context.Background(), Policy{})
	require.NoError(t, err)
	require.Equal(t, "a-result", results["b"].Value)
}

func TestExecute_FailedDependencyCancelsDownstream(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "a", Run: func(context.Context, []any, map[string]any) (any, error) {
		return nil, errors.New("boom")
	}})
	s.AddNode(Node{Name: "b", DependsOn: []string{"a"}, Run: constFn("should not run")})

	results, err := s.Execute(context.Background(), Policy{})
	require.NoError(t, err)
	require.Error(t, results["a"].Err)
	require.True(t, results["b"].Cancelled)
}

func TestExecute_LuxuryNodeOmittedWhenNotEnabled(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "luxury", IsLuxury: true, Run: constFn("extra")})

	results, err := s.Execute(context.Background(), Policy{EnabledAgents: map[string]bool{}})
	require.NoError(t, err)
	_, ran := results["luxury"]
	require.False(t, ran)
}

func TestExecute_LuxuryNodeRunsWhenEnabled(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "luxury", IsLuxury: true, Run: constFn("extra")})

	results, err := s.Execute(context.Background(), Policy{EnabledAgents: map[string]bool{"luxury": true}})
	require.NoError(t, err)
	require.Equal(t, "extra", results["luxury"].Value)
}

func TestExecute_SpeculativeNodePrunedWhenDegraded(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "spec", IsSpeculative: true, Run: constFn("guess")})

	results, err := s.Execute(context.Background(), Policy{Degraded: true})
	require.NoError(t, err)
	_, ran := results["spec"]
	require.False(t, ran)
}

func TestExecute_DependentOnPrunedNodeIsCancelled(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "spec", IsSpeculative: true, Run: constFn("guess")})
	s.AddNode(Node{Name: "downstream", DependsOn: []string{"spec"}, Run: constFn("after")})

	results, err := s.Execute(context.Background(), Policy{Degraded: true})
	require.NoError(t, err)
	require.True(t, results["downstream"].Cancelled)
}

func TestExecute_RejectsCycle(t *testing.T) {
	s := New()
	s.AddNode(Node{Name: "a", DependsOn: []string{"b"}, Run: constFn(1)})
	s.AddNode(Node{Name: "b", DependsOn: []string{"a"}, Run: constFn(2)})

	_, err := s.Execute(context.Background(), Policy{})
	require.Error(t, err)
}

func TestExecute_CancelAllViaParentContext(t *testing.T) {
	s := New()
	started := make(chan struct{})
	s.AddNode(Node{Name: "slow", Run: func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		close(started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return "done", nil
		}
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan map[string]Result, 1)
	go func() {
		results, _ := s.Execute(ctx, Policy{})
		done <- results
	}()

	<-started
	cancel()

	select {
	case results := <-done:
		require.Error(t, results["slow"].Err)
	case <-time.After(time.Second):
		t.Fatal("execute did not return promptly after cancellation")
	}
}
