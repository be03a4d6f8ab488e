// Package scheduler implements the DAG Scheduler (spec §4.7): a small
// dependency graph of named nodes, each guarded by a completion signal,
// with luxury/speculative pruning and cooperative cancellation. Modeled
// on a dispatch-and-collect runner: every node is a goroutine that waits
// on its dependencies' channels before starting.
package scheduler

import (
	"context"
	"fmt"
	"sync"
)

// Result is what a node produced, or the fact that it was cancelled or
// failed.
type Result struct {
	Value     any
	Err       error
	Cancelled bool
}

// Fn is a node body. args/kwargs have already had prior node results
// substituted in by the scheduler's dependency-injection step.
type Fn func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Node is one vertex in the graph.
type Node struct {
	Name          string
	Run           Fn
	Args          []any
	Kwargs        map[string]any
	DependsOn     []string
	IsLuxury      bool
	IsSpeculative bool
	Priority      int
}

// EnabledAgents and Degraded gate which nodes actually run: luxury nodes
// are omitted if the name isn't in the enabled set, speculative nodes are
// pruned when the resource monitor is degraded.
type Policy struct {
	EnabledAgents map[string]bool
	Degraded      bool
}

// Scheduler holds a set of nodes to be executed together as a DAG.
type Scheduler struct {
	nodes map[string]*Node
	order []string // insertion order, for deterministic iteration
}

// New creates an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{nodes: map[string]*Node{}}
}

// AddNode registers a vertex. Re-adding a name overwrites the prior node
// but keeps its original position in iteration order.
func (s *Scheduler) AddNode(n Node) {
	if _, exists := s.nodes[n.Name]; !exists {
		s.order = append(s.order, n.Name)
	}
	cp := n
	s.nodes[n.Name] = &cp
}

// detectCycle runs a DFS over depends_on edges and returns an error
// naming the first cycle found, rejecting execution before any node runs.
func (s *Scheduler) detectCycle() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(s.nodes))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle detected: %v -> %s", path, name)
		}
		state[name] = visiting
		if node, ok := s.nodes[name]; ok {
			for _, dep := range node.DependsOn {
				if err := visit(dep, append(path, name)); err != nil {
					return err
				}
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range s.order {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// active returns nodes that survive luxury/speculative pruning under p.
func (s *Scheduler) active(p Policy) map[string]bool {
	active := make(map[string]bool, len(s.nodes))
	for _, name := range s.order {
		n := s.nodes[name]
		if n.IsLuxury && !p.EnabledAgents[name] {
			continue
		}
		if n.IsSpeculative && p.Degraded {
			continue
		}
		active[name] = true
	}
	return active
}

// Execute runs every active node, respecting dependencies, and returns a
// name→Result map. It rejects up front if the graph has a cycle.
func (s *Scheduler) Execute(ctx context.Context, p Policy) (map[string]Result, error) {
	if err := s.detectCycle(); err != nil {
		return nil, err
	}

	active := s.active(p)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(map[string]chan struct{}, len(active))
	for name := range active {
		signals[name] = make(chan struct{})
	}

	var mu sync.Mutex
	results := make(map[string]Result, len(active))
	var wg sync.WaitGroup

	recordAndClose := func(name string, r Result) {
		mu.Lock()
		results[name] = r
		mu.Unlock()
		close(signals[name])
	}

	for name := range active {
		n := s.nodes[name]
		wg.Add(1)
		go func(n *Node) {
			defer wg.Done()
			runNode(ctx, n, signals, &mu, results, recordAndClose)
		}(n)
	}

	wg.Wait()
	return results, nil
}

func runNode(
	ctx context.Context,
	n *Node,
	signals map[string]chan struct{},
	mu *sync.Mutex,
	results map[string]Result,
	recordAndClose func(string, Result),
) {
	for _, dep := range n.DependsOn {
		sig, tracked := signals[dep]
		if !tracked {
			// Dependency was pruned; treat as immediately cancelled.
			recordAndClose(n.Name, Result{Cancelled: true})
			return
		}
		select {
		case <-sig:
		case <-ctx.Done():
			recordAndClose(n.Name, Result{Cancelled: true})
			return
		}

		mu.Lock()
		depResult := results[dep]
		mu.Unlock()
		if depResult.Cancelled || depResult.Err != nil {
			recordAndClose(n.Name, Result{Cancelled: true})
			return
		}
	}

	select {
	case <-ctx.Done():
		recordAndClose(n.Name, Result{Cancelled: true})
		return
	default:
	}

	args, kwargs := injectDependencies(n, mu, results)

	value, err := n.Run(ctx, args, kwargs)
	if err != nil {
		recordAndClose(n.Name, Result{Err: err})
		return
	}
	recordAndClose(n.Name, Result{Value: value})
}

// injectDependencies substitutes a prior node's result wherever an arg or
// kwarg value equals that node's name (spec §4.7 "lightweight dependency
// injection").
func injectDependencies(n *Node, mu *sync.Mutex, results map[string]Result) ([]any, map[string]any) {
	mu.Lock()
	defer mu.Unlock()

	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		args[i] = resolveArg(a, results)
	}

	var kwargs map[string]any
	if n.Kwargs != nil {
		kwargs = make(map[string]any, len(n.Kwargs))
		for k, v := range n.Kwargs {
			kwargs[k] = resolveArg(v, results)
		}
	}
	return args, kwargs
}

func resolveArg(v any, results map[string]Result) any {
	if name, ok := v.(string); ok {
		if r, found := results[name]; found {
			return r.Value
		}
	}
	return v
}
