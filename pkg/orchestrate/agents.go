package orchestrate

import (
	"context"

	"github.com/kitchencore/reasoner/pkg/agent"
	"github.com/kitchencore/reasoner/pkg/policy"
	"github.com/kitchencore/reasoner/pkg/scheduler"
)

// dagTopology fixes the dependency edges between the spec's named agents
// (spec §4.2 names which agents each profile enables, not the edges
// between them; this is the resolved open question, recorded in the
// grounding ledger): intent is the root every downstream agent consumes;
// recipe and the research agents depend on it; presentation depends on
// recipe; selector compares recipe against frontier; recipe_renderer is
// an independent speculative draft with no dependencies at all.
func dagTopology(name string) []string {
	switch name {
	case "recipe", "sensory_model", "explanation", "frontier":
		return []string{"intent"}
	case "presentation":
		return []string{"recipe"}
	case "selector":
		return []string{"recipe", "frontier"}
	default:
		return nil
	}
}

// dagKwargs resolves the prior-node results a node actually consumes:
// selector reads the frontier agent's Pareto frontier to score and pick a
// variant, via the scheduler's dependency-injection convention (a kwarg
// value equal to a node's name is substituted with that node's result).
func dagKwargs(name string) map[string]any {
	switch name {
	case "selector":
		return map[string]any{"frontier": "frontier"}
	default:
		return nil
	}
}

// runAgents builds the DAG from the standard agent set plus the policy's
// configured research-only agents, prunes it per the execution policy,
// and executes it.
func runAgents(ctx context.Context, ac agent.Context, p policy.ExecutionPolicy) (map[string]scheduler.Result, error) {
	agents := agent.StandardSet()
	research := map[string]bool{}
	for name := range p.EnabledAgents {
		if _, ok := agents[name]; !ok {
			agents[name] = agent.NewResearchAgent(name)
			research[name] = true
		}
	}

	sched := scheduler.New()
	for name, a := range agents {
		deps := dagTopology(name)
		if research[name] {
			deps = []string{"intent"}
		}
		sched.AddNode(scheduler.Node{
			Name:          name,
			Run:           adaptAgent(a, ac),
			Kwargs:        dagKwargs(name),
			DependsOn:     deps,
			IsLuxury:      name != "intent" && name != "recipe" && name != "presentation",
			IsSpeculative: name == "recipe_renderer",
		})
	}

	return sched.Execute(ctx, scheduler.Policy{EnabledAgents: p.EnabledAgents, Degraded: false})
}

// adaptAgent closes over the shared reasoning context for this request
// and wraps one Agent into a scheduler.Fn, since the DAG scheduler's
// node bodies don't know about agent.Context directly.
func adaptAgent(a agent.Agent, ac agent.Context) scheduler.Fn {
	return func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		return a.Run(ctx, ac, args, kwargs)
	}
}
