package provision

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lgns/provisioner/configs"
	"github.com/samber/lo"
)

type (
	// Step is one named unit of provisioning work.
	Step struct {
		Name string
		Tags []string
		// Dependencies are steps that must be part of the same run. They execute first,
		// except a RunLast dependency of a regular step, which is only pulled into the run.
		Dependencies []string
		// Requires lists manifest names that must exist before the step starts.
		Requires []string
		// RunLast steps execute after every other selected step.
		RunLast bool
		// Repeatable steps run on every invocation instead of once per network.
		Repeatable bool
		Validate   func(params configs.Params) error
		Run        func(ctx context.Context, pc *Context) error
	}

	// Graph is the validated dependency graph of all known steps.
	Graph struct {
		steps map[string]Step
		order []string
	}
)

// NewGraph validates the steps and computes their execution order once.
func NewGraph(steps ...Step) (*Graph, error) {
	if len(steps) == 0 {
		return nil, errors.New("at least one step is required")
	}

	g := &Graph{steps: make(map[string]Step, len(steps))}
	for _, s := range steps {
		if s.Name == "" {
			return nil, errors.New("step name is required")
		}
		if s.Run == nil {
			return nil, fmt.Errorf("step '%s' must specify an action", s.Name)
		}
		if _, exists := g.steps[s.Name]; exists {
			return nil, fmt.Errorf("step '%s' is declared more than once", s.Name)
		}
		g.steps[s.Name] = s
	}

	for name, s := range g.steps {
		for _, dep := range s.Dependencies {
			if dep == name {
				return nil, fmt.Errorf("step '%s' cannot depend on itself", name)
			}
			if _, exists := g.steps[dep]; !exists {
				return nil, fmt.Errorf("step '%s' depends on non-existent step '%s'", name, dep)
			}
		}
	}

	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}
	g.order = order

	return g, nil
}

// topologicalSort orders steps with Kahn's algorithm, keeping the queue sorted so the
// result is deterministic, then moves RunLast steps to the end.
func (g *Graph) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.steps))
	dependents := make(map[string][]string)
	for name := range g.steps {
		inDegree[name] = 0
	}
	for name, s := range g.steps {
		for _, dep := range s.Dependencies {
			if g.steps[dep].RunLast && !s.RunLast {
				continue
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(g.steps) {
		var cycleNodes []string
		for name, degree := range inDegree {
			if degree > 0 {
				cycleNodes = append(cycleNodes, name)
			}
		}
		sort.Strings(cycleNodes)
		return nil, fmt.Errorf("circular dependency detected involving steps: %v", cycleNodes)
	}

	regular, last := lo.FilterReject(result, func(name string, _ int) bool { return !g.steps[name].RunLast })
	return append(regular, last...), nil
}

// Steps returns every step in execution order.
func (g *Graph) Steps() []Step {
	return lo.Map(g.order, func(name string, _ int) Step { return g.steps[name] })
}

// Plan selects the steps matching tags (by name or tag) plus their transitive
// dependencies, in execution order. No tags selects everything.
func (g *Graph) Plan(tags []string) ([]Step, error) {
	if len(tags) == 0 {
		return g.Steps(), nil
	}

	selected := make(map[string]bool)
	var pending []string
	for _, tag := range lo.Uniq(tags) {
		matches := lo.Filter(g.order, func(name string, _ int) bool {
			return name == tag || lo.Contains(g.steps[name].Tags, tag)
		})
		if len(matches) == 0 {
			return nil, fmt.Errorf("no step matches tag '%s'", tag)
		}
		pending = append(pending, matches...)
	}

	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		if selected[name] {
			continue
		}
		selected[name] = true
		pending = append(pending, g.steps[name].Dependencies...)
	}

	return lo.FilterMap(g.order, func(name string, _ int) (Step, bool) {
		return g.steps[name], selected[name]
	}), nil
}
