// Package patterns provides the concurrent composition used by the pipeline.
//
// Fan-out/fan-in runs several independent agents over the same input:
//   - every invocation is dispatched before any result is awaited
//   - the join waits for all of them
//   - a failing agent never cancels its siblings
package patterns

import (
	"context"
	"sort"

	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"golang.org/x/sync/errgroup"
)

// Invoker runs a single agent to completion.
//
// Implementations must not panic and must report failures in the returned
// result rather than as an error. runner.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, desc *agent.Descriptor, input string) agenkit.AgentResult
}

// FanOut invokes every descriptor concurrently with the same input and
// returns their results keyed by descriptor name.
//
// Partial failure is tolerated: failed agents appear in the mapping with a nil
// Text. Deciding whether the set is usable is left to the caller.
func FanOut(ctx context.Context, invoker Invoker, descriptors map[string]*agent.Descriptor, input string) agenkit.ResultMapping {
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	// One slot per task; no slot is shared.
	slots := make([]agenkit.AgentResult, len(names))

	var g errgroup.Group
	for i, name := range names {
		desc := descriptors[name]
		g.Go(func() error {
			slots[i] = invoker.Invoke(ctx, desc, input)
			return nil
		})
	}
	_ = g.Wait()

	results := make(agenkit.ResultMapping, len(names))
	for i, name := range names {
		results[name] = slots[i]
	}
	return results
}
