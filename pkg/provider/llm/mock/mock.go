// Package mock provides a test double for the llm.Generator interface.
//
// Use Generator in unit tests to verify that the orchestrator builds
// correct GenerateRequests and to feed controlled raw model output
// without a live backend.
//
// Example:
//
//	g := &mock.Generator{
//	    Result: &llm.GenerateResult{Text: `{"reply":"hi"}`},
//	}
//	res, err := g.Generate(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/aiushlabs/aiush-gateway/pkg/provider/llm"
)

// GenerateCall records a single invocation of Generate.
type GenerateCall struct {
	// Ctx is the context passed to Generate.
	Ctx context.Context
	// Req is the GenerateRequest passed to Generate.
	Req llm.GenerateRequest
}

// Generator is a mock implementation of llm.Generator.
// Set Result to control the returned value and Err to inject an error.
type Generator struct {
	mu sync.Mutex

	// Result is returned from Generate when Err is nil.
	Result *llm.GenerateResult

	// Err, if non-nil, is returned from Generate instead of Result.
	Err error

	// GenerateFunc, if non-nil, overrides Result/Err entirely.
	GenerateFunc func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error)

	// Calls records every Generate invocation in order.
	Calls []GenerateCall
}

var _ llm.Generator = (*Generator)(nil)

// Generate implements llm.Generator.
func (g *Generator) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	g.mu.Lock()
	g.Calls = append(g.Calls, GenerateCall{Ctx: ctx, Req: req})
	fn := g.GenerateFunc
	result, err := g.Result, g.Err
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CallCount returns the number of recorded Generate invocations.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Calls)
}
