// Package agent implements the orchestration core: it asks the model for
// a tool-execution plan, runs the plan against the registered tools and
// synthesizes a final answer, optionally streamed chunk by chunk.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lakestreetlabs/finquill/internal/config"
	"github.com/lakestreetlabs/finquill/internal/llm"
	"github.com/lakestreetlabs/finquill/internal/prompt"
	"github.com/lakestreetlabs/finquill/internal/tools"
)

var ErrNotRegistered = errors.New("tool not registered")

const noToolResults = "No tool results available."

// Plan is one proposed tool invocation. An empty Tool means "no action"
// and the plan is skipped.
type Plan struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Result is the synchronous end-to-end response.
type Result struct {
	FinalResponse string         `json:"finalResponse"`
	Plans         []Plan         `json:"toolPlan"`
	ToolResults   map[string]any `json:"toolResults"`
}

// Agent holds an immutable tool mapping and a generation client. It keeps
// no per-request state, so one Agent serves concurrent requests as long as
// the client and tools are safe for concurrent use.
type Agent struct {
	llm       llm.Client
	tools     map[string]tools.Tool
	toolList  []tools.Tool
	planTemp  float64
	synthTemp float64
}

func New(client llm.Client, registry *tools.Registry, cfg config.AgentConfig) *Agent {
	list := registry.List()
	m := make(map[string]tools.Tool, len(list))
	for _, t := range list {
		m[t.Name()] = t
	}
	log.Printf("[agent] initialized with tools: %v", registry.Names())
	return &Agent{
		llm:       client,
		tools:     m,
		toolList:  list,
		planTemp:  cfg.Temperature,
		synthTemp: cfg.SynthTemperature,
	}
}

// PlanTools asks the model which tools to run. Malformed or unexpected
// model output never fails the call; it degrades to a single no-op plan
// so the request falls through to direct synthesis.
func (a *Agent) PlanTools(ctx context.Context, userInput string) ([]Plan, error) {
	capability := ""
	if len(a.toolList) > 0 {
		capability = prompt.Capability(a.toolList)
	}
	out, err := a.llm.Complete(ctx, prompt.Plan(userInput, capability), a.planTemp)
	if err != nil {
		return nil, err
	}

	plans, ok := parsePlans(out)
	if !ok {
		log.Printf("[agent] unparsable tool plan, falling back to direct synthesis: %.80s", out)
		return []Plan{{Args: map[string]any{}}}, nil
	}
	for i := range plans {
		if plans[i].Args == nil {
			plans[i].Args = map[string]any{}
		}
	}
	return plans, nil
}

// parsePlans accepts {"plans": [...]} or, for backward compatibility, a
// single bare plan object. Anything else reports !ok.
func parsePlans(raw string) ([]Plan, bool) {
	raw = strings.TrimSpace(raw)

	var wrapper struct {
		Plans []Plan `json:"plans"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && wrapper.Plans != nil {
		return wrapper.Plans, true
	}

	var single Plan
	if err := json.Unmarshal([]byte(raw), &single); err == nil && strings.HasPrefix(raw, "{") {
		return []Plan{single}, true
	}

	return nil, false
}

// ExecuteTool runs a registered tool by name. Failures from the tool
// itself are returned to the caller, who records them per tool.
func (a *Agent) ExecuteTool(ctx context.Context, name string, args map[string]any) (any, error) {
	t, ok := a.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	log.Printf("[agent] calling tool %s with args: %v", name, args)
	return t.Execute(ctx, args)
}

// Synthesize produces the final user-facing answer from the collected
// tool results, at a lower temperature to keep literal values intact.
func (a *Agent) Synthesize(ctx context.Context, userInput string, toolResults map[string]any) (string, error) {
	return a.llm.Complete(ctx, prompt.Synthesis(userInput, renderResults(toolResults)), a.synthTemp)
}

func renderResults(toolResults map[string]any) string {
	if len(toolResults) == 0 {
		return noToolResults
	}
	data, err := json.MarshalIndent(toolResults, "", "  ")
	if err != nil {
		return noToolResults
	}
	return string(data)
}

// Respond runs the full synchronous pipeline: plan, execute each tool in
// order, then synthesize. A failing tool never aborts the request; its
// error is recorded under the tool's name and execution continues.
func (a *Agent) Respond(ctx context.Context, userInput string) (*Result, error) {
	plans, err := a.PlanTools(ctx, userInput)
	if err != nil {
		return nil, err
	}

	toolResults := a.executePlans(ctx, plans, nil)

	final, err := a.Synthesize(ctx, userInput, toolResults)
	if err != nil {
		return nil, err
	}
	return &Result{
		FinalResponse: final,
		Plans:         plans,
		ToolResults:   toolResults,
	}, nil
}

// executePlans runs each planned tool sequentially, skipping no-op plans.
// When notify is non-nil it is called around each execution; a notify
// error aborts the loop (the peer is gone).
func (a *Agent) executePlans(ctx context.Context, plans []Plan, notify func(ev Event) error) map[string]any {
	toolResults := make(map[string]any)
	for _, p := range plans {
		if p.Tool == "" {
			continue
		}
		if notify != nil {
			if err := notify(Event{
				Status:  StatusToolCalling,
				Tool:    p.Tool,
				Args:    p.Args,
				Message: fmt.Sprintf("Calling %s...", p.Tool),
			}); err != nil {
				return toolResults
			}
		}

		result, err := a.ExecuteTool(ctx, p.Tool, p.Args)
		if err != nil {
			log.Printf("[agent] tool %s failed: %v", p.Tool, err)
			toolResults[p.Tool] = map[string]any{"error": err.Error()}
			if notify != nil {
				if nerr := notify(Event{Status: StatusToolError, Tool: p.Tool, Error: err.Error()}); nerr != nil {
					return toolResults
				}
			}
			continue
		}

		// Last write wins when a plan repeats a tool name.
		toolResults[p.Tool] = result
		if notify != nil {
			if nerr := notify(Event{Status: StatusToolResult, Tool: p.Tool, Result: result}); nerr != nil {
				return toolResults
			}
		}
	}
	return toolResults
}

// RespondStreaming runs the pipeline while pushing progress events and
// buffered answer chunks onto the sink. On an unhandled failure exactly
// one error event is sent and the pipeline stops; a sink send error
// (disconnected peer) stops it quietly.
func (a *Agent) RespondStreaming(ctx context.Context, userInput string, sink EventSink) error {
	if err := sink.SendEvent(ctx, Event{Status: StatusThinking, Message: "Analyzing your request..."}); err != nil {
		return err
	}

	plans, err := a.PlanTools(ctx, userInput)
	if err != nil {
		return a.failStream(ctx, sink, err)
	}
	if err := sink.SendEvent(ctx, Event{Status: StatusPlan, Data: plans}); err != nil {
		return err
	}

	toolResults := a.executePlans(ctx, plans, func(ev Event) error {
		return sink.SendEvent(ctx, ev)
	})

	if err := sink.SendEvent(ctx, Event{Status: StatusStreamStart, Message: "Generating final response..."}); err != nil {
		return err
	}

	synthPrompt := prompt.Synthesis(userInput, renderResults(toolResults))
	buf := NewTokenBuffer()
	for fragment, err := range a.llm.Stream(ctx, synthPrompt, a.synthTemp) {
		if err != nil {
			return a.failStream(ctx, sink, err)
		}
		if chunk, ok := buf.Feed(fragment); ok {
			if serr := sink.SendText(ctx, chunk); serr != nil {
				return serr
			}
		}
	}
	if chunk, ok := buf.Flush(); ok {
		if serr := sink.SendText(ctx, chunk); serr != nil {
			return serr
		}
	}

	return sink.SendEvent(ctx, Event{Status: StatusDone})
}

func (a *Agent) failStream(ctx context.Context, sink EventSink, err error) error {
	log.Printf("[agent] streaming response failed: %v", err)
	// Best effort; the peer may already be gone.
	_ = sink.SendEvent(ctx, Event{Status: StatusError, Message: err.Error()})
	return err
}
