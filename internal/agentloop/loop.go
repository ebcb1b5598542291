// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agentloop

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
	"github.com/AleutianAI/AleutianFOSS/internal/config"
)

var tracer = otel.Tracer("persag.agentloop")

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persag_agent_runs_total",
		Help: "Total agent loop runs by final status.",
	}, []string{"status"})
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persag_agent_tool_calls_total",
		Help: "Total tool invocations dispatched from the agent loop.",
	}, []string{"tool", "outcome"})
)

// DefaultToolCallBudget is the maximum number of tool invocations
// permitted within a single run, per spec §4.9 step 7.
const DefaultToolCallBudget = 16

// DefaultHistoryTurns is the maximum number of recent conversation turns
// included in a request, per spec §4.9 step 1.
const DefaultHistoryTurns = 20

var markdownImageRe = regexp.MustCompile(`!\[[^\]]*\]\((https?://[^)\s]+)\)`)

// Loop runs the streaming ReAct algorithm of spec §4.9. Constructed with
// functional options in the teacher's DefaultAgentLoop style
// (services/trace/agent/loop.go's WithXxx pattern).
type Loop struct {
	adapter        StreamAdapter
	tools          ToolInvoker
	toolSchemas    []ToolSchema
	instructions   InstructionBuilder
	instructionLvl config.InstructionLevel
	historyTurns   int
	toolCallBudget int
	mu             sync.Mutex
	history        []Message
}

// Option configures a Loop at construction time.
type Option func(*Loop)

// WithHistoryTurns overrides DefaultHistoryTurns.
func WithHistoryTurns(n int) Option {
	return func(l *Loop) { l.historyTurns = n }
}

// WithToolCallBudget overrides DefaultToolCallBudget.
func WithToolCallBudget(n int) Option {
	return func(l *Loop) { l.toolCallBudget = n }
}

// WithInstructionLevel overrides the instruction sophistication level.
func WithInstructionLevel(level config.InstructionLevel) Option {
	return func(l *Loop) { l.instructionLvl = level }
}

// WithSeedHistory preloads conversation history, e.g. when resuming a
// session.
func WithSeedHistory(msgs []Message) Option {
	return func(l *Loop) { l.history = append([]Message(nil), msgs...) }
}

// New constructs a Loop. adapter streams LLM turns, tools dispatches
// tool calls (typically a *toolregistry.Registry), builder renders the
// system instructions for the configured level.
func New(adapter StreamAdapter, tools ToolInvoker, toolSchemas []ToolSchema, builder InstructionBuilder, opts ...Option) *Loop {
	l := &Loop{
		adapter:        adapter,
		tools:          tools,
		toolSchemas:    toolSchemas,
		instructions:   builder,
		instructionLvl: config.InstructionStandard,
		historyTurns:   DefaultHistoryTurns,
		toolCallBudget: DefaultToolCallBudget,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// recentHistory returns up to historyTurns of the most recent messages.
func (l *Loop) recentHistory() []Message {
	if len(l.history) <= l.historyTurns {
		return append([]Message(nil), l.history...)
	}
	return append([]Message(nil), l.history[len(l.history)-l.historyTurns:]...)
}

func dedupKey(tc ToolCallRequest) string {
	return fmt.Sprintf("%s|%v|%s", tc.Name, tc.Args, tc.St)
}

func appendUniqueToolCalls(existing []ToolCallRequest, seen map[string]bool, add []ToolCallRequest) []ToolCallRequest {
	for _, tc := range add {
		k := dedupKey(tc)
		if seen[k] {
			continue
		}
		seen[k] = true
		existing = append(existing, tc)
	}
	return existing
}

func appendUniqueImages(existing []string, seen map[string]bool, text string) []string {
	for _, m := range markdownImageRe.FindAllStringSubmatch(text, -1) {
		url := m[1]
		if seen[url] {
			continue
		}
		seen[url] = true
		existing = append(existing, url)
	}
	return existing
}

// Run executes one ReAct turn, per spec §4.9. It loops back through tool
// dispatch (step 6) until the model stops requesting tools, the tool-call
// budget is exceeded (step 7), or ctx is cancelled.
func (l *Loop) Run(ctx context.Context, query string) (Result, error) {
	ctx, span := tracer.Start(ctx, "agentloop.Run")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()

	toolCallsSeen := map[string]bool{}
	imagesSeen := map[string]bool{}
	var allToolCalls []ToolCallRequest
	var allImages []string

	budgetUsed := 0
	currentQuery := query
	var lastResult Result

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		req := Request{
			SystemInstructions: l.instructions.Build(l.instructionLvl),
			History:            l.recentHistory(),
			Tools:              l.toolSchemas,
			Query:              currentQuery,
		}

		result, roundToolCalls, err := l.runOneTurn(ctx, req)
		if err != nil {
			runsTotal.WithLabelValues("failed").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "agent turn failed")
			return Result{}, err
		}
		lastResult = result
		allToolCalls = appendUniqueToolCalls(allToolCalls, toolCallsSeen, roundToolCalls)
		allImages = appendUniqueImages(allImages, imagesSeen, result.FinalContent)

		l.history = append(l.history,
			Message{Role: "user", Content: currentQuery},
			Message{Role: "assistant", Content: result.FinalContent},
		)

		if len(roundToolCalls) == 0 {
			break
		}

		if budgetUsed+len(roundToolCalls) > l.toolCallBudget {
			runsTotal.WithLabelValues("budget_exceeded").Inc()
			lastResult.Status = StatusFailed
			lastResult.FinalContent += "\n\n[tool-call budget exceeded; returning current best content]"
			lastResult.ToolCalls = allToolCalls
			lastResult.Images = allImages
			return lastResult, nil
		}

		toolResponses := make([]string, 0, len(roundToolCalls))
		for _, tc := range roundToolCalls {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			default:
			}
			out, err := l.tools.Invoke(ctx, tc.Name, tc.Args)
			budgetUsed++
			if err != nil {
				toolCallsTotal.WithLabelValues(tc.Name, "error").Inc()
				toolResponses = append(toolResponses, fmt.Sprintf("tool %s failed: %v", tc.Name, err))
				continue
			}
			toolCallsTotal.WithLabelValues(tc.Name, "ok").Inc()
			toolResponses = append(toolResponses, fmt.Sprintf("tool %s returned: %v", tc.Name, out))
		}

		currentQuery = joinToolResponses(toolResponses)
		l.history = append(l.history, Message{Role: "tool", Content: currentQuery})
	}

	lastResult.ToolCalls = allToolCalls
	lastResult.Images = allImages
	runsTotal.WithLabelValues(string(lastResult.Status)).Inc()
	return lastResult, nil
}

func joinToolResponses(responses []string) string {
	out := ""
	for i, r := range responses {
		if i > 0 {
			out += "\n"
		}
		out += r
	}
	return out
}

// runOneTurn streams a single LLM turn and assembles its RunEvents into
// a Result plus the tool calls the model requested this turn, per spec
// §4.9 steps 2-5.
func (l *Loop) runOneTurn(ctx context.Context, req Request) (Result, []ToolCallRequest, error) {
	span := trace.SpanFromContext(ctx)
	if req.Query != "" {
		span.SetAttributes(attribute.Int("agentloop.query_len", len(req.Query)))
	}

	var accumulated string
	var toolCalls []ToolCallRequest
	status := StatusRunning
	chunkCount := 0
	seenKeys := map[string]bool{}

	var lastChunkContent string
	var lastChunkStatus Status

	err := l.adapter.Stream(ctx, req, func(ev RunEvent) error {
		chunkCount++
		switch ev.Type {
		case EventContentDelta:
			accumulated += ev.Content
		case EventToolCall:
			toolCalls = appendUniqueToolCalls(toolCalls, seenKeys, ev.ToolCalls)
		case EventStatusChange:
			if ev.Status == StatusCompleted {
				status = StatusCompleted
				accumulated = ev.FinalContent
			}
		}
		lastChunkContent = ev.Content
		lastChunkStatus = ev.Status
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, nil, ctx.Err()
		}
		return Result{}, nil, apperr.Wrap(apperr.KindExternal, "llm stream failed", err)
	}

	if status != StatusCompleted {
		if lastChunkContent != "" {
			accumulated = lastChunkContent
		}
		if lastChunkStatus != "" {
			status = lastChunkStatus
		} else {
			status = StatusCompleted
		}
	}

	return Result{
		FinalContent: accumulated,
		Status:       status,
		ChunkCount:   chunkCount,
	}, toolCalls, nil
}
