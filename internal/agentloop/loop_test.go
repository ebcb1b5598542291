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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFOSS/internal/config"
)

// scriptedAdapter replays a fixed sequence of turns, one []RunEvent per
// call to Stream, in order.
type scriptedAdapter struct {
	turns [][]RunEvent
	calls int
}

func (a *scriptedAdapter) Stream(ctx context.Context, req Request, cb func(RunEvent) error) error {
	if a.calls >= len(a.turns) {
		return errors.New("scriptedAdapter: no more turns scripted")
	}
	turn := a.turns[a.calls]
	a.calls++
	for _, ev := range turn {
		if err := cb(ev); err != nil {
			return err
		}
	}
	return nil
}

type recordingInvoker struct {
	calls   []string
	results map[string]map[string]any
	errs    map[string]error
}

func (r *recordingInvoker) Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	r.calls = append(r.calls, name)
	if err, ok := r.errs[name]; ok {
		return nil, err
	}
	return r.results[name], nil
}

func newTestLoop(adapter StreamAdapter, invoker ToolInvoker, opts ...Option) *Loop {
	builder := InstructionBuilder{UserID: "alice", EnableMemory: true}
	return New(adapter, invoker, []ToolSchema{{Name: "search"}}, builder, opts...)
}

func TestRun_SingleTurnNoToolCalls(t *testing.T) {
	adapter := &scriptedAdapter{turns: [][]RunEvent{
		{
			{Type: EventContentDelta, Content: "Hello "},
			{Type: EventContentDelta, Content: "there."},
			{Type: EventStatusChange, Status: StatusCompleted, FinalContent: "Hello there."},
		},
	}}
	invoker := &recordingInvoker{results: map[string]map[string]any{}}
	loop := newTestLoop(adapter, invoker)

	result, err := loop.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", result.FinalContent)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Empty(t, result.ToolCalls)
	assert.Empty(t, invoker.calls)
}

func TestRun_StreamEndsWithoutCompletedUsesLastChunk(t *testing.T) {
	adapter := &scriptedAdapter{turns: [][]RunEvent{
		{
			{Type: EventContentDelta, Content: "partial answer"},
		},
	}}
	invoker := &recordingInvoker{}
	loop := newTestLoop(adapter, invoker)

	result, err := loop.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "partial answer", result.FinalContent)
	assert.Equal(t, StatusCompleted, result.Status)
}

func TestRun_ToolCallLoopsBackAndInvokesThroughRegistry(t *testing.T) {
	adapter := &scriptedAdapter{turns: [][]RunEvent{
		{
			{Type: EventToolCall, ToolCalls: []ToolCallRequest{{Name: "search", Args: map[string]any{"q": "weather"}, St: "1"}}},
			{Type: EventStatusChange, Status: StatusCompleted, FinalContent: "calling search"},
		},
		{
			{Type: EventContentDelta, Content: "It is sunny."},
			{Type: EventStatusChange, Status: StatusCompleted, FinalContent: "It is sunny."},
		},
	}}
	invoker := &recordingInvoker{results: map[string]map[string]any{"search": {"result": "sunny"}}}
	loop := newTestLoop(adapter, invoker)

	result, err := loop.Run(context.Background(), "what's the weather")
	require.NoError(t, err)
	assert.Equal(t, "It is sunny.", result.FinalContent)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "search", result.ToolCalls[0].Name)
	assert.Equal(t, []string{"search"}, invoker.calls)
}

func TestRun_DedupesDuplicateToolCallsByNameArgsStatus(t *testing.T) {
	dup := ToolCallRequest{Name: "search", Args: map[string]any{"q": "x"}, St: "1"}
	adapter := &scriptedAdapter{turns: [][]RunEvent{
		{
			{Type: EventToolCall, ToolCalls: []ToolCallRequest{dup, dup}},
			{Type: EventStatusChange, Status: StatusCompleted, FinalContent: "done"},
		},
		{
			{Type: EventStatusChange, Status: StatusCompleted, FinalContent: "final"},
		},
	}}
	invoker := &recordingInvoker{results: map[string]map[string]any{"search": {}}}
	loop := newTestLoop(adapter, invoker)

	result, err := loop.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, result.ToolCalls, 1)
	assert.Len(t, invoker.calls, 1)
}

func TestRun_ExtractsMarkdownImageURLs(t *testing.T) {
	adapter := &scriptedAdapter{turns: [][]RunEvent{
		{
			{Type: EventContentDelta, Content: "here: ![a picture](https://example.com/a.png)"},
			{Type: EventStatusChange, Status: StatusCompleted, FinalContent: "here: ![a picture](https://example.com/a.png)"},
		},
	}}
	invoker := &recordingInvoker{}
	loop := newTestLoop(adapter, invoker)

	result, err := loop.Run(context.Background(), "show me")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a.png"}, result.Images)
}

func TestRun_ToolCallBudgetExceededStopsWithCurrentBestContent(t *testing.T) {
	var turns [][]RunEvent
	for i := 0; i < DefaultToolCallBudget+2; i++ {
		turns = append(turns, []RunEvent{
			{Type: EventToolCall, ToolCalls: []ToolCallRequest{{Name: "search", Args: map[string]any{"q": "x"}, St: toString(i)}}},
			{Type: EventStatusChange, Status: StatusCompleted, FinalContent: "still working"},
		})
	}
	adapter := &scriptedAdapter{turns: turns}
	invoker := &recordingInvoker{results: map[string]map[string]any{"search": {}}}
	loop := newTestLoop(adapter, invoker, WithToolCallBudget(3))

	result, err := loop.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.FinalContent, "budget exceeded")
	assert.LessOrEqual(t, len(invoker.calls), 4)
}

func TestRun_InstructionLevelSelectsContent(t *testing.T) {
	builder := InstructionBuilder{UserID: "bob", EnableMemory: true}
	minimal := builder.Build(config.InstructionMinimal)
	explicit := builder.Build(config.InstructionExplicit)
	assert.NotContains(t, minimal, "ACT IMMEDIATELY")
	assert.Contains(t, explicit, "ACT IMMEDIATELY")
	assert.Contains(t, minimal, "bob")
}

func TestRun_CancelledContextAbortsLoop(t *testing.T) {
	adapter := &scriptedAdapter{turns: [][]RunEvent{{}}}
	invoker := &recordingInvoker{}
	loop := newTestLoop(adapter, invoker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.Run(ctx, "q")
	// Run checks ctx before each turn, so an already-cancelled context
	// surfaces ctx.Err() and no partial result.
	require.ErrorIs(t, err, context.Canceled)
}

func toString(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var out []byte
	for i > 0 {
		out = append([]byte{digits[i%10]}, out...)
		i /= 10
	}
	return string(out)
}
