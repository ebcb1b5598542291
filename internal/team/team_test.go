// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFOSS/internal/agentloop"
)

func TestClassify_RoutesEachIntent(t *testing.T) {
	cases := map[string]IntentClass{
		"please remember my favorite color is blue": IntentMemory,
		"search the news for today":                 IntentWeb,
		"what is the stock price of acme":           IntentFinance,
		"calculate 12 * 4":                          IntentMath,
		"draw a picture of a cat":                   IntentImage,
		"run python script to sort this":            IntentCode,
		"read the file named notes.txt":              IntentFile,
		"execute shell command ls -la":               IntentSystem,
		"what are the symptoms of the flu":           IntentMedical,
		"tell me a joke":                             IntentFallback,
	}
	for query, want := range cases {
		assert.Equal(t, want, Classify(query), query)
	}
}

func newStubLoop(t *testing.T, content string) *agentloop.Loop {
	t.Helper()
	adapter := stubAdapter{content: content}
	builder := agentloop.InstructionBuilder{UserID: "alice"}
	return agentloop.New(adapter, stubInvoker{}, nil, builder)
}

type stubAdapter struct{ content string }

func (a stubAdapter) Stream(ctx context.Context, req agentloop.Request, cb func(agentloop.RunEvent) error) error {
	return cb(agentloop.RunEvent{Type: agentloop.EventStatusChange, Status: agentloop.StatusCompleted, FinalContent: a.content})
}

type stubInvoker struct{}

func (stubInvoker) Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	return nil, nil
}

func TestCoordinator_RoutesToRegisteredMember(t *testing.T) {
	c := New(newStubLoop(t, "fallback answer"))
	c.Register(IntentFinance, newStubLoop(t, "AAPL is at $200"))

	result, class, err := c.Run(context.Background(), "what is the stock price of AAPL")
	require.NoError(t, err)
	assert.Equal(t, IntentFinance, class)
	assert.Equal(t, "AAPL is at $200", result.FinalContent)
}

func TestCoordinator_UnregisteredIntentFallsBack(t *testing.T) {
	c := New(newStubLoop(t, "fallback answer"))

	result, class, err := c.Run(context.Background(), "what is the stock price of AAPL")
	require.NoError(t, err)
	assert.Equal(t, IntentFinance, class)
	assert.Equal(t, "fallback answer", result.FinalContent)
}

func TestCoordinator_NoFallbackAndNoMemberIsError(t *testing.T) {
	c := New(nil)
	_, _, err := c.Run(context.Background(), "what is the stock price of AAPL")
	require.Error(t, err)
}

func TestCoordinator_RunSingleBypassesClassification(t *testing.T) {
	c := New(newStubLoop(t, "fallback answer"))
	c.Register(IntentFinance, newStubLoop(t, "AAPL is at $200"))

	result, err := c.RunSingle(context.Background(), "what is the stock price of AAPL")
	require.NoError(t, err)
	assert.Equal(t, "fallback answer", result.FinalContent)
}

func TestCoordinator_RunSingleWithNoFallbackIsError(t *testing.T) {
	c := New(nil)
	_, err := c.RunSingle(context.Background(), "anything")
	require.Error(t, err)
}
