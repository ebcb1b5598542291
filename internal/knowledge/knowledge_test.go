// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFOSS/internal/graphclient"
	"github.com/AleutianAI/AleutianFOSS/internal/memstore"
)

func newTestCoordinator(t *testing.T, graphHandler http.HandlerFunc) *Coordinator {
	t.Helper()
	store, err := memstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if graphHandler == nil {
		graphHandler = func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"response": "graph says hello"})
		}
	}
	server := httptest.NewServer(graphHandler)
	t.Cleanup(server.Close)

	return New(store, graphclient.New(server.URL))
}

func TestClassifyMode_Relationship(t *testing.T) {
	assert.Equal(t, ModeGlobal, classifyMode("how are Alice and Bob connected?"))
}

func TestClassifyMode_Factual(t *testing.T) {
	assert.Equal(t, ModeLocal, classifyMode("what is the capital of France?"))
}

func TestClassifyMode_DefaultsToHybrid(t *testing.T) {
	assert.Equal(t, ModeHybrid, classifyMode("tell me about quarterly earnings"))
}

func TestIsCreativeRequest_GeneratorBlockedUnlessFactual(t *testing.T) {
	assert.True(t, isCreativeRequest("write a poem about the ocean"))
	assert.False(t, isCreativeRequest("what is the story behind this policy change?"))
}

func TestQueryKnowledgeBase_RejectsCreativeRequests(t *testing.T) {
	c := newTestCoordinator(t, nil)
	_, err := c.QueryKnowledgeBase(context.Background(), "write me a short story about dragons", "", 5)
	require.Error(t, err)
}

func TestQueryKnowledgeBase_LocalMode(t *testing.T) {
	c := newTestCoordinator(t, nil)
	_, _, _, err := c.localKB.AddMemory(context.Background(), "the capital of France is Paris", c.kbUserID, nil)
	require.NoError(t, err)

	out, err := c.QueryKnowledgeBase(context.Background(), "what is the capital of France", ModeLocal, 5)
	require.NoError(t, err)
	assert.Contains(t, out, "Paris")
}

func TestQueryKnowledgeBase_GlobalModeDelegatesToGraph(t *testing.T) {
	c := newTestCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"response": "they are colleagues"})
	})

	out, err := c.QueryKnowledgeBase(context.Background(), "what's the relationship between Alice and Bob", ModeGlobal, 5)
	require.NoError(t, err)
	assert.Equal(t, "they are colleagues", out)
}

func TestQueryKnowledgeBase_AutoRoutesRelationshipQueriesToGlobal(t *testing.T) {
	var calledMode string
	c := newTestCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		calledMode, _ = body["mode"].(string)
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	})

	_, err := c.QueryKnowledgeBase(context.Background(), "how are these two events connected", ModeAuto, 5)
	require.NoError(t, err)
	assert.Equal(t, graphclient.ModeGlobal, calledMode)
}
