// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
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
		graphHandler = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	}
	server := httptest.NewServer(graphHandler)
	t.Cleanup(server.Close)

	return New(store, graphclient.New(server.URL), "u1")
}

func TestRestate_AllThreePatterns(t *testing.T) {
	assert.Equal(t, "alice is a teacher", restate("I am a teacher", "alice"))
	assert.Equal(t, "alice's dog is a labrador", restate("My dog is a labrador", "alice"))
	assert.Equal(t, "alice has three kids", restate("I have three kids", "alice"))
}

func TestStoreUserMemory_AcceptedIngestsIntoGraph(t *testing.T) {
	var ingested bool
	c := newTestCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/documents/text" {
			ingested = true
		}
		w.WriteHeader(http.StatusOK)
	})

	result, err := c.StoreUserMemory(context.Background(), "I am a hiker", nil)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.False(t, result.Duplicate)
	assert.True(t, ingested)
	assert.True(t, result.Graph.OK)
}

func TestStoreUserMemory_DuplicateSkipsGraphWrite(t *testing.T) {
	var ingestCount int
	c := newTestCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/documents/text" {
			ingestCount++
		}
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	first, err := c.StoreUserMemory(ctx, "I enjoy reading mystery novels", nil)
	require.NoError(t, err)
	require.True(t, first.Accepted)

	second, err := c.StoreUserMemory(ctx, "I enjoy reading mystery novels", nil)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.MemoryID, second.MemoryID)
	assert.Equal(t, 1, ingestCount)
}

func TestStoreUserMemory_GraphFailureDoesNotUndoLocalWrite(t *testing.T) {
	c := newTestCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	result, err := c.StoreUserMemory(context.Background(), "I work as a pilot", nil)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.False(t, result.Graph.OK)

	all, err := c.memories.GetAllMemories(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoreUserMemory_RejectsEmptyText(t *testing.T) {
	c := newTestCoordinator(t, nil)
	_, err := c.StoreUserMemory(context.Background(), "   ", nil)
	require.Error(t, err)
}

func TestStoreUserMemory_AutoClassifiesTopicsWhenAbsent(t *testing.T) {
	c := newTestCoordinator(t, nil)
	_, err := c.StoreUserMemory(context.Background(), "My favorite hobby is hiking and I love the outdoors", nil)
	require.NoError(t, err)

	all, err := c.memories.GetAllMemories(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Topics, "preferences")
}

func TestStoreUserMemory_ConcurrentCallsSerializeDedupCheck(t *testing.T) {
	c := newTestCoordinator(t, nil)

	const n = 10
	var wg sync.WaitGroup
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.StoreUserMemory(context.Background(), "I live in Denver Colorado", nil)
			require.NoError(t, err)
			ids[i] = res.MemoryID
		}(i)
	}
	wg.Wait()

	first := ids[0]
	for _, id := range ids {
		assert.Equal(t, first, id)
	}

	stats, err := c.memories.GetMemoryStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMemories)
}

func TestDeleteMemory_BestEffortGraphDelete(t *testing.T) {
	c := newTestCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			json.NewEncoder(w).Encode(graphclient.DeleteResult{Status: "deletion_started"})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	ctx := context.Background()
	result, err := c.StoreUserMemory(ctx, "I have a cat named Whiskers", nil)
	require.NoError(t, err)

	deleteResult, err := c.DeleteMemory(ctx, result.MemoryID)
	require.NoError(t, err)
	assert.True(t, deleteResult.Local.OK)
	assert.True(t, deleteResult.Graph.OK)

	all, err := c.memories.GetAllMemories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteByTopic_DeletesEveryMatchingRecord(t *testing.T) {
	c := newTestCoordinator(t, nil)
	ctx := context.Background()

	_, err := c.StoreUserMemory(ctx, "distinct memory text alpha", []string{"work"})
	require.NoError(t, err)
	_, err = c.StoreUserMemory(ctx, "distinct memory text beta", []string{"work"})
	require.NoError(t, err)
	_, err = c.StoreUserMemory(ctx, "distinct memory text gamma", []string{"family"})
	require.NoError(t, err)

	results, err := c.DeleteByTopic(ctx, "work")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	remaining, err := c.memories.GetMemoriesByTopic(ctx, "u1", []string{"work"})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	familyRemaining, err := c.memories.GetMemoriesByTopic(ctx, "u1", []string{"family"})
	require.NoError(t, err)
	assert.Len(t, familyRemaining, 1)
}

func TestSeedEntityInGraph_AndCheckEntityExists(t *testing.T) {
	c := newTestCoordinator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/query" {
			json.NewEncoder(w).Encode(map[string]string{"response": "Aleutian Corp is mentioned as an employer."})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.SeedEntityInGraph(context.Background(), "Aleutian Corp", "organization"))

	exists, err := c.CheckEntityExists(context.Background(), "Aleutian Corp")
	require.NoError(t, err)
	assert.True(t, exists)
}
