// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package clearing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFOSS/internal/graphclient"
	"github.com/AleutianAI/AleutianFOSS/internal/memstore"
)

func newTestService(t *testing.T, graphHandler http.Handler) (*Service, string, string) {
	t.Helper()
	store, err := memstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	server := httptest.NewServer(graphHandler)
	t.Cleanup(server.Close)
	graph := graphclient.New(server.URL)

	inputsDir := t.TempDir()
	graphDir := t.TempDir()

	svc := New(store, graph, "alice", inputsDir, []string{graphDir})
	return svc, inputsDir, graphDir
}

func okGraphHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]graphclient.Document{})
	})
	mux.HandleFunc("/documents/delete_document", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "deletion_started"})
	})
	mux.HandleFunc("/documents/clear_cache", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestClearAll_SemanticMemoriesClearedAndVerified(t *testing.T) {
	svc, _, _ := newTestService(t, okGraphHandler())
	ctx := context.Background()

	_, _, _, err := svc.memories.AddMemory(ctx, "likes tea", "alice", nil)
	require.NoError(t, err)

	result, err := svc.ClearAll(ctx, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.SemanticMemory.Success)
	assert.True(t, result.OverallSuccess)

	stats, err := svc.memories.GetMemoryStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalMemories)
}

func TestClearAll_DryRunDoesNotMutate(t *testing.T) {
	svc, inputsDir, graphDir := newTestService(t, okGraphHandler())
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(inputsDir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(graphDir, "entities.graphml"), []byte("x"), 0o644))
	_, _, _, err := svc.memories.AddMemory(ctx, "likes tea", "alice", nil)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.DryRun = true
	result, err := svc.ClearAll(ctx, opts)
	require.NoError(t, err)
	assert.True(t, result.OverallSuccess)
	assert.Contains(t, result.Summary, "DRY RUN")

	stats, err := svc.memories.GetMemoryStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMemories)

	_, err = os.Stat(filepath.Join(inputsDir, "a.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(graphDir, "entities.graphml"))
	assert.NoError(t, err)
}

func TestClearAll_ClearsMemoryInputsDirectoryContentsNotTheDirItself(t *testing.T) {
	svc, inputsDir, _ := newTestService(t, okGraphHandler())
	require.NoError(t, os.WriteFile(filepath.Join(inputsDir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(inputsDir, "sub"), 0o755))

	result, err := svc.ClearAll(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.MemoryInputs.Success)

	entries, err := os.ReadDir(inputsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = os.Stat(inputsDir)
	assert.NoError(t, err)
}

func TestClearAll_DeletesOnlyGraphmlFiles(t *testing.T) {
	svc, _, graphDir := newTestService(t, okGraphHandler())
	require.NoError(t, os.WriteFile(filepath.Join(graphDir, "entities.graphml"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(graphDir, "keep.txt"), []byte("x"), 0o644))

	result, err := svc.ClearAll(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.KnowledgeGraph.Success)
	assert.Equal(t, 1, result.KnowledgeGraph.ItemsCleared)

	_, err = os.Stat(filepath.Join(graphDir, "entities.graphml"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(graphDir, "keep.txt"))
	assert.NoError(t, err)
}

func TestClearAll_SemanticOnlySkipsGraphSteps(t *testing.T) {
	svc, inputsDir, _ := newTestService(t, okGraphHandler())
	require.NoError(t, os.WriteFile(filepath.Join(inputsDir, "a.txt"), []byte("x"), 0o644))

	opts := DefaultOptions()
	opts.SemanticOnly = true
	result, err := svc.ClearAll(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, result.GraphDocuments.Attempted)
	assert.False(t, result.MemoryInputs.Attempted)

	entries, err := os.ReadDir(inputsDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestClearAll_LightragOnlySkipsSemanticStep(t *testing.T) {
	svc, _, _ := newTestService(t, okGraphHandler())
	ctx := context.Background()
	_, _, _, err := svc.memories.AddMemory(ctx, "likes tea", "alice", nil)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.LightragOnly = true
	result, err := svc.ClearAll(ctx, opts)
	require.NoError(t, err)
	assert.False(t, result.SemanticMemory.Attempted)

	stats, err := svc.memories.GetMemoryStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalMemories)
}

func TestClearAll_OverallSuccessFalseWhenAnyAttemptedStepFails(t *testing.T) {
	failingHandler := http.NewServeMux()
	failingHandler.HandleFunc("/documents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc, _, _ := newTestService(t, failingHandler)

	result, err := svc.ClearAll(context.Background(), DefaultOptions())
	require.NoError(t, err)
	assert.False(t, result.GraphDocuments.Success)
	assert.False(t, result.OverallSuccess)
}
