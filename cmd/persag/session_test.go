// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFOSS/internal/agentloop"
	"github.com/AleutianAI/AleutianFOSS/internal/clearing"
	"github.com/AleutianAI/AleutianFOSS/internal/config"
	"github.com/AleutianAI/AleutianFOSS/internal/coordinator"
	"github.com/AleutianAI/AleutianFOSS/internal/graphclient"
	"github.com/AleutianAI/AleutianFOSS/internal/memstore"
	"github.com/AleutianAI/AleutianFOSS/internal/team"
)

type echoAdapter struct{ reply string }

func (a echoAdapter) Stream(ctx context.Context, req agentloop.Request, cb func(agentloop.RunEvent) error) error {
	return cb(agentloop.RunEvent{Type: agentloop.EventStatusChange, Status: agentloop.StatusCompleted, FinalContent: a.reply})
}

type noopInvoker struct{}

func (noopInvoker) Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	return nil, nil
}

func newTestRuntime(t *testing.T) *runtime {
	t.Helper()
	store, err := memstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

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
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	graph := graphclient.New(server.URL)

	coord := coordinator.New(store, graph, "alice")
	clear := clearing.New(store, graph, "alice", t.TempDir(), nil)

	builder := agentloop.InstructionBuilder{UserID: "alice"}
	loop := agentloop.New(echoAdapter{reply: "hello from the agent"}, noopInvoker{}, nil, builder)
	coord10 := team.New(loop)

	return &runtime{
		snap:     config.Snapshot{UserID: "alice"},
		memories: store,
		graph:    graph,
		coord:    coord,
		coord10:  coord10,
		clearing: clear,
	}
}

func TestRunSession_ImmediateStoreAndMemoriesList(t *testing.T) {
	rt := newTestRuntime(t)
	in := strings.NewReader("! likes tea\nmemories\nquit\n")
	var out bytes.Buffer

	err := runSessionIO(context.Background(), rt, false, in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "stored:")
	assert.Contains(t, out.String(), "likes tea")
}

func TestRunSession_TopicQueryAndClear(t *testing.T) {
	rt := newTestRuntime(t)
	in := strings.NewReader("! likes tea\n? preferences\nclear\nquit\n")
	var out bytes.Buffer

	err := runSessionIO(context.Background(), rt, false, in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "operations succeeded")
}

func TestRunSession_FreeFormQueryRoutesThroughCoordinator(t *testing.T) {
	rt := newTestRuntime(t)
	in := strings.NewReader("tell me a joke\nquit\n")
	var out bytes.Buffer

	err := runSessionIO(context.Background(), rt, false, in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "hello from the agent")
}

func TestRunSession_DeleteMemoryAndTopic(t *testing.T) {
	rt := newTestRuntime(t)
	result, err := rt.coord.StoreUserMemory(context.Background(), "likes tea", nil)
	require.NoError(t, err)

	in := strings.NewReader("delete memory " + result.MemoryID + "\nquit\n")
	var out bytes.Buffer
	err = runSessionIO(context.Background(), rt, false, in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "local_ok=true")
}
