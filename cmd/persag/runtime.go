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
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/AleutianAI/AleutianFOSS/internal/agentloop"
	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
	"github.com/AleutianAI/AleutianFOSS/internal/clearing"
	"github.com/AleutianAI/AleutianFOSS/internal/config"
	"github.com/AleutianAI/AleutianFOSS/internal/coordinator"
	"github.com/AleutianAI/AleutianFOSS/internal/graphclient"
	"github.com/AleutianAI/AleutianFOSS/internal/identity"
	"github.com/AleutianAI/AleutianFOSS/internal/knowledge"
	"github.com/AleutianAI/AleutianFOSS/internal/memstore"
	"github.com/AleutianAI/AleutianFOSS/internal/team"
	"github.com/AleutianAI/AleutianFOSS/internal/toolregistry"
	"github.com/AleutianAI/AleutianFOSS/pkg/extensions"
	"github.com/AleutianAI/AleutianFOSS/services/llm"
)

// runtime holds every wired component the interactive session and
// -q one-shot path read from. Built once per process by newRuntime.
type runtime struct {
	snap      config.Snapshot
	registry  *config.Registry
	memories  *memstore.Store
	graph     *graphclient.Client
	coord     *coordinator.Coordinator
	knowledge *knowledge.Coordinator
	tools     *toolregistry.Registry
	coord10   *team.Coordinator
	clearing  *clearing.Service

	// filter and audit are the open-source extension points from
	// pkg/extensions: a single-user local deployment gets the Nop
	// pass-through pair, wired here rather than scattered as nil checks
	// at every call site, so an enterprise build only has to swap these
	// two fields for a real DLP filter and audit sink.
	filter extensions.MessageFilter
	audit  extensions.AuditLogger
}

// applyEnvOverrides mirrors cmd/orchestrator/main.go's getEnvString/
// getEnvInt helpers: USER_ID, PROVIDER, LLM_MODEL, INSTRUCTION_LEVEL,
// USE_MCP, ENABLE_MEMORY, DEBUG and LLM_SEED override the file-seeded
// config, applied once at startup before any component is constructed.
// The service URL, port and storage-root variables (OLLAMA_URL,
// REMOTE_OLLAMA_URL, LMSTUDIO_BASE_URL, REMOTE_LMSTUDIO_URL,
// LIGHTRAG_URL, LIGHTRAG_MEMORY_URL, LIGHTRAG_PORT, LIGHTRAG_MEMORY_PORT,
// PERSAG_ROOT, STORAGE_BACKEND) are not read here; those values come
// from the config file only.
func applyEnvOverrides(r *config.Registry) error {
	if v := os.Getenv("USER_ID"); v != "" {
		if err := r.SetUserID(v, false, nil); err != nil {
			return err
		}
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		if err := r.SetProvider(config.Provider(v), true); err != nil {
			return err
		}
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		if err := r.SetModel(v); err != nil {
			return err
		}
	}
	if v := os.Getenv("INSTRUCTION_LEVEL"); v != "" {
		if err := r.SetInstructionLevel(config.InstructionLevel(v)); err != nil {
			return err
		}
	}
	if v := os.Getenv("USE_MCP"); v != "" {
		r.SetUseMCP(v == "true" || v == "1")
	}
	if v := os.Getenv("ENABLE_MEMORY"); v != "" {
		r.SetEnableMemory(v == "true" || v == "1")
	}
	if v := os.Getenv("DEBUG"); v != "" {
		r.SetDebugMode(v == "true" || v == "1")
	}
	if v := os.Getenv("LLM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.SetSeed(seed)
		}
	}
	return nil
}

// newRuntime wires C1 through C6, C8, C10, and C11 together, per spec §6's
// per-user storage layout. C7 (internal/dockersync) is not wired here.
func newRuntime(ctx context.Context, useRemote, recreate bool) (*runtime, error) {
	reg, err := config.Get()
	if err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(reg); err != nil {
		return nil, err
	}
	reg.SetUseRemote(useRemote)

	idStore, err := identity.NewStore()
	if err != nil {
		return nil, err
	}
	userID, err := idStore.GetUserID()
	if err != nil {
		return nil, err
	}
	if err := reg.SetUserID(userID, false, nil); err != nil {
		return nil, err
	}

	snap := reg.Snapshot()

	paths, err := identity.GetUserStoragePaths(snap.PersagRoot, snap.StorageBackend, snap.UserID)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(paths.AgentMemoryDBPath), 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, "failed to create user storage directory", err)
	}

	if recreate {
		_ = os.RemoveAll(paths.AgentMemoryDBPath)
	}

	memories, err := memstore.Open(paths.AgentMemoryDBPath)
	if err != nil {
		return nil, err
	}

	graphURL := snap.LightRAGMemoryURL
	graph := graphclient.New(graphURL)

	coord := coordinator.New(memories, graph, snap.UserID)
	kb := knowledge.New(memories, graphclient.New(snap.LightRAGURL))

	tools := toolregistry.New()
	registerBuiltinTools(tools, coord, kb)

	clear := clearing.New(memories, graph, snap.UserID, paths.LightRAGMemoryInputsDir,
		[]string{paths.LightRAGStorageDir, paths.LightRAGMemoryStorageDir})

	client, err := buildLLMClient(snap)
	if err != nil {
		return nil, err
	}
	adapter := newLLMStreamAdapter(client, llm.GenerationParams{})

	builder := agentloop.InstructionBuilder{
		UserID:       snap.UserID,
		EnableMemory: snap.EnableMemory,
		EnableMCP:    snap.UseMCP,
		ToolNames:    toolNames(tools),
	}

	fallback := newSpecialistLoop(adapter, tools, builder, snap.InstructionLevel)
	coordinator10 := team.New(fallback)
	for _, class := range []team.IntentClass{
		team.IntentMemory, team.IntentWeb, team.IntentFinance, team.IntentMath,
		team.IntentImage, team.IntentCode, team.IntentFile, team.IntentSystem,
		team.IntentMedical,
	} {
		coordinator10.Register(class, newSpecialistLoop(adapter, tools, builder, snap.InstructionLevel))
	}

	return &runtime{
		snap:      snap,
		registry:  reg,
		memories:  memories,
		graph:     graph,
		coord:     coord,
		knowledge: kb,
		tools:     tools,
		coord10:   coordinator10,
		clearing:  clear,
		filter:    &extensions.NopMessageFilter{},
		audit:     &extensions.NopAuditLogger{},
	}, nil
}

func newSpecialistLoop(adapter agentloop.StreamAdapter, tools *toolregistry.Registry, builder agentloop.InstructionBuilder, lvl config.InstructionLevel) *agentloop.Loop {
	return agentloop.New(adapter, tools, toAgentloopSchemas(tools.RenderForLLM()), builder, agentloop.WithInstructionLevel(lvl))
}

func toAgentloopSchemas(schemas []toolregistry.ToolSchema) []agentloop.ToolSchema {
	out := make([]agentloop.ToolSchema, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, agentloop.ToolSchema{Name: s.Name, Description: s.Description, Parameters: s.Parameters})
	}
	return out
}

func toolNames(tools *toolregistry.Registry) []string {
	descs := tools.ListTools()
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		names = append(names, d.Name)
	}
	return names
}

// registerBuiltinTools wires C5 and C6 operations into C8 as in-process
// tool handlers, per spec §4.8's built-in/memory/knowledge tool kinds.
func registerBuiltinTools(tools *toolregistry.Registry, coord *coordinator.Coordinator, kb *knowledge.Coordinator) {
	_ = tools.RegisterTool(toolregistry.Descriptor{
		Name:        "store_memory",
		Kind:        toolregistry.KindMemory,
		Description: "Store a fact about the user for later recall.",
		Keywords:    []string{"remember", "memory", "store"},
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []string{"text"},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			text, _ := args["text"].(string)
			result, err := coord.StoreUserMemory(ctx, text, nil)
			if err != nil {
				return nil, err
			}
			return map[string]any{"accepted": result.Accepted, "memory_id": result.MemoryID}, nil
		},
	})

	_ = tools.RegisterTool(toolregistry.Descriptor{
		Name:        "query_knowledge_base",
		Kind:        toolregistry.KindKnowledge,
		Description: "Query the user's knowledge base for relevant context.",
		Keywords:    []string{"knowledge", "lookup", "search"},
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)
			answer, err := kb.QueryKnowledgeBase(ctx, query, "hybrid", 5)
			if err != nil {
				return nil, err
			}
			return map[string]any{"answer": answer}, nil
		},
	})
}

// buildLLMClient selects a concrete llm.LLMClient per the active
// provider. The env var names each constructor reads internally
// (OLLAMA_BASE_URL/OLLAMA_MODEL, LLM_SERVICE_URL_BASE) differ from
// spec §6's own names, so they're bridged here rather than duplicating
// each provider's HTTP plumbing.
func buildLLMClient(snap config.Snapshot) (llm.LLMClient, error) {
	switch snap.Provider {
	case config.ProviderOllama:
		url := snap.OllamaURL
		if snap.UseRemote && snap.RemoteOllamaURL != "" {
			url = snap.RemoteOllamaURL
		}
		_ = os.Setenv("OLLAMA_BASE_URL", url)
		_ = os.Setenv("OLLAMA_MODEL", snap.Model)
		return llm.NewOllamaClient()
	case config.ProviderLMStudio:
		url := snap.LMStudioURL
		if snap.UseRemote && snap.RemoteLMStudioURL != "" {
			url = snap.RemoteLMStudioURL
		}
		_ = os.Setenv("LLM_SERVICE_URL_BASE", url)
		return llm.NewLocalLlamaCppClient()
	default:
		return nil, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("unsupported provider for streaming: %s", snap.Provider))
	}
}

func (rt *runtime) close() {
	if err := rt.memories.Close(); err != nil {
		slog.Warn("failed to close memory store", "error", err)
	}
}
