// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge implements C6, the Knowledge Coordinator: a single
// query_knowledge_base surface over a local semantic KB (a C3-like index
// of documents) and C4, the remote graph service.
//
// Grounded on services/orchestrator/handlers/chat_streaming.go's
// retrieveRAGContext step, which similarly fans a query out to a local
// vector search and a remote RAG service and merges the results; the mode
// classifier here is a direct keyword router rather than an LLM call,
// since spec.md names the exact keyword lists (no NLP library in the
// teacher's stack does this kind of classification by library either).
package knowledge

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
	"github.com/AleutianAI/AleutianFOSS/internal/graphclient"
	"github.com/AleutianAI/AleutianFOSS/internal/memstore"
)

var tracer = otel.Tracer("persag.knowledge")

const (
	ModeLocal  = "local"
	ModeGlobal = "global"
	ModeHybrid = "hybrid"
	ModeMix    = "mix"
	ModeAuto   = "auto"
)

var relationshipWords = []string{"relationship", "connection", "between", "how", "why"}
var factualWords = []string{"what", "when", "where", "who", "define"}
var creativeWords = []string{"write", "generate", "poem", "story", "imagine", "compose", "draft"}

const defaultLocalThreshold = 0.1

// Coordinator is C6.
type Coordinator struct {
	localKB *memstore.Store
	graph   *graphclient.Client
	// kbUserID scopes the local KB's shared document namespace; the local
	// semantic KB is not a per-conversation-user store like C3, it is one
	// shared knowledge base, so it uses a fixed scope key.
	kbUserID string
}

// New constructs a Coordinator over a local document index and a graph
// client.
func New(localKB *memstore.Store, graph *graphclient.Client) *Coordinator {
	return &Coordinator{localKB: localKB, graph: graph, kbUserID: "knowledge_base"}
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// classifyMode implements spec §4.6's `auto` routing rule.
func classifyMode(query string) string {
	lower := strings.ToLower(query)
	if containsAny(lower, relationshipWords) {
		return ModeGlobal
	}
	if containsAny(lower, factualWords) {
		return ModeLocal
	}
	return ModeHybrid
}

// isCreativeRequest reports whether query looks like a generation
// request rather than a factual lookup, per spec §4.6.
func isCreativeRequest(query string) bool {
	lower := strings.ToLower(query)
	if !containsAny(lower, creativeWords) {
		return false
	}
	return !containsAny(lower, factualWords)
}

// QueryKnowledgeBase implements spec §4.6's query_knowledge_base
// operation.
func (c *Coordinator) QueryKnowledgeBase(ctx context.Context, query, mode string, limit int) (string, error) {
	ctx, span := tracer.Start(ctx, "knowledge.QueryKnowledgeBase")
	defer span.End()

	if isCreativeRequest(query) {
		return "", apperr.New(apperr.KindInvalidInput,
			"this looks like a content-generation request, not a factual lookup; the knowledge base only answers questions about indexed documents")
	}

	effectiveMode := mode
	if effectiveMode == "" || effectiveMode == ModeAuto {
		effectiveMode = classifyMode(query)
	}

	switch effectiveMode {
	case ModeLocal:
		return c.queryLocal(ctx, query, limit)
	case ModeGlobal:
		return c.graph.Query(ctx, graphclient.QueryRequest{Query: query, Mode: graphclient.ModeGlobal})
	case ModeMix:
		return c.graph.Query(ctx, graphclient.QueryRequest{Query: query, Mode: graphclient.ModeMix})
	case ModeHybrid:
		local, localErr := c.queryLocal(ctx, query, limit)
		remote, remoteErr := c.graph.Query(ctx, graphclient.QueryRequest{Query: query, Mode: graphclient.ModeHybrid})
		if localErr != nil && remoteErr != nil {
			return "", apperr.New(apperr.KindExternal, "both local and graph queries failed")
		}
		var parts []string
		if localErr == nil && local != "" {
			parts = append(parts, local)
		}
		if remoteErr == nil && remote != "" {
			parts = append(parts, remote)
		}
		return strings.Join(parts, "\n\n"), nil
	default:
		return "", apperr.New(apperr.KindInvalidInput, "unknown knowledge base mode: "+effectiveMode)
	}
}

func (c *Coordinator) queryLocal(ctx context.Context, query string, limit int) (string, error) {
	scored, err := c.localKB.SearchMemories(ctx, query, c.kbUserID, limit, defaultLocalThreshold, false, 0)
	if err != nil {
		return "", err
	}
	var texts []string
	for _, s := range scored {
		texts = append(texts, s.Record.Text)
	}
	return strings.Join(texts, "\n\n"), nil
}
