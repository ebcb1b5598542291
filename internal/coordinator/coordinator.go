// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coordinator implements C5, the Memory Coordinator: the single
// authority for user-memory writes and coordinated deletes across C3 (the
// local semantic store) and C4 (the remote graph service).
//
// Grounded on services/orchestrator/handlers/memory.go's
// SaveMemoryChunk/SaveMemoryChunkWithSummary pattern: a local write
// followed by a best-effort secondary write whose failure is logged but
// never unwinds the first. Spec.md requires the graph leg to be treated
// as eventually consistent, so unlike the teacher's goroutine-fire-and-
// forget version, StoreUserMemory here runs the graph leg synchronously
// and returns its status rather than discarding it.
package coordinator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/awnumar/memguard"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
	"github.com/AleutianAI/AleutianFOSS/internal/graphclient"
	"github.com/AleutianAI/AleutianFOSS/internal/memstore"
)

var tracer = otel.Tracer("persag.coordinator")

// topicKeywords is the small keyword heuristic spec §4.5 calls for when a
// caller doesn't supply topics explicitly. Intentionally coarse: the spec
// only asks for "a small set of topic tokens ... by keyword heuristics",
// not a classifier.
var topicKeywords = map[string][]string{
	"work":        {"job", "work", "career", "office", "colleague", "boss", "project"},
	"family":      {"wife", "husband", "mother", "father", "son", "daughter", "family", "sibling", "brother", "sister"},
	"health":      {"doctor", "health", "diet", "allergy", "medication", "exercise", "sleep"},
	"preferences": {"like", "love", "prefer", "favorite", "hate", "dislike", "enjoy"},
	"location":    {"live", "city", "country", "address", "moved", "hometown"},
}

func classifyTopics(text string) []string {
	lower := strings.ToLower(text)
	var topics []string
	for topic, keywords := range topicKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				topics = append(topics, topic)
				break
			}
		}
	}
	return topics
}

// LegStatus is the outcome of one leg (local or graph) of a coordinated
// write or delete.
type LegStatus struct {
	OK      bool
	Message string
}

// StoreResult is the merged result of StoreUserMemory.
type StoreResult struct {
	Accepted  bool
	Duplicate bool
	MemoryID  string
	Local     LegStatus
	Graph     LegStatus
}

// Coordinator is C5.
type Coordinator struct {
	memories *memstore.Store
	graph    *graphclient.Client
	userID   string

	dedupGroup singleflight.Group
}

// New constructs a Coordinator for one user scope.
func New(memories *memstore.Store, graph *graphclient.Client, userID string) *Coordinator {
	return &Coordinator{memories: memories, graph: graph, userID: userID}
}

// StoreUserMemory implements spec §4.5's store_user_memory operation.
// Within one user scope, concurrent calls with the same trimmed text are
// coalesced via singleflight (keyed on user id and text) and share one
// result; the C3 dedup check itself is serialized per user by
// memstore.AddMemory's lock, so a check-then-insert race cannot produce
// two near-identical records.
func (c *Coordinator) StoreUserMemory(ctx context.Context, text string, topics []string) (StoreResult, error) {
	ctx, span := tracer.Start(ctx, "coordinator.StoreUserMemory")
	defer span.End()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return StoreResult{}, apperr.New(apperr.KindInvalidInput, "memory text must not be empty")
	}
	if len(topics) == 0 {
		topics = classifyTopics(trimmed)
	}

	v, err, _ := c.dedupGroup.Do(c.userID+":"+trimmed, func() (any, error) {
		return c.storeLocked(ctx, trimmed, topics)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return StoreResult{}, err
	}
	return v.(StoreResult), nil
}

func (c *Coordinator) storeLocked(ctx context.Context, trimmed string, topics []string) (StoreResult, error) {
	accepted, message, id, err := c.memories.AddMemory(ctx, trimmed, c.userID, topics)
	if err != nil {
		return StoreResult{}, err
	}
	if !accepted {
		slog.Info("store_user_memory found duplicate, skipping graph write", "user_id", c.userID, "memory_id", id)
		return StoreResult{
			Accepted:  false,
			Duplicate: true,
			MemoryID:  id,
			Local:     LegStatus{OK: true, Message: message},
			Graph:     LegStatus{OK: true, Message: "skipped: duplicate"},
		}, nil
	}

	restated := restate(trimmed, c.userID)
	sealed := memguard.NewBufferFromBytes([]byte(restated))
	defer sealed.Destroy()

	docID := id
	graphErr := c.graph.IngestText(ctx, string(sealed.Bytes()), docID)
	graphStatus := LegStatus{OK: true, Message: "ingested"}
	if graphErr != nil {
		slog.Warn("graph ingestion failed for stored memory; local write stands",
			"user_id", c.userID, "memory_id", id, "error", graphErr)
		graphStatus = LegStatus{OK: false, Message: graphErr.Error()}
	}

	return StoreResult{
		Accepted: true,
		MemoryID: id,
		Local:    LegStatus{OK: true, Message: message},
		Graph:    graphStatus,
	}, nil
}

// DeleteResult is the merged result of DeleteMemory.
type DeleteResult struct {
	Local LegStatus
	Graph LegStatus
}

// DeleteMemory implements spec §4.5's delete_memory operation: deletes
// from C3, then best-effort deletes any correlated graph document.
func (c *Coordinator) DeleteMemory(ctx context.Context, id string) (DeleteResult, error) {
	ctx, span := tracer.Start(ctx, "coordinator.DeleteMemory")
	defer span.End()

	if err := c.memories.DeleteMemory(ctx, id, c.userID); err != nil {
		return DeleteResult{}, err
	}

	graphStatus := LegStatus{OK: true, Message: "deleted"}
	if _, err := c.graph.DeleteDocuments(ctx, []string{id}, false); err != nil {
		slog.Warn("graph delete failed for deleted memory; local delete stands",
			"user_id", c.userID, "memory_id", id, "error", err)
		graphStatus = LegStatus{OK: false, Message: err.Error()}
	}

	return DeleteResult{
		Local: LegStatus{OK: true, Message: "deleted"},
		Graph: graphStatus,
	}, nil
}

// DeleteByTopic gathers every record under topic and deletes each in turn,
// per spec §4.5 ("Delete-by-topic: gather ids from C3, then loop single-id
// delete").
func (c *Coordinator) DeleteByTopic(ctx context.Context, topic string) ([]DeleteResult, error) {
	records, err := c.memories.GetMemoriesByTopic(ctx, c.userID, []string{topic})
	if err != nil {
		return nil, err
	}
	results := make([]DeleteResult, 0, len(records))
	for _, r := range records {
		res, err := c.DeleteMemory(ctx, r.ID)
		if err != nil {
			res = DeleteResult{Local: LegStatus{OK: false, Message: err.Error()}}
		}
		results = append(results, res)
	}
	return results, nil
}

// SeedEntityInGraph uploads a synthetic document establishing name as a
// graph entity of the given type so later queries have a node to anchor
// on, per spec §4.5.
func (c *Coordinator) SeedEntityInGraph(ctx context.Context, name, entityType string) error {
	text := name + " is a " + entityType + "."
	return c.graph.IngestText(ctx, text, uuid.NewString())
}

// CheckEntityExists issues a local-mode graph query and looks for name in
// the response text.
func (c *Coordinator) CheckEntityExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.graph.Query(ctx, graphclient.QueryRequest{Query: name, Mode: graphclient.ModeLocal})
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(resp), strings.ToLower(name)), nil
}
