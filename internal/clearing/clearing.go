// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package clearing implements C11, the Memory Clearing Service: a
// single entry point that clears semantic memories, graph documents,
// the on-disk memory_inputs directory, knowledge-graph artifact files,
// and the graph server's cache, tracking which steps were attempted,
// succeeded, or failed.
//
// Grounded on original_source/src/personal_agent/core/
// memory_clearing_service.py's MemoryClearingService.clear_all_memories:
// the same five steps, the same attempted/succeeded/failed bookkeeping,
// and the same strict overall_success rule (zero failures and at least
// one success among attempted steps).
package clearing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/AleutianFOSS/internal/graphclient"
	"github.com/AleutianAI/AleutianFOSS/internal/memstore"
)

var tracer = otel.Tracer("persag.clearing")

// StepResult is the outcome of one clearing step, per spec §4.11.
type StepResult struct {
	Attempted    bool
	Success      bool
	Message      string
	ItemsCleared int
	Errors       []string
}

// Options controls which steps run and how, per spec §4.11.
type Options struct {
	DryRun                bool
	SemanticOnly          bool
	LightragOnly          bool
	IncludeMemoryInputs   bool
	IncludeKnowledgeGraph bool
	IncludeCache          bool
	Verbose               bool
}

// DefaultOptions mirrors the original's ClearingOptions defaults: every
// optional step runs unless narrowed.
func DefaultOptions() Options {
	return Options{
		IncludeMemoryInputs:   true,
		IncludeKnowledgeGraph: true,
		IncludeCache:          true,
	}
}

// AggregateResult is ClearAll's return value, per spec §4.11.
type AggregateResult struct {
	SemanticMemory StepResult
	GraphDocuments StepResult
	MemoryInputs   StepResult
	KnowledgeGraph StepResult
	ServerCache    StepResult
	OverallSuccess bool
	Summary        string
}

// Service runs the five clearing steps against a semantic memory store,
// graph client, and on-disk storage roots.
type Service struct {
	memories          *memstore.Store
	graph             *graphclient.Client
	userID            string
	memoryInputsDir   string
	graphArtifactDirs []string
}

// New constructs a Service. memoryInputsDir is the directory whose
// contents (not the directory itself) are recursively removed; dirs is
// the set of directories scanned for *.graphml artifact files.
func New(memories *memstore.Store, graph *graphclient.Client, userID, memoryInputsDir string, graphArtifactDirs []string) *Service {
	return &Service{
		memories:          memories,
		graph:             graph,
		userID:            userID,
		memoryInputsDir:   memoryInputsDir,
		graphArtifactDirs: graphArtifactDirs,
	}
}

// ClearAll runs every step opts enables, per spec §4.11's algorithm.
func (s *Service) ClearAll(ctx context.Context, opts Options) (AggregateResult, error) {
	ctx, span := tracer.Start(ctx, "clearing.ClearAll")
	defer span.End()

	var agg AggregateResult
	var successCount, failedCount int

	note := func(r StepResult) {
		if !r.Attempted {
			return
		}
		if r.Success {
			successCount++
		} else {
			failedCount++
		}
	}

	if !opts.LightragOnly {
		agg.SemanticMemory = s.clearSemanticMemories(ctx, opts.DryRun)
		note(agg.SemanticMemory)
	}

	if !opts.SemanticOnly {
		agg.GraphDocuments = s.clearGraphDocuments(ctx, opts.DryRun)
		note(agg.GraphDocuments)

		if opts.IncludeMemoryInputs {
			agg.MemoryInputs = s.clearMemoryInputsDirectory(opts.DryRun)
			note(agg.MemoryInputs)
		}

		if opts.IncludeKnowledgeGraph {
			agg.KnowledgeGraph = s.clearKnowledgeGraphFiles(opts.DryRun)
			note(agg.KnowledgeGraph)
		}

		if opts.IncludeCache {
			agg.ServerCache = s.clearServerCache(ctx, opts.DryRun)
			note(agg.ServerCache)
		}
	}

	agg.OverallSuccess = failedCount == 0 && successCount > 0
	if opts.DryRun {
		agg.Summary = fmt.Sprintf("DRY RUN: %d operations would succeed, %d would fail", successCount, failedCount)
	} else {
		agg.Summary = fmt.Sprintf("%d operations succeeded, %d failed", successCount, failedCount)
	}
	return agg, nil
}

// clearSemanticMemories clears C3 and asserts the post-condition count
// is zero, per spec §4.11 step 1.
func (s *Service) clearSemanticMemories(ctx context.Context, dryRun bool) StepResult {
	if dryRun {
		stats, err := s.memories.GetMemoryStats(ctx, s.userID)
		if err != nil {
			return StepResult{Attempted: true, Success: false, Message: "failed to read memory stats", Errors: []string{err.Error()}}
		}
		return StepResult{Attempted: true, Success: true, Message: fmt.Sprintf("DRY RUN: would clear %d memories", stats.TotalMemories), ItemsCleared: 0}
	}

	before, err := s.memories.GetMemoryStats(ctx, s.userID)
	if err != nil {
		return StepResult{Attempted: true, Success: false, Message: "failed to read memory stats", Errors: []string{err.Error()}}
	}
	if _, msg, err := s.memories.ClearMemories(ctx, s.userID); err != nil {
		return StepResult{Attempted: true, Success: false, Message: "failed to clear semantic memories: " + msg, Errors: []string{err.Error()}}
	}
	after, err := s.memories.GetMemoryStats(ctx, s.userID)
	if err != nil {
		return StepResult{Attempted: true, Success: false, Message: "failed to verify memory clear", Errors: []string{err.Error()}}
	}
	if after.TotalMemories != 0 {
		return StepResult{Attempted: true, Success: false, Message: "semantic memories remained after clear", Errors: []string{fmt.Sprintf("expected 0, got %d", after.TotalMemories)}}
	}
	return StepResult{Attempted: true, Success: true, Message: "cleared semantic memories", ItemsCleared: before.TotalMemories}
}

// clearGraphDocuments lists then deletes every C4 document, per spec
// §4.11 step 2.
func (s *Service) clearGraphDocuments(ctx context.Context, dryRun bool) StepResult {
	docs, err := s.graph.ListDocuments(ctx)
	if err != nil {
		return StepResult{Attempted: true, Success: false, Message: "failed to list graph documents", Errors: []string{err.Error()}}
	}
	if dryRun {
		return StepResult{Attempted: true, Success: true, Message: fmt.Sprintf("DRY RUN: would delete %d graph documents", len(docs))}
	}
	if len(docs) == 0 {
		return StepResult{Attempted: true, Success: true, Message: "no graph documents to delete"}
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	result, err := s.graph.DeleteDocuments(ctx, ids, true)
	if err != nil {
		return StepResult{Attempted: true, Success: false, Message: "failed to delete graph documents", Errors: []string{err.Error()}}
	}
	return StepResult{Attempted: true, Success: true, Message: result.Message, ItemsCleared: len(ids)}
}

// clearMemoryInputsDirectory removes the contents of the configured
// memory_inputs directory, leaving the directory itself, per spec
// §4.11 step 3.
func (s *Service) clearMemoryInputsDirectory(dryRun bool) StepResult {
	if s.memoryInputsDir == "" {
		return StepResult{Attempted: true, Success: false, Message: "memory inputs directory not configured", Errors: []string{"no directory configured"}}
	}
	entries, err := os.ReadDir(s.memoryInputsDir)
	if os.IsNotExist(err) {
		return StepResult{Attempted: true, Success: true, Message: "memory inputs directory does not exist: " + s.memoryInputsDir}
	}
	if err != nil {
		return StepResult{Attempted: true, Success: false, Message: "failed to read memory inputs directory", Errors: []string{err.Error()}}
	}
	if dryRun {
		return StepResult{Attempted: true, Success: true, Message: fmt.Sprintf("DRY RUN: would delete %d entries from %s", len(entries), s.memoryInputsDir)}
	}

	var errs []string
	cleared := 0
	for _, e := range entries {
		path := filepath.Join(s.memoryInputsDir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		cleared++
	}
	if len(errs) > 0 {
		return StepResult{Attempted: true, Success: false, Message: "some memory input entries failed to delete", ItemsCleared: cleared, Errors: errs}
	}
	return StepResult{Attempted: true, Success: true, Message: fmt.Sprintf("cleared %d entries from %s", cleared, s.memoryInputsDir), ItemsCleared: cleared}
}

// clearKnowledgeGraphFiles deletes on-disk *.graphml artifacts from the
// configured storage directories, per spec §4.11 step 4.
func (s *Service) clearKnowledgeGraphFiles(dryRun bool) StepResult {
	var matches []string
	for _, dir := range s.graphArtifactDirs {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return StepResult{Attempted: true, Success: false, Message: "failed to scan knowledge graph directory: " + dir, Errors: []string{err.Error()}}
		}
		for _, e := range entries {
			if filepath.Ext(e.Name()) == ".graphml" {
				matches = append(matches, filepath.Join(dir, e.Name()))
			}
		}
	}
	if dryRun {
		return StepResult{Attempted: true, Success: true, Message: fmt.Sprintf("DRY RUN: would delete %d graphml files", len(matches))}
	}

	var errs []string
	cleared := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err.Error())
			continue
		}
		cleared++
	}
	if len(errs) > 0 {
		return StepResult{Attempted: true, Success: false, Message: "some graphml files failed to delete", ItemsCleared: cleared, Errors: errs}
	}
	return StepResult{Attempted: true, Success: true, Message: fmt.Sprintf("cleared %d graphml files", cleared), ItemsCleared: cleared}
}

// clearServerCache calls C4's ClearCache, per spec §4.11 step 5.
func (s *Service) clearServerCache(ctx context.Context, dryRun bool) StepResult {
	if dryRun {
		return StepResult{Attempted: true, Success: true, Message: "DRY RUN: would clear server cache"}
	}
	if err := s.graph.ClearCache(ctx); err != nil {
		return StepResult{Attempted: true, Success: false, Message: "failed to clear server cache", Errors: []string{err.Error()}}
	}
	return StepResult{Attempted: true, Success: true, Message: "cleared server cache"}
}
