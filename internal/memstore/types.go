// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memstore implements C3, the Semantic Memory Store: an ordered
// key/value store with a secondary topic index and a similarity search,
// durable via an embedded badger/v4 database (agent_memory.db per user).
//
// Grounded on services/trace/agent/mcts/crs/persistence.go's badger
// open/close/metrics/tracer idioms. Similarity scoring is a local
// cosine-over-token-sets scorer: spec.md explicitly treats the exact
// embedding/ranking algorithm as out of scope ("nor the exact
// ranking/embedding algorithm of the semantic store (only its contract)"),
// so a stdlib scorer correctly satisfies the contract without reaching for
// a vector-embedding dependency.
package memstore

import "time"

// Record is one Memory Record per spec §3.
type Record struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Topics    []string  `json:"topics"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScoredRecord pairs a Record with its similarity score in [0, 1+boost].
type ScoredRecord struct {
	Record Record
	Score  float64
}

// Stats is the result of GetMemoryStats, per spec §4.3.
type Stats struct {
	TotalMemories   int
	Recent24h       int
	MostCommonTopic string
	TopicCounts     map[string]int
}

// DefaultSimilarityThreshold is the dedup threshold fixed at 0.8, per
// spec §4.3 and §9 (dedup is fixed at 0.8; search takes a caller-supplied
// threshold — the source used 0.7/0.8 inconsistently, the spec fixes
// dedup at 0.8 only).
const DefaultSimilarityThreshold = 0.8
