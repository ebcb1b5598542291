// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
	"github.com/AleutianAI/AleutianFOSS/internal/storage/badgerkv"
)

var tracer = otel.Tracer("persag.memstore")

var (
	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "persag_memstore_operation_duration_seconds",
		Help:    "Latency of semantic memory store operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	opTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persag_memstore_operations_total",
		Help: "Total semantic memory store operations by outcome.",
	}, []string{"operation", "outcome"})
)

// recordKey returns the badger key "mem:<user_id>:<id>" for one record.
func recordKey(userID, id string) []byte {
	return []byte(fmt.Sprintf("mem:%s:%s", userID, id))
}

// recordPrefix returns the key prefix covering every record for a user.
func recordPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("mem:%s:", userID))
}

// Store is C3: a local, durable, similarity-searchable key/value store of
// Memory Records, backed by badger. One Store instance is opened per user
// storage directory (agent_memory.db); per-user serialization for the
// dedup-check-then-insert window is provided by a per-user mutex.
type Store struct {
	db *badgerkv.DB

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// Open opens (or creates) the badger database at path.
func Open(path string) (*Store, error) {
	cfg := badgerkv.DefaultConfig()
	cfg.Path = path
	db, err := badgerkv.OpenDB(cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, "failed to open semantic memory store", err)
	}
	return &Store{db: db, userLocks: make(map[string]*sync.Mutex)}, nil
}

// OpenInMemory opens an ephemeral store for tests.
func OpenInMemory() (*Store, error) {
	db, err := badgerkv.OpenInMemory()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, "failed to open in-memory semantic memory store", err)
	}
	return &Store{db: db, userLocks: make(map[string]*sync.Mutex)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// AddMemory inserts text for userID with the given topics, rejecting
// near-duplicates per spec §4.3. Returns (accepted, message, id).
func (s *Store) AddMemory(ctx context.Context, text, userID string, topics []string) (accepted bool, message string, id string, err error) {
	ctx, span := tracer.Start(ctx, "memstore.AddMemory")
	defer span.End()
	start := time.Now()
	defer func() { opDuration.WithLabelValues("add_memory").Observe(time.Since(start).Seconds()) }()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		opTotal.WithLabelValues("add_memory", "invalid_input").Inc()
		return false, "", "", apperr.New(apperr.KindInvalidInput, "memory text must not be empty")
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.GetAllMemories(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return false, "", "", err
	}
	var best Record
	var bestScore float64
	for _, r := range existing {
		score := cosineSimilarity(trimmed, r.Text)
		if score > bestScore {
			bestScore = score
			best = r
		}
	}
	if bestScore >= DefaultSimilarityThreshold {
		opTotal.WithLabelValues("add_memory", "duplicate").Inc()
		return false, fmt.Sprintf("duplicate of existing memory %q (similarity %.2f)", best.ID, bestScore), best.ID, nil
	}

	now := time.Now()
	rec := Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      trimmed,
		Topics:    topics,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(ctx, rec); err != nil {
		opTotal.WithLabelValues("add_memory", "error").Inc()
		return false, "", "", err
	}
	opTotal.WithLabelValues("add_memory", "accepted").Inc()
	return true, "memory stored", rec.ID, nil
}

func (s *Store) put(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to marshal memory record", err)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.UserID, rec.ID), data)
	})
}

// GetAllMemories returns every record owned by userID.
func (s *Store) GetAllMemories(ctx context.Context, userID string) ([]Record, error) {
	var records []Record
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix(userID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			if err := item.Value(func(val []byte) error {
				var r Record
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}
				records = append(records, r)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindFatal, "failed to list memories", err)
	}
	return records, nil
}

// SearchMemories ranks records by similarity to query, applying an
// additive topic_boost when search_topics is set and a record's topics
// textually match the query, per spec §4.3.
func (s *Store) SearchMemories(ctx context.Context, query, userID string, limit int, threshold float64, searchTopics bool, topicBoost float64) ([]ScoredRecord, error) {
	all, err := s.GetAllMemories(ctx, userID)
	if err != nil {
		return nil, err
	}
	var scored []ScoredRecord
	for _, r := range all {
		score := cosineSimilarity(query, r.Text)
		if searchTopics && matchesTopics(query, r.Topics) {
			score += topicBoost
		}
		if score >= threshold {
			scored = append(scored, ScoredRecord{Record: r, Score: score})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// GetMemoriesByTopic returns records whose topic list intersects topics.
// An empty topics list returns all records for the user.
func (s *Store) GetMemoriesByTopic(ctx context.Context, userID string, topics []string) ([]Record, error) {
	all, err := s.GetAllMemories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return all, nil
	}
	want := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		want[t] = struct{}{}
	}
	var out []Record
	for _, r := range all {
		for _, t := range r.Topics {
			if _, ok := want[t]; ok {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// GetRecentMemories returns the limit records with the largest CreatedAt,
// descending.
func (s *Store) GetRecentMemories(ctx context.Context, userID string, limit int) ([]Record, error) {
	all, err := s.GetAllMemories(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// UpdateMemory partially updates the text and/or topics of a record owned
// by userID. Fails with NotFound if the id is not owned by userID.
func (s *Store) UpdateMemory(ctx context.Context, id, userID string, text *string, topics *[]string) error {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	var rec Record
	found := false
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(userID, id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) })
	})
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to read memory for update", err)
	}
	if !found {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("memory %q not found", id))
	}
	if text != nil {
		rec.Text = *text
	}
	if topics != nil {
		rec.Topics = *topics
	}
	rec.UpdatedAt = time.Now()
	return s.put(ctx, rec)
}

// DeleteMemory deletes a record by id. Idempotent: deleting an absent id
// returns a non-fatal NotFound, not an error condition that should abort
// a caller's larger operation.
func (s *Store) DeleteMemory(ctx context.Context, id, userID string) error {
	err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		_, getErr := txn.Get(recordKey(userID, id))
		if getErr == badger.ErrKeyNotFound {
			return badger.ErrKeyNotFound
		}
		if getErr != nil {
			return getErr
		}
		return txn.Delete(recordKey(userID, id))
	})
	if err == badger.ErrKeyNotFound {
		return apperr.New(apperr.KindNotFound, fmt.Sprintf("memory %q not found", id))
	}
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to delete memory", err)
	}
	return nil
}

// ClearMemories deletes every record owned by userID and runs a value-log
// GC pass so a fresh handle observes zero rows, per spec §4.3's
// persistence invariant (the "VACUUM" requirement).
func (s *Store) ClearMemories(ctx context.Context, userID string) (bool, string, error) {
	all, err := s.GetAllMemories(ctx, userID)
	if err != nil {
		return false, "", err
	}
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, r := range all {
			if delErr := txn.Delete(recordKey(userID, r.ID)); delErr != nil {
				return delErr
			}
		}
		return nil
	})
	if err != nil {
		return false, "", apperr.Wrap(apperr.KindFatal, "failed to clear memories", err)
	}
	if gcErr := s.db.RunValueLogGC(0.5); gcErr != nil {
		return false, "", apperr.Wrap(apperr.KindFatal, "failed to compact store after clear", gcErr)
	}
	return true, fmt.Sprintf("cleared %d memories", len(all)), nil
}

// GetMemoryStats computes aggregate statistics for userID.
func (s *Store) GetMemoryStats(ctx context.Context, userID string) (Stats, error) {
	all, err := s.GetAllMemories(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{TotalMemories: len(all), TopicCounts: make(map[string]int)}
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, r := range all {
		if r.CreatedAt.After(cutoff) {
			stats.Recent24h++
		}
		for _, t := range r.Topics {
			stats.TopicCounts[t]++
		}
	}
	var best string
	var bestCount int
	for t, c := range stats.TopicCounts {
		if c > bestCount {
			best, bestCount = t, c
		}
	}
	stats.MostCommonTopic = best
	return stats, nil
}
