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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddMemory_RejectsEmptyText(t *testing.T) {
	s := newTestStore(t)
	accepted, _, _, err := s.AddMemory(context.Background(), "   ", "u1", nil)
	require.Error(t, err)
	assert.False(t, accepted)
}

func TestAddMemory_DuplicateReturnsFirstID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	accepted, _, id1, err := s.AddMemory(ctx, "I prefer tea over coffee in the mornings", "u1", []string{"preferences"})
	require.NoError(t, err)
	require.True(t, accepted)
	require.NotEmpty(t, id1)

	accepted2, _, id2, err := s.AddMemory(ctx, "I prefer tea over coffee in the mornings", "u1", []string{"preferences"})
	require.NoError(t, err)
	assert.False(t, accepted2)
	assert.Equal(t, id1, id2)
}

func TestAddMemory_WhitespaceOnlyDifferenceCountsAsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	accepted, _, id1, err := s.AddMemory(ctx, "my favorite color is blue", "u1", nil)
	require.NoError(t, err)
	require.True(t, accepted)

	accepted2, _, id2, err := s.AddMemory(ctx, "my   favorite color is   blue", "u1", nil)
	require.NoError(t, err)
	assert.False(t, accepted2)
	assert.Equal(t, id1, id2)
}

func TestAddMemory_DistinctUsersDoNotDedupeAgainstEachOther(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, id1, err := s.AddMemory(ctx, "I work as a structural engineer", "u1", nil)
	require.NoError(t, err)

	accepted, _, id2, err := s.AddMemory(ctx, "I work as a structural engineer", "u2", nil)
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.NotEqual(t, id1, id2)
}

func TestGetMemoryStats_TotalReflectsInsertedMinusDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, id1, err := s.AddMemory(ctx, "first distinct memory about hiking", "u1", nil)
	require.NoError(t, err)
	_, _, _, err = s.AddMemory(ctx, "second distinct memory about painting", "u1", nil)
	require.NoError(t, err)
	_, _, _, err = s.AddMemory(ctx, "third distinct memory about sailing", "u1", nil)
	require.NoError(t, err)

	stats, err := s.GetMemoryStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMemories)

	require.NoError(t, s.DeleteMemory(ctx, id1, "u1"))

	stats, err = s.GetMemoryStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMemories)
}

func TestDeleteMemory_AbsentIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteMemory(context.Background(), "does-not-exist", "u1")
	require.Error(t, err)
}

func TestClearMemories_ThenStatsIsZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{"alpha memory text", "beta memory text", "gamma memory text"} {
		_, _, _, err := s.AddMemory(ctx, text, "u1", nil)
		require.NoError(t, err)
	}

	ok, _, err := s.ClearMemories(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := s.GetMemoryStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalMemories)

	all, err := s.GetAllMemories(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSearchMemories_RanksBySimilarityAndAppliesTopicBoost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, idRelevant, err := s.AddMemory(ctx, "the user enjoys hiking in the mountains on weekends", "u1", []string{"hobbies"})
	require.NoError(t, err)
	_, _, _, err = s.AddMemory(ctx, "the quarterly tax filing deadline is in April", "u1", []string{"finance"})
	require.NoError(t, err)

	results, err := s.SearchMemories(ctx, "hiking mountains", "u1", 5, 0.05, true, 0.2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, idRelevant, results[0].Record.ID)
}

func TestGetMemoriesByTopic_EmptyTopicsReturnsAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, _, err := s.AddMemory(ctx, "memory one about travel plans", "u1", []string{"travel"})
	require.NoError(t, err)
	_, _, _, err = s.AddMemory(ctx, "memory two about cooking recipes", "u1", []string{"food"})
	require.NoError(t, err)

	all, err := s.GetMemoriesByTopic(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	travel, err := s.GetMemoriesByTopic(ctx, "u1", []string{"travel"})
	require.NoError(t, err)
	assert.Len(t, travel, 1)
}

func TestUpdateMemory_UnknownIDIsNotFound(t *testing.T) {
	s := newTestStore(t)
	newText := "updated text"
	err := s.UpdateMemory(context.Background(), "missing-id", "u1", &newText, nil)
	require.Error(t, err)
}

func TestUpdateMemory_PartialUpdatePreservesUntouchedFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, id, err := s.AddMemory(ctx, "original memory text here", "u1", []string{"original-topic"})
	require.NoError(t, err)

	newText := "revised memory text here"
	require.NoError(t, s.UpdateMemory(ctx, id, "u1", &newText, nil))

	all, err := s.GetAllMemories(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, newText, all[0].Text)
	assert.Equal(t, []string{"original-topic"}, all[0].Topics)
}
