// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	home := t.TempDir()
	s := &Store{Home: home}
	require.NoError(t, s.ensureSeeded())
	return s
}

func TestGetUserID_DefaultsOnFirstRun(t *testing.T) {
	s := newTestStore(t)
	id, err := s.GetUserID()
	require.NoError(t, err)
	assert.Equal(t, defaultUserID, id)
}

func TestSetUserID_ThenGetUserID_RereadsEveryTime(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetUserID("alice"))

	// Simulate an external edit between two GetUserID calls: no caching
	// means the second call must observe it immediately.
	id, err := s.GetUserID()
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	require.NoError(t, os.WriteFile(s.userIDFile(), []byte(`USER_ID="bob"`+"\n"), 0o644))
	id2, err := s.GetUserID()
	require.NoError(t, err)
	assert.Equal(t, "bob", id2)
}

func TestGetUserID_CorruptFileFallsBackToDefault(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.userIDFile(), []byte("not a valid line"), 0o644))
	id, err := s.GetUserID()
	require.NoError(t, err)
	assert.Equal(t, defaultUserID, id)

	// And the fallback was written back.
	data, err := os.ReadFile(s.userIDFile())
	require.NoError(t, err)
	assert.Contains(t, string(data), defaultUserID)
}

func TestSetUserID_RejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	err := s.SetUserID("   ")
	require.Error(t, err)
}

func TestParseUserIDLine_QuotesOptionalOnRead(t *testing.T) {
	assert.Equal(t, "alice", parseUserIDLine(`USER_ID="alice"`))
	assert.Equal(t, "alice", parseUserIDLine(`USER_ID=alice`))
	assert.Equal(t, "", parseUserIDLine("nothing here"))
}

func TestGetUserStoragePaths_AllContainUserID(t *testing.T) {
	paths, err := GetUserStoragePaths("/root", "local", "bob")
	require.NoError(t, err)
	for _, p := range []string{
		paths.UserStorageDir, paths.UserKnowledgeDir, paths.UserDataDir,
		paths.LightRAGStorageDir, paths.LightRAGInputsDir,
		paths.LightRAGMemoryStorageDir, paths.LightRAGMemoryInputsDir,
		paths.AgentMemoryDBPath,
	} {
		assert.Contains(t, p, "bob")
	}
}

func TestGetUserStoragePaths_RejectsEmptyInputs(t *testing.T) {
	_, err := GetUserStoragePaths("", "local", "bob")
	require.Error(t, err)
}

func TestSeedDefaultEnvTemplates_DoesNotOverwriteExisting(t *testing.T) {
	home := t.TempDir()
	envDir := filepath.Join(home, "envfiles")
	require.NoError(t, os.MkdirAll(envDir, 0o755))
	custom := filepath.Join(envDir, "graph.env")
	require.NoError(t, os.WriteFile(custom, []byte("USER_ID=\"custom\"\n"), 0o644))

	require.NoError(t, seedDefaultEnvTemplates(home))

	data, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "custom")
}
