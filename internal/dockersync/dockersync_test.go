// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dockersync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, running bool) (*Controller, Service) {
	t.Helper()
	dir := t.TempDir()
	envFile := filepath.Join(dir, "graph.env")
	require.NoError(t, os.WriteFile(envFile, []byte("USER_ID=old_user\nLIGHTRAG_PORT=9621\n"), 0o644))

	svc := Service{Name: "graph", Dir: dir, EnvFile: envFile, ContainerName: "persag-graph", ComposeFile: "docker-compose.yml"}
	c := New([]Service{svc}, filepath.Join(dir, "backups"))
	c.runner = func(ctx context.Context, rdir, name string, args ...string) (string, string, int, error) {
		if name == "docker" && len(args) > 0 && args[0] == "ps" {
			if running {
				return "persag-graph\n", "", 0, nil
			}
			return "", "", 0, nil
		}
		return "", "", 0, nil
	}
	return c, svc
}

func TestCheckConsistency_DetectsMismatch(t *testing.T) {
	c, _ := newTestController(t, true)
	result, err := c.CheckConsistency(context.Background(), "new_user")
	require.NoError(t, err)
	require.Contains(t, result, "graph")
	assert.False(t, result["graph"].Consistent)
	assert.Equal(t, "old_user", result["graph"].DockerUserID)
	assert.True(t, result["graph"].Running)
}

func TestCheckConsistency_MatchIsConsistent(t *testing.T) {
	c, _ := newTestController(t, false)
	result, err := c.CheckConsistency(context.Background(), "old_user")
	require.NoError(t, err)
	assert.True(t, result["graph"].Consistent)
	assert.False(t, result["graph"].Running)
}

func TestSyncUserIDs_ShortCircuitsWhenConsistent(t *testing.T) {
	c, _ := newTestController(t, false)
	results, err := c.SyncUserIDs(context.Background(), "old_user", false, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Skipped)
}

func TestSyncUserIDs_DryRunSuppressesMutation(t *testing.T) {
	c, svc := newTestController(t, true)
	results, err := c.SyncUserIDs(context.Background(), "new_user", false, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "DRY RUN", results[0].Annotation)

	data, err := os.ReadFile(svc.EnvFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "USER_ID=old_user")
}

func TestSyncUserIDs_BackupThenRewriteThenRestartIfRunning(t *testing.T) {
	c, svc := newTestController(t, true)
	results, err := c.SyncUserIDs(context.Background(), "new_user", false, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].BackedUp)
	assert.True(t, results[0].Synced)
	assert.True(t, results[0].Restarted)

	data, err := os.ReadFile(svc.EnvFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "USER_ID=new_user")

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(svc.EnvFile), "backups"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestSyncUserIDs_NotRunningServiceIsNotRestarted(t *testing.T) {
	c, svc := newTestController(t, false)
	results, err := c.SyncUserIDs(context.Background(), "new_user", false, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Synced)
	assert.False(t, results[0].Restarted)

	data, err := os.ReadFile(svc.EnvFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "USER_ID=new_user")
}

func TestEnsureConsistency_AutoFixReconciles(t *testing.T) {
	c, _ := newTestController(t, true)
	after, results, err := c.EnsureConsistency(context.Background(), "new_user", true, false)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.True(t, after["graph"].Consistent)
}

func TestEnsureConsistency_NoAutoFixLeavesInconsistent(t *testing.T) {
	c, _ := newTestController(t, true)
	after, results, err := c.EnsureConsistency(context.Background(), "new_user", false, false)
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.False(t, after["graph"].Consistent)
}
