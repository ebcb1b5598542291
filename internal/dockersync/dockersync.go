// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dockersync implements C7, the Docker Consistency Controller:
// keeps the active UserID synchronized with the `USER_ID=` line in each
// managed service's env file, backing up before every mutation and
// restarting the container only when necessary.
//
// Adapted from cmd/aleutian/internal/infra/compose/executor.go: the
// backup-stop-rewrite-start ordering comes from there, narrowed from
// general-purpose compose lifecycle management down to the single
// USER_ID-divergence-sync operation spec.md names. This package does no
// env var key validation and has no compose result type; SyncResult
// carries each service's outcome. The teacher's
// process.Manager abstraction (injected into DefaultComposeExecutor) was
// not retrieved into the example pack, so this controller shells out via
// os/exec directly, exactly as the teacher's own runPodman/runCompose
// helpers do underneath that abstraction.
package dockersync

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
)

// Service is one managed service, per spec §4.7.
type Service struct {
	Name          string
	Dir           string
	EnvFile       string
	ContainerName string
	ComposeFile   string
}

// ServiceConsistency is one entry of check_consistency's result.
type ServiceConsistency struct {
	DockerUserID string
	Consistent   bool
	Running      bool
	Err          error
}

// Controller is C7.
type Controller struct {
	services   []Service
	backupsDir string
	runner     commandRunner
}

// commandRunner abstracts process execution for testability; the
// production runner shells out via os/exec, tests inject a fake.
type commandRunner func(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, exitCode int, err error)

func execRunner(ctx context.Context, dir, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		exitCode = -1
	}
	return stdout.String(), stderr.String(), exitCode, err
}

// New constructs a Controller over services, backing up env files under
// backupsDir.
func New(services []Service, backupsDir string) *Controller {
	return &Controller{services: services, backupsDir: backupsDir, runner: execRunner}
}

// readEnvUserID reads the USER_ID= value from an env file. Returns "" if
// the file is absent or has no such line.
func readEnvUserID(path string) (string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "USER_ID=") {
			return strings.Trim(strings.TrimPrefix(line, "USER_ID="), `"`), nil
		}
	}
	return "", scanner.Err()
}

func (c *Controller) containerRunning(ctx context.Context, containerName string) (bool, error) {
	stdout, _, exitCode, err := c.runner(ctx, "", "docker", "ps", "--filter", "name="+containerName, "--format", "{{.Names}}")
	if err != nil && exitCode != 0 {
		return false, err
	}
	return strings.Contains(stdout, containerName), nil
}

// CheckConsistency reads every managed service's env file and queries
// docker ps by container name. No mutation.
func (c *Controller) CheckConsistency(ctx context.Context, activeUserID string) (map[string]ServiceConsistency, error) {
	result := make(map[string]ServiceConsistency, len(c.services))
	for _, svc := range c.services {
		dockerUserID, err := readEnvUserID(svc.EnvFile)
		if err != nil {
			result[svc.Name] = ServiceConsistency{Err: err}
			continue
		}
		running, rErr := c.containerRunning(ctx, svc.ContainerName)
		result[svc.Name] = ServiceConsistency{
			DockerUserID: dockerUserID,
			Consistent:   dockerUserID == activeUserID,
			Running:      running,
			Err:          rErr,
		}
	}
	return result, nil
}

// SyncResult is the per-service outcome of SyncUserIDs.
type SyncResult struct {
	Service    string
	BackedUp   bool
	Synced     bool
	Restarted  bool
	Skipped    bool
	Err        error
	Annotation string
}

// backupEnvFile copies the env file to a timestamped path under
// backupsDir, returning the backup path.
func (c *Controller) backupEnvFile(svc Service, stamp string) (string, error) {
	if err := os.MkdirAll(c.backupsDir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindFatal, "failed to create backups directory", err)
	}
	data, err := os.ReadFile(svc.EnvFile)
	if os.IsNotExist(err) {
		data = nil
	} else if err != nil {
		return "", apperr.Wrap(apperr.KindFatal, "failed to read env file for backup", err)
	}
	backupPath := filepath.Join(c.backupsDir, fmt.Sprintf("%s.%s.bak", filepath.Base(svc.EnvFile), stamp))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", apperr.Wrap(apperr.KindFatal, "failed to write env file backup", err)
	}
	return backupPath, nil
}

// rewriteUserID rewrites (or appends) the USER_ID= line in the env file.
func rewriteUserID(path, userID string) error {
	var lines []string
	found := false
	data, err := os.ReadFile(path)
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "USER_ID=") {
				lines = append(lines, "USER_ID="+userID)
				found = true
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if !found {
		lines = append(lines, "USER_ID="+userID)
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

func (c *Controller) composeDown(ctx context.Context, svc Service) error {
	_, stderr, exitCode, err := c.runner(ctx, svc.Dir, "docker", "compose", "-f", svc.ComposeFile, "down")
	if err != nil || exitCode != 0 {
		return fmt.Errorf("compose down failed for %s: %s", svc.Name, stderr)
	}
	return nil
}

func (c *Controller) composeUp(ctx context.Context, svc Service) error {
	_, stderr, exitCode, err := c.runner(ctx, svc.Dir, "docker", "compose", "-f", svc.ComposeFile, "up", "-d")
	if err != nil || exitCode != 0 {
		return fmt.Errorf("compose up failed for %s: %s", svc.Name, stderr)
	}
	return nil
}

// SyncUserIDs implements spec §4.7's sync_user_ids operation. dryRun
// suppresses all file and docker mutation while preserving the result
// structure, annotated "DRY RUN".
func (c *Controller) SyncUserIDs(ctx context.Context, activeUserID string, forceRestart, dryRun bool) ([]SyncResult, error) {
	consistency, err := c.CheckConsistency(ctx, activeUserID)
	if err != nil {
		return nil, err
	}
	stamp := time.Now().UTC().Format("20060102T150405Z")
	var results []SyncResult

	for _, svc := range c.services {
		state := consistency[svc.Name]
		if state.Consistent && !forceRestart {
			results = append(results, SyncResult{Service: svc.Name, Skipped: true, Annotation: "already consistent"})
			continue
		}

		annotation := ""
		if dryRun {
			annotation = "DRY RUN"
			results = append(results, SyncResult{Service: svc.Name, Synced: true, Annotation: annotation})
			continue
		}

		backupPath, err := c.backupEnvFile(svc, stamp)
		if err != nil {
			slog.Warn("dockersync: backup failed, skipping service", "service", svc.Name, "error", err)
			results = append(results, SyncResult{Service: svc.Name, Err: err, Skipped: true, Annotation: "backup failed"})
			continue
		}
		slog.Info("dockersync: env file backed up", "service", svc.Name, "backup_path", backupPath)

		wasRunning := state.Running
		if wasRunning {
			if err := c.composeDown(ctx, svc); err != nil {
				results = append(results, SyncResult{Service: svc.Name, BackedUp: true, Err: err})
				continue
			}
		}

		if err := rewriteUserID(svc.EnvFile, activeUserID); err != nil {
			results = append(results, SyncResult{Service: svc.Name, BackedUp: true, Err: err})
			continue
		}

		restarted := false
		if wasRunning || forceRestart {
			if err := c.composeUp(ctx, svc); err != nil {
				results = append(results, SyncResult{Service: svc.Name, BackedUp: true, Synced: true, Err: err})
				continue
			}
			restarted = true
		}

		results = append(results, SyncResult{Service: svc.Name, BackedUp: true, Synced: true, Restarted: restarted})
	}
	return results, nil
}

// EnsureConsistency implements spec §4.7's ensure_consistency operation:
// check, sync if inconsistent and autoFix, then re-check.
func (c *Controller) EnsureConsistency(ctx context.Context, activeUserID string, autoFix, forceRestart bool) (map[string]ServiceConsistency, []SyncResult, error) {
	before, err := c.CheckConsistency(ctx, activeUserID)
	if err != nil {
		return nil, nil, err
	}
	anyInconsistent := false
	for _, s := range before {
		if !s.Consistent {
			anyInconsistent = true
			break
		}
	}
	if !anyInconsistent || !autoFix {
		return before, nil, nil
	}

	results, err := c.SyncUserIDs(ctx, activeUserID, forceRestart, false)
	if err != nil {
		return before, results, err
	}
	after, err := c.CheckConsistency(ctx, activeUserID)
	return after, results, err
}
