// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity implements C2, the User Identity Store. It persists the
// active user id to <PERSAG_HOME>/env.userid and derives the eight
// per-user storage paths.
//
// Unlike C1 (internal/config), which memoizes its seed behind a
// sync.Once, GetUserID re-reads the file on every call. Spec §3 requires
// "Read on every access (not cached) so external edits take effect
// immediately" — a deliberate, named divergence from the teacher's
// cmd/aleutian/config/loader.go Global/once pattern, not an oversight.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
)

const defaultUserID = "default_user"

// Store reads and writes the persisted user identity under a fixed home
// directory. Construct one per process; it holds no mutable state of its
// own (the file is the only state), so it requires no synchronization.
type Store struct {
	// Home is <PERSAG_HOME>, typically $HOME/.persag.
	Home string
}

// NewStore resolves PERSAG_HOME from the environment, defaulting to
// ~/.persag, and seeds it with default service env-file templates on
// first access (supplement from original_source/config/user_id_mgr.py).
func NewStore() (*Store, error) {
	home := os.Getenv("PERSAG_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindFatal, "could not determine home directory", err)
		}
		home = filepath.Join(userHome, ".persag")
	}
	s := &Store{Home: home}
	if err := s.ensureSeeded(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) userIDFile() string {
	return filepath.Join(s.Home, "env.userid")
}

// ensureSeeded creates PERSAG_HOME and writes a default env.userid file if
// one does not already exist. It also copies default per-service env-file
// templates from the embedded defaults (see templates.go) the first time
// the store is created, matching original_source's user_id_mgr.py.
func (s *Store) ensureSeeded() error {
	if err := os.MkdirAll(s.Home, 0o755); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to create PERSAG_HOME", err)
	}
	path := s.userIDFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeUserIDFile(path, defaultUserID); err != nil {
			return err
		}
		if err := seedDefaultEnvTemplates(s.Home); err != nil {
			return err
		}
	}
	return nil
}

// GetUserID reads env.userid fresh on every call. On corruption (file
// missing, unreadable content, or an empty id), it writes back
// "default_user" and returns it, per spec §4.2.
func (s *Store) GetUserID() (string, error) {
	data, err := os.ReadFile(s.userIDFile())
	if err != nil {
		// The userid file itself is unreadable: seed a fallback user and
		// try once more. If that also fails, it is Fatal per spec §4.2.
		if werr := writeUserIDFile(s.userIDFile(), defaultUserID); werr != nil {
			return "", apperr.Wrap(apperr.KindFatal, "userid file unreadable and fallback seed failed", werr)
		}
		return defaultUserID, nil
	}
	id := parseUserIDLine(string(data))
	if id == "" {
		if werr := writeUserIDFile(s.userIDFile(), defaultUserID); werr != nil {
			return "", apperr.Wrap(apperr.KindFatal, "userid file corrupt and fallback seed failed", werr)
		}
		return defaultUserID, nil
	}
	return id, nil
}

// parseUserIDLine extracts the id from a `USER_ID="<id>"` line. Quotes are
// optional on read (required on write), per spec §6.
func parseUserIDLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "USER_ID=") {
			continue
		}
		val := strings.TrimPrefix(line, "USER_ID=")
		val = strings.Trim(val, `"`)
		val = strings.TrimSpace(val)
		return val
	}
	return ""
}

// SetUserID performs an atomic replace of env.userid. Change is an
// explicit operation; nothing in this package triggers it implicitly.
func (s *Store) SetUserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.New(apperr.KindInvalidInput, "user id must not be empty")
	}
	return writeUserIDFile(s.userIDFile(), id)
}

func writeUserIDFile(path, id string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to create PERSAG_HOME", err)
	}
	tmp := path + ".tmp"
	content := fmt.Sprintf("USER_ID=%q\n", id)
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to write userid temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to atomically replace userid file", err)
	}
	return nil
}

// StoragePaths holds config.Snapshot's seven derived path fields plus
// AgentMemoryDBPath, returned independently of C1 so callers that only need C2 don't have to
// go through the registry.
type StoragePaths struct {
	UserStorageDir           string
	UserKnowledgeDir         string
	UserDataDir              string
	LightRAGStorageDir       string
	LightRAGInputsDir        string
	LightRAGMemoryStorageDir string
	LightRAGMemoryInputsDir  string
	AgentMemoryDBPath        string
}

// GetUserStoragePaths derives the eight per-user paths under
// <PERSAG_ROOT>/<storage_backend>/<user_id>/, any I/O error in derivation
// is fatal for the caller per spec §4.2 (derivation here is pure string
// joining, so the only failure mode is an empty root/backend/id, treated
// as InvalidInput rather than Fatal since no I/O actually occurs).
func GetUserStoragePaths(persagRoot, storageBackend, userID string) (StoragePaths, error) {
	if persagRoot == "" || storageBackend == "" || userID == "" {
		return StoragePaths{}, apperr.New(apperr.KindInvalidInput, "persagRoot, storageBackend, and userID must all be non-empty")
	}
	base := filepath.Join(persagRoot, storageBackend, userID)
	return StoragePaths{
		UserStorageDir:           base,
		UserKnowledgeDir:         filepath.Join(base, "knowledge"),
		UserDataDir:              filepath.Join(base, "data"),
		LightRAGStorageDir:       filepath.Join(base, "rag_storage"),
		LightRAGInputsDir:        filepath.Join(base, "inputs"),
		LightRAGMemoryStorageDir: filepath.Join(base, "memory_rag_storage"),
		LightRAGMemoryInputsDir:  filepath.Join(base, "memory_inputs"),
		AgentMemoryDBPath:        filepath.Join(base, "agent_memory.db"),
	}, nil
}

// parseSeed parses an LLM_SEED value into an int64 seed, returning 0 for
// an empty string. cmd/persag parses LLM_SEED with its own strconv call
// and does not use this helper.
func parseSeed(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInvalidInput, "LLM_SEED must be an integer", err)
	}
	return v, nil
}
