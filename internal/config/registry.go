// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config implements C1, the process-wide Config Registry: a
// thread-safe singleton configuration with exclusive-write concurrency,
// validated mutators, immutable snapshots, and ordered post-commit
// callbacks. Grounded on cmd/aleutian/config/loader.go's Global/once/Load
// singleton, generalized from a read-mostly config into a mutable one with
// subscriptions, per spec §4.1.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
)

// ChangeCallback is invoked after a committed mutation with the key name,
// old value, and new value. Callbacks must not hold the registry's lock;
// Registry invokes them outside the critical section.
type ChangeCallback func(key string, old, new any)

// Registry is the C1 singleton. The zero value is an empty registry with
// no file seed; Get() returns the process-wide instance loaded from disk.
type Registry struct {
	mu        sync.RWMutex
	state     Snapshot
	callbacks []registeredCallback
	nextCBID  int
}

type registeredCallback struct {
	id int
	fn ChangeCallback
}

var (
	instance Registry
	once     sync.Once
	loadErr  error
)

// Get returns the process-wide Registry, loading its seed from disk on
// first call. Subsequent calls return the same instance immediately,
// mirroring Global/once/Load — this singleton covers C1 only; C2's
// identity file is explicitly NOT memoized this way (see internal/identity).
func Get() (*Registry, error) {
	once.Do(func() {
		loadErr = instance.loadInternal()
	})
	return &instance, loadErr
}

func (r *Registry) loadInternal() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "could not determine home directory", err)
	}
	configPath := filepath.Join(home, ".persag", "config.yaml")
	if _, statErr := os.Stat(configPath); os.IsNotExist(statErr) {
		slog.Info("first run detected, writing default config", "path", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to read config file", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to parse config file", err)
	}
	r.state = snapshotFromFile(fc)
	return nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to create config directory", err)
	}
	data, err := yaml.Marshal(DefaultFileConfig())
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to marshal default config", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func snapshotFromFile(fc FileConfig) Snapshot {
	s := Snapshot{
		UserID:            fc.UserID,
		Provider:          Provider(fc.Provider),
		Model:             fc.Model,
		OllamaURL:         fc.OllamaURL,
		RemoteOllamaURL:   fc.RemoteOllamaURL,
		LMStudioURL:       fc.LMStudioURL,
		RemoteLMStudioURL: fc.RemoteLMStudioURL,
		OpenAIURL:         fc.OpenAIURL,
		LightRAGURL:       fc.LightRAGURL,
		LightRAGMemoryURL: fc.LightRAGMemoryURL,
		AgentMode:         AgentMode(fc.AgentMode),
		DebugMode:         fc.DebugMode,
		UseRemote:         fc.UseRemote,
		UseMCP:            fc.UseMCP,
		EnableMemory:      fc.EnableMemory,
		Seed:              fc.Seed,
		InstructionLevel:  InstructionLevel(fc.InstructionLevel),
		PersagRoot:        fc.PersagRoot,
		StorageBackend:    fc.StorageBackend,
	}
	s.refreshDerivedPaths()
	return s
}

func (s *Snapshot) refreshDerivedPaths() {
	s.UserStorageDir, s.UserKnowledgeDir, s.UserDataDir,
		s.LightRAGStorageDir, s.LightRAGInputsDir,
		s.LightRAGMemoryStorageDir, s.LightRAGMemoryInputsDir =
		derivePaths(s.PersagRoot, s.StorageBackend, s.UserID)
}

// Snapshot returns an immutable, atomically observed copy of the current
// configuration. No partial view is ever returned: the copy is taken under
// the read lock in one step.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// RegisterCallback subscribes fn to future mutations. Returns an id usable
// with UnregisterCallback. Callbacks fire serially in registration order,
// strictly after the state change has been committed.
func (r *Registry) RegisterCallback(fn ChangeCallback) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextCBID++
	id := r.nextCBID
	r.callbacks = append(r.callbacks, registeredCallback{id: id, fn: fn})
	return id
}

// UnregisterCallback removes a previously registered callback by id.
func (r *Registry) UnregisterCallback(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cb := range r.callbacks {
		if cb.id == id {
			r.callbacks = append(r.callbacks[:i], r.callbacks[i+1:]...)
			return
		}
	}
}

// fireCallback invokes every registered callback for one key, serially, in
// registration order, without holding the registry lock.
func (r *Registry) fireCallback(key string, old, new any) {
	r.mu.RLock()
	cbs := make([]registeredCallback, len(r.callbacks))
	copy(cbs, r.callbacks)
	r.mu.RUnlock()
	for _, cb := range cbs {
		cb.fn(key, old, new)
	}
}

// SetProvider validates p against the provider enumeration and commits it.
// When auto_set_model is true, immediately cascades a second SetModel event
// to the provider's default model, per spec §4.1.
func (r *Registry) SetProvider(p Provider, autoSetModel bool) error {
	if !p.IsValid() {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("invalid provider %q", p))
	}
	r.mu.Lock()
	old := r.state.Provider
	r.state.Provider = p
	r.mu.Unlock()
	r.fireCallback("provider", old, p)

	if autoSetModel {
		return r.SetModel(DefaultModelFor(p))
	}
	return nil
}

// SetModel commits a new model name. Model names are free-form; no
// enumeration applies.
func (r *Registry) SetModel(model string) error {
	r.mu.Lock()
	old := r.state.Model
	r.state.Model = model
	r.mu.Unlock()
	r.fireCallback("model", old, model)
	return nil
}

// SetUserID writes the new id to the identity persistence layer (if
// persist is true), refreshes every derived path field, and fires the
// user_id callback last so subscribers observe consistent paths.
//
// The actual file write is delegated to a persistFn supplied by the
// caller (internal/identity.SetUserID), keeping C1 free of C2's storage
// concern while still satisfying "refreshes derived path fields, fires
// the user_id callback last" from spec §4.1.
func (r *Registry) SetUserID(id string, persist bool, persistFn func(string) error) error {
	if id == "" {
		return apperr.New(apperr.KindInvalidInput, "user id must not be empty")
	}
	if persist && persistFn != nil {
		if err := persistFn(id); err != nil {
			return apperr.Wrap(apperr.KindFatal, "failed to persist user id", err)
		}
	}
	r.mu.Lock()
	old := r.state.UserID
	r.state.UserID = id
	r.state.refreshDerivedPaths()
	r.mu.Unlock()
	r.fireCallback("user_id", old, id)
	return nil
}

// SetAgentMode validates and commits the agent mode (single|team).
func (r *Registry) SetAgentMode(m AgentMode) error {
	if !m.IsValid() {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("invalid agent mode %q", m))
	}
	r.mu.Lock()
	old := r.state.AgentMode
	r.state.AgentMode = m
	r.mu.Unlock()
	r.fireCallback("agent_mode", old, m)
	return nil
}

// SetInstructionLevel validates and commits the instruction sophistication
// level, one of MINIMAL|CONCISE|STANDARD|EXPLICIT|EXPERIMENTAL.
func (r *Registry) SetInstructionLevel(l InstructionLevel) error {
	if !l.IsValid() {
		return apperr.New(apperr.KindInvalidInput, fmt.Sprintf("invalid instruction level %q", l))
	}
	r.mu.Lock()
	old := r.state.InstructionLevel
	r.state.InstructionLevel = l
	r.mu.Unlock()
	r.fireCallback("instruction_level", old, l)
	return nil
}

// SetDebugMode, SetUseRemote, SetUseMCP, SetEnableMemory, SetSeed are the
// remaining scalar mutators named in spec §4.1 ("setter for each mutable
// scalar"); each fires its own callback.

func (r *Registry) SetDebugMode(v bool) {
	r.mu.Lock()
	old := r.state.DebugMode
	r.state.DebugMode = v
	r.mu.Unlock()
	r.fireCallback("debug_mode", old, v)
}

func (r *Registry) SetUseRemote(v bool) {
	r.mu.Lock()
	old := r.state.UseRemote
	r.state.UseRemote = v
	r.mu.Unlock()
	r.fireCallback("use_remote", old, v)
}

func (r *Registry) SetUseMCP(v bool) {
	r.mu.Lock()
	old := r.state.UseMCP
	r.state.UseMCP = v
	r.mu.Unlock()
	r.fireCallback("use_mcp", old, v)
}

func (r *Registry) SetEnableMemory(v bool) {
	r.mu.Lock()
	old := r.state.EnableMemory
	r.state.EnableMemory = v
	r.mu.Unlock()
	r.fireCallback("enable_memory", old, v)
}

func (r *Registry) SetSeed(v int64) {
	r.mu.Lock()
	old := r.state.Seed
	r.state.Seed = v
	r.mu.Unlock()
	r.fireCallback("seed", old, v)
}

// resetForTest tears down the singleton so tests can reload a fresh
// instance. Unexported: production code never needs to reset C1.
func resetForTest() {
	once = sync.Once{}
	instance = Registry{}
	loadErr = nil
}
