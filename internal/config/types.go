// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import "path/filepath"

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOllama   Provider = "ollama"
	ProviderOpenAI   Provider = "openai"
	ProviderLMStudio Provider = "lm-studio"
)

// IsValid reports whether p is one of the three enumerated providers.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderOllama, ProviderOpenAI, ProviderLMStudio:
		return true
	}
	return false
}

// DefaultModelFor returns the default model name for a provider, used by
// set_provider's auto_set_model cascade.
func DefaultModelFor(p Provider) string {
	switch p {
	case ProviderOllama:
		return "qwen2.5:7b"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderLMStudio:
		return "local-model"
	default:
		return ""
	}
}

// AgentMode selects single-agent vs. team orchestration (C10).
type AgentMode string

const (
	AgentModeSingle AgentMode = "single"
	AgentModeTeam   AgentMode = "team"
)

func (m AgentMode) IsValid() bool {
	return m == AgentModeSingle || m == AgentModeTeam
}

// InstructionLevel selects the sophistication of system instructions given
// to the LLM (see spec §4.9).
type InstructionLevel string

const (
	InstructionMinimal     InstructionLevel = "MINIMAL"
	InstructionConcise     InstructionLevel = "CONCISE"
	InstructionStandard    InstructionLevel = "STANDARD"
	InstructionExplicit    InstructionLevel = "EXPLICIT"
	InstructionExperimental InstructionLevel = "EXPERIMENTAL"
)

func (l InstructionLevel) IsValid() bool {
	switch l {
	case InstructionMinimal, InstructionConcise, InstructionStandard, InstructionExplicit, InstructionExperimental:
		return true
	}
	return false
}

// Snapshot is an immutable copy of the live configuration. Everyone but C1
// itself reads configuration only through a Snapshot.
type Snapshot struct {
	UserID           string
	Provider         Provider
	Model            string
	OllamaURL        string
	RemoteOllamaURL  string
	LMStudioURL      string
	RemoteLMStudioURL string
	OpenAIURL        string
	LightRAGURL      string
	LightRAGMemoryURL string
	AgentMode        AgentMode
	DebugMode        bool
	UseRemote        bool
	UseMCP           bool
	EnableMemory     bool
	Seed             int64
	InstructionLevel InstructionLevel

	// Inputs to path derivation, carried on the snapshot so that
	// get_user_storage_paths-equivalent helpers elsewhere never need a
	// second lookup into the registry.
	PersagRoot     string
	StorageBackend string

	// Derived per-user paths. Pure function of PersagRoot, StorageBackend,
	// UserID — recomputed on every set_user_id, never cached past a switch.
	UserStorageDir           string
	UserKnowledgeDir         string
	UserDataDir              string
	LightRAGStorageDir       string
	LightRAGInputsDir        string
	LightRAGMemoryStorageDir string
	LightRAGMemoryInputsDir  string
}

// derivePaths computes the seven derived paths for a given root, backend,
// and user id. Extracted so C1's mutators and tests can call it directly
// without going through a full snapshot round-trip.
func derivePaths(root, backend, userID string) (userDir, knowledgeDir, dataDir, ragStorage, ragInputs, memRagStorage, memRagInputs string) {
	base := filepath.Join(root, backend, userID)
	return base,
		filepath.Join(base, "knowledge"),
		filepath.Join(base, "data"),
		filepath.Join(base, "rag_storage"),
		filepath.Join(base, "inputs"),
		filepath.Join(base, "memory_rag_storage"),
		filepath.Join(base, "memory_inputs")
}

// FileConfig is the on-disk YAML seed for the registry's initial values,
// loaded once at process start the way cmd/aleutian/config/loader.go loads
// AleutianConfig. Unlike the teacher's read-mostly config, fields here are
// only a *seed*: C1's mutators subsequently own the live state in memory.
type FileConfig struct {
	UserID            string `yaml:"user_id"`
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	OllamaURL         string `yaml:"ollama_url"`
	RemoteOllamaURL   string `yaml:"remote_ollama_url"`
	LMStudioURL       string `yaml:"lmstudio_url"`
	RemoteLMStudioURL string `yaml:"remote_lmstudio_url"`
	OpenAIURL         string `yaml:"openai_url"`
	LightRAGURL       string `yaml:"lightrag_url"`
	LightRAGMemoryURL string `yaml:"lightrag_memory_url"`
	AgentMode         string `yaml:"agent_mode"`
	DebugMode         bool   `yaml:"debug_mode"`
	UseRemote         bool   `yaml:"use_remote"`
	UseMCP            bool   `yaml:"use_mcp"`
	EnableMemory      bool   `yaml:"enable_memory"`
	Seed              int64  `yaml:"seed"`
	InstructionLevel  string `yaml:"instruction_level"`
	PersagRoot        string `yaml:"persag_root"`
	StorageBackend    string `yaml:"storage_backend"`
}

// DefaultFileConfig mirrors cmd/aleutian/config/types.go's DefaultConfig():
// a reasonable, fully populated default written on first run.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		UserID:           "default_user",
		Provider:         string(ProviderOllama),
		Model:            DefaultModelFor(ProviderOllama),
		OllamaURL:        "http://localhost:11434",
		LMStudioURL:      "http://localhost:1234",
		AgentMode:        string(AgentModeSingle),
		DebugMode:        false,
		UseRemote:        false,
		UseMCP:           false,
		EnableMemory:     true,
		Seed:             0,
		InstructionLevel: string(InstructionStandard),
		PersagRoot:       "",
		StorageBackend:   "local",
	}
}
