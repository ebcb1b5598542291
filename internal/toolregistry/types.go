// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package toolregistry implements C8, the Tool Registry: a name-unique
// catalogue of tool descriptors the streaming agent loop (C9) consults
// for schemas and dispatches invocations through.
//
// Structurally grounded on services/trace/config/tool_registry.go: the
// RWMutex-guarded catalogue, the keyword index, and the Prometheus
// metrics come from there (here a Registry is built by New, not held as
// a process-wide singleton), generalized
// from the teacher's fixed keyword-routing catalogue to the spec's
// built-in/subprocess/memory/knowledge/mcp tool-kind taxonomy. Subprocess
// tool dispatch is new: C8 spawns a fresh process per invocation (no
// long-lived cross-task resource sharing, per spec §4.8), whereas the
// teacher's registry only describes tools for an LLM router and never
// executes them.
package toolregistry

import "context"

// Kind enumerates the tool categories spec §4.8 names.
type Kind string

const (
	KindBuiltin    Kind = "builtin"
	KindSubprocess Kind = "subprocess"
	KindMemory     Kind = "memory"
	KindKnowledge  Kind = "knowledge"
	KindMCP        Kind = "mcp"
)

// EnvRename renames an environment variable when invoking a subprocess
// tool, e.g. GITHUB_PERSONAL_ACCESS_TOKEN -> GITHUB_TOKEN.
type EnvRename struct {
	From string
	To   string
}

// Descriptor describes one registered tool.
type Descriptor struct {
	Name        string
	Kind        Kind
	Description string
	Keywords    []string
	// Schema is the JSON schema for the tool's arguments, rendered
	// verbatim into RenderForLLM's output.
	Schema map[string]any

	// Subprocess-tool fields (Kind == KindSubprocess or KindMCP).
	Command     string
	Args        []string
	RequiredEnv []string
	EnvRenames  []EnvRename

	// Handler, for built-in/memory/knowledge tools, is invoked directly
	// in-process.
	Handler Handler
}

// Handler is the in-process invocation contract for non-subprocess
// tools.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)
