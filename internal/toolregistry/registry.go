// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
)

var tracer = otel.Tracer("persag.toolregistry")

var (
	invocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persag_tool_invocations_total",
		Help: "Total tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})
)

// Registry holds tool descriptors, name-unique, safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	entries      map[string]Descriptor
	keywordIndex map[string][]string
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		entries:      make(map[string]Descriptor),
		keywordIndex: make(map[string][]string),
	}
}

// RegisterTool adds d to the registry. Returns Duplicate if d.Name is
// already registered.
func (r *Registry) RegisterTool(d Descriptor) error {
	if strings.TrimSpace(d.Name) == "" {
		return apperr.New(apperr.KindInvalidInput, "tool name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[d.Name]; exists {
		return apperr.Duplicate("tool already registered: "+d.Name, d.Name)
	}
	r.entries[d.Name] = d
	for _, kw := range d.Keywords {
		lower := strings.ToLower(kw)
		r.keywordIndex[lower] = append(r.keywordIndex[lower], d.Name)
	}
	return nil
}

// ListTools returns every registered descriptor, sorted by name for
// deterministic output.
func (r *Registry) ListTools() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.entries))
	for _, d := range r.entries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ToolSchema is one entry of RenderForLLM's output.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// RenderForLLM renders every registered tool's schema for the LLM
// adapter.
func (r *Registry) RenderForLLM() []ToolSchema {
	tools := r.ListTools()
	out := make([]ToolSchema, 0, len(tools))
	for _, t := range tools {
		out = append(out, ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.Schema})
	}
	return out
}

// FindToolsByKeyword returns tool names whose keyword list contains the
// given (case-insensitive) keyword.
func (r *Registry) FindToolsByKeyword(keyword string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.keywordIndex[strings.ToLower(keyword)]...)
}

// Invoke dispatches name with args, cancellable via ctx. Unknown names
// fail with NotFound, per spec §4.8.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "toolregistry.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", name))

	r.mu.RLock()
	d, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		invocationsTotal.WithLabelValues(name, "not_found").Inc()
		return nil, apperr.New(apperr.KindNotFound, "no such tool: "+name)
	}

	var result map[string]any
	var err error
	switch d.Kind {
	case KindSubprocess, KindMCP:
		result, err = invokeSubprocess(ctx, d, args)
	default:
		if d.Handler == nil {
			err = apperr.New(apperr.KindFatal, "tool has no handler: "+name)
		} else {
			result, err = d.Handler(ctx, args)
		}
	}

	if err != nil {
		invocationsTotal.WithLabelValues(name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool invocation failed")
		return nil, err
	}
	invocationsTotal.WithLabelValues(name, "ok").Inc()
	return result, nil
}

// buildEnv applies a tool's required env vars and renames for one
// invocation, per spec §4.8 ("Renames are applied per-invocation").
func buildEnv(d Descriptor) []string {
	env := os.Environ()
	for _, rename := range d.EnvRenames {
		if v, ok := os.LookupEnv(rename.From); ok {
			env = append(env, rename.To+"="+v)
		}
	}
	return env
}

// invokeSubprocess opens a fresh subprocess with stdio transport, writes
// args as a JSON line on stdin, and parses a JSON object from stdout.
// Spec §4.8 requires this to avoid long-lived cross-task resource
// sharing: the process starts and tears down once per call.
func invokeSubprocess(ctx context.Context, d Descriptor, args map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "failed to marshal tool arguments", err)
	}

	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	cmd.Env = buildEnv(d)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "subprocess tool failed: "+stderr.String(), err)
	}

	var result map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, apperr.Wrap(apperr.KindExternal, "subprocess tool returned non-JSON output", err)
	}
	return result, nil
}
