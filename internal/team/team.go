// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package team implements C10, the Team Coordinator: an optional layer
// active when agent_mode=team that routes a user query to exactly one
// specialist C9 agent loop by capability, then passes the specialist's
// result through unchanged.
//
// Grounded on original_source/src/personal_agent/team/reasoning_team.py's
// specialist roster (Memory/Web/Finance/Calculator/Image/Python/File/
// System/Medical agents), realized here as N independent
// agentloop.Loop values each restricted to its own tool subset, with
// the coordinator itself a pure keyword-routing table rather than the
// teacher's agno Team framework (not present in the example pack).
package team

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/AleutianFOSS/internal/agentloop"
	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
)

var tracer = otel.Tracer("persag.team")

// IntentClass names one of the routing table's rows, per spec §4.10.
type IntentClass string

const (
	IntentMemory   IntentClass = "memory"
	IntentWeb      IntentClass = "web"
	IntentFinance  IntentClass = "finance"
	IntentMath     IntentClass = "math"
	IntentImage    IntentClass = "image"
	IntentCode     IntentClass = "code"
	IntentFile     IntentClass = "file"
	IntentSystem   IntentClass = "system"
	IntentMedical  IntentClass = "medical"
	IntentFallback IntentClass = "fallback"
)

// intentKeywords maps each class to the keywords that route to it, in
// the order spec §4.10's table lists them. The first matching class
// wins.
var intentKeywords = []struct {
	class    IntentClass
	keywords []string
}{
	{IntentMemory, []string{"remember", "my name", "about me", "my favorite", "recall", "memory", "memories"}},
	{IntentWeb, []string{"search", "news", "current events", "latest", "what's happening", "headlines"}},
	{IntentFinance, []string{"stock", "share price", "market", "portfolio", "invest", "ticker"}},
	{IntentMath, []string{"calculate", "compute", "sum of", "what is", " + ", " - ", " * ", " / ", "math"}},
	{IntentImage, []string{"generate an image", "draw", "picture of", "create an image", "illustration"}},
	{IntentCode, []string{"run this code", "execute python", "python script", "run python"}},
	{IntentFile, []string{"read the file", "write to file", "list directory", "open file", "save file"}},
	{IntentSystem, []string{"shell command", "run command", "execute shell", "terminal"}},
	{IntentMedical, []string{"symptom", "diagnosis", "medical", "disease", "medication", "pubmed"}},
}

// Classify returns the intent class query routes to, per spec §4.10's
// table. Falls back to IntentFallback when nothing matches.
func Classify(query string) IntentClass {
	lower := strings.ToLower(query)
	for _, row := range intentKeywords {
		for _, kw := range row.keywords {
			if strings.Contains(lower, kw) {
				return row.class
			}
		}
	}
	return IntentFallback
}

// Member is one specialist: an independent C9 loop with a pinned tool
// subset.
type Member struct {
	Class IntentClass
	Loop  *agentloop.Loop
}

// Coordinator routes one query to exactly one Member and returns that
// member's result unchanged, per spec §4.10's delegation rule.
type Coordinator struct {
	members map[IntentClass]*agentloop.Loop
	// fallback is used when Classify finds no matching class, or when
	// the classified class has no registered member.
	fallback *agentloop.Loop
}

// New constructs a Coordinator. fallback is consulted when no member
// is registered for the classified intent.
func New(fallback *agentloop.Loop) *Coordinator {
	return &Coordinator{
		members:  make(map[IntentClass]*agentloop.Loop),
		fallback: fallback,
	}
}

// Register pins loop as the specialist for class.
func (c *Coordinator) Register(class IntentClass, loop *agentloop.Loop) {
	c.members[class] = loop
}

// Run classifies query, dispatches to exactly one specialist, and
// returns its result unmodified, per spec §4.10's "coordinator does not
// interpret specialist results" rule.
func (c *Coordinator) Run(ctx context.Context, query string) (agentloop.Result, IntentClass, error) {
	ctx, span := tracer.Start(ctx, "team.Run")
	defer span.End()

	class := Classify(query)
	span.SetAttributes(attribute.String("team.intent_class", string(class)))

	member, ok := c.members[class]
	if !ok {
		member = c.fallback
	}
	if member == nil {
		return agentloop.Result{}, class, apperr.New(apperr.KindInvalidInput, "no specialist registered for intent: "+string(class))
	}

	result, err := member.Run(ctx, query)
	if err != nil {
		span.RecordError(err)
		return agentloop.Result{}, class, err
	}
	return result, class, nil
}

// RunSingle bypasses Classify and runs query directly against the
// fallback loop, for agent_mode=single callers that want one agent
// rather than team routing.
func (c *Coordinator) RunSingle(ctx context.Context, query string) (agentloop.Result, error) {
	ctx, span := tracer.Start(ctx, "team.RunSingle")
	defer span.End()

	if c.fallback == nil {
		return agentloop.Result{}, apperr.New(apperr.KindInvalidInput, "no fallback agent configured")
	}
	result, err := c.fallback.Run(ctx, query)
	if err != nil {
		span.RecordError(err)
		return agentloop.Result{}, err
	}
	return result, nil
}
