// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agentloop

import (
	"strings"

	"github.com/AleutianAI/AleutianFOSS/internal/config"
)

// InstructionBuilder assembles the system instructions for one run, per
// spec §4.9 step 1's instruction_level selection. Sections layer up from
// MINIMAL through EXPERIMENTAL; STANDARD and above layer in the detailed
// memory/tool rules, and EXPLICIT/EXPERIMENTAL add the anti-hesitation
// directives.
type InstructionBuilder struct {
	UserID       string
	EnableMemory bool
	EnableMCP    bool
	ToolNames    []string
}

func (b InstructionBuilder) header() string {
	memoryStatus := "disabled"
	if b.EnableMemory {
		memoryStatus = "enabled"
	}
	mcpStatus := "disabled"
	if b.EnableMCP {
		mcpStatus = "enabled"
	}
	return "You are a personal AI assistant with built-in semantic memory.\n\n" +
		"## CURRENT CONFIGURATION\n" +
		"- Memory system: " + memoryStatus + "\n" +
		"- MCP servers: " + mcpStatus + "\n" +
		"- User ID: " + b.UserID
}

func (b InstructionBuilder) identityRules() string {
	return "## IDENTITY RULES\n" +
		"You are an AI assistant, not the user. You hold memories about '" + b.UserID +
		"' but never speak as them or claim their first-person identity."
}

func (b InstructionBuilder) concisePolicy() string {
	return "## MEMORY AND TOOLS\n" +
		"Use store_user_memory to save new facts, query_memory to retrieve them. " +
		"Check memory before answering questions about the user."
}

func (b InstructionBuilder) detailedMemoryRules() string {
	return "## MEMORY SYSTEM\n" +
		"When the user states a new fact about themselves, call store_user_memory " +
		"immediately rather than describing the tool. For broad requests like " +
		"\"what do you know about me\", call get_all_memories, not query_memory. " +
		"For specific questions, call query_memory with expanded keyword terms. " +
		"Always answer from retrieved memories in the second person."
}

func (b InstructionBuilder) detailedToolRules() string {
	return "## TOOL ROUTING\n" +
		"Route by intent: finance questions to finance tools, current events to " +
		"search tools, code to execution tools, file operations to filesystem " +
		"tools, personal facts to memory tools, general knowledge to " +
		"query_knowledge_base. Call the tool directly; do not narrate the choice."
}

func (b InstructionBuilder) antiHesitationRules() string {
	return "## ACT IMMEDIATELY\n" +
		"Do not deliberate about whether to call a tool. When a request matches a " +
		"tool's purpose, call it in the same turn rather than describing what you " +
		"would do."
}

func (b InstructionBuilder) toolList() string {
	if len(b.ToolNames) == 0 {
		return "## AVAILABLE TOOLS\n(none registered)"
	}
	return "## AVAILABLE TOOLS\n- " + strings.Join(b.ToolNames, "\n- ")
}

func (b InstructionBuilder) corePrinciples() string {
	return "## PRINCIPLES\n" +
		"Be genuinely helpful, remember what matters to the user, and use tools " +
		"rather than guessing when a tool can answer the question."
}

func (b InstructionBuilder) experimentalRules() string {
	return "## REASONING TRACE\n" +
		"Before your first tool call or response, state in one line which branch " +
		"of the tool routing table applies. This experimental level is for " +
		"diagnosing routing mistakes and may change without notice."
}

// Build assembles the complete system instructions for level.
func (b InstructionBuilder) Build(level config.InstructionLevel) string {
	var parts []string
	switch level {
	case config.InstructionMinimal:
		parts = []string{
			b.header(),
			"You are a helpful AI assistant. Use your tools to answer the user's request.",
			b.toolList(),
		}
	case config.InstructionConcise:
		parts = []string{
			b.header(),
			b.identityRules(),
			b.concisePolicy(),
			b.toolList(),
			b.corePrinciples(),
		}
	case config.InstructionExplicit:
		parts = []string{
			b.header(),
			b.identityRules(),
			b.detailedMemoryRules(),
			b.detailedToolRules(),
			b.antiHesitationRules(),
			b.toolList(),
			b.corePrinciples(),
		}
	case config.InstructionExperimental:
		parts = []string{
			b.header(),
			b.identityRules(),
			b.detailedMemoryRules(),
			b.detailedToolRules(),
			b.antiHesitationRules(),
			b.experimentalRules(),
			b.toolList(),
			b.corePrinciples(),
		}
	default: // config.InstructionStandard and unrecognized values
		parts = []string{
			b.header(),
			b.identityRules(),
			b.detailedMemoryRules(),
			b.detailedToolRules(),
			b.toolList(),
			b.corePrinciples(),
		}
	}
	return strings.Join(parts, "\n\n")
}
