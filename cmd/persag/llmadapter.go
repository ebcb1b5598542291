// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"strings"

	"github.com/AleutianAI/AleutianFOSS/internal/agentloop"
	"github.com/AleutianAI/AleutianFOSS/services/llm"
	"github.com/AleutianAI/AleutianFOSS/services/orchestrator/datatypes"
)

// llmStreamAdapter adapts an llm.LLMClient's callback-based ChatStream
// into agentloop.StreamAdapter. The LLMClient interface carries no
// native tool-call or structured-completion signal, only token,
// thinking, and error events, so every token is surfaced as a content
// delta and a status_change(completed) event is synthesized once
// ChatStream returns without error. Tool calls never originate from
// this adapter; the agent loop's own prompt-embedded tool instructions
// and the tool registry's dispatch are what drive tool use.
type llmStreamAdapter struct {
	client llm.LLMClient
	params llm.GenerationParams
}

func newLLMStreamAdapter(client llm.LLMClient, params llm.GenerationParams) *llmStreamAdapter {
	return &llmStreamAdapter{client: client, params: params}
}

func (a *llmStreamAdapter) Stream(ctx context.Context, req agentloop.Request, cb func(agentloop.RunEvent) error) error {
	messages := toDatatypesMessages(req)

	var content strings.Builder
	var cbErr error

	streamErr := a.client.ChatStream(ctx, messages, a.params, func(event llm.StreamEvent) error {
		switch event.Type {
		case llm.StreamEventToken:
			content.WriteString(event.Content)
			cbErr = cb(agentloop.RunEvent{Type: agentloop.EventContentDelta, Content: event.Content})
			return cbErr
		case llm.StreamEventThinking:
			return nil
		case llm.StreamEventError:
			return apperrFromStream(event.Error)
		}
		return nil
	})
	if streamErr != nil {
		return streamErr
	}
	if cbErr != nil {
		return cbErr
	}

	return cb(agentloop.RunEvent{
		Type:         agentloop.EventStatusChange,
		Status:       agentloop.StatusCompleted,
		FinalContent: content.String(),
	})
}

// toDatatypesMessages flattens a Request's system instructions and
// history into the []datatypes.Message shape ChatStream expects, with
// the current query appended as the final user turn.
func toDatatypesMessages(req agentloop.Request) []datatypes.Message {
	messages := make([]datatypes.Message, 0, len(req.History)+2)
	if req.SystemInstructions != "" {
		messages = append(messages, datatypes.Message{Role: "system", Content: req.SystemInstructions})
	}
	for _, m := range req.History {
		messages = append(messages, datatypes.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, datatypes.Message{Role: "user", Content: req.Query})
	return messages
}

func apperrFromStream(msg string) error {
	return &streamError{msg: msg}
}

type streamError struct{ msg string }

func (e *streamError) Error() string { return e.msg }
