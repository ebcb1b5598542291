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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AleutianAI/AleutianFOSS/internal/clearing"
	"github.com/AleutianAI/AleutianFOSS/pkg/extensions"
	"github.com/AleutianAI/AleutianFOSS/pkg/ux"
)

// runSession implements spec §6's in-session command set: memories,
// analysis, stats, clear, delete memory <id>, delete topic <topic>,
// "! <text>" (immediate store), "? <topic>" (query by topic), quit.
// Anything else is treated as a free-form query routed through C10
// (or run directly against the fallback loop when single is true).
func runSession(ctx context.Context, rt *runtime, single bool) error {
	return runSessionIO(ctx, rt, single, os.Stdin, os.Stdout)
}

func runSessionIO(ctx context.Context, rt *runtime, single bool, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "persag ready (user=%s). Type 'quit' to exit.\n", rt.snap.UserID)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "quit":
			return nil
		case line == "memories":
			handleMemories(ctx, rt, out)
		case line == "analysis":
			handleAnalysis(ctx, rt, out)
		case line == "stats":
			handleStats(ctx, rt, out)
		case line == "clear":
			handleClear(ctx, rt, out)
		case strings.HasPrefix(line, "delete memory "):
			handleDeleteMemory(ctx, rt, strings.TrimPrefix(line, "delete memory "), out)
		case strings.HasPrefix(line, "delete topic "):
			handleDeleteTopic(ctx, rt, strings.TrimPrefix(line, "delete topic "), out)
		case strings.HasPrefix(line, "!"):
			handleImmediateStore(ctx, rt, strings.TrimSpace(strings.TrimPrefix(line, "!")), out)
		case strings.HasPrefix(line, "?"):
			handleTopicQuery(ctx, rt, strings.TrimSpace(strings.TrimPrefix(line, "?")), out)
		default:
			handleQuery(ctx, rt, single, line, out)
		}
	}
}

func handleMemories(ctx context.Context, rt *runtime, out io.Writer) {
	records, err := rt.memories.GetAllMemories(ctx, rt.snap.UserID)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no memories stored")
		return
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s [%s]: %s\n", r.ID, strings.Join(r.Topics, ","), r.Text)
	}
}

func handleAnalysis(ctx context.Context, rt *runtime, out io.Writer) {
	stats, err := rt.memories.GetMemoryStats(ctx, rt.snap.UserID)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "total memories: %d, most common topic: %s\n", stats.TotalMemories, stats.MostCommonTopic)
	for topic, count := range stats.TopicCounts {
		fmt.Fprintf(out, "  %s: %d\n", topic, count)
	}
}

func handleStats(ctx context.Context, rt *runtime, out io.Writer) {
	stats, err := rt.memories.GetMemoryStats(ctx, rt.snap.UserID)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "total=%d recent24h=%d\n", stats.TotalMemories, stats.Recent24h)
}

func handleClear(ctx context.Context, rt *runtime, out io.Writer) {
	result, err := rt.clearing.ClearAll(ctx, clearing.DefaultOptions())
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintln(out, result.Summary)
}

func handleDeleteMemory(ctx context.Context, rt *runtime, id string, out io.Writer) {
	id = strings.TrimSpace(id)
	result, err := rt.coord.DeleteMemory(ctx, id)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "local_ok=%t graph_ok=%t\n", result.Local.OK, result.Graph.OK)
}

func handleDeleteTopic(ctx context.Context, rt *runtime, topic string, out io.Writer) {
	topic = strings.TrimSpace(topic)
	results, err := rt.coord.DeleteByTopic(ctx, topic)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "deleted %d memories under topic %q\n", len(results), topic)
}

func handleImmediateStore(ctx context.Context, rt *runtime, text string, out io.Writer) {
	if text == "" {
		fmt.Fprintln(out, "usage: ! <text>")
		return
	}
	result, err := rt.coord.StoreUserMemory(ctx, text, nil)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if result.Duplicate {
		fmt.Fprintf(out, "duplicate, existing id: %s\n", result.MemoryID)
		return
	}
	fmt.Fprintf(out, "stored: %s\n", result.MemoryID)
}

func handleTopicQuery(ctx context.Context, rt *runtime, topic string, out io.Writer) {
	if topic == "" {
		fmt.Fprintln(out, "usage: ? <topic>")
		return
	}
	records, err := rt.memories.GetMemoriesByTopic(ctx, rt.snap.UserID, []string{topic})
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "no memories under topic %q\n", topic)
		return
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s: %s\n", r.ID, r.Text)
	}
}

// chatUIFor renders the query/response turn the way the interactive
// session presents it; tests and non-terminal invocations get plain
// text (PersonalityMachine), a real terminal gets the full treatment.
func chatUIFor(out io.Writer) ux.ChatUI {
	level := ux.PersonalityMachine
	if f, ok := out.(*os.File); ok && f == os.Stdout {
		level = ux.GetPersonality().Level
	}
	return ux.NewChatUIWithWriter(out, level)
}

func handleQuery(ctx context.Context, rt *runtime, single bool, query string, out io.Writer) {
	ui := chatUIFor(out)

	effective := query
	if rt.filter != nil {
		res, err := rt.filter.FilterInput(ctx, query)
		if err == nil && res != nil {
			if res.WasBlocked {
				ui.Error(fmt.Errorf("message blocked: %s", res.BlockReason))
				return
			}
			effective = res.Filtered
		}
	}

	var content string
	var runErr error
	if single {
		result, err := rt.coord10.RunSingle(ctx, effective)
		runErr = err
		if err == nil {
			content = result.FinalContent
		}
	} else {
		result, _, err := rt.coord10.Run(ctx, effective)
		runErr = err
		if err == nil {
			content = result.FinalContent
		}
	}

	if rt.audit != nil {
		outcome := "success"
		if runErr != nil {
			outcome = "error"
		}
		_ = rt.audit.Log(ctx, extensions.AuditEvent{
			EventType:    "chat.query",
			UserID:       rt.snap.UserID,
			Action:       "send",
			ResourceType: "message",
			Outcome:      outcome,
		})
	}

	if runErr != nil {
		ui.Error(runErr)
		return
	}
	ui.Response(content)
}
