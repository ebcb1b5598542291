// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command persag is the operational shell around the personal agent
// runtime: a single `team` entry point that starts an interactive
// session (or answers one query and exits with -q).
package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFOSS/pkg/logging"
	"github.com/AleutianAI/AleutianFOSS/pkg/ux"
)

func main() {
	ux.InitPersonality()

	lvl := logging.LevelInfo
	if os.Getenv("PERSAG_DEBUG") != "" {
		lvl = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   lvl,
		LogDir:  "~/.persag/logs",
		Service: "persag",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("persag: %v", err)
	}
}
