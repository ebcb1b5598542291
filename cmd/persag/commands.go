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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	useRemoteFlag        bool
	singleAgentFlag      bool
	recreateFlag         bool
	instructionLevelFlag string
	oneShotQueryFlag     string

	rootCmd = &cobra.Command{
		Use:   "persag",
		Short: "Operational shell around the personal agent runtime",
	}

	teamCmd = &cobra.Command{
		Use:   "team",
		Short: "Start an interactive session, or answer one query with -q",
		RunE:  runTeam, // Defined in cmd_team.go
	}
)

func init() {
	teamCmd.Flags().BoolVar(&useRemoteFlag, "remote", false, "use remote LLM/graph endpoints instead of local ones")
	teamCmd.Flags().BoolVar(&singleAgentFlag, "single", false, "bypass team routing and use one specialist loop")
	teamCmd.Flags().BoolVar(&recreateFlag, "recreate", false, "discard the existing local memory store and start fresh")
	teamCmd.Flags().StringVar(&instructionLevelFlag, "instruction-level", "", "override the instruction level (MINIMAL, CONCISE, STANDARD, EXPLICIT, EXPERIMENTAL)")
	teamCmd.Flags().StringVarP(&oneShotQueryFlag, "query", "q", "", "answer one query and exit instead of starting a session")

	rootCmd.AddCommand(teamCmd)
}
