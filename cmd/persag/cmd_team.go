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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFOSS/internal/config"
)

func runTeam(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, useRemoteFlag, recreateFlag)
	if err != nil {
		return err
	}
	defer rt.close()

	if instructionLevelFlag != "" {
		lvl := config.InstructionLevel(instructionLevelFlag)
		if !lvl.IsValid() {
			return fmt.Errorf("invalid --instruction-level: %s", instructionLevelFlag)
		}
		if err := rt.registry.SetInstructionLevel(lvl); err != nil {
			return err
		}
	}

	if oneShotQueryFlag != "" {
		var content string
		if singleAgentFlag {
			result, err := rt.coord10.RunSingle(ctx, oneShotQueryFlag)
			if err != nil {
				return err
			}
			content = result.FinalContent
		} else {
			result, _, err := rt.coord10.Run(ctx, oneShotQueryFlag)
			if err != nil {
				return err
			}
			content = result.FinalContent
		}
		fmt.Println(content)
		return nil
	}

	return runSession(ctx, rt, singleAgentFlag)
}
