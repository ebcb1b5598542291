// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/AleutianAI/AleutianFOSS/internal/apperr"
)

//go:embed envtemplates/*.env
var defaultEnvTemplates embed.FS

// seedDefaultEnvTemplates copies the embedded default per-service env-file
// templates into <PERSAG_HOME>/envfiles/ on first run, supplementing spec
// §4.2 with the behavior original_source/config/user_id_mgr.py performs
// ("seeds default service env-file templates copied from a source
// location"). These become the files internal/dockersync reads and
// rewrites for C7's USER_ID consistency checks.
func seedDefaultEnvTemplates(home string) error {
	destDir := filepath.Join(home, "envfiles")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to create envfiles directory", err)
	}
	entries, err := defaultEnvTemplates.ReadDir("envtemplates")
	if err != nil {
		return apperr.Wrap(apperr.KindFatal, "failed to read embedded env templates", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultEnvTemplates.ReadFile(filepath.Join("envtemplates", entry.Name()))
		if err != nil {
			return apperr.Wrap(apperr.KindFatal, "failed to read embedded env template "+entry.Name(), err)
		}
		destPath := filepath.Join(destDir, entry.Name())
		if _, statErr := os.Stat(destPath); statErr == nil {
			continue // never overwrite an existing, possibly user-edited, env file
		}
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return apperr.Wrap(apperr.KindFatal, "failed to write env template "+entry.Name(), err)
		}
	}
	return nil
}
