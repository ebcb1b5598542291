// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coordinator

import (
	"regexp"
	"strings"
)

var (
	reIAm   = regexp.MustCompile(`(?i)\bI am\b`)
	reIHave = regexp.MustCompile(`(?i)\bI have\b`)
	reIM    = regexp.MustCompile(`(?i)\bI'm\b`)
	reMyPos = regexp.MustCompile(`(?i)\bMy (\w+)\b`)
)

// restate converts a first-person statement into a third-person statement
// about userID, per spec §4.5: "I am X" -> "<user_id> is X", "My Y is Z"
// -> "<user_id>'s Y is Z", "I have ..." -> "<user_id> has ...". All other
// content is preserved; this is intentionally a small set of textual
// substitutions, not a language model call — spec.md specifies the exact
// transformation rules, leaving no room for a heavier NLP dependency to
// add value here.
func restate(text, userID string) string {
	out := text
	out = reIAm.ReplaceAllString(out, userID+" is")
	out = reIM.ReplaceAllString(out, userID+" is")
	out = reIHave.ReplaceAllString(out, userID+" has")
	out = reMyPos.ReplaceAllString(out, userID+"'s $1")
	return strings.TrimSpace(out)
}
