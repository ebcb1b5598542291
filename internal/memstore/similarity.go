// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package memstore

import (
	"math"
	"strings"
)

// tokenize lower-cases and splits on non-alphanumeric runs. Intentionally
// simple: spec.md names only the *contract* of similarity search, not an
// algorithm, so this is not a gap to fill with a heavier dependency.
func tokenize(s string) map[string]float64 {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	counts := make(map[string]float64, len(fields))
	for _, f := range fields {
		counts[f]++
	}
	return counts
}

// cosineSimilarity returns the cosine similarity of two texts' token
// frequency vectors, in [0, 1].
func cosineSimilarity(a, b string) float64 {
	va, vb := tokenize(a), tokenize(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}
	var dot, na, nb float64
	for tok, freq := range va {
		na += freq * freq
		if bf, ok := vb[tok]; ok {
			dot += freq * bf
		}
	}
	for _, freq := range vb {
		nb += freq * freq
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// matchesTopics reports whether any of query's tokens textually appear in
// a record's topic list, used for the additive topic_boost in
// SearchMemories per spec §4.3.
func matchesTopics(query string, topics []string) bool {
	q := strings.ToLower(query)
	for _, topic := range topics {
		if strings.Contains(q, strings.ToLower(topic)) {
			return true
		}
	}
	return false
}
