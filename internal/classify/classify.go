// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify maps free-text affiliation strings to a coarse
// academic / non-academic / unknown classification using keyword
// heuristics. Matching is case-insensitive and whole-word.
package classify

import (
	"regexp"
	"strings"

	"github.com/pdiddy/paperscout/pkg/types"
)

// nonAcademicKeywords mark commercial, for-profit entities. They are
// checked before the academic set: "Acme Therapeutics, Harvard University
// spin-off" still counts as industry.
var nonAcademicKeywords = []string{
	"pharmaceuticals",
	"biotech",
	"therapeutics",
	"diagnostics",
	"ventures",
	"llc",
	"inc",
	"ltd",
	"corp",
	"corporation",
	"gmbh",
	"ag",
}

// academicKeywords mark universities, hospitals, and research institutions.
// English-centric apart from two common university spellings; anything
// else classifies as unknown.
var academicKeywords = []string{
	"university",
	"universität",
	"universidade",
	"institute",
	"hospital",
	"school of medicine",
	"medical center",
	"research center",
	"laboratory",
	"college",
	"academy",
	"foundation",
}

var (
	nonAcademicRe = keywordPattern(nonAcademicKeywords)
	academicRe    = keywordPattern(academicKeywords)
)

// keywordPattern compiles an alternation of keywords bounded by non-word
// runes. Go's \b is ASCII-only, which would break "universität", so the
// boundaries are spelled out with unicode classes.
func keywordPattern(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(?:` + strings.Join(quoted, "|") + `)(?:[^\pL\pN]|$)`)
}

// Affiliation classifies a raw affiliation string. An empty string
// classifies as Unknown. Non-academic keywords take precedence over
// academic ones when both appear in the same text.
func Affiliation(text string) types.AffiliationType {
	if text == "" {
		return types.Unknown
	}
	if nonAcademicRe.MatchString(text) {
		return types.NonAcademic
	}
	if academicRe.MatchString(text) {
		return types.Academic
	}
	return types.Unknown
}
