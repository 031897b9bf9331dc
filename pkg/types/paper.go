// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for paperscout.
// Paper and Author are built once by the fetch stage and read-only
// afterwards; the derived accessors recompute on every call.
package types

import (
	"sort"
	"strings"
	"time"
)

// AffiliationType is the coarse classification of an author's affiliation.
type AffiliationType string

const (
	// Academic covers universities, hospitals, institutes and the like.
	Academic AffiliationType = "academic"

	// NonAcademic covers commercial entities (pharma, biotech, Inc/Ltd/GmbH).
	NonAcademic AffiliationType = "non_academic"

	// Unknown is used when the affiliation is absent or matches no keyword.
	Unknown AffiliationType = "unknown"
)

// Author is one entry of a paper's author list. Authors exist only inside
// their Paper; the classification is assigned at parse time and never
// recomputed.
type Author struct {
	// Name is "ForeName LastName", or "(anonymous)" when both are empty.
	Name string `json:"name" yaml:"name"`

	// Affiliation is the first raw affiliation text, if any.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`

	// Email is the first address found inside the affiliation text, if any.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// AffiliationType is the keyword classification of Affiliation.
	AffiliationType AffiliationType `json:"affiliation_type" yaml:"affiliation_type"`
}

// IsAcademic reports whether the author's affiliation classified as academic.
func (a Author) IsAcademic() bool { return a.AffiliationType == Academic }

// IsNonAcademic reports whether the author's affiliation classified as
// industry/commercial.
func (a Author) IsNonAcademic() bool { return a.AffiliationType == NonAcademic }

// IsUnknown reports whether the author's affiliation could not be classified.
func (a Author) IsUnknown() bool { return a.AffiliationType == Unknown }

// Paper holds the metadata of one PubMed article.
type Paper struct {
	// PMID is the PubMed identifier. Always non-empty; records without
	// one are skipped at parse time.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title, or "(no title)" when absent.
	Title string `json:"title" yaml:"title"`

	// PublicationDate is always a concrete date; partial source data is
	// resolved by the fetch stage's fallback rules.
	PublicationDate time.Time `json:"publication_date" yaml:"publication_date"`

	// Authors lists the authors in source order. May be empty.
	Authors []Author `json:"authors" yaml:"authors"`

	// Abstract is the abstract paragraphs joined by newlines, if any.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// DOI is the article's DOI, if the source carried one.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// JournalTitle is the journal name, if any.
	JournalTitle string `json:"journal_title,omitempty" yaml:"journal_title,omitempty"`

	// ReferenceCount is the number of entries in the reference list.
	ReferenceCount int `json:"reference_count" yaml:"reference_count"`
}

// AcademicAuthors returns the authors classified as academic.
func (p Paper) AcademicAuthors() []Author {
	return p.filterAuthors(Author.IsAcademic)
}

// NonAcademicAuthors returns the authors classified as industry/commercial.
func (p Paper) NonAcademicAuthors() []Author {
	return p.filterAuthors(Author.IsNonAcademic)
}

// UnknownAuthors returns the authors whose affiliation did not classify.
func (p Paper) UnknownAuthors() []Author {
	return p.filterAuthors(Author.IsUnknown)
}

func (p Paper) filterAuthors(keep func(Author) bool) []Author {
	var out []Author
	for _, a := range p.Authors {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// CompanyAffiliations returns the sorted, de-duplicated affiliation strings
// of the non-academic authors.
func (p Paper) CompanyAffiliations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range p.NonAcademicAuthors() {
		if a.Affiliation == "" || seen[a.Affiliation] {
			continue
		}
		seen[a.Affiliation] = true
		out = append(out, a.Affiliation)
	}
	sort.Strings(out)
	return out
}

// CorrespondingEmail returns the first email encountered across all authors,
// or "" when no author carries one.
func (p Paper) CorrespondingEmail() string {
	for _, a := range p.Authors {
		if a.Email != "" {
			return a.Email
		}
	}
	return ""
}

// FormattedAbstract returns the abstract with all whitespace runs collapsed
// to single spaces.
func (p Paper) FormattedAbstract() string {
	return strings.Join(strings.Fields(p.Abstract), " ")
}

// URL returns the canonical public PubMed page for the article.
func (p Paper) URL() string {
	return "https://pubmed.ncbi.nlm.nih.gov/" + p.PMID + "/"
}
