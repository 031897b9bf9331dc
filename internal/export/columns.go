// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export renders paper lists as console tables, CSV files, and
// YAML result files with a configurable column selection.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/paperscout/pkg/types"
)

// Column headers.
const (
	ColPMID        = "PubmedID"
	ColTitle       = "Title"
	ColDate        = "Publication Date"
	ColNonAcademic = "Non-academic Author(s)"
	ColAcademic    = "Academic Author(s)"
	ColUnknown     = "Unknown Author(s)"
	ColCompanies   = "Company Affiliation(s)"
	ColEmail       = "Corresponding Email"
	ColDOI         = "DOI"
	ColJournal     = "Journal"
	ColRefCount    = "Reference Count"
	ColURL         = "PubMed URL"
	ColAbstract    = "Abstract"
)

// allHeaders lists every selectable column except Abstract, in output order.
var allHeaders = []string{
	ColPMID, ColTitle, ColDate, ColNonAcademic, ColAcademic, ColUnknown,
	ColCompanies, ColEmail, ColDOI, ColJournal, ColRefCount, ColURL,
}

var defaultHeaders = []string{
	ColPMID, ColTitle, ColDate, ColNonAcademic, ColCompanies, ColEmail,
}

var minimalHeaders = []string{ColPMID, ColTitle, ColCompanies}

// ColumnSet names a predefined header selection.
type ColumnSet string

const (
	SetDefault ColumnSet = "default"
	SetAll     ColumnSet = "all"
	SetMinimal ColumnSet = "minimal"
)

// Headers resolves the output header list. A non-empty custom list
// (comma-separated) overrides the column set; unknown names in it are an
// error. includeAbstract appends the Abstract column to predefined sets
// and legalizes it in custom lists.
func Headers(set ColumnSet, custom string, includeAbstract bool) ([]string, error) {
	if custom != "" {
		return customHeaders(custom, includeAbstract)
	}

	var headers []string
	switch set {
	case SetAll:
		headers = append(headers, allHeaders...)
	case SetMinimal:
		headers = append(headers, minimalHeaders...)
	case SetDefault, "":
		headers = append(headers, defaultHeaders...)
	default:
		return nil, fmt.Errorf("unknown column set %q (valid: default, all, minimal)", set)
	}

	if includeAbstract {
		headers = append(headers, ColAbstract)
	}
	return headers, nil
}

func customHeaders(custom string, includeAbstract bool) ([]string, error) {
	valid := make(map[string]bool, len(allHeaders)+1)
	for _, h := range allHeaders {
		valid[h] = true
	}
	if includeAbstract {
		valid[ColAbstract] = true
	}

	var headers, invalid []string
	for _, col := range strings.Split(custom, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		if !valid[col] {
			invalid = append(invalid, col)
			continue
		}
		headers = append(headers, col)
	}
	if len(invalid) > 0 {
		names := make([]string, 0, len(valid))
		for h := range valid {
			names = append(names, h)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("invalid column names %v (valid: %s)", invalid, strings.Join(names, ", "))
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("custom column list is empty")
	}
	return headers, nil
}

// Row maps a paper onto the given headers.
func Row(p types.Paper, headers []string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = cell(p, h)
	}
	return row
}

func cell(p types.Paper, header string) string {
	switch header {
	case ColPMID:
		return p.PMID
	case ColTitle:
		return p.Title
	case ColDate:
		return p.PublicationDate.Format("2006-01-02")
	case ColNonAcademic:
		return joinNames(p.NonAcademicAuthors())
	case ColAcademic:
		return joinNames(p.AcademicAuthors())
	case ColUnknown:
		return joinNames(p.UnknownAuthors())
	case ColCompanies:
		return strings.Join(p.CompanyAffiliations(), "; ")
	case ColEmail:
		return p.CorrespondingEmail()
	case ColDOI:
		return p.DOI
	case ColJournal:
		return p.JournalTitle
	case ColRefCount:
		return fmt.Sprintf("%d", p.ReferenceCount)
	case ColURL:
		return p.URL()
	case ColAbstract:
		return p.FormattedAbstract()
	}
	return ""
}

func joinNames(authors []types.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Name
	}
	return strings.Join(names, "; ")
}
