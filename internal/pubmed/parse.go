// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperscout/internal/classify"
	"github.com/pdiddy/paperscout/pkg/types"
)

const (
	noTitlePlaceholder   = "(no title)"
	anonymousPlaceholder = "(anonymous)"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	yearRe  = regexp.MustCompile(`\b\d{4}\b`)
)

// efetch XML structures. The raw tree never leaves this file: articles are
// mapped into types.Paper before anything else sees them.
type articleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation medlineCitation `xml:"MedlineCitation"`
	Data     pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID    string      `xml:"PMID"`
	Article articleNode `xml:"Article"`
}

type articleNode struct {
	Title         string       `xml:"ArticleTitle"`
	Journal       journalNode  `xml:"Journal"`
	AbstractTexts []string     `xml:"Abstract>AbstractText"`
	Authors       []authorNode `xml:"AuthorList>Author"`
}

type journalNode struct {
	Title   string  `xml:"Title"`
	PubDate pubDate `xml:"JournalIssue>PubDate"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type authorNode struct {
	ForeName     string   `xml:"ForeName"`
	LastName     string   `xml:"LastName"`
	Affiliations []string `xml:"AffiliationInfo>Affiliation"`
}

type pubmedData struct {
	ArticleIDs []articleID `xml:"ArticleIdList>ArticleId"`
	References []struct{}  `xml:"ReferenceList>Reference"`
}

type articleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// parseArticleSet decodes an efetch response body and maps every article
// into a Paper. Articles without a PMID are reported to w and skipped; a
// malformed document is the only error condition.
func parseArticleSet(r io.Reader, now func() time.Time, w io.Writer) ([]types.Paper, error) {
	var set articleSet
	if err := xml.NewDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("decoding article set: %w", err)
	}

	var papers []types.Paper
	for _, a := range set.Articles {
		paper, ok := buildPaper(a, now)
		if !ok {
			fmt.Fprintln(w, "warning: skipping article without a PMID")
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// buildPaper maps one decoded article into a Paper. ok is false when the
// record carries no PMID, which is a normal skip and never an error.
func buildPaper(a pubmedArticle, now func() time.Time) (types.Paper, bool) {
	pmid := strings.TrimSpace(a.Citation.PMID)
	if pmid == "" {
		return types.Paper{}, false
	}

	art := a.Citation.Article

	title := strings.TrimSpace(art.Title)
	if title == "" {
		title = noTitlePlaceholder
	}

	var paragraphs []string
	for _, text := range art.AbstractTexts {
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	var doi string
	for _, id := range a.Data.ArticleIDs {
		if id.IDType == "doi" {
			doi = strings.TrimSpace(id.Value)
			break
		}
	}

	authors := make([]types.Author, 0, len(art.Authors))
	for _, node := range art.Authors {
		authors = append(authors, buildAuthor(node))
	}

	return types.Paper{
		PMID:            pmid,
		Title:           title,
		PublicationDate: resolveDate(art.Journal.PubDate, now),
		Authors:         authors,
		Abstract:        strings.Join(paragraphs, "\n"),
		DOI:             doi,
		JournalTitle:    strings.TrimSpace(art.Journal.Title),
		ReferenceCount:  len(a.Data.References),
	}, true
}

func buildAuthor(node authorNode) types.Author {
	var parts []string
	for _, p := range []string{node.ForeName, node.LastName} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	name := strings.Join(parts, " ")
	if name == "" {
		name = anonymousPlaceholder
	}

	var affiliation string
	if len(node.Affiliations) > 0 {
		affiliation = strings.TrimSpace(node.Affiliations[0])
	}

	return types.Author{
		Name:            name,
		Affiliation:     affiliation,
		Email:           emailRe.FindString(affiliation),
		AffiliationType: classify.Affiliation(affiliation),
	}
}

// resolveDate turns a partial PubDate into a concrete date.
//
// Order: a parseable Year wins, with Month defaulting to January and Day
// to 1, falling back to January 1 of that year when the triple is not a
// real calendar date. Otherwise the first 4-digit run of MedlineDate is
// used as a year. Otherwise the current date.
func resolveDate(pd pubDate, now func() time.Time) time.Time {
	if y := strings.TrimSpace(pd.Year); y != "" {
		if year, err := strconv.Atoi(y); err == nil {
			return resolveYearDate(year, pd.Month, pd.Day)
		}
	}

	if m := yearRe.FindString(pd.MedlineDate); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	t := now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func resolveYearDate(year int, monthStr, dayStr string) time.Time {
	janFirst := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	month := monthNumber(monthStr)

	day := 1
	if d := strings.TrimSpace(dayStr); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			return janFirst
		}
		day = n
	}

	// time.Date normalizes out-of-range values (Feb 31 → Mar 3), so an
	// altered triple means the source date was not a real calendar date.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return janFirst
	}
	return t
}

var monthAbbrevs = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// monthNumber accepts either a numeric month, clamped into [1,12], or a
// 3-letter English abbreviation matched case-insensitively. Anything
// unrecognized (including an absent month) is January.
func monthNumber(s string) time.Month {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.January
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 {
			return time.January
		}
		if n > 12 {
			return time.December
		}
		return time.Month(n)
	}
	key := strings.ToLower(s)
	if len(key) > 3 {
		key = key[:3]
	}
	if m, ok := monthAbbrevs[key]; ok {
		return m
	}
	return time.January
}
