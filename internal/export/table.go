// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/paperscout/pkg/types"
)

// widths for table cells, keyed by header. Unlisted headers get the default.
var columnWidths = map[string]int{
	ColPMID:      10,
	ColTitle:     50,
	ColDate:      12,
	ColCompanies: 40,
	ColAbstract:  50,
	ColRefCount:  6,
	ColURL:       42,
}

const defaultColumnWidth = 24

// FormatTable writes papers as a fixed-width table to w.
func FormatTable(papers []types.Paper, headers []string, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	total := 0
	for i, h := range headers {
		width := columnWidth(h)
		total += width
		if i > 0 {
			total += 2
		}
		fmt.Fprintf(w, "%-*s", width, truncate(h, width))
		if i < len(headers)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", total))

	for _, p := range papers {
		row := Row(p, headers)
		for i, c := range row {
			width := columnWidth(headers[i])
			fmt.Fprintf(w, "%-*s", width, truncate(c, width))
			if i < len(row)-1 {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\n%d papers\n", len(papers))
}

func columnWidth(header string) int {
	if w, ok := columnWidths[header]; ok {
		return w
	}
	return defaultColumnWidth
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
