// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/paperscout/pkg/types"
)

// testConfig carries an API key so the limiter runs at the keyed rate and
// tests stay fast.
func testConfig() types.PubMedConfig {
	return types.PubMedConfig{
		APIKey: "test-key",
	}
}

// eutilsServer fakes the two E-utilities endpoints. It records every
// efetch id list in order.
type eutilsServer struct {
	*httptest.Server

	mu           sync.Mutex
	searchCalls  int
	fetchBatches [][]string

	searchBody   string
	searchStatus int

	// failBatch makes the Nth efetch call (1-based) return HTTP 500.
	failBatch int
}

func newEutilsServer(t *testing.T, searchStatus int, searchBody string, failBatch int) *eutilsServer {
	t.Helper()
	s := &eutilsServer{
		searchBody:   searchBody,
		searchStatus: searchStatus,
		failBatch:    failBatch,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.searchCalls++
		s.mu.Unlock()
		w.WriteHeader(s.searchStatus)
		fmt.Fprint(w, s.searchBody)
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		s.mu.Lock()
		s.fetchBatches = append(s.fetchBatches, ids)
		n := len(s.fetchBatches)
		s.mu.Unlock()

		if s.failBatch > 0 && n == s.failBatch {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, articleSetXML(ids))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// articleSetXML synthesizes one minimal article per id.
func articleSetXML(pmids []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" ?><PubmedArticleSet>`)
	for _, id := range pmids {
		fmt.Fprintf(&b, `<PubmedArticle><MedlineCitation><PMID>%s</PMID>`+
			`<Article><ArticleTitle>Paper %s</ArticleTitle></Article>`+
			`</MedlineCitation></PubmedArticle>`, id, id)
	}
	b.WriteString(`</PubmedArticleSet>`)
	return b.String()
}

func searchJSON(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf(`{"esearchresult": {"idlist": [%s]}}`, strings.Join(quoted, ","))
}

func idRange(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", 1000+i)
	}
	return ids
}

// withServer points the client at the fake server for the test's duration.
func withServer(t *testing.T, s *eutilsServer, cfg types.PubMedConfig) *Client {
	t.Helper()
	orig := apiBase
	apiBase = s.URL
	t.Cleanup(func() { apiBase = orig })

	c := NewClient(cfg)
	c.now = fixedNow
	t.Cleanup(c.Close)
	return c
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newEutilsServer(t, http.StatusOK, searchJSON(nil), 0)
	c := withServer(t, s, testConfig())

	for _, query := range []string{"", "   ", "\t\n"} {
		_, err := c.Search(context.Background(), query, &bytes.Buffer{})
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Search(%q) error = %v, want ErrEmptyQuery", query, err)
		}
	}
	if s.searchCalls != 0 || len(s.fetchBatches) != 0 {
		t.Errorf("empty query reached the network: %d search, %d fetch calls",
			s.searchCalls, len(s.fetchBatches))
	}
}

func TestSearchNoResults(t *testing.T) {
	s := newEutilsServer(t, http.StatusOK, searchJSON(nil), 0)
	c := withServer(t, s, testConfig())

	papers, err := c.Search(context.Background(), "unmatchable", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("got %d papers, want 0", len(papers))
	}
	if len(s.fetchBatches) != 0 {
		t.Errorf("efetch called %d times for an empty id list", len(s.fetchBatches))
	}
}

func TestSearchHappyPath(t *testing.T) {
	s := newEutilsServer(t, http.StatusOK, searchJSON([]string{"111", "222"}), 0)
	c := withServer(t, s, testConfig())

	papers, err := c.Search(context.Background(), "widgets", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("got %d papers, want 2", len(papers))
	}
	if papers[0].PMID != "111" || papers[1].PMID != "222" {
		t.Errorf("paper order = %s, %s; want 111, 222", papers[0].PMID, papers[1].PMID)
	}
	if papers[0].Title != "Paper 111" {
		t.Errorf("Title = %q", papers[0].Title)
	}
}

func TestSearchBatchPartition(t *testing.T) {
	ids := idRange(450)
	s := newEutilsServer(t, http.StatusOK, searchJSON(ids), 0)
	c := withServer(t, s, testConfig())

	papers, err := c.Search(context.Background(), "widgets", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(papers) != 450 {
		t.Errorf("got %d papers, want 450", len(papers))
	}

	wantSizes := []int{200, 200, 50}
	if len(s.fetchBatches) != len(wantSizes) {
		t.Fatalf("issued %d batches, want %d", len(s.fetchBatches), len(wantSizes))
	}
	for i, want := range wantSizes {
		if got := len(s.fetchBatches[i]); got != want {
			t.Errorf("batch %d size = %d, want %d", i+1, got, want)
		}
	}
	// Order must be preserved across batch boundaries.
	if s.fetchBatches[1][0] != ids[200] {
		t.Errorf("batch 2 starts at %s, want %s", s.fetchBatches[1][0], ids[200])
	}
	if papers[449].PMID != ids[449] {
		t.Errorf("last paper = %s, want %s", papers[449].PMID, ids[449])
	}
}

func TestSearchBatchFaultIsolation(t *testing.T) {
	ids := idRange(450)
	s := newEutilsServer(t, http.StatusOK, searchJSON(ids), 2)
	c := withServer(t, s, testConfig())

	var warnings bytes.Buffer
	papers, err := c.Search(context.Background(), "widgets", &warnings)
	if err != nil {
		t.Fatalf("Search() error = %v, want nil despite failed batch", err)
	}
	if len(papers) != 250 {
		t.Fatalf("got %d papers, want 250 (batches 1 and 3 only)", len(papers))
	}
	if papers[0].PMID != ids[0] {
		t.Errorf("first paper = %s, want %s", papers[0].PMID, ids[0])
	}
	// Batch 2's range is absent; batch 3 follows batch 1 in order.
	if papers[200].PMID != ids[400] {
		t.Errorf("paper after batch 1 = %s, want %s", papers[200].PMID, ids[400])
	}
	if !strings.Contains(warnings.String(), "batch 2 failed") {
		t.Errorf("warnings = %q, want a batch 2 failure line", warnings.String())
	}
}

func TestSearchReportsProgress(t *testing.T) {
	s := newEutilsServer(t, http.StatusOK, searchJSON(idRange(450)), 0)
	c := withServer(t, s, testConfig())

	var progress bytes.Buffer
	if _, err := c.Search(context.Background(), "widgets", &progress); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, line := range []string{"fetched 200/450", "fetched 400/450", "fetched 450/450"} {
		if !strings.Contains(progress.String(), line) {
			t.Errorf("progress output missing %q", line)
		}
	}
}

func TestEsearchHTTPError(t *testing.T) {
	s := newEutilsServer(t, http.StatusInternalServerError, "boom", 0)
	c := withServer(t, s, testConfig())

	_, err := c.Search(context.Background(), "widgets", &bytes.Buffer{})
	var re *RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RetrievalError", err)
	}
	if re.Kind != KindHTTPStatus {
		t.Errorf("Kind = %v, want %v", re.Kind, KindHTTPStatus)
	}
}

func TestEsearchMissingResultField(t *testing.T) {
	s := newEutilsServer(t, http.StatusOK, `{"header": {}}`, 0)
	c := withServer(t, s, testConfig())

	_, err := c.Search(context.Background(), "widgets", &bytes.Buffer{})
	var re *RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RetrievalError", err)
	}
	if re.Kind != KindBadResponse {
		t.Errorf("Kind = %v, want %v", re.Kind, KindBadResponse)
	}
}

func TestEsearchMalformedJSON(t *testing.T) {
	s := newEutilsServer(t, http.StatusOK, `{"esearchresult": `, 0)
	c := withServer(t, s, testConfig())

	_, err := c.Search(context.Background(), "widgets", &bytes.Buffer{})
	var re *RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RetrievalError", err)
	}
	if re.Kind != KindBadResponse {
		t.Errorf("Kind = %v, want %v", re.Kind, KindBadResponse)
	}
}

func TestEsearchInvalidTerm(t *testing.T) {
	body := `{"esearchresult": {"idlist": [], "errorlist": {"phrasesnotfound": ["xyzzy[bad]"]}}}`
	s := newEutilsServer(t, http.StatusOK, body, 0)
	c := withServer(t, s, testConfig())

	_, err := c.Search(context.Background(), "xyzzy[bad]", &bytes.Buffer{})
	var re *RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RetrievalError", err)
	}
	if re.Kind != KindInvalidTerm {
		t.Errorf("Kind = %v, want %v", re.Kind, KindInvalidTerm)
	}
	if !strings.Contains(re.Error(), "xyzzy[bad]") {
		t.Errorf("error message %q does not name the bad phrase", re.Error())
	}
}

func TestEsearchWarningsNonFatal(t *testing.T) {
	body := `{"esearchresult": {"idlist": ["111"], "warninglist": {"phrasesnotfound": ["fuzzy"], "outputmessages": ["wildcard expansion"]}}}`
	s := newEutilsServer(t, http.StatusOK, body, 0)
	c := withServer(t, s, testConfig())

	papers, err := c.Search(context.Background(), "fuzzy widgets", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Search() error = %v, want warnings ignored", err)
	}
	if len(papers) != 1 {
		t.Errorf("got %d papers, want 1", len(papers))
	}
}

func TestEsearchTransportError(t *testing.T) {
	s := newEutilsServer(t, http.StatusOK, searchJSON(nil), 0)
	c := withServer(t, s, testConfig())
	s.Close()

	_, err := c.Search(context.Background(), "widgets", &bytes.Buffer{})
	var re *RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want *RetrievalError", err)
	}
	if re.Kind != KindTransport {
		t.Errorf("Kind = %v, want %v", re.Kind, KindTransport)
	}
}

func TestSearchSendsAPIKey(t *testing.T) {
	var gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("api_key")
		fmt.Fprint(w, searchJSON(nil))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	orig := apiBase
	apiBase = ts.URL
	t.Cleanup(func() { apiBase = orig })

	c := NewClient(types.PubMedConfig{APIKey: "sekrit"})
	t.Cleanup(c.Close)

	if _, err := c.Search(context.Background(), "widgets", &bytes.Buffer{}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotKey != "sekrit" {
		t.Errorf("api_key param = %q, want sekrit", gotKey)
	}
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name  string
		count int
		size  int
		want  []int
	}{
		{"empty", 0, 200, nil},
		{"under one batch", 10, 200, []int{10}},
		{"exact batch", 200, 200, []int{200}},
		{"exact multiple", 400, 200, []int{200, 200}},
		{"remainder", 450, 200, []int{200, 200, 50}},
		{"size one", 3, 1, []int{1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := batches(idRange(tt.count), tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d batches, want %d", len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if len(got[i]) != want {
					t.Errorf("batch %d size = %d, want %d", i+1, len(got[i]), want)
				}
			}
		})
	}
}
