// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed fetches article metadata from the NCBI E-utilities API.
// Retrieval is two-staged: esearch resolves a query to PMIDs, efetch
// pulls full records in fixed-size batches. A failed batch costs only its
// own papers; the search as a whole still succeeds.
package pubmed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/paperscout/internal/httputil"
	"github.com/pdiddy/paperscout/pkg/types"
)

// apiBase is the E-utilities base URL. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	defaultRetMax    = 10000
	defaultBatchSize = 200
	defaultTimeout   = 30 * time.Second

	// E-utilities allows 3 requests per second without an API key and 10
	// with one.
	anonymousRate = 3
	keyedRate     = 10

	maxConns     = 10
	maxIdleConns = 5
)

// ErrEmptyQuery is returned by Search for an empty or whitespace-only
// query, before any network activity.
var ErrEmptyQuery = errors.New("query is empty")

// ErrorKind distinguishes the cause of a retrieval failure.
type ErrorKind string

const (
	// KindTransport is a connectivity-level failure.
	KindTransport ErrorKind = "transport"

	// KindHTTPStatus is a non-2xx response.
	KindHTTPStatus ErrorKind = "http_status"

	// KindBadResponse is a response missing its expected shape.
	KindBadResponse ErrorKind = "bad_response"

	// KindInvalidTerm is an API-reported invalid search term.
	KindInvalidTerm ErrorKind = "invalid_term"
)

// RetrievalError is the failure signal of the identifier-resolution stage.
// Batch-stage faults never surface as errors; they degrade into warnings
// on the observability writer.
type RetrievalError struct {
	Kind ErrorKind
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("pubmed search (%s): %v", e.Kind, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func retrievalErr(kind ErrorKind, format string, args ...any) *RetrievalError {
	return &RetrievalError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Client talks to the E-utilities API. It owns a bounded connection pool
// for its lifetime; call Close when done. One logical search at a time
// per instance.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        types.PubMedConfig

	// now supplies the current time for the date-resolution fallback.
	// Tests substitute a fixed clock.
	now func() time.Time
}

// NewClient builds a Client from cfg, filling in defaults for zero values.
func NewClient(cfg types.PubMedConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RetMax <= 0 {
		cfg.RetMax = defaultRetMax
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "paperscout/0.1"
	}

	rps := rate.Limit(anonymousRate)
	if cfg.APIKey != "" {
		rps = keyedRate
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxConnsPerHost:     maxConns,
				MaxIdleConnsPerHost: maxIdleConns,
			},
		},
		limiter: rate.NewLimiter(rps, 1),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Search resolves query to PMIDs and fetches the matching articles in
// batches, in PMID order. Warnings and progress lines go to w; the
// returned error is either ErrEmptyQuery or a *RetrievalError from the
// identifier-resolution request. Failed batches and skipped records only
// shrink the result.
func (c *Client) Search(ctx context.Context, query string, w io.Writer) ([]types.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	pmids, err := c.esearch(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	var papers []types.Paper
	done := 0
	for i, batch := range batches(pmids, c.cfg.BatchSize) {
		fetched, err := c.efetch(ctx, batch, w)
		if err != nil {
			fmt.Fprintf(w, "warning: batch %d failed: %v\n", i+1, err)
		} else {
			papers = append(papers, fetched...)
		}
		done += len(batch)
		fmt.Fprintf(w, "fetched %d/%d articles\n", done, len(pmids))
	}
	return papers, nil
}

// esearch JSON structures.
type esearchResponse struct {
	Result *esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	IDList      []string            `json:"idlist"`
	ErrorList   *esearchErrorList   `json:"errorlist"`
	WarningList map[string][]string `json:"warninglist"`
}

type esearchErrorList struct {
	PhrasesNotFound []string `json:"phrasesnotfound"`
	FieldsNotFound  []string `json:"fieldsnotfound"`
}

// esearch resolves the query to an ordered PMID list. API-reported
// warnings (phrases not found) are non-fatal; API-reported errors are not.
func (c *Client) esearch(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"retmax":  {fmt.Sprintf("%d", c.cfg.RetMax)},
		"term":    {query},
		"retmode": {"json"},
	}

	resp, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, retrievalErr(KindTransport, "esearch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retrievalErr(KindHTTPStatus, "esearch returned HTTP %d", resp.StatusCode)
	}

	var er esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, retrievalErr(KindBadResponse, "parsing esearch response: %w", err)
	}
	if er.Result == nil {
		return nil, retrievalErr(KindBadResponse, "esearch response has no esearchresult field")
	}
	if el := er.Result.ErrorList; el != nil && len(el.PhrasesNotFound) > 0 {
		return nil, retrievalErr(KindInvalidTerm, "invalid search terms: %s",
			strings.Join(el.PhrasesNotFound, ", "))
	}

	return er.Result.IDList, nil
}

// efetch requests one batch of full records and parses them into Papers.
func (c *Client) efetch(ctx context.Context, pmids []string, w io.Writer) ([]types.Paper, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"rettype": {"abstract"},
		"retmode": {"xml"},
		"id":      {strings.Join(pmids, ",")},
	}

	resp, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("efetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("efetch returned HTTP %d", resp.StatusCode)
	}

	return parseArticleSet(resp.Body, c.now, w)
}

// get issues one rate-limited GET with retry on 429/503.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.ContactEmail != "" {
		params.Set("email", c.cfg.ContactEmail)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	return httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
}

// batches partitions pmids into consecutive groups of at most size,
// preserving order.
func batches(pmids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(pmids); start += size {
		end := start + size
		if end > len(pmids) {
			end = len(pmids)
		}
		out = append(out, pmids[start:end])
	}
	return out
}
