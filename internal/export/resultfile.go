// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperscout/pkg/types"
)

// ResultFile is the on-disk representation of a search run. Saving a run
// lets the researcher re-render or post-process results without
// re-querying the API.
type ResultFile struct {
	Query   string        `yaml:"query"`
	Papers  []types.Paper `yaml:"papers"`
	Summary ResultSummary `yaml:"summary"`
}

// ResultSummary stores run statistics and a timestamp.
type ResultSummary struct {
	Total     int       `yaml:"total"`
	Industry  int       `yaml:"with_industry_authors"`
	Timestamp time.Time `yaml:"timestamp"`
}

// WriteResultFile saves the query and its papers to a YAML file.
func WriteResultFile(path, query string, papers []types.Paper) error {
	industry := 0
	for _, p := range papers {
		if len(p.NonAcademicAuthors()) > 0 {
			industry++
		}
	}

	rf := ResultFile{
		Query:  query,
		Papers: papers,
		Summary: ResultSummary{
			Total:     len(papers),
			Industry:  industry,
			Timestamp: time.Now().UTC(),
		},
	}

	data, err := yaml.Marshal(rf)
	if err != nil {
		return fmt.Errorf("marshaling result file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadResultFile loads a previously saved search run.
func ReadResultFile(path string) (ResultFile, error) {
	var rf ResultFile
	data, err := os.ReadFile(path)
	if err != nil {
		return rf, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, fmt.Errorf("parsing %s: %w", path, err)
	}
	return rf, nil
}
