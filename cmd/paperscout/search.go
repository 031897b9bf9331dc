// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperscout/internal/export"
	"github.com/pdiddy/paperscout/internal/pubmed"
	"github.com/pdiddy/paperscout/internal/secrets"
	"github.com/pdiddy/paperscout/internal/store"
	"github.com/pdiddy/paperscout/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search PubMed and report papers with industry authors",
	Long: `Search queries PubMed for articles matching the query, classifies each
author's affiliation, and keeps papers with at least one non-academic
(industry) author. Results go to the console as a table, or to CSV, YAML,
or SQLite when the matching flags are given.

Examples:

  paperscout search "cancer AND drug discovery"
  paperscout search "CRISPR" -f results.csv --columns all
  paperscout search "immunotherapy" --custom-columns "PubmedID,Title,Company Affiliation(s)"
  paperscout search "machine learning" --include-abstract --db results.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd, args[0])
	},
}

func init() {
	searchCmd.Flags().StringP("file", "f", "", "save results to a CSV file")
	searchCmd.Flags().String("db", "", "save results to a SQLite database")
	searchCmd.Flags().String("save", "", "save the full run to a YAML result file")
	searchCmd.Flags().StringP("columns", "c", "default", "column set: default, all, or minimal")
	searchCmd.Flags().String("custom-columns", "", "comma-separated custom column list (overrides --columns)")
	searchCmd.Flags().BoolP("include-abstract", "a", false, "include the paper's abstract in the output")
	searchCmd.Flags().Bool("all-papers", false, "keep papers without industry authors too")
	searchCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")
	searchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, query string) error {
	flags := cmd.Flags()

	// Resolve headers before any network activity so a bad column list
	// fails fast.
	exp := exportConfig(cmd)
	headers, err := export.Headers(export.ColumnSet(exp.Columns), exp.CustomColumns, exp.IncludeAbstract)
	if err != nil {
		return err
	}

	timeout, _ := flags.GetDuration("timeout")
	cfg := pubmedConfig(timeout)

	quiet, _ := flags.GetBool("quiet")
	var progress io.Writer = os.Stderr
	if quiet {
		progress = io.Discard
	}

	client := pubmed.NewClient(cfg)
	defer client.Close()

	fmt.Fprintf(progress, "Searching PubMed for %q\n", query)
	papers, err := client.Search(context.Background(), query, progress)
	if err != nil {
		if errors.Is(err, pubmed.ErrEmptyQuery) {
			return fmt.Errorf("query cannot be empty")
		}
		return err
	}

	allPapers, _ := flags.GetBool("all-papers")
	kept := papers
	if !allPapers {
		kept = nil
		for _, p := range papers {
			if len(p.NonAcademicAuthors()) > 0 {
				kept = append(kept, p)
			}
		}
	}

	if len(kept) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No papers with non-academic authors found for this query.")
		return nil
	}

	if savePath, _ := flags.GetString("save"); savePath != "" {
		if err := export.WriteResultFile(savePath, query, kept); err != nil {
			return err
		}
		fmt.Fprintf(progress, "Saved run to %s\n", savePath)
	}

	if dbPath, _ := flags.GetString("db"); dbPath != "" {
		if err := saveToDB(dbPath, kept); err != nil {
			return err
		}
		fmt.Fprintf(progress, "Saved %d papers to %s\n", len(kept), dbPath)
	}

	if csvPath, _ := flags.GetString("file"); csvPath != "" {
		if err := export.WriteCSV(kept, csvPath, headers); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d papers to %s\n", len(kept), csvPath)
		return nil
	}

	export.FormatTable(kept, headers, cmd.OutOrStdout())
	return nil
}

// exportConfig resolves column settings from the config file, with
// explicitly set flags taking precedence.
func exportConfig(cmd *cobra.Command) types.ExportConfig {
	flags := cmd.Flags()
	cfg := types.ExportConfig{
		Columns:         viper.GetString("export.columns"),
		CustomColumns:   viper.GetString("export.custom_columns"),
		IncludeAbstract: viper.GetBool("export.include_abstract"),
	}
	if flags.Changed("columns") || cfg.Columns == "" {
		cfg.Columns, _ = flags.GetString("columns")
	}
	if flags.Changed("custom-columns") {
		cfg.CustomColumns, _ = flags.GetString("custom-columns")
	}
	if v, _ := flags.GetBool("include-abstract"); v {
		cfg.IncludeAbstract = true
	}
	return cfg
}

// pubmedConfig builds the fetch configuration from viper, secrets, and
// the timeout flag, in increasing precedence.
func pubmedConfig(timeoutFlag time.Duration) types.PubMedConfig {
	cfg := types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("pubmed.timeout"),
			UserAgent: viper.GetString("pubmed.user_agent"),
		},
		RetMax:       viper.GetInt("pubmed.ret_max"),
		BatchSize:    viper.GetInt("pubmed.batch_size"),
		MaxRetries:   viper.GetInt("pubmed.max_retries"),
		APIKey:       secrets.Value(loadedSecrets, secrets.NCBIAPIKey, viper.GetString("pubmed.api_key")),
		ContactEmail: secrets.Value(loadedSecrets, secrets.ContactEmail, viper.GetString("pubmed.contact_email")),
	}
	if timeoutFlag > 0 {
		cfg.Timeout = timeoutFlag
	}
	return cfg
}

func saveToDB(path string, papers []types.Paper) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.SavePapers(context.Background(), papers)
}
