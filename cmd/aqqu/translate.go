package aqqu

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/soundprediction/aqqu/pkg/config"
	"github.com/soundprediction/aqqu/pkg/execution"
	"github.com/soundprediction/aqqu/pkg/patterns"
	"github.com/soundprediction/aqqu/pkg/server/dto"
	"github.com/soundprediction/aqqu/pkg/telemetry"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate [question]",
	Short: "Translate a question into ranked candidate queries",
	Long: `Translate a single question and print its ranked candidate queries.

With --execute the best candidates are run against the backend and their
answers are printed together with the request stats.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().Int("limit", execution.DefaultLimit, "Number of ranked candidates to execute, overrides execution.limit")
	translateCmd.Flags().Bool("execute", false, "Execute the candidates and print answers")
	translateCmd.Flags().Bool("json", false, "Print the response as JSON")
	translateCmd.Flags().Bool("telemetry", false, "Record stats and errors to parquet")

	addTranslatorFlags(translateCmd)
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideTranslatorFlags(cmd, cfg)
	if cmd.Flags().Changed("limit") {
		cfg.Execution.Limit, _ = cmd.Flags().GetInt("limit")
	}
	if err := validateTranslatorConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	withTelemetry, _ := cmd.Flags().GetBool("telemetry")
	// No process to scrape in a one-shot run.
	cfg.Telemetry.Metrics = false

	rt, err := newRuntime(cmd.Context(), cfg, withTelemetry)
	if err != nil {
		return err
	}
	defer rt.Close()

	question := strings.Join(args, " ")
	execute, _ := cmd.Flags().GetBool("execute")
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if !execute {
		q, candidates, err := rt.translator.TranslateQuery(cmd.Context(), question)
		if err != nil {
			return err
		}
		ranked, err := rt.translator.Scorer().RankQueryCandidates(cmd.Context(), candidates)
		if err != nil {
			return fmt.Errorf("failed to rank candidates: %w", err)
		}
		if asJSON {
			return writeJSON(out, dto.NewTranslateResponse(q, ranked))
		}
		printCandidates(out, ranked)
		return nil
	}

	q, results, stats, err := rt.translator.TranslateAndExecuteQueryWithStats(cmd.Context(), question, cfg.Execution.Limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, dto.NewAnswerResponse(q, results, stats))
	}
	printResults(out, results)
	printStats(out, stats)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var heading = color.New(color.Bold, color.FgCyan)

func printCandidates(w io.Writer, ranked []*patterns.Candidate) {
	heading.Fprintf(w, "%d candidates\n", len(ranked))
	for i, c := range ranked {
		fmt.Fprintf(w, "%3d. %-8.4f %s\n", i+1, c.Score, c)
	}
}

func printResults(w io.Writer, results []execution.TranslationResult) {
	heading.Fprintf(w, "%d answered translations\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%3d. %s\n", i+1, r.Candidate)
		for _, row := range r.Rows {
			fmt.Fprintf(w, "       %s\n", strings.Join(row, " | "))
		}
	}
}

func printStats(w io.Writer, s telemetry.TranslationStats) {
	heading.Fprintln(w, "stats")
	fmt.Fprintf(w, "  candidates   %d (considered %d, truncated %d, soft misses %d)\n",
		s.Candidates, s.Considered, s.Truncated, s.SoftMisses)
	fmt.Fprintf(w, "  translation  %d queries in %.2fms (avg %.2fms)\n",
		s.Translation.Queries, s.Translation.Time.Seconds()*1000, s.Translation.AverageMs)
	fmt.Fprintf(w, "  fetch        %d queries in %.2fms (avg %.2fms)\n",
		s.Fetch.Queries, s.Fetch.Time.Seconds()*1000, s.Fetch.AverageMs)
	fmt.Fprintf(w, "  values       %d\n", s.Values)
	fmt.Fprintf(w, "  total        %.2fms\n", s.TotalTime.Seconds()*1000)
}
