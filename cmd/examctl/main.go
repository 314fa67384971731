// Command examctl runs the exam analysis offline: aggregates, statistics,
// the dashboard overview, exports and input validation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
	"github.com/p-n-ai/exam-atlas/internal/platform/config"
	"github.com/p-n-ai/exam-atlas/internal/platform/logging"
	"github.com/p-n-ai/exam-atlas/internal/snapshot"
)

var version = "dev"

// globals are the persistent flags shared by every subcommand.
type globals struct {
	curriculumPath  string
	questionsPath   string
	skipEmptyLabels bool
	logLevel        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults, _ := config.Load()
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "examctl",
		Short: "Exam knowledge-point and chapter analysis",
		Long: `examctl correlates extracted exam questions with the course curriculum.

It reads the curriculum document (JSON or YAML) and the extracted question
document (JSON) and produces:
  - per-content-item timelines of related questions
  - type, chapter, difficulty and knowledge-point x chapter counts
  - the four dashboard summary statistics
  - XLSX and CSV exports`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(g.logLevel, "text", cmd.ErrOrStderr()))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.curriculumPath, "curriculum", defaults.Data.CurriculumPath, "curriculum document (.json, .yaml)")
	flags.StringVar(&g.questionsPath, "questions", defaults.Data.QuestionsPath, "extracted question document (.json)")
	flags.BoolVar(&g.skipEmptyLabels, "skip-empty-labels", defaults.Analysis.SkipEmptyLabels, "ignore labels that normalize to nothing")
	flags.StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(aggregateCmd(g))
	rootCmd.AddCommand(statsCmd(g))
	rootCmd.AddCommand(overviewCmd(g))
	rootCmd.AddCommand(exportCmd(g))
	rootCmd.AddCommand(validateCmd(g))

	return rootCmd
}

// load builds a snapshot from the input documents.
func (g *globals) load(ctx context.Context, facade *analysis.StatisticsFacade, verify bool) (*snapshot.Snapshot, error) {
	m := snapshot.NewManager(curriculum.NewLoader(g.curriculumPath, g.questionsPath), snapshot.Options{
		Engine:           analysis.NewEngine(analysis.Options{SkipEmptyLabels: g.skipEmptyLabels}),
		Facade:           facade,
		VerifyStatistics: verify,
	})
	return m.Reload(ctx)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
