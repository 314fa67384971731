package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/curriculum"
	"github.com/p-n-ai/exam-atlas/internal/export"
	"github.com/p-n-ai/exam-atlas/internal/statsource"
)

func aggregateCmd(g *globals) *cobra.Command {
	var (
		series bool
		top    int
	)
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Print the aggregation result as JSON",
		Long: `Print the timeline, type counts, chapter counts, knowledge heatmap and
difficulty buckets as JSON. With --series the chart-ready view is printed
instead.

Example:
  examctl aggregate --curriculum data/curriculum.json --questions output/extended_questions.json
  examctl aggregate --series --top 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := g.load(cmd.Context(), nil, false)
			if err != nil {
				return err
			}
			if series {
				return writeJSON(cmd.OutOrStdout(), analysis.BuildSeries(snap.Result, snap.Questions, top))
			}
			return writeJSON(cmd.OutOrStdout(), snap.Result)
		},
	}
	cmd.Flags().BoolVar(&series, "series", false, "print chart-ready series")
	cmd.Flags().IntVar(&top, "top", analysis.DefaultTopKnowledgePoints, "length of the knowledge-point ranking")
	return cmd
}

func statsCmd(g *globals) *cobra.Command {
	var (
		statsDB string
		verify  bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard summary statistics",
		Long: `Print total questions, unique types, unique knowledge points and chapters
covered. With --stats-db the values are read from (and written to) a SQLite
file keyed by the dataset fingerprint; --verify checks the stored value
against direct computation and repairs it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var facade *analysis.StatisticsFacade
			if statsDB != "" {
				src, err := statsource.OpenSQLite(cmd.Context(), statsDB, 0)
				if err != nil {
					return err
				}
				defer src.Close()
				facade = analysis.NewStatisticsFacade(src)
			}

			snap, err := g.load(cmd.Context(), facade, verify)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snap.Statistics)
		},
	}
	cmd.Flags().StringVar(&statsDB, "stats-db", "", "SQLite file holding precomputed statistics")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify and repair the precomputed value")
	return cmd
}

func overviewCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Print the dashboard overview panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := g.load(cmd.Context(), nil, false)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), snap.Overview)
		},
	}
}

func exportCmd(g *globals) *cobra.Command {
	var (
		format  string
		variant string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the analysis as XLSX or CSV",
		Long: `Export the analysis.

Supported formats:
  - xlsx: workbook with Summary, Types, Chapters, Heatmap, Timeline,
          Difficulty and Questions sheets
  - csv:  one row per question; --variant core (id, title, type, refer)
          or full

Example:
  examctl export --format xlsx --out output/analysis.xlsx
  examctl export --format csv --variant full --out output/questions_full.csv
  examctl export --format csv --out -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "xlsx" && format != "csv" {
				return fmt.Errorf("unsupported format %q (want xlsx or csv)", format)
			}
			v, err := export.ParseVariant(variant)
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("--out flag is required")
			}

			snap, err := g.load(cmd.Context(), nil, false)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if format == "xlsx" {
				err = export.WriteWorkbook(w, snap)
			} else {
				err = export.WriteCSV(w, snap.Questions, v)
			}
			if err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d questions)\n", out, len(snap.Questions))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx or csv")
	cmd.Flags().StringVar(&variant, "variant", string(export.VariantCore), "csv column set: core or full")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}

func validateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check both input documents and report tolerated defects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := curriculum.NewLoader(g.curriculumPath, g.questionsPath)
			w := cmd.OutOrStdout()

			curDoc, err := loader.LoadCurriculum(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "curriculum %s: %d chapters, %d content items\n",
				curDoc.Path, len(curDoc.Curriculum.Chapters), curDoc.Curriculum.ItemCount())
			printReport(w, curDoc.Report)

			qDoc, err := loader.LoadQuestions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "questions %s: %d questions\n", qDoc.Path, len(qDoc.Questions))
			printReport(w, qDoc.Report)
			return nil
		},
	}
}

func printReport(w io.Writer, r curriculum.Report) {
	if r.Empty() {
		fmt.Fprintln(w, "  no defects")
		return
	}
	for _, line := range []struct {
		label string
		n     int
	}{
		{"skipped records", r.SkippedRecords},
		{"missing knowledge points", r.MissingKnowledgePoints},
		{"missing refer", r.MissingRefer},
		{"missing content", r.MissingContent},
		{"null knowledge points", r.NullKnowledgePoints},
	} {
		if line.n > 0 {
			fmt.Fprintf(w, "  %s: %d\n", line.label, line.n)
		}
	}
}
