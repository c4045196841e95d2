package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sitrep-cli/internal/model"
	"github.com/sells-group/sitrep-cli/internal/pipeline"
	"github.com/sells-group/sitrep-cli/internal/sink"
)

var (
	extractReport string
	extractOut    string
	extractJSON   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract staging rows from the PDFs attached to reports",
	Long: "Reads one report or an array of reports from a JSON file, processes each " +
		"report's best PDF attachment and writes the resulting rows to the configured sink.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if extractOut != "" {
			cfg.Output.Path = extractOut
		}

		reports, err := pipeline.LoadReports(extractReport)
		if err != nil {
			return err
		}

		env, err := initExtract(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		out, results := processReports(ctx, env.Processor, reports)

		s, err := sink.Open(ctx, cfg.Output)
		if err != nil {
			return eris.Wrap(err, "open sink")
		}
		defer s.Close() //nolint:errcheck

		if err := s.Write(ctx, out); err != nil {
			return eris.Wrap(err, "write rows")
		}

		zap.L().Info("extraction complete",
			zap.Int("reports", len(reports)),
			zap.Int("rows", len(out)),
			zap.String("sink", cfg.Output.Driver),
		)

		if extractJSON {
			return writeResults(os.Stdout, results)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractReport, "report", "", "path to a report JSON file (required)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "override output.path")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print per-report results as JSON to stdout")
	_ = extractCmd.MarkFlagRequired("report")
	rootCmd.AddCommand(extractCmd)
}

// reportProcessor is the part of pipeline.Processor the command uses.
type reportProcessor interface {
	Process(ctx context.Context, rep pipeline.Report) (*pipeline.Result, error)
}

// processReports runs reports in order and collects their rows. Level
// state is read-then-write, so reports are never processed concurrently.
// A failed report is logged and does not stop the run.
func processReports(ctx context.Context, p reportProcessor, reports []pipeline.Report) ([]model.OutputRow, []*pipeline.Result) {
	var (
		out     []model.OutputRow
		results []*pipeline.Result
		failed  int
	)
	for i, rep := range reports {
		if ctx.Err() != nil {
			zap.L().Warn("extraction interrupted", zap.Int("remaining", len(reports)-i))
			break
		}
		res, err := p.Process(ctx, rep)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			failed++
			zap.L().Error("report failed", zap.String("report", rep.Title), zap.Error(err))
			continue
		}
		out = append(out, res.Rows...)
	}
	if failed > 0 {
		zap.L().Warn("some reports failed", zap.Int("failed", failed))
	}
	return out, results
}

func writeResults(w io.Writer, results []*pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
