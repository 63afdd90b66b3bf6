package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jalad-shrimali/cdr-rollup/pipeline"
	"github.com/jalad-shrimali/cdr-rollup/publish"
	"github.com/jalad-shrimali/cdr-rollup/workbook"
)

/* ──────────── process ──────────── */

func processCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Process a CSV or XLSX export into an analysis workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			pub, err := newPublisher(cmd.Context())
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.OutputDir
			}
			_, out, err := processFile(cmd.Context(), p, pub, args[0], outDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default OUTPUT_DIR)")
	return cmd
}

// processFile runs one export through p, saves the workbook into dir and publishes
// it. A failed publish is logged and does not fail the run.
func processFile(ctx context.Context, p *pipeline.Pipeline, pub publish.Publisher, path, dir string) (*pipeline.Run, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	run, err := p.Process(filepath.Base(path), f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf, run); err != nil {
		return nil, "", err
	}
	if n := run.Summary.TruncatedCells; n > 0 {
		log.Warn().Str("run_id", run.ID).Int("truncated_cells", n).Msg("oversized cells replaced in workbook")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", err
	}
	out := filepath.Join(dir, workbook.FileName(run))
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return nil, "", err
	}

	loc, err := pub.Publish(ctx, run.ID, filepath.Base(out), buf.Bytes())
	if err != nil {
		log.Warn().Err(err).Str("run_id", run.ID).Msg("publish failed")
	}
	log.Info().
		Str("run_id", run.ID).
		Str("file", out).
		Str("published", loc).
		Msg("workbook written")
	return run, out, nil
}

/* ──────────── filter ──────────── */

func filterCmd() *cobra.Command {
	var (
		out string
		sel workbook.Selection
	)
	cmd := &cobra.Command{
		Use:   "filter <workbook>",
		Short: "Narrow a processed workbook to one department and/or business hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), "filtered_"+filepath.Base(args[0]))
			}
			if err := filterFile(args[0], out, sel); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&sel.Department, "department", workbook.AllDepartments, "department to keep")
	cmd.Flags().BoolVar(&sel.BusinessHoursOnly, "business-hours-only", false, "drop calls outside business hours")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default filtered_<workbook> beside the input)")
	return cmd
}

func filterFile(in, out string, sel workbook.Selection) error {
	p, err := workbook.LoadFile(in)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	filtered := p.Filter(sel)

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := workbook.WriteProcessed(f, filtered); err != nil {
		f.Close()
		return err
	}
	log.Info().
		Str("file", out).
		Str("department", sel.Department).
		Bool("business_hours_only", sel.BusinessHoursOnly).
		Int("sheets", len(filtered.Sheets)).
		Msg("processed workbook filtered")
	return f.Close()
}

/* ──────────── departments ──────────── */

func departmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "departments <workbook>",
		Short: "List the departments present in a processed workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDepartments(cmd.OutOrStdout(), args[0])
		},
	}
}

func listDepartments(w io.Writer, path string) error {
	p, err := workbook.LoadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = fmt.Fprintln(w, strings.Join(append([]string{workbook.AllDepartments}, p.Departments()...), "\n"))
	return err
}
