package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tally/internal/export"
	"tally/internal/importer"
	"tally/internal/log"
	"tally/internal/spend"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml|file.yaml>",
		Short: "Import subscriptions and one-time purchases from a file",
		Long: "Import reads a TOML or YAML record file. Every entry is validated " +
			"first; if any is invalid nothing is stored.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.Load(args[0])
			if err != nil {
				return err
			}
			subs, items, err := f.Records()
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			result, err := res.Records.Import(cmd.Context(), subs, items)
			if err != nil {
				return err
			}

			a.logger.WithComponent(log.ComponentImport).Info("Record file imported",
				"path", args[0],
				"subscriptions", result.Subscriptions,
				"one_time_items", result.OneTimeItems)
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d subscriptions and %d one-time purchases\n",
				result.Subscriptions, result.OneTimeItems)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var wf windowFlags
	cmd := &cobra.Command{
		Use:   "export <file.xlsx|file.toml|file.yaml>",
		Short: "Export a spend report or the stored records",
		Long: "An .xlsx target receives a spend report for the selected window, " +
			"with a summary sheet and a per-item details sheet. A .toml or .yaml " +
			"target receives every stored record in the import format.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			path := args[0]
			isWorkbook := strings.EqualFold(filepath.Ext(path), ".xlsx")

			var (
				format importer.Format
				opts   spend.Options
			)
			if isWorkbook {
				if opts, err = wf.options(time.Now()); err != nil {
					return err
				}
			} else if format, err = importer.FormatFromPath(path); err != nil {
				return err
			}

			res, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := res.Spend.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			out, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer func() {
				err = errors.Join(err, out.Close())
			}()

			logger := a.logger.WithComponent(log.ComponentExport)
			if isWorkbook {
				report := export.Build(snap, opts)
				if err := export.WriteWorkbook(out, report); err != nil {
					return err
				}
				logger.Info("Spend report exported", "path", path, "window", describe(opts), "categories", len(report.Breakdown.Categories))
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s report to %s\n", describe(opts), path)
				return nil
			}

			if err := importer.Encode(out, format, importer.FileFrom(snap.Subscriptions, snap.OneTimeItems)); err != nil {
				return err
			}
			logger.Info("Records exported", "path", path, "subscriptions", len(snap.Subscriptions), "one_time_items", len(snap.OneTimeItems))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d subscriptions and %d one-time purchases to %s\n",
				len(snap.Subscriptions), len(snap.OneTimeItems), path)
			return nil
		},
	}
	wf.register(cmd)
	return cmd
}
