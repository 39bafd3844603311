package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/electronjoe/sitestamp/internal/folder"
	"github.com/electronjoe/sitestamp/internal/geocode"
	"github.com/electronjoe/sitestamp/internal/locate"
	"github.com/electronjoe/sitestamp/internal/output"
	"github.com/electronjoe/sitestamp/internal/pipeline"
	"github.com/electronjoe/sitestamp/internal/pool"
	"github.com/electronjoe/sitestamp/internal/stamp"
)

var (
	inputRoot  string
	outputRoot string
	sheetName  string
	locateOut  string
)

// runMode wraps a pipeline entry point as a cobra RunE.
func runMode(run func(*pipeline.Runner, *cobra.Command) (pipeline.Summary, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if inputRoot != "" {
			a.cfg.InputRoot = inputRoot
		}
		if outputRoot != "" {
			a.cfg.OutputRoot = outputRoot
		}
		r, cleanup, err := a.runner()
		defer cleanup()
		if err != nil {
			a.log.Error("Failed to prepare run", "error", err)
			return err
		}
		sum, err := run(r, cmd)
		return a.report(sum, err)
	}
}

var randomizeCmd = &cobra.Command{
	Use:   "randomize",
	Short: "Fill every metadata folder with one randomly chosen image per category",
	RunE: runMode(func(r *pipeline.Runner, cmd *cobra.Command) (pipeline.Summary, error) {
		return r.RunRandomize(cmd.Context())
	}),
}

var stampCmd = &cobra.Command{
	Use:   "stamp",
	Short: "Stamp every image of the input tree using its folder's metadata row",
	RunE: runMode(func(r *pipeline.Runner, cmd *cobra.Command) (pipeline.Summary, error) {
		return r.RunStamp(cmd.Context())
	}),
}

var staticCmd = &cobra.Command{
	Use:   "static",
	Short: "Stamp the images of the input directory with the fixed stamp from the config",
	RunE: runMode(func(r *pipeline.Runner, cmd *cobra.Command) (pipeline.Summary, error) {
		return r.RunStatic(cmd.Context())
	}),
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report output folders missing expected categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		if outputRoot != "" {
			a.cfg.OutputRoot = outputRoot
		}
		recs := a.loadRecords()

		var pools [][]pool.CategoryPool
		for _, root := range []string{a.cfg.InputRoot, a.cfg.NetworkRoot, a.cfg.OrderedRoot} {
			if root == "" {
				continue
			}
			p, errs := pool.Build(root)
			for _, err := range errs {
				a.log.Warn("Skipping unreadable image root", "error", err)
			}
			pools = append(pools, p)
		}

		incomplete := 0
		for _, m := range output.Validate(a.cfg.OutputRoot, recs.Names(), pool.Names(pools...)) {
			if m.Complete() {
				a.log.Info("All expected files present", "folder", m.Folder)
				continue
			}
			incomplete++
			a.log.Warn("Missing files in output folder", "folder", m.Folder, "categories", m.Categories)
		}
		a.log.Sync()
		if incomplete > 0 {
			return fmt.Errorf("%d folders incomplete", incomplete)
		}
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <workbook.xlsx> <out.csv>",
	Short: "Convert a metadata workbook sheet to CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		n, err := folder.ConvertXLSX(args[0], sheetName, args[1])
		if err != nil {
			a.log.Error("Conversion failed", "src", args[0], "error", err)
			return err
		}
		a.log.Info("Converted workbook", "src", args[0], "dst", args[1], "rows", n)
		return nil
	},
}

var locateCmd = &cobra.Command{
	Use:   "locate <root>",
	Short: "Build a folder metadata skeleton from the EXIF data of existing photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}

		var geocoder stamp.Geocoder
		if a.cfg.Geocode.Enabled {
			client, err := geocode.New(a.cfg.Geocode, a.log)
			if err != nil {
				return err
			}
			defer client.Close()
			geocoder = client
		}

		rows, err := locate.Scan(cmd.Context(), args[0], geocoder, a.log)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if locateOut != "" {
			f, err := os.Create(locateOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := locate.WriteCSV(w, rows); err != nil {
			return err
		}
		a.log.Info("Wrote folder metadata skeleton", "folders", len(rows), "out", locateOut)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{randomizeCmd, stampCmd, staticCmd} {
		cmd.Flags().StringVarP(&inputRoot, "input", "i", "", "input root (overrides inputRoot)")
		cmd.Flags().StringVarP(&outputRoot, "output", "o", "", "output root (overrides outputRoot)")
	}
	validateCmd.Flags().StringVarP(&outputRoot, "output", "o", "", "output root (overrides outputRoot)")
	convertCmd.Flags().StringVar(&sheetName, "sheet", "", "sheet to convert (default: first sheet)")
	locateCmd.Flags().StringVarP(&locateOut, "out", "o", "", "CSV file to write (default: stdout)")

	rootCmd.AddCommand(randomizeCmd, stampCmd, staticCmd, validateCmd, convertCmd, locateCmd)
}
