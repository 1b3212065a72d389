package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/docxflow/internal/conversion"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert PDF files to .docx",
	Long: `Convert turns each PDF into a Word document written to --out-dir. Files are
independent jobs and run in parallel up to --concurrency. The same --pages
selection applies to every file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		conv, closeFn, err := newConverter(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		outDir := viper.GetString("out-dir")
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		var mu sync.Mutex
		stderr := cmd.ErrOrStderr()
		progress := func(name string) conversion.Observer {
			return func(ev conversion.Event) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(stderr, "%s: %3d%% %s\n", name, ev.Percent, ev.Message)
			}
		}

		g := new(errgroup.Group)
		g.SetLimit(max(viper.GetInt("concurrency"), 1))
		for _, path := range args {
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				name := filepath.Base(path)
				res, err := conv.Convert(ctx, conversion.Request{
					Source:     data,
					SourceName: name,
					PageSpec:   viper.GetString("pages"),
				}, progress(name))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				dest := filepath.Join(outDir, res.Filename)
				if err := os.WriteFile(dest, res.Document, 0o644); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}

				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d sections", path, dest, res.Sections)
				if n := len(res.SkippedChunks()); n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), ", %d batches skipped", n)
				}
				if n := len(res.Report.Skipped); n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), ", %d sections dropped", n)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ")")
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	convertCmd.Flags().String("pages", "", `pages to convert, e.g. "1-5, 8, 11-13" (default: all)`)
	convertCmd.Flags().String("out-dir", ".", "directory for the generated .docx files")
	convertCmd.Flags().Int("concurrency", 2, "files converted in parallel")
	for _, name := range []string{"pages", "out-dir", "concurrency"} {
		_ = viper.BindPFlag(name, convertCmd.Flags().Lookup(name))
	}

	rootCmd.AddCommand(convertCmd)
}
