package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/structure"
)

var extractCmd = &cobra.Command{
	Use:   "extract file.pdf",
	Short: "Print the structured content of a PDF",
	Long: `Extract runs segmentation and structuring without rendering and prints the
assembled sections as JSON or YAML. Useful for checking what a conversion
will contain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		pages, _ := cmd.Flags().GetString("pages")

		ctx := cmd.Context()
		conv, closeFn, err := newConverter(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, res, err := conv.Structure(ctx, conversion.Request{
			Source:     data,
			SourceName: filepath.Base(args[0]),
			PageSpec:   pages,
		}, nil)
		if err != nil {
			return err
		}
		for _, o := range res.SkippedChunks() {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", o.Err)
		}
		return writeDocument(cmd.OutOrStdout(), doc, format)
	},
}

func writeDocument(w io.Writer, doc structure.Document, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}
}

func init() {
	extractCmd.Flags().String("pages", "", "pages to extract (default: all)")
	extractCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(extractCmd)
}
