// Package main is the entry point for the docxflow CLI. It converts PDF files
// to editable Word documents locally or serves the conversion over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docxflow CLI.
var rootCmd = &cobra.Command{
	Use:   "docxflow",
	Short: "Convert PDF documents into editable Word files",
	Long: `docxflow splits a PDF into small page batches, asks a structuring model for
headings, paragraphs and lists with their font hints, and rebuilds the result
as a .docx file.

Use --offline to structure pages from the PDF's own text layer instead of the
Vertex AI model.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if viper.GetBool("verbose") {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docxflow.yaml or ~/.config/docxflow/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("offline", false, "structure pages from the PDF text layer instead of Vertex AI")
	rootCmd.PersistentFlags().String("project", "", "Google Cloud project for Vertex AI")
	rootCmd.PersistentFlags().String("region", "us-central1", "Vertex AI region")
	rootCmd.PersistentFlags().String("model", "", "Vertex AI model (default: gemini-2.5-flash)")
	rootCmd.PersistentFlags().Int("chunk-size", 5, "pages per structuring request")
	rootCmd.PersistentFlags().Int("max-attempts", 1, "structuring attempts per batch")

	for _, name := range []string{"verbose", "offline", "project", "region", "model", "chunk-size", "max-attempts"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docxflow")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docxflow"))
		}
	}

	viper.SetEnvPrefix("DOCXFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
