package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/Lllllllleong/docxflow/internal/conversion"
	"github.com/Lllllllleong/docxflow/internal/extraction"
	"github.com/Lllllllleong/docxflow/internal/gcp"
	"github.com/Lllllllleong/docxflow/internal/textlayer"
)

// newConverter builds a Converter from the bound configuration. The returned
// close function releases the remote client, if any.
func newConverter(ctx context.Context) (*conversion.Converter, func(), error) {
	var s extraction.Structurer
	closeFn := func() {}

	if viper.GetBool("offline") {
		s = textlayer.New()
	} else {
		project := viper.GetString("project")
		if project == "" {
			return nil, nil, fmt.Errorf("a Google Cloud project is required (--project or DOCXFLOW_PROJECT), or use --offline")
		}
		vc, err := gcp.NewVertexClient(ctx, project, viper.GetString("region"), viper.GetString("model"))
		if err != nil {
			return nil, nil, err
		}
		s = vc
		closeFn = func() { _ = vc.Close() }
	}

	retry := extraction.RetryPolicy{
		MaxAttempts: viper.GetInt("max-attempts"),
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
	conv := conversion.New(s,
		conversion.WithChunkSize(viper.GetInt("chunk-size")),
		conversion.WithRetry(retry),
		conversion.WithLogger(slog.Default()),
	)
	return conv, closeFn, nil
}
