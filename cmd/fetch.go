package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/CloudNativeWorks/vpm-bootstrap/internal/config"
	"github.com/CloudNativeWorks/vpm-bootstrap/internal/pipeline"
	"github.com/CloudNativeWorks/vpm-bootstrap/internal/prompt"
	"github.com/CloudNativeWorks/vpm-bootstrap/internal/staging"
	"github.com/CloudNativeWorks/vpm-bootstrap/internal/transport"
	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/spf13/cobra"
)

func runFetch(cmd *cobra.Command, args []string) error {
	if Cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	if err := Cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newPipeline(Cfg, os.Stdin, cmd.OutOrStdout(), logger.NewLogger("main"))
	if err != nil {
		return err
	}
	return p.Run(ctx)
}

func newPipeline(cfg *config.Config, stdin *os.File, out io.Writer, log *logger.Logger) (*pipeline.Pipeline, error) {
	apiTimeout, err := cfg.APITimeout()
	if err != nil {
		return nil, err
	}
	downloadTimeout, err := cfg.DownloadTimeout()
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(transport.Options{
		UserAgent:       cfg.API.UserAgent,
		APITimeout:      apiTimeout,
		DownloadTimeout: downloadTimeout,
		MaxBytes:        cfg.Download.MaxBytes,
		RateLimit:       cfg.Download.RateLimit,
	}, log)

	stager := staging.NewStager(cfg.Staging.Dir, cfg.Staging.Pattern, log)
	gate := prompt.NewGate(stdin, cfg.Prompt.Wait, log)

	return pipeline.New(pipeline.Options{
		Endpoint: cfg.API.Endpoint,
		CopyTo:   cfg.Staging.CopyTo,
	}, client, stager, gate, out, log), nil
}
