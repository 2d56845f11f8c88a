package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/di"
	"github.com/aristath/sentinel-desk/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
	json     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Manage the sentinel-desk library and run decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newPoliciesCmd(opts),
		newPortfoliosCmd(opts),
		newDecideCmd(opts),
		newCompareCmd(opts),
	)
	return root
}

// withContainer loads configuration, wires the container and runs fn. The
// scheduler is never started.
func (o *rootOptions) withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container, log zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.New(logger.Config{Level: o.logLevel, Output: cmd.ErrOrStderr()})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	container, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(ctx, container, log)
}

func (o *rootOptions) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func openOutput(path string, fallback io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return fallback, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}
