package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ttl-analytics/insights-dashboard/internal/app"
	"github.com/ttl-analytics/insights-dashboard/internal/backend"
	"github.com/ttl-analytics/insights-dashboard/internal/dashboard"
	"github.com/ttl-analytics/insights-dashboard/internal/views"
)

const defaultBackend = "http://localhost:8000"

// errLoadFailed marks a run where at least one view ended in the error state.
var errLoadFailed = errors.New("one or more views failed to load")

type options struct {
	backendURL   string
	viewsFile    string
	timeout      time.Duration
	currency     string
	zeroAsAbsent bool
	verbose      bool
}

func rootCmd(out io.Writer) *cobra.Command {
	_ = app.LoadDotEnv()
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "insightsctl",
		Short: "Inspect the analytics views served by the insights dashboard",
		Long: `Run the dashboard's view pipeline against the analytics backend.

Examples:
  insightsctl views                 # List registered views
  insightsctl fetch kpi             # Load one view and print it
  insightsctl fetch ai-insights --json
  insightsctl snapshot              # Load every view concurrently
`,
		SilenceUsage: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.backendURL, "backend", envOr("BACKEND_BASE_URL", defaultBackend), "Analytics backend base URL")
	flags.StringVar(&opts.viewsFile, "views-file", os.Getenv("VIEWS_FILE"), "YAML file declaring extra views")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Per-view load timeout")
	flags.StringVar(&opts.currency, "currency", envOr("CURRENCY_SYMBOL", "₹"), "Currency symbol for amounts")
	flags.BoolVar(&opts.zeroAsAbsent, "zero-as-absent", os.Getenv("ZERO_AS_ABSENT") == "true", "Render zero rates and amounts as the placeholder")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log load diagnostics to stderr")

	cmd.AddCommand(viewsCmd(opts), fetchCmd(opts), snapshotCmd(opts))
	return cmd
}

func viewsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List registered views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := views.LoadFile(opts.viewsFile, opts.backendURL)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tKIND\tENDPOINT")
			for _, d := range registry.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Label, d.Kind, d.Endpoint)
			}
			return tw.Flush()
		},
	}
}

func fetchCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "fetch <view>",
		Short: "Load one view and print its display state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			pipeline, _, err := buildPipeline(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			state := pipeline.Load(ctx, args[0])
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), state); err != nil {
					return err
				}
			} else {
				printState(cmd.OutOrStdout(), state, dashboard.NewFormatter(opts.currency, opts.zeroAsAbsent))
			}
			if state.Kind == dashboard.StateError {
				return errLoadFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the display state as JSON")
	return cmd
}

func snapshotCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Load every registered view concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			pipeline, registry, err := buildPipeline(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			states, err := snapshot(ctx, pipeline, registry.List())
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), states); err != nil {
					return err
				}
			} else {
				formatter := dashboard.NewFormatter(opts.currency, opts.zeroAsAbsent)
				for i, state := range states {
					if i > 0 {
						fmt.Fprintln(cmd.OutOrStdout())
					}
					printState(cmd.OutOrStdout(), state, formatter)
				}
			}
			for _, state := range states {
				if state.Kind == dashboard.StateError {
					return errLoadFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the display states as JSON")
	return cmd
}

// snapshot loads each descriptor concurrently and returns the states in
// descriptor order.
func snapshot(ctx context.Context, loader dashboard.Loader, descriptors []views.Descriptor) ([]dashboard.DisplayState, error) {
	states := make([]dashboard.DisplayState, len(descriptors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, d := range descriptors {
		i, d := i, d
		g.Go(func() error {
			states[i] = loader.Load(gctx, d.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

func buildPipeline(opts *options, stderr io.Writer) (*dashboard.Pipeline, *views.Registry, error) {
	registry, err := views.LoadFile(opts.viewsFile, opts.backendURL)
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	client := backend.NewClient(opts.backendURL, 0)
	return dashboard.NewPipeline(registry, client, logger, dashboard.WithTimeout(opts.timeout)), registry, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
