package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aristath/sentinel-desk/internal/di"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	decidePortfolio string
	decidePolicy    string
	decideMode      string
)

var (
	comparePortfolio string
	comparePolicyA   string
	comparePolicyB   string
)

func newDecideCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Create a scenario from a saved portfolio and run one decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, log zerolog.Logger) error {
				cfg, err := scenarioFromLibrary(ctx, c, decidePortfolio, decidePolicy)
				if err != nil {
					return err
				}
				cfg.Mode = domain.Mode(decideMode)

				sc, err := c.Orchestrator.CreateSession(ctx, cfg)
				if err != nil {
					return err
				}
				tick, err := c.Orchestrator.RunDecision(ctx)
				if err != nil {
					return err
				}
				log.Info().Str("session_id", sc.ID).Str("tick_id", tick.ID).Msg("Decision completed")

				alloc := c.Orchestrator.Allocation()
				if opts.json {
					return opts.printJSON(cmd.OutOrStdout(), map[string]interface{}{
						"scenario_id": sc.ID,
						"tick":        tick,
						"allocation":  alloc,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scenario %s, tick %s\n", sc.ID, tick.ID)
				if !alloc.HasTarget {
					fmt.Fprintln(cmd.OutOrStdout(), "decision carried no target weights")
				}
				return printRows(cmd.OutOrStdout(), alloc.Rows, alloc.Turnover)
			})
		},
	}
	cmd.Flags().StringVar(&decidePortfolio, "portfolio", "", "saved portfolio id or name (required)")
	cmd.Flags().StringVar(&decidePolicy, "policy", "", "saved policy id or name for constraints and allocator version")
	cmd.Flags().StringVar(&decideMode, "mode", string(domain.ModeProtocol), "scenario mode (protocol or simulation)")
	_ = cmd.MarkFlagRequired("portfolio")
	return cmd
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run two saved policies against one saved portfolio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, _ zerolog.Logger) error {
				a, err := findPolicy(ctx, c, comparePolicyA)
				if err != nil {
					return err
				}
				b, err := findPolicy(ctx, c, comparePolicyB)
				if err != nil {
					return err
				}
				cfg, err := scenarioFromLibrary(ctx, c, comparePortfolio, "")
				if err != nil {
					return err
				}
				if _, err := c.Orchestrator.CreateSession(ctx, cfg); err != nil {
					return err
				}
				res, err := c.Orchestrator.RunPolicyComparison(ctx, a, b)
				if err != nil {
					return err
				}
				if opts.json {
					return opts.printJSON(cmd.OutOrStdout(), res)
				}
				out := cmd.OutOrStdout()
				for _, side := range []struct {
					label string
					s     domain.AbSide
				}{{"A", res.A}, {"B", res.B}} {
					fmt.Fprintf(out, "%s: %s (v%d) on scenario %s\n", side.label, side.s.Policy.Name, side.s.Policy.Version, side.s.ScenarioID)
					if err := printRows(out, side.s.Rows, side.s.Turnover); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&comparePortfolio, "portfolio", "", "saved portfolio id or name (required)")
	cmd.Flags().StringVar(&comparePolicyA, "a", "", "first policy id or name (required)")
	cmd.Flags().StringVar(&comparePolicyB, "b", "", "second policy id or name (required)")
	_ = cmd.MarkFlagRequired("portfolio")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	return cmd
}

func scenarioFromLibrary(ctx context.Context, c *di.Container, portfolioRef, policyRef string) (domain.ScenarioConfig, error) {
	rec, err := c.Library.Portfolios.Get(ctx, portfolioRef)
	if err != nil {
		found, ok := c.Library.Portfolios.FindByName(ctx, portfolioRef)
		if !ok {
			return domain.ScenarioConfig{}, fmt.Errorf("failed to find portfolio %q: %w", portfolioRef, err)
		}
		rec = found
	}
	p := rec.Value.Portfolio.Clone()
	cfg := domain.ScenarioConfig{Name: rec.Name, Portfolio: &p}

	if policyRef != "" {
		policy, err := findPolicy(ctx, c, policyRef)
		if err != nil {
			return domain.ScenarioConfig{}, err
		}
		constraints := policy.Constraints
		cfg.Constraints = &constraints
		cfg.AllocatorVersion = policy.AllocatorVersion
	}
	return cfg, nil
}

func findPolicy(ctx context.Context, c *di.Container, ref string) (domain.AllocationPolicy, error) {
	rec, err := c.Library.Policies.Get(ctx, ref)
	if err == nil {
		return rec.Value, nil
	}
	if found, ok := c.Library.Policies.FindByName(ctx, ref); ok {
		return found.Value, nil
	}
	return domain.AllocationPolicy{}, fmt.Errorf("failed to find policy %q: %w", ref, err)
}

func printRows(w io.Writer, rows []domain.AllocationRow, turnover float64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tCURRENT\tTARGET\tDELTA")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%+.4f\n", r.ID, r.Current, r.Target, r.Delta)
	}
	fmt.Fprintf(tw, "turnover\t\t\t%.4f\n", turnover)
	return tw.Flush()
}
