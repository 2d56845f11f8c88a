package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/aristath/sentinel-desk/internal/di"
	"github.com/aristath/sentinel-desk/internal/library"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newPoliciesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Manage saved allocation policies",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, _ zerolog.Logger) error {
				records, err := c.Library.Policies.List(ctx)
				if err != nil {
					return err
				}
				if opts.json {
					return opts.printJSON(cmd.OutOrStdout(), records)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tVERSION\tALLOCATOR\tUPDATED")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Name, r.Value.Version, r.Value.AllocatorVersion, r.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}

	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Export policies as YAML (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, _ zerolog.Logger) error {
				records, err := c.Library.Policies.List(ctx)
				if err != nil {
					return err
				}
				w, closeFn, err := openOutput(path, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if err := library.ExportPolicies(w, records); err != nil {
					_ = closeFn()
					return err
				}
				return closeFn()
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Import policies from YAML, saving each by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			policies, err := library.ImportPolicies(f)
			if err != nil {
				return err
			}
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, log zerolog.Logger) error {
				for _, p := range policies {
					rec, err := c.Library.SavePolicy(ctx, p)
					if err != nil {
						return fmt.Errorf("failed to save policy %q: %w", p.Name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "imported %s (version %d)\n", rec.Name, rec.Value.Version)
				}
				log.Info().Int("count", len(policies)).Msg("Policies imported")
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, _ zerolog.Logger) error {
				return c.Library.Policies.Delete(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(list, export, imp, del)
	return cmd
}

func newPortfoliosCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolios",
		Short: "Manage saved portfolios",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved portfolios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, _ zerolog.Logger) error {
				records, err := c.Library.Portfolios.List(ctx)
				if err != nil {
					return err
				}
				if opts.json {
					return opts.printJSON(cmd.OutOrStdout(), records)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tASSETS\tUPDATED")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Name, len(r.Value.Portfolio.Assets), r.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withContainer(cmd, func(ctx context.Context, c *di.Container, _ zerolog.Logger) error {
				return c.Library.Portfolios.Delete(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}
