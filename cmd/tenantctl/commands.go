package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/tenantkit/internal/app"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/registry"
)

var errNotConfirmed = errors.New("deprovision destroys the partition and all its data; pass --confirm")

// loadCreateParams reads a YAML tenant document. Flags given on the command
// line override its fields.
func loadCreateParams(path string) (registry.CreateParams, error) {
	var params registry.CreateParams
	if path == "" {
		return params, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return params, err
	}
	if err := yaml.Unmarshal(raw, &params); err != nil {
		return params, fmt.Errorf("parse %s: %w", path, err)
	}
	return params, nil
}

func newCreateCommand(out func() printer) *cobra.Command {
	var (
		file  string
		flags registry.CreateParams
		trial bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant, provision its partition and open it",
		Example: `  tenantctl create --name "Acme Inc" --tier pro --trial
  tenantctl create -f acme.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := loadCreateParams(file)
			if err != nil {
				return err
			}
			if flags.Name != "" {
				params.Name = flags.Name
			}
			if flags.Slug != "" {
				params.Slug = flags.Slug
			}
			if flags.SubscriptionTier != "" {
				params.SubscriptionTier = flags.SubscriptionTier
			}

			return withApp(cmd, func(ctx context.Context, a *app.App, _ app.Config) error {
				t, err := a.Onboarding.Onboard(ctx, params, trial)
				if t != nil {
					_ = out().tenant(t, partitionOf(ctx, a, t))
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML document with name, slug, subscription_tier and settings")
	cmd.Flags().StringVar(&flags.Name, "name", "", "display name")
	cmd.Flags().StringVar(&flags.Slug, "slug", "", "slug; derived from the name when empty")
	cmd.Flags().StringVar(&flags.SubscriptionTier, "tier", "", "subscription tier")
	cmd.Flags().BoolVar(&trial, "trial", false, "open the tenant as trial instead of active")
	return cmd
}

func newListCommand(out func() printer) *cobra.Command {
	var (
		statuses []string
		filter   registry.Filter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range statuses {
				filter.Statuses = append(filter.Statuses, tenant.Status(s))
			}
			return withApp(cmd, func(ctx context.Context, a *app.App, _ app.Config) error {
				list, err := a.Registry.List(ctx, filter)
				if err != nil {
					return err
				}
				return out().tenants(list)
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "only these statuses")
	cmd.Flags().StringVar(&filter.SubscriptionTier, "tier", "", "only this subscription tier")
	cmd.Flags().IntVar(&filter.Limit, "limit", 100, "page size")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "page offset")
	return cmd
}

func newActivateCommand(out func() printer) *cobra.Command {
	var trial bool
	cmd := &cobra.Command{
		Use:   "activate <id|slug>",
		Short: "Retry provisioning of a pending or failed tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, _ app.Config) error {
				t, err := a.Onboarding.Activate(ctx, args[0], trial)
				if err != nil {
					return err
				}
				return out().tenant(t, partitionOf(ctx, a, t))
			})
		},
	}
	cmd.Flags().BoolVar(&trial, "trial", false, "open the tenant as trial instead of active")
	return cmd
}

func newStatusCommand(out func() printer) *cobra.Command {
	var set string
	cmd := &cobra.Command{
		Use:   "status <id|slug>",
		Short: "Show a tenant and its partition, or change its status with --set",
		Example: `  tenantctl status acme
  tenantctl status acme --set suspended`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, _ app.Config) error {
				t, err := a.Registry.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if set != "" {
					if t, err = a.Registry.SetStatus(ctx, t.ID, tenant.Status(set)); err != nil {
						return err
					}
				}
				return out().tenant(t, partitionOf(ctx, a, t))
			})
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "new status: active, trial, inactive, suspended")
	return cmd
}

func newPartitionsCommand(out func() printer) *cobra.Command {
	return &cobra.Command{
		Use:   "partitions",
		Short: "List the partition catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, _ app.Config) error {
				list, err := a.Engine.Partitions(ctx)
				if err != nil {
					return err
				}
				return out().partitions(list)
			})
		},
	}
}

func newUpgradeCommand(out func() printer) *cobra.Command {
	var target int64
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Migrate the shared namespace and every partition to a structural revision",
		Long: `Upgrade migrates the shared namespace first, then every ready or degraded
partition, one revision at a time. A partition that fails is marked degraded
and the others continue; run the command again once the cause is fixed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, _ app.Config) error {
				report, err := a.Engine.UpgradeAll(ctx, target)
				_ = out().report(report)
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&target, "target", 0, "structural revision to reach; 0 means latest")
	return cmd
}

func newDeprovisionCommand() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "deprovision <slug>",
		Short: "Drop a tenant's partition and all data in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errNotConfirmed
			}
			return withApp(cmd, func(ctx context.Context, a *app.App, _ app.Config) error {
				t, err := a.Registry.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if t.Status.Serving() {
					if _, err := a.Registry.SetStatus(ctx, t.ID, tenant.StatusInactive); err != nil {
						return err
					}
				}
				if err := a.Engine.Deprovision(ctx, t.Slug); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "partition %q dropped\n", t.Slug)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the irreversible drop")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the shared namespace only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App, cfg app.Config) error {
				rev, err := a.MigrateShared(ctx, cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "shared namespace at revision %d\n", rev)
				return nil
			})
		},
	}
}
