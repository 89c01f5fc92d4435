package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

var (
	tenantDBPath string
	tenantName   string
	tenantTier   string
	tenantID     string
)

// tenantCmd represents the tenant command group
var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Tenant management commands",
	Long: `Commands for managing Warden tenants.

A tenant's tier fixes its event bucket granularity and daily quotas:
  - dev:    60 minute buckets, 1,000 events/day, 10 alerts/day
  - growth: 10 minute buckets, 20,000 events/day, 100 alerts/day
  - scale:  1 minute buckets, 200,000 events/day, 500 alerts/day

Examples:
  # List all tenants
  wardctl tenant list

  # Create a tenant on the growth tier
  wardctl tenant create --name acme --tier growth

  # Move a tenant to another tier
  wardctl tenant tier --id <tenant-id> --tier scale`,
}

// tenantListCmd lists all tenants
var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(tenantDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		tenants, err := store.Tenants().List(context.Background())
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}

		if len(tenants) == 0 {
			fmt.Println("No tenants found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-20s  %-8s  %s\n", "ID", "NAME", "TIER", "CREATED")
		fmt.Println(strings.Repeat("-", 90))

		for _, t := range tenants {
			fmt.Printf("%-36s  %-20s  %-8s  %s\n",
				t.ID,
				t.Name,
				t.Tier,
				t.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d tenant(s)\n", len(tenants))

		return nil
	},
}

// tenantCreateCmd creates a new tenant
var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new tenant",
	Long: `Create a new tenant.

Example:
  wardctl tenant create --name acme --tier growth`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tenantName == "" {
			return fmt.Errorf("--name is required")
		}

		store, err := openDatabase(tenantDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		existing, err := store.Tenants().GetByName(ctx, tenantName)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("tenant '%s' already exists", tenantName)
		}

		tenant := models.NewTenant(strings.TrimSpace(tenantName))
		tenant.ID = uuid.New().String()
		tenant.Tier = models.ParseTier(tenantTier)

		if err := store.Tenants().Create(ctx, tenant); err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}

		limits := tenant.Tier.Limits()
		fmt.Printf("\nTenant created successfully:\n")
		fmt.Printf("  ID:      %s\n", tenant.ID)
		fmt.Printf("  Name:    %s\n", tenant.Name)
		fmt.Printf("  Tier:    %s (%dm buckets, %d events/day, %d alerts/day)\n",
			tenant.Tier, limits.BucketMinutes, limits.DailyEvents, limits.DailyAlerts)

		return nil
	},
}

// tenantTierCmd changes a tenant's tier
var tenantTierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Change a tenant's tier",
	Long: `Change the subscription tier of an existing tenant.

Tier changes take effect for newly ingested events; buckets written
under the old granularity keep their original keys.

Example:
  wardctl tenant tier --id <tenant-id> --tier scale`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tenantID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase(tenantDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		tenant, err := store.Tenants().GetByID(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("find tenant: %w", err)
		}
		if tenant == nil {
			return fmt.Errorf("tenant '%s' not found", tenantID)
		}

		tenant.Tier = models.ParseTier(tenantTier)
		tenant.UpdatedAt = time.Now()

		if err := store.Tenants().Update(ctx, tenant); err != nil {
			return fmt.Errorf("update tenant: %w", err)
		}

		fmt.Printf("Tenant '%s' moved to tier %s.\n", tenant.Name, tenant.Tier)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantListCmd)
	tenantCmd.AddCommand(tenantCreateCmd)
	tenantCmd.AddCommand(tenantTierCmd)

	for _, cmd := range []*cobra.Command{tenantListCmd, tenantCreateCmd, tenantTierCmd} {
		cmd.Flags().StringVar(&tenantDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	tenantCreateCmd.Flags().StringVar(&tenantName, "name", "", "tenant name (required)")
	tenantCreateCmd.Flags().StringVar(&tenantTier, "tier", "dev", "tier: dev, growth, or scale")
	tenantCreateCmd.MarkFlagRequired("name")

	tenantTierCmd.Flags().StringVar(&tenantID, "id", "", "tenant id (required)")
	tenantTierCmd.Flags().StringVar(&tenantTier, "tier", "dev", "tier: dev, growth, or scale")
	tenantTierCmd.MarkFlagRequired("id")
}
