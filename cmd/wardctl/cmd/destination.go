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
	destDBPath   string
	destTenantID string
	destPhone    string
	destLabel    string
	destID       string
)

// destinationCmd represents the destination command group
var destinationCmd = &cobra.Command{
	Use:   "destination",
	Short: "Notification destination commands",
	Long: `Commands for managing notification phone numbers.

Alerts for a tenant are sent to every configured destination. Phone
numbers must be in E.164 format (+15551234567).

Examples:
  # Add a destination
  wardctl destination add --tenant <tenant-id> --phone +15551234567 --label oncall

  # List a tenant's destinations
  wardctl destination list --tenant <tenant-id>

  # Remove a destination
  wardctl destination remove --id <destination-id>`,
}

// destinationAddCmd adds a notification destination
var destinationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a notification destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		if destTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}
		phone := strings.TrimSpace(destPhone)
		if err := validatePhone(phone); err != nil {
			return err
		}

		store, err := openDatabase(destDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		tenant, err := store.Tenants().GetByID(ctx, destTenantID)
		if err != nil {
			return fmt.Errorf("find tenant: %w", err)
		}
		if tenant == nil {
			return fmt.Errorf("tenant '%s' not found", destTenantID)
		}

		dest := &models.Destination{
			ID:          uuid.New().String(),
			TenantID:    tenant.ID,
			PhoneNumber: phone,
			Label:       strings.TrimSpace(destLabel),
			CreatedAt:   time.Now(),
		}

		if err := store.Destinations().Create(ctx, dest); err != nil {
			return fmt.Errorf("create destination: %w", err)
		}

		fmt.Printf("Destination %s added for tenant '%s'.\n", dest.PhoneNumber, tenant.Name)

		return nil
	},
}

// destinationListCmd lists a tenant's destinations
var destinationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's destinations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if destTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		store, err := openDatabase(destDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		dests, err := store.Destinations().ListByTenant(context.Background(), destTenantID)
		if err != nil {
			return fmt.Errorf("list destinations: %w", err)
		}

		if len(dests) == 0 {
			fmt.Println("No destinations found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-16s  %-20s  %s\n", "ID", "PHONE", "LABEL", "CREATED")
		fmt.Println(strings.Repeat("-", 100))

		for _, d := range dests {
			fmt.Printf("%-36s  %-16s  %-20s  %s\n",
				d.ID,
				d.PhoneNumber,
				d.Label,
				d.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d destination(s)\n", len(dests))

		return nil
	},
}

// destinationRemoveCmd removes a destination
var destinationRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a notification destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		if destID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase(destDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Destinations().Delete(context.Background(), destID); err != nil {
			return fmt.Errorf("remove destination: %w", err)
		}

		fmt.Printf("Destination '%s' removed.\n", destID)

		return nil
	},
}

// validatePhone checks for E.164 format: a plus sign followed by
// 8 to 15 digits, the first of which is non-zero.
func validatePhone(phone string) error {
	if len(phone) < 9 || len(phone) > 16 || phone[0] != '+' {
		return fmt.Errorf("phone number must be in E.164 format, e.g. +15551234567")
	}
	digits := phone[1:]
	if digits[0] == '0' {
		return fmt.Errorf("phone number must be in E.164 format, e.g. +15551234567")
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return fmt.Errorf("phone number must be in E.164 format, e.g. +15551234567")
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(destinationCmd)
	destinationCmd.AddCommand(destinationAddCmd)
	destinationCmd.AddCommand(destinationListCmd)
	destinationCmd.AddCommand(destinationRemoveCmd)

	for _, cmd := range []*cobra.Command{destinationAddCmd, destinationListCmd, destinationRemoveCmd} {
		cmd.Flags().StringVar(&destDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	destinationAddCmd.Flags().StringVar(&destTenantID, "tenant", "", "tenant id (required)")
	destinationAddCmd.Flags().StringVar(&destPhone, "phone", "", "phone number in E.164 format (required)")
	destinationAddCmd.Flags().StringVar(&destLabel, "label", "", "destination label, e.g. 'oncall'")
	destinationAddCmd.MarkFlagRequired("tenant")
	destinationAddCmd.MarkFlagRequired("phone")

	destinationListCmd.Flags().StringVar(&destTenantID, "tenant", "", "tenant id (required)")
	destinationListCmd.MarkFlagRequired("tenant")

	destinationRemoveCmd.Flags().StringVar(&destID, "id", "", "destination id (required)")
	destinationRemoveCmd.MarkFlagRequired("id")
}
