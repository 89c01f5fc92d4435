package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
)

var (
	keyDBPath   string
	keyTenantID string
	keyLabel    string
	keyID       string
)

// keyCmd represents the key command group
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Ingestion API key management commands",
	Long: `Commands for managing tenant ingestion API keys.

Keys authenticate event producers against POST /v1/events. The
plaintext key is shown exactly once at issue time; only a hash of its
secret is stored.

Examples:
  # Issue a key for a tenant
  wardctl key issue --tenant <tenant-id> --label production

  # List a tenant's keys
  wardctl key list --tenant <tenant-id>

  # Revoke a key
  wardctl key revoke --id <key-id>`,
}

// keyIssueCmd issues a new API key
var keyIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new ingestion key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		store, err := openDatabase(keyDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		tenant, err := store.Tenants().GetByID(ctx, keyTenantID)
		if err != nil {
			return fmt.Errorf("find tenant: %w", err)
		}
		if tenant == nil {
			return fmt.Errorf("tenant '%s' not found", keyTenantID)
		}

		key, plain, err := models.NewAPIKey(tenant.ID, keyLabel)
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}

		if err := store.APIKeys().Create(ctx, key); err != nil {
			return fmt.Errorf("store key: %w", err)
		}

		fmt.Printf("\nKey issued for tenant '%s':\n", tenant.Name)
		fmt.Printf("  ID:    %s\n", key.ID)
		if key.Label != "" {
			fmt.Printf("  Label: %s\n", key.Label)
		}
		fmt.Printf("\n  %s\n\n", plain)
		fmt.Println("Store this key now. It cannot be recovered.")

		return nil
	},
}

// keyListCmd lists a tenant's API keys
var keyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a tenant's ingestion keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		store, err := openDatabase(keyDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		keys, err := store.APIKeys().ListByTenant(context.Background(), keyTenantID)
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}

		if len(keys) == 0 {
			fmt.Println("No keys found.")
			return nil
		}

		fmt.Printf("\n%-32s  %-20s  %-9s  %s\n", "ID", "LABEL", "STATUS", "CREATED")
		fmt.Println(strings.Repeat("-", 90))

		for _, k := range keys {
			status := "active"
			if k.Revoked {
				status = "revoked"
			}
			fmt.Printf("%-32s  %-20s  %-9s  %s\n",
				k.ID,
				k.Label,
				status,
				k.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d key(s)\n", len(keys))

		return nil
	},
}

// keyRevokeCmd revokes an API key
var keyRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke an ingestion key",
	Long: `Revoke an ingestion key. Revocation is immediate and permanent;
requests authenticated with the key fail on the next use.

Example:
  wardctl key revoke --id <key-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyID == "" {
			return fmt.Errorf("--id is required")
		}

		store, err := openDatabase(keyDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		key, err := store.APIKeys().GetByID(ctx, keyID)
		if err != nil {
			return fmt.Errorf("find key: %w", err)
		}
		if key == nil {
			return fmt.Errorf("key '%s' not found", keyID)
		}
		if key.Revoked {
			fmt.Printf("Key '%s' is already revoked.\n", keyID)
			return nil
		}

		if err := store.APIKeys().Revoke(ctx, keyID); err != nil {
			return fmt.Errorf("revoke key: %w", err)
		}

		fmt.Printf("Key '%s' revoked.\n", keyID)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyIssueCmd)
	keyCmd.AddCommand(keyListCmd)
	keyCmd.AddCommand(keyRevokeCmd)

	for _, cmd := range []*cobra.Command{keyIssueCmd, keyListCmd, keyRevokeCmd} {
		cmd.Flags().StringVar(&keyDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	keyIssueCmd.Flags().StringVar(&keyTenantID, "tenant", "", "tenant id (required)")
	keyIssueCmd.Flags().StringVar(&keyLabel, "label", "", "key label, e.g. 'production'")
	keyIssueCmd.MarkFlagRequired("tenant")

	keyListCmd.Flags().StringVar(&keyTenantID, "tenant", "", "tenant id (required)")
	keyListCmd.MarkFlagRequired("tenant")

	keyRevokeCmd.Flags().StringVar(&keyID, "id", "", "key id (required)")
	keyRevokeCmd.MarkFlagRequired("id")
}
