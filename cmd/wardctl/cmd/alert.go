package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AustinWheel/diving-duck-sub000/internal/models"
	"github.com/AustinWheel/diving-duck-sub000/internal/storage"
)

var (
	alertDBPath    string
	alertTenantID  string
	alertWindow    int
	alertThreshold int
	alertTypes     string
	alertNotify    string
	alertMessage   string
)

// alertCmd represents the alert command group
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Alert rule commands",
	Long: `Commands for managing tenant alert rules.

A tenant has one rule set: an optional global threshold over all
events plus any number of per-message rules. Rule edits take effect on
the next ingested event; there is no propagation delay.

Examples:
  # Alert when any 50 events arrive within 10 minutes
  wardctl alert set-global --tenant <tenant-id> --window 10 --threshold 50

  # Alert when "payment failed" occurs 5 times within 30 minutes
  wardctl alert add-message --tenant <tenant-id> --message "payment failed" --window 30 --threshold 5

  # Show a tenant's rule set
  wardctl alert show --tenant <tenant-id>`,
}

// alertSetGlobalCmd configures the global threshold rule
var alertSetGlobalCmd = &cobra.Command{
	Use:   "set-global",
	Short: "Set the global threshold rule",
	Long: `Set the global threshold rule for a tenant.

The rule fires when the total event count inside the sliding window
reaches the threshold, optionally restricted to specific event types.

Example:
  wardctl alert set-global --tenant <tenant-id> --window 10 --threshold 50 --types error,callText`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		types, err := parseEventTypes(alertTypes)
		if err != nil {
			return err
		}

		store, err := openDatabase(alertDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		config, err := tenantConfig(ctx, store, alertTenantID)
		if err != nil {
			return err
		}

		config.NotificationType = models.NotificationType(alertNotify)
		config.Global = models.GlobalLimit{
			Enabled:       true,
			WindowMinutes: alertWindow,
			MaxAlerts:     alertThreshold,
			LogTypes:      types,
		}
		config.UpdatedAt = time.Now()

		if err := config.Validate(); err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}
		if err := saveConfig(ctx, store, config); err != nil {
			return err
		}

		fmt.Printf("Global rule set: %d events in %d minute(s).\n", alertThreshold, alertWindow)

		return nil
	},
}

// alertAddMessageCmd adds a per-message rule
var alertAddMessageCmd = &cobra.Command{
	Use:   "add-message",
	Short: "Add a per-message rule",
	Long: `Add a rule that fires when events with an exactly matching message
reach the threshold inside the sliding window.

Example:
  wardctl alert add-message --tenant <tenant-id> --message "payment failed" --window 30 --threshold 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}
		if alertMessage == "" {
			return fmt.Errorf("--message is required")
		}

		types, err := parseEventTypes(alertTypes)
		if err != nil {
			return err
		}

		store, err := openDatabase(alertDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		config, err := tenantConfig(ctx, store, alertTenantID)
		if err != nil {
			return err
		}

		for _, mr := range config.MessageRules {
			if mr.Message == alertMessage {
				return fmt.Errorf("a rule for message %q already exists", alertMessage)
			}
		}

		config.MessageRules = append(config.MessageRules, models.MessageRule{
			Message:       alertMessage,
			WindowMinutes: alertWindow,
			MaxAlerts:     alertThreshold,
			LogTypes:      types,
		})
		config.UpdatedAt = time.Now()

		if err := config.Validate(); err != nil {
			return fmt.Errorf("invalid rule: %w", err)
		}
		if err := saveConfig(ctx, store, config); err != nil {
			return err
		}

		fmt.Printf("Message rule added: %q at %d events in %d minute(s).\n",
			alertMessage, alertThreshold, alertWindow)

		return nil
	},
}

// alertShowCmd prints a tenant's rule set
var alertShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a tenant's rule set",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertTenantID == "" {
			return fmt.Errorf("--tenant is required")
		}

		store, err := openDatabase(alertDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		configs, err := store.AlertConfigs().ListByTenant(context.Background(), alertTenantID)
		if err != nil {
			return fmt.Errorf("list configs: %w", err)
		}
		if len(configs) == 0 {
			fmt.Println("No rules configured.")
			return nil
		}

		for _, c := range configs {
			state := "enabled"
			if !c.Enabled {
				state = "disabled"
			}
			fmt.Printf("\nConfig %s (%s, notify: %s)\n", c.ID, state, c.NotificationType)
			if c.Global.Enabled {
				fmt.Printf("  global:  %d events in %dm%s\n",
					c.Global.MaxAlerts, c.Global.WindowMinutes, typeSuffix(c.Global.LogTypes))
			} else {
				fmt.Printf("  global:  off\n")
			}
			for _, mr := range c.MessageRules {
				fmt.Printf("  message: %q at %d in %dm%s\n",
					mr.Message, mr.MaxAlerts, mr.WindowMinutes, typeSuffix(mr.LogTypes))
			}
		}
		fmt.Println()

		return nil
	},
}

// tenantConfig loads the tenant's rule set, creating an empty one on
// first use.
func tenantConfig(ctx context.Context, store *storage.SQLiteStorage, tenantID string) (*models.AlertConfig, error) {
	tenant, err := store.Tenants().GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("tenant '%s' not found", tenantID)
	}

	configs, err := store.AlertConfigs().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	if len(configs) > 0 {
		return configs[0], nil
	}

	config := models.NewAlertConfig(tenantID)
	config.ID = uuid.New().String()
	return config, nil
}

// saveConfig persists a rule set, creating it when it has never been
// stored.
func saveConfig(ctx context.Context, store *storage.SQLiteStorage, config *models.AlertConfig) error {
	existing, err := store.AlertConfigs().GetByID(ctx, config.ID)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if existing == nil {
		if err := store.AlertConfigs().Create(ctx, config); err != nil {
			return fmt.Errorf("create config: %w", err)
		}
		return nil
	}
	if err := store.AlertConfigs().Update(ctx, config); err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	return nil
}

func parseEventTypes(raw string) ([]models.EventType, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	types := make([]models.EventType, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if !models.ValidEventType(p) {
			return nil, fmt.Errorf("invalid event type: %q", p)
		}
		types = append(types, models.EventType(p))
	}
	return types, nil
}

func typeSuffix(types []models.EventType) string {
	if len(types) == 0 {
		return ""
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return " (" + strings.Join(parts, ",") + ")"
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertSetGlobalCmd)
	alertCmd.AddCommand(alertAddMessageCmd)
	alertCmd.AddCommand(alertShowCmd)

	for _, cmd := range []*cobra.Command{alertSetGlobalCmd, alertAddMessageCmd, alertShowCmd} {
		cmd.Flags().StringVar(&alertDBPath, "db", defaultDBPath, "path to SQLite database file")
		cmd.Flags().StringVar(&alertTenantID, "tenant", "", "tenant id (required)")
		cmd.MarkFlagRequired("tenant")
	}

	for _, cmd := range []*cobra.Command{alertSetGlobalCmd, alertAddMessageCmd} {
		cmd.Flags().IntVar(&alertWindow, "window", 10, "sliding window in minutes (1-1440)")
		cmd.Flags().IntVar(&alertThreshold, "threshold", 10, "event count that fires the alert (1-1000)")
		cmd.Flags().StringVar(&alertTypes, "types", "", "comma-separated event types, empty for all")
	}

	alertSetGlobalCmd.Flags().StringVar(&alertNotify, "notify", "text", "notification type: text or call")
	alertAddMessageCmd.Flags().StringVar(&alertMessage, "message", "", "exact message to match (required)")
	alertAddMessageCmd.MarkFlagRequired("message")
}
