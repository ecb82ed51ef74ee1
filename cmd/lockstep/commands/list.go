package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/listing"
	"github.com/dyluth/lockstep/internal/printer"
	"github.com/dyluth/lockstep/pkg/fedbus"
)

var (
	listRedisURL string
	listInstance string
	listOutput   string
	listName     string
	listFederate string
	listTimeout  time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the federations a server hosts",
	Long: `Ask the federation server of a bus instance for its live federation
executions and show every joined federate with its logical time, lookahead,
time mode (R regulating, C constrained) and whether it is waiting for a grant.

Examples:
  lockstep list
  lockstep list --federation 'sea*' -o jsonl | jq .`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listRedisURL, "redis-url", "", fmt.Sprintf("Redis URL (default: $%s or %s)", config.RedisURLEnv, config.DefaultRedisURL))
	listCmd.Flags().StringVar(&listInstance, "instance", fedbus.DefaultInstance, "Bus instance to query")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", string(listing.OutputFormatDefault), "Output format: default or jsonl")
	listCmd.Flags().StringVar(&listName, "federation", "", "Glob pattern for federation names")
	listCmd.Flags().StringVar(&listFederate, "federate", "", "Only federations this federate has joined")
	listCmd.Flags().DurationVar(&listTimeout, "timeout", 5*time.Second, "How long to wait for the server")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	format := listing.OutputFormat(listOutput)
	if format != listing.OutputFormatDefault && format != listing.OutputFormatJSONL {
		return printer.Error("invalid output format", fmt.Sprintf("Unknown format '%s'", listOutput), []string{"Use -o default or -o jsonl"})
	}
	if err := listing.ValidateGlob(listName); err != nil {
		return printer.Error("invalid federation pattern", err.Error(), nil)
	}

	url := redisURL(listRedisURL)
	client, err := fedbus.NewClientFromURL(url, listInstance)
	if err != nil {
		return fmt.Errorf("failed to create bus client: %w", err)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", url),
			map[string]string{"Instance": listInstance},
			[]string{"Point at the server the federation uses with --redis-url"},
		)
	}

	filters := &listing.FilterCriteria{NameGlob: listName, Federate: listFederate}
	if err := listing.ListFederations(ctx, client, listTimeout, listInstance, format, filters, cmd.OutOrStdout()); err != nil {
		return printer.ErrorWithContext(
			"listing failed",
			err.Error(),
			map[string]string{"Instance": listInstance},
			[]string{"Start a federation server with:\n  lockstep rtig"},
		)
	}
	return nil
}
