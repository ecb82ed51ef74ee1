package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/printer"
	"github.com/dyluth/lockstep/internal/watch"
	"github.com/dyluth/lockstep/pkg/fedbus"
)

var (
	watchRedisURL   string
	watchInstance   string
	watchFederation string
	watchFederate   string
	watchUntil      string
	watchTimeout    time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor federation activity",
	Long: `Stream the events a federation server publishes: federations created
and destroyed, federates joining and resigning, synchronization points and
time advance grants.

With --until the command exits once an event of that type is seen, printing
it as JSON; useful in scripts.

Examples:
  # Watch everything on the default instance
  lockstep watch

  # Follow one federation
  lockstep watch --federation seaplanes

  # Block until the federation is destroyed
  lockstep watch --federation seaplanes --until federation_destroyed --timeout 5m`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRedisURL, "redis-url", "", fmt.Sprintf("Redis URL (default: $%s or %s)", config.RedisURLEnv, config.DefaultRedisURL))
	watchCmd.Flags().StringVar(&watchInstance, "instance", fedbus.DefaultInstance, "Bus instance to watch")
	watchCmd.Flags().StringVar(&watchFederation, "federation", "", "Only show events of this federation")
	watchCmd.Flags().StringVar(&watchFederate, "federate", "", "Only show events of this federate")
	watchCmd.Flags().StringVar(&watchUntil, "until", "", "Exit after the first event of this type")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", time.Minute, "How long --until waits")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	url := redisURL(watchRedisURL)
	client, err := fedbus.NewClientFromURL(url, watchInstance)
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
			map[string]string{"Instance": watchInstance},
			[]string{"Point at the server the federation uses with --redis-url"},
		)
	}

	sub, err := client.SubscribeMonitorEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	filter := watch.Filter{Federation: watchFederation, Federate: watchFederate}
	if watchUntil == "" {
		return watch.Stream(ctx, sub, cmd.OutOrStdout(), filter)
	}

	e, err := watch.WaitForEvent(ctx, sub, watch.TypeIs(watchUntil, filter), watchTimeout)
	if err != nil {
		return printer.Error(fmt.Sprintf("no %s event", watchUntil), err.Error(), nil)
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(e)
}
