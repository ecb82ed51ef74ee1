package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/printer"
	"github.com/dyluth/lockstep/internal/rtig"
	"github.com/dyluth/lockstep/pkg/fedbus"
	"github.com/dyluth/lockstep/pkg/fom"
)

var (
	rtigRedisURL   string
	rtigInstance   string
	rtigHealthAddr string
	rtigFOM        string
)

var rtigCmd = &cobra.Command{
	Use:   "rtig",
	Short: "Run the federation server",
	Long: `Run the federation server that federates started with
'lockstep federate' talk to through Redis.

One server hosts every federation of a bus instance. With --health-addr it
also serves /healthz (Redis connectivity) and /metrics (Prometheus).

Examples:
  lockstep rtig
  lockstep rtig --redis-url redis://redis:6379 --health-addr :8080 --fom fom.yml`,
	RunE: runRTIG,
}

func init() {
	rtigCmd.Flags().StringVar(&rtigRedisURL, "redis-url", "", fmt.Sprintf("Redis URL (default: $%s or %s)", config.RedisURLEnv, config.DefaultRedisURL))
	rtigCmd.Flags().StringVar(&rtigInstance, "instance", fedbus.DefaultInstance, "Bus instance to serve")
	rtigCmd.Flags().StringVar(&rtigHealthAddr, "health-addr", "", "Address for /healthz and /metrics (disabled when empty)")
	rtigCmd.Flags().StringVar(&rtigFOM, "fom", "", "Object model predeclaring class and attribute names")
	rootCmd.AddCommand(rtigCmd)
}

// redisURL resolves an explicit flag, then the environment, then the default.
func redisURL(flag string) string {
	if flag != "" {
		return flag
	}
	return (&config.FederateConfig{}).RedisURL()
}

func runRTIG(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}

	var doc *fom.Document
	if rtigFOM != "" {
		if doc, err = fom.LoadDocument(rtigFOM); err != nil {
			return printer.Error("invalid object model", err.Error(), nil)
		}
	}

	url := redisURL(rtigRedisURL)
	client, err := fedbus.NewClientFromURL(url, rtigInstance)
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
			nil,
			[]string{"Start Redis locally:\n  docker run -p 6379:6379 redis:7-alpine", "Point at another server with --redis-url"},
		)
	}

	printer.Success("Federation server serving instance '%s' on %s\n", rtigInstance, url)
	server := rtig.NewServer(client, logrus.NewEntry(log), rtig.Options{Document: doc, HealthAddr: rtigHealthAddr})
	return server.Run(ctx)
}
