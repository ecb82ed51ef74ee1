package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/printer"
	"github.com/dyluth/lockstep/internal/rtia"
	"github.com/dyluth/lockstep/pkg/fedbus"
)

var (
	federateFile        string
	federateInteractive bool
	federateProgress    bool
)

var federateCmd = &cobra.Command{
	Use:   "federate",
	Short: "Run one federate over Redis",
	Long: `Run one federate against a federation server (lockstep rtig).

The federate creates the federation if it is first, joins it, synchronizes on
the start point, runs its simulation loop up to its time limit, then resigns.
The creator destroys the federation once every other federate has left.

The Redis URL comes from LOCKSTEP_REDIS_URL, the redis section of the file,
or redis://localhost:6379, in that order.

Examples:
  # Run the example plane federate
  lockstep federate -f federates/plane.yml

  # Pause before synchronizing, and print every step
  lockstep federate -f federates/plane.yml --interactive --progress`,
	RunE: runFederate,
}

func init() {
	federateCmd.Flags().StringVarP(&federateFile, "file", "f", "", "Federate file (required)")
	federateCmd.Flags().BoolVar(&federateInteractive, "interactive", false, "Wait for ENTER before registering and achieving the synchronization point")
	federateCmd.Flags().BoolVar(&federateProgress, "progress", false, "Print one line per simulation step")
	_ = federateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(federateCmd)
}

func runFederate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(federateFile)
	if err != nil {
		return printer.Error("invalid federate file", err.Error(), []string{"Check the file against the example: lockstep init"})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := fedbus.NewClientFromURL(cfg.RedisURL(), cfg.RedisInstance())
	if err != nil {
		return fmt.Errorf("failed to create bus client: %w", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis at %s", cfg.RedisURL()),
			map[string]string{"Instance": cfg.RedisInstance()},
			[]string{
				"Start Redis, then the federation server:\n  lockstep rtig",
				fmt.Sprintf("Point the federate elsewhere:\n  %s=redis://host:6379 lockstep federate -f %s", config.RedisURLEnv, federateFile),
			},
		)
	}

	run, err := newFederateRun(cfg, rtia.New(client), runFlags{
		progress:    federateProgress,
		interactive: federateInteractive,
		prompt:      newPrompter(cmd.InOrStdin()),
	})
	if err != nil {
		return fmt.Errorf("failed to set up federate: %w", err)
	}
	defer run.Close()

	printer.Step("Federate %s joining %s\n", cfg.Federate.Name, cfg.Federation.Name)
	if err := run.processor.Run(ctx); err != nil {
		suggestions := []string{"Check the federation server is running:\n  lockstep rtig"}
		if ctx.Err() != nil {
			suggestions = nil
		}
		return printer.ErrorWithContext("federate run failed", err.Error(), runErrorContext(cfg, run.processor), suggestions)
	}

	printer.Summary(cfg.Federate.Name, run.processor.Stats())
	return nil
}
