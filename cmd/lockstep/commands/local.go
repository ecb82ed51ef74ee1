package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/federation"
	"github.com/dyluth/lockstep/internal/loopback"
	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/internal/printer"
	"github.com/dyluth/lockstep/pkg/fom"
)

var (
	localFile        string
	localInteractive bool
	localProgress    bool
)

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run a whole federation in one process",
	Long: `Run every federate listed in a federation file in this process.

Each federate runs on its own goroutine against an in-process federation
engine; no Redis is needed. The federation waits for every listed federate to
join before synchronizing, unless expect_federates says otherwise.

Examples:
  lockstep init
  lockstep local -f federation.yml --progress`,
	RunE: runLocal,
}

func init() {
	localCmd.Flags().StringVarP(&localFile, "file", "f", "federation.yml", "Federation file")
	localCmd.Flags().BoolVar(&localInteractive, "interactive", false, "Wait for ENTER before registering and achieving the synchronization point")
	localCmd.Flags().BoolVar(&localProgress, "progress", false, "Print one line per simulation step")
	rootCmd.AddCommand(localCmd)
}

func runLocal(cmd *cobra.Command, args []string) error {
	fed, err := config.LoadFederation(localFile)
	if err != nil {
		return printer.Error("invalid federation file", err.Error(), []string{"Create an example federation:\n  lockstep init"})
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	engineOpts := []federation.Option{federation.WithLogger(log.WithField("federation", fed.Federation.Name))}
	if doc := sharedDocument(fed.Members); doc != nil {
		engineOpts = append(engineOpts, federation.WithDocument(doc))
	}
	engine := federation.New(engineOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := runFlags{progress: localProgress, interactive: localInteractive, prompt: newPrompter(cmd.InOrStdin())}
	runs := make([]*federateRun, 0, len(fed.Members))
	defer func() {
		for _, r := range runs {
			r.Close()
		}
	}()
	for _, member := range fed.Members {
		r, err := newFederateRun(member, loopback.New(engine), flags)
		if err != nil {
			return fmt.Errorf("failed to set up federate '%s': %w", member.Federate.Name, err)
		}
		runs = append(runs, r)
	}

	printer.Step("Running %d federates in %s\n", len(runs), fed.Federation.Name)
	processors := make([]*lp.Processor, len(runs))
	for i, r := range runs {
		processors[i] = r.processor
	}
	errs := runFederates(ctx, processors)

	var failed []error
	for i, r := range runs {
		if errs[i] != nil {
			failed = append(failed, printer.ErrorWithContext("federate run failed", errs[i].Error(), runErrorContext(r.cfg, r.processor), nil))
			continue
		}
		printer.Summary(r.cfg.Federate.Name, r.processor.Stats())
	}
	return errors.Join(failed...)
}

// runFederates runs every processor on its own goroutine. The first failure
// cancels the others: they wait on each other and would otherwise block
// forever on a federate that is gone.
func runFederates(ctx context.Context, processors []*lp.Processor) []error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, len(processors))
	for i, p := range processors {
		i, p := i, p // per-iteration copy (go 1.21 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if errs[i] = p.Run(ctx); errs[i] != nil {
				cancel()
			}
		}()
	}
	wg.Wait()
	return errs
}

// sharedDocument returns the first object model named by a member. Members
// of one federation are expected to share it.
func sharedDocument(members []*config.FederateConfig) *fom.Document {
	for _, m := range members {
		if m.Document != nil {
			return m.Document
		}
	}
	return nil
}
