package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dyluth/lockstep/internal/config"
	"github.com/dyluth/lockstep/internal/lp"
	"github.com/dyluth/lockstep/internal/printer"
	"github.com/dyluth/lockstep/internal/scenario"
	"github.com/dyluth/lockstep/pkg/rti"
)

// runFlags are the per-federate switches shared by `federate` and `local`.
type runFlags struct {
	progress    bool
	interactive bool
	// prompt is shared by every federate of the process.
	prompt *prompter
}

// federateRun wires one federate file to a logical processor.
type federateRun struct {
	cfg       *config.FederateConfig
	scenario  *scenario.Scenario
	recorder  *scenario.Recorder
	trace     *os.File
	processor *lp.Processor
}

// newFederateRun builds the scenario, opens the trace and dump files and
// creates the processor on amb.
func newFederateRun(cfg *config.FederateConfig, amb rti.Ambassador, flags runFlags) (_ *federateRun, err error) {
	r := &federateRun{cfg: cfg}
	defer func() {
		if err != nil {
			r.Close()
		}
	}()

	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	if cfg.Federate.TraceFile != "" {
		if r.trace, err = os.Create(cfg.Federate.TraceFile); err != nil {
			return nil, fmt.Errorf("failed to create trace file: %w", err)
		}
		log.SetOutput(io.MultiWriter(os.Stderr, r.trace))
	}

	if r.scenario, err = scenario.Build(cfg.Objects); err != nil {
		return nil, err
	}
	if r.recorder, err = scenario.OpenRecorder(cfg.Federate.ProducedFile, cfg.Federate.ConsumedFile); err != nil {
		return nil, err
	}
	r.scenario.Record(r.recorder)

	opts := cfg.ProcessorOptions()
	opts.Compute = r.scenario.Computation()
	if flags.progress {
		opts.Hooks.AfterStep = func(_ context.Context, p *lp.Processor) error {
			printer.Progress(cfg.Federate.Name, p.StepNumber(), p.LocalTime(), cfg.TimeLimit)
			return nil
		}
	}
	if flags.interactive || cfg.Federate.Interactive {
		pause := flags.prompt
		if pause == nil {
			pause = newPrompter(os.Stdin)
		}
		opts.Hooks.BeforeRegisterSync = pause.hook(cfg.Federate.Name, "register the synchronization point")
		opts.Hooks.BeforeAchieveSync = pause.hook(cfg.Federate.Name, "start the simulation")
	}

	if r.processor, err = lp.New(amb, r.scenario.Model(), opts, logrus.NewEntry(log)); err != nil {
		return nil, err
	}
	return r, nil
}

// Close flushes the dumps and closes the trace file. It is safe on a
// partially built run.
func (r *federateRun) Close() error {
	if r == nil {
		return nil
	}
	errs := []error{r.recorder.Close()}
	if r.trace != nil {
		errs = append(errs, r.trace.Close())
	}
	return errors.Join(errs...)
}

// prompter waits for ENTER on stdin. Several federates of one process share
// it so their prompts never interleave.
type prompter struct {
	mu     sync.Mutex
	reader *bufio.Reader
}

func newPrompter(in io.Reader) *prompter {
	return &prompter{reader: bufio.NewReader(in)}
}

func (p *prompter) hook(federate, what string) func(context.Context) error {
	return func(ctx context.Context) error {
		p.mu.Lock()
		defer p.mu.Unlock()
		printer.Step("%s: press ENTER to %s\n", federate, what)

		read := make(chan error, 1)
		go func() {
			_, err := p.reader.ReadString('\n')
			read <- err
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-read:
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read from stdin: %w", err)
			}
			return nil
		}
	}
}

// runErrorContext describes a failed run for printer.ErrorWithContext.
func runErrorContext(cfg *config.FederateConfig, p *lp.Processor) map[string]string {
	return map[string]string{
		"Federation": cfg.Federation.Name,
		"Federate":   cfg.Federate.Name,
		"Phase":      p.Phase().String(),
		"Local time": p.LocalTime().String(),
	}
}
