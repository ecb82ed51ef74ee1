package lp

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// federatesPollInterval paces the creator's membership polling.
const federatesPollInterval = 10 * time.Millisecond

// synchronize passes the start-of-simulation barrier. The creator registers
// the point; every federate then waits for its announcement, achieves it and
// waits for the federation to synchronize.
func (p *Processor) synchronize(ctx context.Context) error {
	label := p.opts.SyncPoint
	log := p.log.WithField("label", label)

	if p.creator {
		if err := p.waitForFederates(ctx); err != nil {
			return err
		}
		if h := p.opts.Hooks.BeforeRegisterSync; h != nil {
			if err := h(ctx); err != nil {
				return err
			}
		}
		p.registration = RegistrationPending
		if err := p.amb.RegisterFederationSynchronizationPoint(ctx, label, ""); err != nil {
			return fmt.Errorf("failed to register synchronization point %q: %w", label, err)
		}
		if err := p.pumpUntil(ctx, "synchronization point registration", func() bool {
			return p.registration != RegistrationPending
		}); err != nil {
			return err
		}
		if p.registration == RegistrationFailed {
			log.Error("Synchronization point registration failed")
			if p.opts.SyncFailure == SyncFailureAbort {
				return fmt.Errorf("%q: %w", label, ErrSyncRegistrationFailed)
			}
			// Only another registrant's point of the same label can end the
			// wait below; with none it blocks until ctx is cancelled.
			log.Warn("Waiting for an announcement from another registrant; this blocks until cancelled if none exists")
		} else {
			log.Info("Synchronization point registered")
		}
	}

	if err := p.pumpUntil(ctx, "synchronization point announcement", func() bool {
		return p.barrier >= BarrierAnnounced
	}); err != nil {
		return err
	}
	log.Debug("Synchronization point announced")

	if p.creator {
		if h := p.opts.Hooks.BeforeAchieveSync; h != nil {
			if err := h(ctx); err != nil {
				return err
			}
		}
	}

	if err := p.amb.SynchronizationPointAchieved(ctx, label); err != nil {
		return fmt.Errorf("failed to achieve synchronization point %q: %w", label, err)
	}
	if p.barrier < BarrierAchieved {
		p.barrier = BarrierAchieved
	}
	if err := p.pumpUntil(ctx, "federation synchronization", func() bool {
		return p.barrier == BarrierSynchronized
	}); err != nil {
		return err
	}
	log.Info("Federation synchronized")
	return nil
}

// waitForFederates blocks the creator until ExpectFederates members have
// joined, ticking between polls so queued callbacks keep flowing.
func (p *Processor) waitForFederates(ctx context.Context) error {
	want := p.opts.ExpectFederates
	if want <= 0 {
		return nil
	}
	m, ok := p.amb.(membership)
	if !ok {
		return fmt.Errorf("expecting %d federates but the ambassador cannot list members", want)
	}

	ticker := time.NewTicker(federatesPollInterval)
	defer ticker.Stop()
	last := -1
	for {
		if err := p.amb.Tick(ctx); err != nil {
			return fmt.Errorf("waiting for federates: %w", err)
		}
		if err := p.takeCallbackErr(); err != nil {
			return err
		}
		names, err := m.JoinedFederates(ctx)
		if err != nil {
			return fmt.Errorf("failed to list federates: %w", err)
		}
		if len(names) != last {
			last = len(names)
			p.log.WithFields(logrus.Fields{"joined": last, "expected": want}).Info("Waiting for federates")
		}
		if len(names) >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for federates: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
