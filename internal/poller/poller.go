// Package poller waits for a deploy to reach a terminal status.
//
// The poller is a small state machine. It starts in Polling and moves to
// exactly one of TimedOut, Succeeded or Failed. Every transition is decided
// by Next so the table can be tested without a network or a clock.
package poller

import (
	"context"
	"fmt"
	"time"

	"renderdeploy/internal/render"
)

const (
	// DefaultInterval is the fixed wait between status fetches
	DefaultInterval = 5 * time.Second

	// DefaultTimeout is how long to wait before giving up locally
	DefaultTimeout = 600 * time.Second
)

// State is a poller state.
type State int

const (
	Polling State = iota
	TimedOut
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case TimedOut:
		return "timed_out"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether the poller stops in this state.
func (s State) IsTerminal() bool {
	return s != Polling
}

// Next is the transition table. status is nil when no fetch has happened
// in this cycle yet, which only happens on the timeout check.
func Next(elapsed, timeout time.Duration, status *render.DeployStatus) State {
	if status == nil {
		if elapsed > timeout {
			return TimedOut
		}
		return Polling
	}

	switch status.Class() {
	case render.ClassSucceeded:
		return Succeeded
	case render.ClassFailed:
		return Failed
	default:
		return Polling
	}
}

// Fetcher reads the current state of a deploy.
type Fetcher interface {
	GetDeploy(ctx context.Context, serviceID, deployID string) (render.Deploy, error)
}

// Clock abstracts time so tests can run the loop instantly.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Result is the outcome of Poll.
type Result struct {
	State State

	// Deploy is the last fetched deploy. It is the zero value when the
	// poller timed out before the first fetch.
	Deploy render.Deploy

	// Elapsed is measured from loop entry to the final transition.
	Elapsed time.Duration

	// Polls counts status fetches.
	Polls int
}

// Poller polls one deploy at a fixed interval.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	timeout  time.Duration
	clock    Clock
	onStatus func(render.Deploy)
}

// Option customises a Poller.
type Option func(*Poller)

// WithInterval sets the wait between fetches.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTimeout sets how long Poll waits before reporting TimedOut.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithObserver is called with every fetched deploy, terminal or not.
func WithObserver(fn func(render.Deploy)) Option {
	return func(p *Poller) {
		p.onStatus = fn
	}
}

// New creates a poller reading deploys through fetcher.
func New(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		interval: DefaultInterval,
		timeout:  DefaultTimeout,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Interval returns the configured wait between fetches.
func (p *Poller) Interval() time.Duration { return p.interval }

// Timeout returns the configured local deadline.
func (p *Poller) Timeout() time.Duration { return p.timeout }

// Poll fetches the deploy every interval until it is terminal or the
// timeout has elapsed. A timeout does not cancel the remote deploy.
// Fetch errors end the loop immediately and are returned wrapped.
func (p *Poller) Poll(ctx context.Context, serviceID, deployID string) (Result, error) {
	start := p.clock.Now()
	var res Result

	for {
		res.Elapsed = p.clock.Now().Sub(start)
		if Next(res.Elapsed, p.timeout, nil) == TimedOut {
			res.State = TimedOut
			return res, nil
		}

		if err := p.clock.Sleep(ctx, p.interval); err != nil {
			return res, err
		}

		deploy, err := p.fetcher.GetDeploy(ctx, serviceID, deployID)
		if err != nil {
			return res, fmt.Errorf("fetch deploy status: %w", err)
		}
		res.Polls++
		res.Deploy = deploy
		res.Elapsed = p.clock.Now().Sub(start)

		if p.onStatus != nil {
			p.onStatus(deploy)
		}

		if state := Next(res.Elapsed, p.timeout, &deploy.Status); state.IsTerminal() {
			res.State = state
			return res, nil
		}
	}
}
