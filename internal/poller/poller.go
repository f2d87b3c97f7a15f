// Package poller waits for a build to finish on the rdgen server.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ligustah/rdgen/internal/progress"
	"github.com/ligustah/rdgen/internal/scrape"
)

// Defaults for the status loop.
const (
	DefaultInterval = 15 * time.Second
	DefaultMaxWait  = 7200 * time.Second
)

var (
	// ErrTimeout is returned when the build does not finish within MaxWait.
	ErrTimeout = errors.New("poller: waiting for too long, the build might need to be checked manually")
	// ErrNoFileGenerated is returned when the build finished without a result file.
	ErrNoFileGenerated = errors.New("poller: no result file was generated")
)

// Checker fetches and classifies the current status page for a build.
type Checker interface {
	Check(ctx context.Context, id scrape.Identity) (scrape.Status, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures the status loop.
type Options struct {
	// Interval between status checks.
	// Default: 15s
	Interval time.Duration

	// MaxWait is the ceiling on accumulated waiting time.
	// Default: 7200s
	MaxWait time.Duration

	// Reporter receives stage updates. Nil discards them.
	Reporter progress.Reporter

	Logger logrus.FieldLogger

	// Sleep replaces the context-aware timer, mostly for tests.
	Sleep SleepFunc
}

// Result summarizes a successful wait.
type Result struct {
	Checks  int
	Elapsed time.Duration
}

// Poller runs the status loop for one build at a time.
type Poller struct {
	checker Checker
	opts    Options
	log     logrus.FieldLogger
}

// New creates a Poller.
func New(checker Checker, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.Reporter == nil {
		opts.Reporter = discardReporter{}
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Poller{
		checker: checker,
		opts:    opts,
		log:     log.WithField("component", "poller"),
	}
}

// MaxChecks is the largest number of status checks Wait will perform.
func (p *Poller) MaxChecks() int {
	return int((p.opts.MaxWait + p.opts.Interval - 1) / p.opts.Interval)
}

// Wait checks the build status every Interval until the build is generated.
// Elapsed time advances by Interval per check, so the loop never performs
// more than MaxChecks checks.
func (p *Poller) Wait(ctx context.Context, id scrape.Identity) (Result, error) {
	defer p.opts.Reporter.Finish()

	var (
		elapsed time.Duration
		checks  int
	)

	for {
		status, err := p.checker.Check(ctx, id)
		checks++
		if err != nil {
			return Result{Checks: checks, Elapsed: elapsed}, err
		}

		p.log.WithFields(logrus.Fields{
			"check": checks,
			"state": status.State.String(),
		}).Trace("status checked")

		switch status.State {
		case scrape.StateGenerated:
			return Result{Checks: checks, Elapsed: elapsed}, nil
		case scrape.StateGeneratedWithError:
			return Result{Checks: checks, Elapsed: elapsed}, ErrNoFileGenerated
		case scrape.StateGenerating:
			p.opts.Reporter.Stage(elapsed, status.Stage)
		default:
			return Result{Checks: checks, Elapsed: elapsed}, &scrape.UnknownTitleError{Title: status.Title}
		}

		if err := p.opts.Sleep(ctx, p.opts.Interval); err != nil {
			return Result{Checks: checks, Elapsed: elapsed}, err
		}
		elapsed += p.opts.Interval

		if elapsed >= p.opts.MaxWait {
			return Result{Checks: checks, Elapsed: elapsed}, fmt.Errorf("%w (%s)", ErrTimeout, elapsed)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type discardReporter struct{}

func (discardReporter) Stage(time.Duration, string) {}
func (discardReporter) Finish()                     {}
