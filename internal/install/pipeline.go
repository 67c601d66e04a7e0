package install

import (
	"fmt"
	"time"
)

// Phase is one step of an install flow.
type Phase interface {
	Name() string
	Title() string
	Run(ctx *Context) error
}

type phase struct {
	name  string
	title string
	run   func(ctx *Context) error
}

func (p phase) Name() string           { return p.name }
func (p phase) Title() string          { return p.title }
func (p phase) Run(ctx *Context) error { return p.run(ctx) }

// NewPhase builds a Phase from a function.
func NewPhase(name, title string, run func(ctx *Context) error) Phase {
	return phase{name: name, title: title, run: run}
}

// RunPhases executes phases in order and stops at the first failure.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	log := ctx.Out.Logger().WithName(ctx.Command)
	log.Info("starting", "phases", len(phases))

	for i, p := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		phaseStart := time.Now()
		phaseStarted(ctx.Observer, p.Name(), fmt.Sprintf("%s (%d/%d)", p.Title(), i+1, len(phases)))

		err := p.Run(ctx)
		ctx.Metrics.ObservePhase(ctx.Command, p.Name(), time.Since(phaseStart))
		if err != nil {
			phaseFailed(ctx.Observer, p.Name(), err)
			return fmt.Errorf("%s phase failed: %w", p.Name(), err)
		}

		phaseCompleted(ctx.Observer, p.Name(), time.Since(phaseStart))
	}

	log.Info("completed", "duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}
