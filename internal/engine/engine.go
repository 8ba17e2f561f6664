package engine

import (
	"log/slog"
	"strings"

	"github.com/tartampluch/go-daily-events/internal/catalog"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// Plan is everything a run decided for one day, before delivery.
type Plan struct {
	Today   catalog.Date
	Matches []catalog.Event
	Lines   []string
	Units   []string

	// Content is the newline-joined rendered lines, before chunking.
	// It is the input of the idempotency fingerprint.
	Content string
}

// Empty reports whether there is nothing to deliver.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Units) == 0
}

// Planner runs the pure stages: match, render, chunk.
type Planner struct {
	Renderer      *Renderer
	MaxContentLen int

	// SplitMessages forces one chunking pass per event.
	SplitMessages bool
}

// Build computes the plan for today from the catalog.
func (p *Planner) Build(events []catalog.Event, today catalog.Date) (*Plan, error) {
	plan := &Plan{Today: today}
	plan.Matches = Match(events, today)

	log := slog.With(
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyDate, today.String(),
	)
	if len(plan.Matches) == 0 {
		log.Info(config.MsgNoMatches)
		return plan, nil
	}

	renderer := p.Renderer
	if renderer == nil {
		renderer = &Renderer{}
	}
	for _, ev := range plan.Matches {
		line, err := renderer.Render(ev, today)
		if err != nil {
			return nil, err
		}
		log.Debug(config.MsgMatched,
			config.LogKeyIndex, ev.Index,
			config.LogKeyKind, string(ev.Kind),
			config.LogKeyName, ev.Name)
		plan.Lines = append(plan.Lines, line)
	}
	plan.Content = strings.Join(plan.Lines, LineSeparator)

	var err error
	if p.SplitMessages {
		plan.Units, err = ChunkEach(plan.Lines, p.MaxContentLen)
	} else {
		plan.Units, err = Chunk(plan.Lines, p.MaxContentLen)
	}
	if err != nil {
		return nil, err
	}

	log.Info(config.MsgMatched,
		config.LogKeyCount, len(plan.Matches),
		config.LogKeyUnits, len(plan.Units))
	return plan, nil
}
