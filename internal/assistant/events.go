package assistant

import (
	"context"

	"wardroom/internal/appstate"
	"wardroom/internal/logging"
	"wardroom/internal/session"
)

// BindState subscribes the orchestrator to the cross-tool event bus
// and returns the unsubscribe function. Selection events become
// feature cards, deselection removes them, and IQ actions route
// through the action table.
func (o *Orchestrator) BindState(ctx context.Context) func() {
	return o.state.Subscribe(func(ev appstate.Event) {
		o.handleEvent(ctx, ev)
	})
}

func (o *Orchestrator) handleEvent(ctx context.Context, ev appstate.Event) {
	switch ev.Type {
	case appstate.EventFeatureSelected:
		if ev.Feature == nil {
			return
		}
		o.session.States.Set(session.StateActive)
		card := featureCard(*ev.Feature, o.state.Snapshot().Temporal.Year)
		o.session.Messages.Append(session.NewFeatureCardMessage(card))
		logging.SessionDebug("feature card appended for %s", ev.Feature.ID)

	case appstate.EventFeatureDeselected:
		removed := o.session.Messages.RemoveFeatureCards()
		logging.SessionDebug("removed %d feature card(s)", removed)

	case appstate.EventIQAction:
		if ev.Action == "" {
			return
		}
		o.HandleAction(ctx, ev.Action, nil)
	}
}

// featureCard maps the selection payload onto the card renderable,
// defaulting the year to the temporal selection.
func featureCard(f appstate.Feature, fallbackYear int) session.FeatureCard {
	year := f.Year
	if year == 0 {
		year = fallbackYear
	}
	return session.FeatureCard{
		PrecinctID:       f.ID,
		Name:             f.Name,
		Jurisdiction:     f.Jurisdiction,
		Year:             year,
		RegisteredVoters: f.RegisteredVoters,
		Turnout:          f.Turnout,
		PartisanLean:     f.PartisanLean,
		SwingScore:       f.SwingScore,
	}
}
