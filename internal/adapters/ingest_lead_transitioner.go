package adapters

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadinbox_backend/internal/ingest/ports"
	leadstatedomain "leadinbox_backend/internal/leadstate/domain"
	leadstateservice "leadinbox_backend/internal/leadstate/service"
)

// IngestLeadTransitioner adapts the lead-state service for the ingest
// pipeline.
type IngestLeadTransitioner struct {
	leadstate *leadstateservice.Service
}

// NewIngestLeadTransitioner creates a new lead transitioner adapter.
func NewIngestLeadTransitioner(leadstate *leadstateservice.Service) *IngestLeadTransitioner {
	return &IngestLeadTransitioner{leadstate: leadstate}
}

// ApplyMessageIn folds a recorded message into the customer's lead state
// inside the pipeline's transaction.
func (a *IngestLeadTransitioner) ApplyMessageIn(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, sig ports.MessageSignal) (ports.TransitionOutcome, error) {
	result, err := a.leadstate.ApplyIn(ctx, tx, customerID, leadstatedomain.Signal{
		Kind: leadstatedomain.SignalMessage,
		Message: &leadstatedomain.MessageSignal{
			Channel:    sig.Channel,
			Inbound:    sig.Inbound,
			Automated:  sig.Automated,
			OccurredAt: sig.OccurredAt,
		},
	})
	if err != nil {
		return ports.TransitionOutcome{}, err
	}
	return toTransitionOutcome(result), nil
}

// ApplyManualIn applies an operator edit inside the pipeline's transaction.
func (a *IngestLeadTransitioner) ApplyManualIn(ctx context.Context, tx pgx.Tx, customerID uuid.UUID, edit ports.ManualEdit) (ports.TransitionOutcome, error) {
	result, err := a.leadstate.ApplyIn(ctx, tx, customerID, leadstatedomain.Signal{
		Kind: leadstatedomain.SignalManual,
		Manual: &leadstatedomain.ManualEdit{
			Stage: edit.Stage,
			Label: edit.Label,
			Score: edit.Score,
			Note:  edit.Note,
		},
	})
	if err != nil {
		return ports.TransitionOutcome{}, err
	}
	return toTransitionOutcome(result), nil
}

// toTransitionOutcome flattens the service result. A no-op carries the
// current state on both sides and no activity id.
func toTransitionOutcome(result leadstateservice.Result) ports.TransitionOutcome {
	out := ports.TransitionOutcome{
		Applied:     result.Applied,
		StageBefore: result.State.Stage,
		Stage:       result.State.Stage,
		LabelBefore: result.State.Label,
		Label:       result.State.Label,
		Score:       result.State.Score,
	}
	if result.Applied && result.Activity != nil {
		out.ActivityID = result.Activity.ID
		out.Trigger = result.Activity.ActivityType
		out.StageBefore = result.Activity.StageBefore
		out.LabelBefore = result.Activity.LabelBefore
		out.ScoreDelta = result.Activity.ScoreDelta
	}
	return out
}

// Compile-time check.
var _ ports.LeadTransitioner = (*IngestLeadTransitioner)(nil)
