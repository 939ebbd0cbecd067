// Package domain provides core business rules for the lead-state bounded
// context: the qualification state, the scoring policy, and the audit fold.
package domain

import (
	"time"

	customersdomain "leadinbox_backend/internal/customers/domain"
)

// State is the lead-qualification triple carried on every customer.
type State struct {
	Stage string
	Label string
	Score int
}

// InitialState is the state every customer starts in and the seed of
// every audit fold.
func InitialState() State {
	return State{
		Stage: customersdomain.InitialStage,
		Label: customersdomain.InitialLabel,
		Score: customersdomain.InitialScore,
	}
}

const (
	SignalMessage = "MESSAGE"
	SignalManual  = "MANUAL_EDIT"
)

const (
	ActivityTypeMessage = "INBOUND_MESSAGE"
	ActivityTypeManual  = "MANUAL_EDIT"
)

// MessageSignal is a recorded customer message acting as a transition
// trigger. RecentScored carries the number of already scored inbound
// messages inside the burst window; the caller reads it from the ledger.
type MessageSignal struct {
	Channel      string
	Inbound      bool
	Automated    bool
	OccurredAt   time.Time
	RecentScored int
}

// ManualEdit is an operator-issued change of any subset of the state
// triple. Nil fields keep their current value.
type ManualEdit struct {
	Stage *string
	Label *string
	Score *int
	Note  string
}

func (e ManualEdit) Empty() bool {
	return e.Stage == nil && e.Label == nil && e.Score == nil
}

// Signal is the transition trigger fed to the policy. Exactly one of
// Message and Manual is set, matching Kind.
type Signal struct {
	Kind    string
	Message *MessageSignal
	Manual  *ManualEdit
}

// Decision is the candidate state a policy proposes for a signal.
type Decision struct {
	Stage string
	Label string
	Score int
}

func (d Decision) Equals(s State) bool {
	return d.Stage == s.Stage && d.Label == s.Label && d.Score == s.Score
}

// Policy computes a candidate state from the current state and a signal.
// Implementations must be pure; everything they need arrives in the
// arguments.
type Policy interface {
	Evaluate(current State, sig Signal) Decision
}

// Scoring rule table for the default policy.
const (
	ScorePerInboundMessage = 5
	BurstLimit             = 3
	BurstWindow            = 10 * time.Minute

	labelWarmThreshold = 30
	labelHotThreshold  = 70
)

var labelRank = map[string]int{
	customersdomain.LabelUnqualified: 0,
	customersdomain.LabelCold:        1,
	customersdomain.LabelWarm:        2,
	customersdomain.LabelHot:         3,
}

// RulePolicy is the default scoring policy:
//
//   - a scored inbound message adds ScorePerInboundMessage, with at most
//     BurstLimit scored messages per BurstWindow
//   - the first inbound message moves a NEW lead to CONTACTED
//   - labels promote by score threshold and never demote automatically
//   - outbound and automated messages change nothing
//   - manual edits pass through as given
type RulePolicy struct{}

func (RulePolicy) Evaluate(current State, sig Signal) Decision {
	switch sig.Kind {
	case SignalManual:
		if sig.Manual != nil {
			return evaluateManual(current, *sig.Manual)
		}
	case SignalMessage:
		if sig.Message != nil {
			return evaluateMessage(current, *sig.Message)
		}
	}
	return Decision{Stage: current.Stage, Label: current.Label, Score: current.Score}
}

func evaluateManual(current State, edit ManualEdit) Decision {
	next := Decision{Stage: current.Stage, Label: current.Label, Score: current.Score}
	if edit.Stage != nil {
		next.Stage = *edit.Stage
	}
	if edit.Label != nil {
		next.Label = *edit.Label
	}
	if edit.Score != nil {
		next.Score = *edit.Score
	}
	return next
}

func evaluateMessage(current State, msg MessageSignal) Decision {
	next := Decision{Stage: current.Stage, Label: current.Label, Score: current.Score}
	if !msg.Inbound || msg.Automated {
		return next
	}

	if msg.RecentScored < BurstLimit {
		next.Score += ScorePerInboundMessage
	}
	if current.Stage == customersdomain.StageNew {
		next.Stage = customersdomain.StageContacted
	}
	next.Label = promoteLabel(next.Label, next.Score)

	return next
}

func promoteLabel(label string, score int) string {
	var candidate string
	switch {
	case score >= labelHotThreshold:
		candidate = customersdomain.LabelHot
	case score >= labelWarmThreshold:
		candidate = customersdomain.LabelWarm
	default:
		return label
	}
	if labelRank[candidate] > labelRank[label] {
		return candidate
	}
	return label
}

// BlocksStageChange reports whether moving from the current stage to next
// is forbidden because the current stage is terminal. Label and score
// stay editable in terminal stages.
func BlocksStageChange(current State, next string) bool {
	return next != current.Stage && customersdomain.IsTerminalStage(current.Stage)
}

// AppliedChange is the fold-relevant slice of one audit entry.
type AppliedChange struct {
	StageAfter string
	LabelAfter string
	ScoreDelta int
}

// Fold replays audit entries over an initial state. The invariant the
// whole engine protects: folding a customer's full ordered history from
// InitialState reproduces the customer's stored state.
func Fold(initial State, changes []AppliedChange) State {
	state := initial
	for _, change := range changes {
		if change.StageAfter != "" {
			state.Stage = change.StageAfter
		}
		if change.LabelAfter != "" {
			state.Label = change.LabelAfter
		}
		state.Score += change.ScoreDelta
	}
	return state
}
