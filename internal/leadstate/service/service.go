package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	customersdomain "leadinbox_backend/internal/customers/domain"
	"leadinbox_backend/internal/leadstate/domain"
	"leadinbox_backend/internal/leadstate/repository"
	"leadinbox_backend/platform/apperr"

	"github.com/google/uuid"
)

const historyBatchSize = 100

const (
	msgCustomerNotFound = "customer not found"
	msgUnknownSignal    = "unknown signal kind"
	msgUnknownStage     = "unknown stage"
	msgUnknownLabel     = "unknown label"
	msgStageTerminal    = "stage transitions out of a closed stage are not allowed"
)

type Service struct {
	repo   *repository.Repository
	policy domain.Policy
}

// New builds the lead-state service. A nil policy falls back to the
// default rule table.
func New(repo *repository.Repository, policy domain.Policy) *Service {
	if policy == nil {
		policy = domain.RulePolicy{}
	}
	return &Service{repo: repo, policy: policy}
}

type Result struct {
	Applied  bool
	State    domain.State
	Activity *repository.Activity
}

// ApplyIn runs one lead-state transition inside the caller's transaction:
// read state, evaluate the policy, and, only when something actually
// changes, append the audit entry and write the new state as one unit.
// No-op signals return Applied=false and leave the ledger untouched.
func (s *Service) ApplyIn(ctx context.Context, q repository.DBTX, customerID uuid.UUID, sig domain.Signal) (Result, error) {
	sig, err := normalizeSignal(sig)
	if err != nil {
		return Result{}, err
	}

	row, err := s.repo.GetStateForUpdate(ctx, q, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, apperr.NotFound(msgCustomerNotFound)
		}
		return Result{}, err
	}
	current := domain.State{Stage: row.Stage, Label: row.Label, Score: row.Score}

	if sig.Kind == domain.SignalManual && sig.Manual.Empty() {
		return Result{State: current}, nil
	}

	if sig.Kind == domain.SignalMessage {
		cutoff := time.Now().Add(-domain.BurstWindow)
		recent, err := s.repo.CountScoredMessagesSince(ctx, q, customerID, domain.ActivityTypeMessage, cutoff)
		if err != nil {
			return Result{}, err
		}
		msg := *sig.Message
		msg.RecentScored = recent
		sig.Message = &msg
	}

	decision := s.policy.Evaluate(current, sig)
	if decision.Equals(current) {
		return Result{State: current}, nil
	}

	if domain.BlocksStageChange(current, decision.Stage) {
		return Result{}, apperr.InvalidTransition(msgStageTerminal).
			WithDetails(map[string]string{"stage": current.Stage, "requested": decision.Stage})
	}

	activity, err := s.repo.InsertActivity(ctx, q, repository.InsertActivityParams{
		CustomerID:   customerID,
		ActivityType: activityTypeFor(sig),
		Description:  describeSignal(sig),
		StageBefore:  current.Stage,
		StageAfter:   decision.Stage,
		LabelBefore:  current.Label,
		LabelAfter:   decision.Label,
		ScoreDelta:   decision.Score - current.Score,
	})
	if err != nil {
		return Result{}, err
	}

	if err := s.repo.UpdateState(ctx, q, customerID, decision.Stage, decision.Label, decision.Score); err != nil {
		return Result{}, err
	}

	return Result{
		Applied:  true,
		State:    domain.State{Stage: decision.Stage, Label: decision.Label, Score: decision.Score},
		Activity: &activity,
	}, nil
}

func normalizeSignal(sig domain.Signal) (domain.Signal, error) {
	switch sig.Kind {
	case domain.SignalMessage:
		if sig.Message == nil {
			return sig, apperr.Validation(msgUnknownSignal)
		}
		return sig, nil

	case domain.SignalManual:
		if sig.Manual == nil {
			return sig, apperr.Validation(msgUnknownSignal)
		}
		edit := *sig.Manual
		if edit.Stage != nil {
			stage := strings.ToUpper(strings.TrimSpace(*edit.Stage))
			if !customersdomain.IsKnownStage(stage) {
				return sig, apperr.Validation(msgUnknownStage)
			}
			edit.Stage = &stage
		}
		if edit.Label != nil {
			label := strings.ToUpper(strings.TrimSpace(*edit.Label))
			if !customersdomain.IsKnownLabel(label) {
				return sig, apperr.Validation(msgUnknownLabel)
			}
			edit.Label = &label
		}
		sig.Manual = &edit
		return sig, nil

	default:
		return sig, apperr.Validation(msgUnknownSignal)
	}
}

func activityTypeFor(sig domain.Signal) string {
	if sig.Kind == domain.SignalManual {
		return domain.ActivityTypeManual
	}
	return domain.ActivityTypeMessage
}

func describeSignal(sig domain.Signal) string {
	switch sig.Kind {
	case domain.SignalManual:
		if sig.Manual != nil && strings.TrimSpace(sig.Manual.Note) != "" {
			return strings.TrimSpace(sig.Manual.Note)
		}
		return "manual edit"
	case domain.SignalMessage:
		if sig.Message != nil {
			return fmt.Sprintf("inbound message on %s", sig.Message.Channel)
		}
	}
	return "lead transition"
}

func (s *Service) Activities(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]repository.Activity, error) {
	if limit <= 0 || limit > 500 {
		limit = historyBatchSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListActivities(ctx, customerID, limit, offset)
}

type fetchFunc func(ctx context.Context, limit, offset int) ([]repository.Activity, error)

// HistoryIterator walks a customer's audit ledger oldest first, fetching
// fixed-size batches on demand. It is finite and restartable; it is not
// safe for concurrent use.
type HistoryIterator struct {
	fetch     fetchFunc
	batchSize int
	offset    int
	buf       []repository.Activity
	pos       int
	exhausted bool
}

// History returns a lazy iterator over the customer's ordered ledger.
// Nothing is read until the first Next call.
func (s *Service) History(customerID uuid.UUID) *HistoryIterator {
	return &HistoryIterator{
		fetch: func(ctx context.Context, limit, offset int) ([]repository.Activity, error) {
			return s.repo.ListActivities(ctx, customerID, limit, offset)
		},
		batchSize: historyBatchSize,
	}
}

// Next returns the next ledger entry. ok=false without an error means the
// history is exhausted.
func (it *HistoryIterator) Next(ctx context.Context) (repository.Activity, bool, error) {
	if it.pos >= len(it.buf) {
		if it.exhausted {
			return repository.Activity{}, false, nil
		}
		batch, err := it.fetch(ctx, it.batchSize, it.offset)
		if err != nil {
			return repository.Activity{}, false, err
		}
		if len(batch) < it.batchSize {
			it.exhausted = true
		}
		if len(batch) == 0 {
			it.buf = nil
			it.pos = 0
			return repository.Activity{}, false, nil
		}
		it.offset += len(batch)
		it.buf = batch
		it.pos = 0
	}

	activity := it.buf[it.pos]
	it.pos++
	return activity, true, nil
}

// Reset restarts the iterator from the oldest entry.
func (it *HistoryIterator) Reset() {
	it.offset = 0
	it.buf = nil
	it.pos = 0
	it.exhausted = false
}

type ConsistencyReport struct {
	CustomerID    uuid.UUID
	Consistent    bool
	Stored        domain.State
	Folded        domain.State
	ActivityCount int
}

// CheckConsistency folds the customer's full ledger from the initial
// state and compares the result with the stored state. Both sides come
// from one repeatable-read snapshot.
func (s *Service) CheckConsistency(ctx context.Context, customerID uuid.UUID) (ConsistencyReport, error) {
	state, activities, err := s.repo.Snapshot(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ConsistencyReport{}, apperr.NotFound(msgCustomerNotFound)
		}
		return ConsistencyReport{}, err
	}

	changes := make([]domain.AppliedChange, 0, len(activities))
	for _, activity := range activities {
		changes = append(changes, domain.AppliedChange{
			StageAfter: activity.StageAfter,
			LabelAfter: activity.LabelAfter,
			ScoreDelta: activity.ScoreDelta,
		})
	}

	stored := domain.State{Stage: state.Stage, Label: state.Label, Score: state.Score}
	folded := domain.Fold(domain.InitialState(), changes)

	return ConsistencyReport{
		CustomerID:    customerID,
		Consistent:    stored == folded,
		Stored:        stored,
		Folded:        folded,
		ActivityCount: len(activities),
	}, nil
}
