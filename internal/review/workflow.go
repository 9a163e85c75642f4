// Package review gates AI-generated records before they touch live menu
// data. Records are created pending, transition exactly once to approved or
// rejected, and stay queryable forever for audit.
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/errors"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/logger"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/common/metrics"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/models"
	"github.com/echeyne/restaurant-menu-optimizer-sub002/internal/repository"
)

// Record types accepted in review decisions.
const (
	RecordTypeOptimization = "optimization"
	RecordTypeSuggestion   = "suggestion"
)

// Decision is one reviewer verdict on one pending record.
type Decision struct {
	RecordID   string `json:"recordId"`
	RecordType string `json:"recordType"`
	Approve    bool   `json:"approve"`
	ReviewedBy string `json:"reviewedBy"`
}

// DecisionOutcome reports what happened to one decision. A failed decision
// carries the error; the rest of the batch proceeds regardless.
type DecisionOutcome struct {
	RecordID           string              `json:"recordId"`
	RecordType         string              `json:"recordType"`
	Status             models.ReviewStatus `json:"status,omitempty"`
	MaterializedItemID string              `json:"materializedItemId,omitempty"`
	Error              string              `json:"error,omitempty"`
}

// Workflow applies review decisions. The transition itself is a
// compare-and-set in storage, so concurrent decisions on the same record
// produce exactly one winner.
type Workflow struct {
	optimizations repository.OptimizationRepository
	suggestions   repository.SuggestionRepository
	items         repository.MenuItemRepository
	logger        logger.Logger
	now           func() time.Time
	newID         func() string
}

func NewWorkflow(optimizations repository.OptimizationRepository, suggestions repository.SuggestionRepository, items repository.MenuItemRepository, log logger.Logger) *Workflow {
	return &Workflow{
		optimizations: optimizations,
		suggestions:   suggestions,
		items:         items,
		logger:        log.With(map[string]interface{}{"component": "review"}),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// transition runs the CAS and translates a lost claim into the right error:
// NOT_FOUND when the record never existed, INVALID_TRANSITION when it exists
// but already left pending.
func transition(claimed bool, casErr error, lookup func() (models.ReviewStatus, error), recordID string, next models.ReviewStatus) error {
	if casErr != nil {
		metrics.ReviewTransitions.WithLabelValues(string(next), "error").Inc()
		return casErr
	}
	if claimed {
		metrics.ReviewTransitions.WithLabelValues(string(next), "applied").Inc()
		return nil
	}

	current, err := lookup()
	if err != nil {
		metrics.ReviewTransitions.WithLabelValues(string(next), "not_found").Inc()
		return err
	}
	metrics.ReviewTransitions.WithLabelValues(string(next), "rejected").Inc()
	return apperrors.NewInvalidTransition(recordID,
		fmt.Sprintf("record is %s, only pending records can move to %s", current, next))
}

// ApproveOptimization flips the record to approved and materializes the
// proposed name and description onto the live menu item. Materialization is
// an explicit separate write; approval never silently mutates anything else.
func (w *Workflow) ApproveOptimization(ctx context.Context, id, reviewedBy string) (*models.OptimizedMenuItem, error) {
	claimed, casErr := w.optimizations.TransitionStatus(ctx, id, models.StatusApproved, reviewedBy, w.now())
	if err := transition(claimed, casErr, w.optimizationStatus(ctx, id), id, models.StatusApproved); err != nil {
		return nil, err
	}

	opt, err := w.optimizations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := w.items.UpdateContent(ctx, opt.MenuItemID, opt.ProposedName, opt.ProposedDescription); err != nil {
		w.logger.Error("approved optimization could not be materialized", map[string]interface{}{
			"optimization_id": id,
			"menu_item_id":    opt.MenuItemID,
			"error":           err.Error(),
		})
		return nil, err
	}

	w.logger.Info("optimization approved", map[string]interface{}{
		"optimization_id": id,
		"menu_item_id":    opt.MenuItemID,
		"reviewed_by":     reviewedBy,
	})
	return opt, nil
}

// RejectOptimization flips the record to rejected. The record is preserved;
// nothing touches the live item.
func (w *Workflow) RejectOptimization(ctx context.Context, id, reviewedBy string) error {
	claimed, casErr := w.optimizations.TransitionStatus(ctx, id, models.StatusRejected, reviewedBy, w.now())
	return transition(claimed, casErr, w.optimizationStatus(ctx, id), id, models.StatusRejected)
}

// ApproveSuggestion flips the record to approved and creates a brand-new
// menu item flagged as AI-generated. Returns the created item.
func (w *Workflow) ApproveSuggestion(ctx context.Context, id, reviewedBy string) (*models.MenuItem, error) {
	claimed, casErr := w.suggestions.TransitionStatus(ctx, id, models.StatusApproved, reviewedBy, w.now())
	if err := transition(claimed, casErr, w.suggestionStatus(ctx, id), id, models.StatusApproved); err != nil {
		return nil, err
	}

	sug, err := w.suggestions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := w.now()
	item := &models.MenuItem{
		ID:           w.newID(),
		RestaurantID: sug.RestaurantID,
		Name:         sug.Name,
		Description:  sug.Description,
		Price:        sug.EstimatedPrice,
		Category:     sug.Category,
		Active:       true,
		AIGenerated:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := w.items.Create(ctx, item); err != nil {
		w.logger.Error("approved suggestion could not be materialized", map[string]interface{}{
			"suggestion_id": id,
			"error":         err.Error(),
		})
		return nil, err
	}

	w.logger.Info("suggestion approved", map[string]interface{}{
		"suggestion_id": id,
		"menu_item_id":  item.ID,
		"reviewed_by":   reviewedBy,
	})
	return item, nil
}

// RejectSuggestion flips the record to rejected and preserves it.
func (w *Workflow) RejectSuggestion(ctx context.Context, id, reviewedBy string) error {
	claimed, casErr := w.suggestions.TransitionStatus(ctx, id, models.StatusRejected, reviewedBy, w.now())
	return transition(claimed, casErr, w.suggestionStatus(ctx, id), id, models.StatusRejected)
}

func (w *Workflow) optimizationStatus(ctx context.Context, id string) func() (models.ReviewStatus, error) {
	return func() (models.ReviewStatus, error) {
		opt, err := w.optimizations.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return opt.Status, nil
	}
}

func (w *Workflow) suggestionStatus(ctx context.Context, id string) func() (models.ReviewStatus, error) {
	return func() (models.ReviewStatus, error) {
		sug, err := w.suggestions.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return sug.Status, nil
	}
}

// Review applies a batch of decisions and returns a per-decision manifest.
// Decisions are independent; one failure never blocks the others.
func (w *Workflow) Review(ctx context.Context, decisions []Decision) []DecisionOutcome {
	outcomes := make([]DecisionOutcome, 0, len(decisions))
	for _, decision := range decisions {
		outcome := DecisionOutcome{RecordID: decision.RecordID, RecordType: decision.RecordType}

		var err error
		switch decision.RecordType {
		case RecordTypeOptimization:
			if decision.Approve {
				_, err = w.ApproveOptimization(ctx, decision.RecordID, decision.ReviewedBy)
				outcome.Status = models.StatusApproved
			} else {
				err = w.RejectOptimization(ctx, decision.RecordID, decision.ReviewedBy)
				outcome.Status = models.StatusRejected
			}
		case RecordTypeSuggestion:
			if decision.Approve {
				var item *models.MenuItem
				item, err = w.ApproveSuggestion(ctx, decision.RecordID, decision.ReviewedBy)
				outcome.Status = models.StatusApproved
				if item != nil {
					outcome.MaterializedItemID = item.ID
				}
			} else {
				err = w.RejectSuggestion(ctx, decision.RecordID, decision.ReviewedBy)
				outcome.Status = models.StatusRejected
			}
		default:
			err = apperrors.NewInvalidRequest(fmt.Sprintf("unknown record type %q", decision.RecordType))
		}

		if err != nil {
			outcome.Status = ""
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
