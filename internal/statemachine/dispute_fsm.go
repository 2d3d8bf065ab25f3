package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/weddia/escrow-api/internal/models"
)

// DisputeFSM wraps a dispute with its lifecycle state machine
type DisputeFSM struct {
	dispute *models.Dispute
	fsm     *fsm.FSM
}

// NewDisputeFSM creates a new dispute state machine
func NewDisputeFSM(dispute *models.Dispute) *DisputeFSM {
	dfsm := &DisputeFSM{
		dispute: dispute,
	}

	dfsm.fsm = fsm.NewFSM(
		dispute.Status,
		fsm.Events{
			// open → under_review (admin picked it up)
			{Name: "review", Src: []string{models.DisputeStatusOpen}, Dst: models.DisputeStatusUnderReview},

			// open/under_review → resolved (admin arbitrated)
			{Name: "resolve", Src: []string{models.DisputeStatusOpen, models.DisputeStatusUnderReview}, Dst: models.DisputeStatusResolved},

			// open/under_review → closed (withdrawn, no fund movement)
			{Name: "close", Src: []string{models.DisputeStatusOpen, models.DisputeStatusUnderReview}, Dst: models.DisputeStatusClosed},
		},
		fsm.Callbacks{},
	)

	return dfsm
}

// Review transitions dispute to under_review state
func (d *DisputeFSM) Review(ctx context.Context) error {
	if err := d.fsm.Event(ctx, "review"); err != nil {
		return fmt.Errorf("%w: dispute cannot be reviewed from %s", models.ErrInvalidState, d.dispute.Status)
	}

	d.dispute.Status = d.fsm.Current()
	return nil
}

// Resolve transitions dispute to resolved state
func (d *DisputeFSM) Resolve(ctx context.Context) error {
	if !d.dispute.MayResolve() {
		return fmt.Errorf("%w: dispute cannot be resolved from %s", models.ErrInvalidState, d.dispute.Status)
	}

	if err := d.fsm.Event(ctx, "resolve"); err != nil {
		return fmt.Errorf("%w: dispute cannot be resolved from %s", models.ErrInvalidState, d.dispute.Status)
	}

	d.dispute.Status = d.fsm.Current()
	return nil
}

// Close transitions dispute to closed state without any fund movement
func (d *DisputeFSM) Close(ctx context.Context) error {
	if err := d.fsm.Event(ctx, "close"); err != nil {
		return fmt.Errorf("%w: dispute cannot be closed from %s", models.ErrInvalidState, d.dispute.Status)
	}

	d.dispute.Status = d.fsm.Current()
	return nil
}

// Current returns the current state
func (d *DisputeFSM) Current() string {
	return d.fsm.Current()
}

// Can checks if a transition is possible
func (d *DisputeFSM) Can(event string) bool {
	return d.fsm.Can(event)
}
