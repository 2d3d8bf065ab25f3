package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/weddia/escrow-api/internal/models"
)

// ContractFSM wraps a contract with its signing state machine
type ContractFSM struct {
	contract *models.Contract
	fsm      *fsm.FSM
}

// NewContractFSM creates a new contract state machine
func NewContractFSM(contract *models.Contract) *ContractFSM {
	cfsm := &ContractFSM{
		contract: contract,
	}

	cfsm.fsm = fsm.NewFSM(
		contract.Status,
		fsm.Events{
			// draft → partially_signed (first signature)
			{Name: "sign", Src: []string{models.ContractStatusDraft}, Dst: models.ContractStatusPartiallySigned},

			// partially_signed → fully_signed (second signature)
			{Name: "countersign", Src: []string{models.ContractStatusPartiallySigned}, Dst: models.ContractStatusFullySigned},

			// fully_signed → active (escrow funded)
			{Name: "activate", Src: []string{models.ContractStatusFullySigned}, Dst: models.ContractStatusActive},

			// any non-terminal → cancelled
			{Name: "cancel", Src: []string{models.ContractStatusDraft, models.ContractStatusPartiallySigned, models.ContractStatusFullySigned, models.ContractStatusActive}, Dst: models.ContractStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return cfsm
}

// Sign transitions the contract after a signature was recorded. It picks
// the sign or countersign event based on how many parties have signed.
func (c *ContractFSM) Sign(ctx context.Context) error {
	event := "sign"
	if c.contract.FullySigned() {
		event = "countersign"
	}

	if err := c.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("%w: contract cannot progress from %s", models.ErrInvalidState, c.contract.Status)
	}

	c.contract.Status = c.fsm.Current()
	return nil
}

// Activate transitions contract to active state
func (c *ContractFSM) Activate(ctx context.Context) error {
	if err := c.fsm.Event(ctx, "activate"); err != nil {
		return fmt.Errorf("%w: contract cannot be activated from %s", models.ErrInvalidState, c.contract.Status)
	}

	c.contract.Status = c.fsm.Current()
	return nil
}

// Cancel transitions contract to cancelled state
func (c *ContractFSM) Cancel(ctx context.Context) error {
	if err := c.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("%w: contract cannot be cancelled from %s", models.ErrInvalidState, c.contract.Status)
	}

	c.contract.Status = c.fsm.Current()
	return nil
}

// Current returns the current state
func (c *ContractFSM) Current() string {
	return c.fsm.Current()
}

// Can checks if a transition is possible
func (c *ContractFSM) Can(event string) bool {
	return c.fsm.Can(event)
}
