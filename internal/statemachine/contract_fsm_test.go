package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddia/escrow-api/internal/models"
)

func TestContractFSM_SigningFlow(t *testing.T) {
	ctx := context.Background()
	contract := &models.Contract{Status: models.ContractStatusDraft, CustomerID: 10, VendorID: 20}

	contract.CustomerSigned = true
	fsm := NewContractFSM(contract)
	require.NoError(t, fsm.Sign(ctx))
	assert.Equal(t, models.ContractStatusPartiallySigned, contract.Status)

	contract.VendorSigned = true
	fsm = NewContractFSM(contract)
	require.NoError(t, fsm.Sign(ctx))
	assert.Equal(t, models.ContractStatusFullySigned, contract.Status)

	require.NoError(t, fsm.Activate(ctx))
	assert.Equal(t, models.ContractStatusActive, contract.Status)
}

func TestContractFSM_CannotActivateBeforeFullySigned(t *testing.T) {
	contract := &models.Contract{Status: models.ContractStatusPartiallySigned}
	fsm := NewContractFSM(contract)

	err := fsm.Activate(context.Background())
	assert.True(t, errors.Is(err, models.ErrInvalidState))
	assert.Equal(t, models.ContractStatusPartiallySigned, contract.Status)
}

func TestContractFSM_CancelFromAnyNonTerminal(t *testing.T) {
	for _, status := range []string{
		models.ContractStatusDraft,
		models.ContractStatusPartiallySigned,
		models.ContractStatusFullySigned,
		models.ContractStatusActive,
	} {
		contract := &models.Contract{Status: status}
		fsm := NewContractFSM(contract)
		require.NoError(t, fsm.Cancel(context.Background()), "cancel from %s", status)
		assert.Equal(t, models.ContractStatusCancelled, contract.Status)
	}
}

func TestContractFSM_CancelledIsTerminal(t *testing.T) {
	contract := &models.Contract{Status: models.ContractStatusCancelled}
	fsm := NewContractFSM(contract)

	assert.True(t, errors.Is(fsm.Sign(context.Background()), models.ErrInvalidState))
	assert.True(t, errors.Is(fsm.Cancel(context.Background()), models.ErrInvalidState))
}
