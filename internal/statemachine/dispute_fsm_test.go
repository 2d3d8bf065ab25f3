package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddia/escrow-api/internal/models"
)

func TestDisputeFSM_ReviewThenResolve(t *testing.T) {
	ctx := context.Background()
	dispute := &models.Dispute{Status: models.DisputeStatusOpen}

	fsm := NewDisputeFSM(dispute)
	require.NoError(t, fsm.Review(ctx))
	assert.Equal(t, models.DisputeStatusUnderReview, dispute.Status)

	require.NoError(t, fsm.Resolve(ctx))
	assert.Equal(t, models.DisputeStatusResolved, dispute.Status)
}

func TestDisputeFSM_ResolveDirectlyFromOpen(t *testing.T) {
	dispute := &models.Dispute{Status: models.DisputeStatusOpen}
	fsm := NewDisputeFSM(dispute)

	require.NoError(t, fsm.Resolve(context.Background()))
	assert.Equal(t, models.DisputeStatusResolved, dispute.Status)
}

func TestDisputeFSM_CloseWithoutFundMovement(t *testing.T) {
	for _, status := range []string{models.DisputeStatusOpen, models.DisputeStatusUnderReview} {
		dispute := &models.Dispute{Status: status}
		fsm := NewDisputeFSM(dispute)
		require.NoError(t, fsm.Close(context.Background()), "close from %s", status)
		assert.Equal(t, models.DisputeStatusClosed, dispute.Status)
	}
}

func TestDisputeFSM_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()
	for _, status := range []string{models.DisputeStatusResolved, models.DisputeStatusClosed} {
		dispute := &models.Dispute{Status: status}
		fsm := NewDisputeFSM(dispute)

		assert.True(t, errors.Is(fsm.Review(ctx), models.ErrInvalidState))
		assert.True(t, errors.Is(fsm.Resolve(ctx), models.ErrInvalidState))
		assert.True(t, errors.Is(fsm.Close(ctx), models.ErrInvalidState))
	}
}
