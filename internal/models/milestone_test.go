package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMilestones_DerivesAmounts(t *testing.T) {
	due := time.Now().AddDate(0, 1, 0)
	milestones, err := BuildMilestones(1000, []MilestoneInput{
		{Title: "Booking deposit", PaymentPercentage: 30, DueDate: due},
		{Title: "Menu tasting", PaymentPercentage: 30, DueDate: due.AddDate(0, 1, 0)},
		{Title: "Event day", PaymentPercentage: 40, DueDate: due.AddDate(0, 2, 0)},
	})
	require.NoError(t, err)
	require.Len(t, milestones, 3)

	assert.Equal(t, 300.0, milestones[0].PaymentAmount)
	assert.Equal(t, 300.0, milestones[1].PaymentAmount)
	assert.Equal(t, 400.0, milestones[2].PaymentAmount)
	for i, m := range milestones {
		assert.Equal(t, i+1, m.MilestoneNumber)
		assert.Equal(t, MilestoneStatusPending, m.Status)
		assert.True(t, m.RefundEligible)
	}
}

func TestBuildMilestones_LastAbsorbsRoundingRemainder(t *testing.T) {
	due := time.Now().AddDate(0, 1, 0)
	milestones, err := BuildMilestones(1000, []MilestoneInput{
		{Title: "First", PaymentPercentage: 33.33, DueDate: due},
		{Title: "Second", PaymentPercentage: 33.33, DueDate: due},
		{Title: "Third", PaymentPercentage: 33.34, DueDate: due},
	})
	require.NoError(t, err)

	var sum float64
	for _, m := range milestones {
		sum = AddAmounts(sum, m.PaymentAmount)
	}
	assert.Equal(t, 1000.0, sum)
	assert.Equal(t, 333.30, milestones[0].PaymentAmount)
	assert.Equal(t, 333.40, milestones[2].PaymentAmount)
}

func TestBuildMilestones_PercentagesMustSumTo100(t *testing.T) {
	due := time.Now()
	_, err := BuildMilestones(1000, []MilestoneInput{
		{Title: "First", PaymentPercentage: 50, DueDate: due},
		{Title: "Second", PaymentPercentage: 40, DueDate: due},
	})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = BuildMilestones(1000, nil)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestBuildMilestones_RefundEligibleOverride(t *testing.T) {
	due := time.Now()
	notEligible := false
	milestones, err := BuildMilestones(500, []MilestoneInput{
		{Title: "Non-refundable deposit", PaymentPercentage: 40, DueDate: due, RefundEligible: &notEligible},
		{Title: "Balance", PaymentPercentage: 60, DueDate: due},
	})
	require.NoError(t, err)
	assert.False(t, milestones[0].RefundEligible)
	assert.True(t, milestones[1].RefundEligible)
}

func TestMilestone_TransitionOrdering(t *testing.T) {
	now := time.Now()
	m := &ContractMilestone{MilestoneNumber: 1, Status: MilestoneStatusPending}

	// pending cannot jump straight to completed
	err := m.Transition(MilestoneStatusCompleted, 5, now)
	assert.True(t, errors.Is(err, ErrInvalidState))

	require.NoError(t, m.Transition(MilestoneStatusVerified, 5, now))
	assert.Equal(t, MilestoneStatusVerified, m.Status)
	require.NotNil(t, m.VerifiedBy)
	assert.Equal(t, uint(5), *m.VerifiedBy)

	// double verification is rejected
	err = m.Transition(MilestoneStatusVerified, 5, now)
	assert.True(t, errors.Is(err, ErrInvalidState))

	require.NoError(t, m.Transition(MilestoneStatusCompleted, 5, now))
	assert.Equal(t, MilestoneStatusCompleted, m.Status)
	assert.NotNil(t, m.CompletionDate)
}

func TestMilestone_TransitionRejectsUnknownStatus(t *testing.T) {
	m := &ContractMilestone{Status: MilestoneStatusPending}
	err := m.Transition("done", 1, time.Now())
	assert.True(t, errors.Is(err, ErrValidation))
}
