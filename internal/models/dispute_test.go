package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispute_IsActive(t *testing.T) {
	d := &Dispute{Status: DisputeStatusOpen}
	assert.True(t, d.IsActive())

	d.Status = DisputeStatusUnderReview
	assert.True(t, d.IsActive())

	d.Status = DisputeStatusResolved
	assert.False(t, d.IsActive())

	d.Status = DisputeStatusClosed
	assert.False(t, d.IsActive())
}

func TestResolution_Validate_FullRefund(t *testing.T) {
	r := &Resolution{Action: ResolutionFullRefund, RefundAmount: 900}
	assert.NoError(t, r.Validate(900))

	r.RefundAmount = 500
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))

	r.RefundAmount = 900
	r.ReleaseAmount = 10
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))
}

func TestResolution_Validate_PartialRefund(t *testing.T) {
	r := &Resolution{Action: ResolutionPartialRefund, RefundAmount: 200}
	assert.NoError(t, r.Validate(900))

	r.RefundAmount = 0
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))

	r.RefundAmount = 200
	r.ReleaseAmount = 100
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))
}

func TestResolution_Validate_ReleaseToVendor(t *testing.T) {
	r := &Resolution{Action: ResolutionReleaseToVendor, ReleaseAmount: 900}
	assert.NoError(t, r.Validate(900))

	r.ReleaseAmount = 0
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))

	r.ReleaseAmount = 900
	r.RefundAmount = 50
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))
}

func TestResolution_Validate_Split(t *testing.T) {
	r := &Resolution{Action: ResolutionSplit, RefundAmount: 400, ReleaseAmount: 500}
	assert.NoError(t, r.Validate(900))
	assert.Equal(t, 900.0, r.Total())

	// both sides must be explicit
	r = &Resolution{Action: ResolutionSplit, RefundAmount: 900}
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))
}

func TestResolution_Validate_CannotExceedRemaining(t *testing.T) {
	r := &Resolution{Action: ResolutionSplit, RefundAmount: 600, ReleaseAmount: 400}
	assert.True(t, errors.Is(r.Validate(900), ErrInsufficientBalance))

	r = &Resolution{Action: ResolutionPartialRefund, RefundAmount: 1000}
	assert.True(t, errors.Is(r.Validate(900), ErrInsufficientBalance))
}

func TestResolution_Validate_UnknownAction(t *testing.T) {
	r := &Resolution{Action: "shrug"}
	assert.True(t, errors.Is(r.Validate(900), ErrValidation))
}
