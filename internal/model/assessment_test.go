package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewLocked(t *testing.T) {
	locked := []string{AssignmentApproved, AssignmentRejected, AssignmentCancelled, AssignmentCompleted}
	for _, status := range locked {
		a := AgentAssignment{Status: status}
		assert.True(t, a.ReviewLocked(), "status %s", status)
	}

	open := []string{AssignmentPending, AssignmentInReview}
	for _, status := range open {
		a := AgentAssignment{Status: status}
		assert.False(t, a.ReviewLocked(), "status %s", status)
	}
}

func TestResponseEditable(t *testing.T) {
	editable := []string{AssignmentPending, AssignmentInReview}
	for _, status := range editable {
		a := AgentAssignment{Status: status}
		assert.True(t, a.ResponseEditable(), "status %s", status)
	}

	frozen := []string{AssignmentCompleted, AssignmentApproved, AssignmentRejected, AssignmentCancelled}
	for _, status := range frozen {
		a := AgentAssignment{Status: status}
		assert.False(t, a.ResponseEditable(), "status %s", status)
	}
}
