package service

import (
	"testing"

	"agenthub/internal/model"
	"agenthub/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestValidateReviewTransition(t *testing.T) {
	cases := []struct {
		name    string
		next    string
		comment string
		wantErr bool
	}{
		{"pass without comment", model.ReviewPass, "", false},
		{"pass with comment", model.ReviewPass, "looks fine", false},
		{"fail with comment", model.ReviewFail, "missing SOC2 evidence", false},
		{"fail without comment", model.ReviewFail, "", true},
		{"fail with whitespace comment", model.ReviewFail, "   \t", true},
		{"in_progress without comment", model.ReviewInProgress, "", true},
		{"in_progress with comment", model.ReviewInProgress, "please attach the pentest report", false},
		{"back to pending", model.ReviewPending, "", false},
		{"unknown status", "escalated", "whatever", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateReviewTransition(tc.next, tc.comment)
			if tc.wantErr {
				assert.True(t, apperr.IsKind(err, apperr.KindValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResponseProvided(t *testing.T) {
	provided := [][]byte{
		[]byte(`"yes"`),
		[]byte(`0`),
		[]byte(`false`),
		[]byte(`{"detail":"x"}`),
		[]byte(`["a"]`),
	}
	for _, v := range provided {
		assert.True(t, responseProvided(v), "value %s", v)
	}

	blank := [][]byte{
		nil,
		[]byte(""),
		[]byte("  \n"),
		[]byte("null"),
		[]byte(`""`),
		[]byte("[]"),
	}
	for _, v := range blank {
		assert.False(t, responseProvided(v), "value %q", v)
	}
}

func TestFirstStepNumber(t *testing.T) {
	flagged := []model.WorkflowStep{
		{StepNumber: 1},
		{StepNumber: 2, IsFirstStep: true},
		{StepNumber: 3},
	}
	assert.Equal(t, 2, firstStepNumber(flagged))

	unflagged := []model.WorkflowStep{{StepNumber: 1}, {StepNumber: 2}}
	assert.Equal(t, 1, firstStepNumber(unflagged))

	assert.Equal(t, 1, firstStepNumber(nil))
}
