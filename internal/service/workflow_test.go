package service

import (
	"testing"

	"agenthub/internal/model"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSteps() []model.WorkflowStep {
	return []model.WorkflowStep{
		{StepNumber: 1, StepName: "Security review", IsFirstStep: true},
		{StepNumber: 2, StepName: "Compliance review"},
		{StepNumber: 3, StepName: "Final approval"},
	}
}

func stepNames(steps []model.WorkflowStep) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.StepName
	}
	return out
}

func TestMoveStep(t *testing.T) {
	out, err := moveStep(sampleSteps(), 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Final approval", "Security review", "Compliance review"}, stepNames(out))
	for i, s := range out {
		assert.Equal(t, i+1, s.StepNumber)
	}
}

func TestMoveStepForward(t *testing.T) {
	out, err := moveStep(sampleSteps(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Compliance review", "Final approval", "Security review"}, stepNames(out))
}

func TestMoveStepNoop(t *testing.T) {
	out, err := moveStep(sampleSteps(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Security review", "Compliance review", "Final approval"}, stepNames(out))
}

func TestMoveStepOutOfRange(t *testing.T) {
	for _, pos := range [][2]int{{0, 1}, {4, 1}, {1, 0}, {1, 4}} {
		_, err := moveStep(sampleSteps(), pos[0], pos[1])
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "from=%d to=%d", pos[0], pos[1])
	}
}

func TestSetFirstStepIsExclusive(t *testing.T) {
	out, err := setFirstStep(sampleSteps(), 2)
	require.NoError(t, err)

	count := 0
	for _, s := range out {
		if s.IsFirstStep {
			count++
			assert.Equal(t, 2, s.StepNumber)
		}
	}
	assert.Equal(t, 1, count)
}

func TestSetFirstStepUnknown(t *testing.T) {
	_, err := setFirstStep(sampleSteps(), 9)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestNormalizeFirstStepDefaultsToFirst(t *testing.T) {
	// none flagged
	steps := []model.WorkflowStep{{StepNumber: 1}, {StepNumber: 2}}
	out := normalizeFirstStep(steps)
	assert.True(t, out[0].IsFirstStep)
	assert.False(t, out[1].IsFirstStep)

	// several flagged collapse to step 1
	steps = []model.WorkflowStep{
		{StepNumber: 1, IsFirstStep: true},
		{StepNumber: 2, IsFirstStep: true},
	}
	out = normalizeFirstStep(steps)
	assert.True(t, out[0].IsFirstStep)
	assert.False(t, out[1].IsFirstStep)

	// exactly one flagged is left alone
	steps = []model.WorkflowStep{
		{StepNumber: 1},
		{StepNumber: 2, IsFirstStep: true},
	}
	out = normalizeFirstStep(steps)
	assert.False(t, out[0].IsFirstStep)
	assert.True(t, out[1].IsFirstStep)
}

func TestApplyAssignmentRuleClearsStaleTargets(t *testing.T) {
	userID := uuid.New()
	step := model.WorkflowStep{AssignedUserID: &userID, AssignedRole: model.RoleAdmin}

	require.NoError(t, applyAssignmentRule(&step, model.AssignTypeRole, model.RoleReviewer))
	assert.Equal(t, model.AssignTypeRole, step.AssignmentType)
	assert.Equal(t, model.RoleReviewer, step.AssignedRole)
	assert.Nil(t, step.AssignedUserID)
	assert.Nil(t, step.ApproverGroupID)
}

func TestApplyAssignmentRuleRoundRobinTargetsRole(t *testing.T) {
	var step model.WorkflowStep
	require.NoError(t, applyAssignmentRule(&step, model.AssignTypeRoundRobin, model.RoleApprover))
	assert.Equal(t, model.AssignTypeRoundRobin, step.AssignmentType)
	assert.Equal(t, model.RoleApprover, step.AssignedRole)
}

func TestApplyAssignmentRuleUser(t *testing.T) {
	id := uuid.New()
	var step model.WorkflowStep
	require.NoError(t, applyAssignmentRule(&step, model.AssignTypeUser, id.String()))
	require.NotNil(t, step.AssignedUserID)
	assert.Equal(t, id, *step.AssignedUserID)
	assert.Empty(t, step.AssignedRole)

	err := applyAssignmentRule(&step, model.AssignTypeUser, "not-a-uuid")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestApplyAssignmentRuleGroup(t *testing.T) {
	id := uuid.New()
	var step model.WorkflowStep
	require.NoError(t, applyAssignmentRule(&step, model.AssignTypeGroup, id.String()))
	require.NotNil(t, step.ApproverGroupID)
	assert.Equal(t, id, *step.ApproverGroupID)
}

func TestApplyAssignmentRuleRejectsBadInput(t *testing.T) {
	var step model.WorkflowStep
	assert.Error(t, applyAssignmentRule(&step, "lottery", "whoever"))
	assert.Error(t, applyAssignmentRule(&step, model.AssignTypeRole, "superuser"))
}

func TestBuildSteps(t *testing.T) {
	steps, err := buildSteps([]StepInput{
		{StepName: "Review", StepType: model.StepTypeReview, AssignmentType: model.AssignTypeRole, AssignmentValue: model.RoleReviewer},
		{StepName: "Approve", StepType: model.StepTypeApproval, AssignmentType: model.AssignTypeRole, AssignmentValue: model.RoleApprover, IsFirstStep: true},
	})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].StepNumber)
	assert.Equal(t, 2, steps[1].StepNumber)
	assert.False(t, steps[0].IsFirstStep)
	assert.True(t, steps[1].IsFirstStep)
	assert.True(t, steps[0].Required)
}

func TestBuildStepsRejectsUnknownStepType(t *testing.T) {
	_, err := buildSteps([]StepInput{
		{StepName: "X", StepType: "escalation", AssignmentType: model.AssignTypeRole, AssignmentValue: model.RoleAdmin},
	})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
