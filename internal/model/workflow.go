package model

import (
	"time"

	"github.com/google/uuid"
)

// Workflow step types
const (
	StepTypeReview       = "review"
	StepTypeApproval     = "approval"
	StepTypeNotification = "notification"
)

// Assignment rule types
const (
	AssignTypeRole       = "role"
	AssignTypeUser       = "user"
	AssignTypeGroup      = "group"
	AssignTypeRoundRobin = "round_robin"
)

// ValidStepType reports whether t is a known step type
func ValidStepType(t string) bool {
	switch t {
	case StepTypeReview, StepTypeApproval, StepTypeNotification:
		return true
	}
	return false
}

// ValidAssignType reports whether t is a known assignment rule type
func ValidAssignType(t string) bool {
	switch t {
	case AssignTypeRole, AssignTypeUser, AssignTypeGroup, AssignTypeRoundRobin:
		return true
	}
	return false
}

// WorkflowTemplate is an ordered, reorderable sequence of approval/review/
// notification steps for agents of one (optional) type.
type WorkflowTemplate struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	AgentType   *string        `gorm:"type:varchar(50);index" json:"agent_type"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	Steps       []WorkflowStep `gorm:"foreignKey:TemplateID;constraint:OnDelete:CASCADE" json:"steps"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// WorkflowStep is one step of a template. StepNumber values are always a
// contiguous 1..N permutation; exactly one of AssignedRole / AssignedUserID /
// ApproverGroupID is populated, consistent with AssignmentType.
// round_robin rotates within a role pool, so it populates AssignedRole.
type WorkflowStep struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TemplateID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"template_id"`
	StepNumber      int        `gorm:"not null" json:"step_number"`
	StepName        string     `gorm:"type:varchar(255);not null" json:"step_name"`
	StepType        string     `gorm:"type:varchar(20);not null" json:"step_type"`
	AssignmentType  string     `gorm:"type:varchar(20);not null" json:"assignment_type"`
	AssignedRole    string     `gorm:"type:varchar(50)" json:"assigned_role,omitempty"`
	AssignedUserID  *uuid.UUID `gorm:"type:uuid" json:"assigned_user_id,omitempty"`
	ApproverGroupID *uuid.UUID `gorm:"type:uuid" json:"approver_group_id,omitempty"`
	Required        bool       `gorm:"default:true" json:"required"`
	CanSkip         bool       `gorm:"default:false" json:"can_skip"`
	IsFirstStep     bool       `gorm:"default:false" json:"is_first_step"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ApproverGroup is a named pool of users a step can be assigned to
type ApproverGroup struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Members     []User    `gorm:"many2many:approver_group_members;" json:"members"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
