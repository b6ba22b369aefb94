package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateAgent = "CREATE_AGENT"
	ActionUpdateAgent = "UPDATE_AGENT"
	ActionDeleteAgent = "DELETE_AGENT"

	ActionCreateField = "CREATE_FIELD"
	ActionUpdateField = "UPDATE_FIELD"
	ActionDeleteField = "DELETE_FIELD"

	ActionCreateLayout     = "CREATE_LAYOUT"
	ActionUpdateLayout     = "UPDATE_LAYOUT"
	ActionDeleteLayout     = "DELETE_LAYOUT"
	ActionSetDefaultLayout = "SET_DEFAULT_LAYOUT"

	ActionCreateWorkflow  = "CREATE_WORKFLOW"
	ActionUpdateWorkflow  = "UPDATE_WORKFLOW"
	ActionDeleteWorkflow  = "DELETE_WORKFLOW"
	ActionReorderWorkflow = "REORDER_WORKFLOW_STEPS"

	ActionSavePermissions = "SAVE_PERMISSIONS"
	ActionBulkTogglePerms = "BULK_TOGGLE_PERMISSIONS"
	ActionSeedPermissions = "SEED_PERMISSIONS"

	ActionCreateQuestion = "CREATE_QUESTION"
	ActionUpdateQuestion = "UPDATE_QUESTION"

	ActionCreateAssignment = "CREATE_ASSIGNMENT"
	ActionAdvanceStep      = "ADVANCE_STEP"
	ActionApproveAgent     = "APPROVE_AGENT"
	ActionRejectAgent      = "REJECT_AGENT"
	ActionCancelAssignment = "CANCEL_ASSIGNMENT"
	ActionReviewQuestion   = "REVIEW_QUESTION"
	ActionSubmitResponse   = "SUBMIT_RESPONSE"

	ActionCreateIncident = "CREATE_INCIDENT"
	ActionUpdateIncident = "UPDATE_INCIDENT"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for automated actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
