package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Agent onboarding statuses
const (
	AgentStatusDraft     = "DRAFT"
	AgentStatusSubmitted = "SUBMITTED"
	AgentStatusInReview  = "IN_REVIEW"
	AgentStatusApproved  = "APPROVED"
	AgentStatusRejected  = "REJECTED"
	AgentStatusSuspended = "SUSPENDED"
)

// Agent types used to filter form layouts and workflow templates
const (
	AgentTypeChatbot    = "chatbot"
	AgentTypeCopilot    = "copilot"
	AgentTypeAutomation = "automation"
	AgentTypeAnalytics  = "analytics"
)

// Agent represents a third-party AI agent/vendor going through the
// governance lifecycle: onboarding, assessment, approval.
type Agent struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	AgentType   string         `gorm:"type:varchar(50);not null;index" json:"agent_type"`
	VendorName  string         `gorm:"type:varchar(255);not null" json:"vendor_name"`
	Description string         `gorm:"type:text" json:"description"`
	Website     string         `gorm:"type:varchar(500)" json:"website"`
	Status      string         `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	RiskTier    string         `gorm:"type:varchar(20)" json:"risk_tier"` // low, medium, high, critical
	OwnerID     *uuid.UUID     `gorm:"type:uuid;index" json:"owner_id"`
	Owner       *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata"` // Custom-field values keyed by field_name
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// ValidAgentType reports whether t is a known agent type
func ValidAgentType(t string) bool {
	switch t {
	case AgentTypeChatbot, AgentTypeCopilot, AgentTypeAutomation, AgentTypeAnalytics:
		return true
	}
	return false
}
