package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Incident statuses
const (
	IncidentOpen      = "OPEN"
	IncidentMitigated = "MITIGATED"
	IncidentResolved  = "RESOLVED"
)

// Incident severities, derived from the CVSS score
const (
	SeverityNone     = "none"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SecurityIncident tracks a CVE or security event attributed to an agent
type SecurityIncident struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	AgentID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"agent_id"`
	Agent       *Agent          `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	CveID       string          `gorm:"type:varchar(30);index" json:"cve_id"` // e.g. CVE-2026-12345; empty for non-CVE incidents
	Title       string          `gorm:"type:varchar(500);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	CvssScore   decimal.Decimal `gorm:"type:numeric(3,1)" json:"cvss_score"`
	Severity    string          `gorm:"type:varchar(20);not null;index" json:"severity"`
	Status      string          `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	Metadata    datatypes.JSON  `gorm:"type:jsonb" json:"metadata"`
	ReportedBy  *uuid.UUID      `gorm:"type:uuid" json:"reported_by"`
	ReportedAt  time.Time       `json:"reported_at"`
	ResolvedAt  *time.Time      `json:"resolved_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// SeverityForScore maps a CVSS v3 score onto the standard severity bands
func SeverityForScore(score decimal.Decimal) string {
	switch {
	case score.GreaterThanOrEqual(decimal.NewFromInt(9)):
		return SeverityCritical
	case score.GreaterThanOrEqual(decimal.NewFromInt(7)):
		return SeverityHigh
	case score.GreaterThanOrEqual(decimal.NewFromInt(4)):
		return SeverityMedium
	case score.GreaterThan(decimal.Zero):
		return SeverityLow
	default:
		return SeverityNone
	}
}
