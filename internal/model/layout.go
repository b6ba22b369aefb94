package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Request types: the persona-facing surface a layout targets
const (
	RequestTypeVendor   = "vendor"
	RequestTypeAdmin    = "admin"
	RequestTypeApprover = "approver"
	RequestTypeEndUser  = "end_user"
)

// ValidRequestType reports whether t is a known request type
func ValidRequestType(t string) bool {
	switch t {
	case RequestTypeVendor, RequestTypeAdmin, RequestTypeApprover, RequestTypeEndUser:
		return true
	}
	return false
}

// Section is an ordered named group of field references within a layout.
// Field names are unique across the whole layout, not just within a section.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Order       int      `json:"order"`
	Fields      []string `json:"fields"`
}

// FieldDependency is a layout-level conditional-visibility rule. It is
// distinct from a field's depends_on config, which drives option sets.
type FieldDependency struct {
	DependsOn string `json:"depends_on"`
	Condition string `json:"condition"` // equals, not_equals, not_empty
	Value     any    `json:"value,omitempty"`
}

// FormLayout composes sections of field references for one request type,
// optionally narrowed to one agent type.
type FormLayout struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Name              string         `gorm:"type:varchar(255);not null" json:"name"`
	RequestType       string         `gorm:"type:varchar(20);not null;index" json:"request_type"`
	AgentType         *string        `gorm:"type:varchar(50);index" json:"agent_type"`
	Sections          datatypes.JSON `gorm:"type:jsonb;not null" json:"sections"`
	FieldDependencies datatypes.JSON `gorm:"type:jsonb" json:"field_dependencies"`
	IsDefault         bool           `gorm:"default:false;index" json:"is_default"`
	IsActive          bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// DecodeSections parses the stored section list
func (l *FormLayout) DecodeSections() ([]Section, error) {
	var sections []Section
	if len(l.Sections) == 0 {
		return sections, nil
	}
	if err := json.Unmarshal(l.Sections, &sections); err != nil {
		return nil, fmt.Errorf("malformed sections for layout '%s': %w", l.Name, err)
	}
	return sections, nil
}

// EncodeSections serializes sections into the stored JSONB column
func (l *FormLayout) EncodeSections(sections []Section) error {
	data, err := json.Marshal(sections)
	if err != nil {
		return err
	}
	l.Sections = datatypes.JSON(data)
	return nil
}

// DecodeFieldDependencies parses the layout-level visibility rules
func (l *FormLayout) DecodeFieldDependencies() (map[string]FieldDependency, error) {
	deps := map[string]FieldDependency{}
	if len(l.FieldDependencies) == 0 {
		return deps, nil
	}
	if err := json.Unmarshal(l.FieldDependencies, &deps); err != nil {
		return nil, fmt.Errorf("malformed field dependencies for layout '%s': %w", l.Name, err)
	}
	return deps, nil
}
