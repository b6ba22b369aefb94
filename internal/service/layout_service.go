package service

import (
	"context"
	"errors"
	"fmt"

	"agenthub/internal/model"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateLayoutRequest struct {
	Name              string                           `json:"name" binding:"required"`
	RequestType       string                           `json:"request_type" binding:"required"`
	AgentType         *string                          `json:"agent_type"`
	Sections          []model.Section                  `json:"sections"`
	FieldDependencies map[string]model.FieldDependency `json:"field_dependencies"`
}

type UpdateLayoutRequest struct {
	Name              string                           `json:"name"`
	Sections          []model.Section                  `json:"sections"`
	FieldDependencies map[string]model.FieldDependency `json:"field_dependencies"`
	IsActive          *bool                            `json:"is_active"`
}

type AddFieldRequest struct {
	SectionID string `json:"section_id" binding:"required"`
	FieldName string `json:"field_name" binding:"required"`
}

type AddSectionRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type ReorderSectionsRequest struct {
	SectionIDs []string `json:"section_ids" binding:"required"`
}

type SetDefaultRequest struct {
	// ConfirmReplace acknowledges demoting an existing default. Without it
	// the call fails with a conflict when another default exists.
	ConfirmReplace bool `json:"confirm_replace"`
}

// RenderedField is a catalog field annotated with the caller's access
type RenderedField struct {
	CatalogField
	ReadOnly bool `json:"read_only"`
}

// RenderedSection is a section with only the fields the role may view
type RenderedSection struct {
	Section model.Section   `json:"section"`
	Fields  []RenderedField `json:"fields"`
}

// --- Interface ---

type LayoutService interface {
	// GetLayout returns the active default layout for the surface, most
	// specific filter first: an agent-type match beats the agent-type-null
	// fallback.
	GetLayout(ctx context.Context, tenantID uuid.UUID, requestType string, agentType *string) (*model.FormLayout, error)
	GetLayoutByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.FormLayout, error)
	ListLayouts(ctx context.Context, tenantID uuid.UUID, requestType string) ([]model.FormLayout, error)
	RenderableSections(ctx context.Context, tenantID uuid.UUID, role string, layout *model.FormLayout) ([]RenderedSection, error)

	CreateLayout(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateLayoutRequest) (*model.FormLayout, error)
	UpdateLayout(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateLayoutRequest) (*model.FormLayout, error)
	DeleteLayout(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) error

	AddFieldToSection(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req AddFieldRequest) (*model.FormLayout, error)
	AddSection(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req AddSectionRequest) (*model.FormLayout, error)
	DeleteSection(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, sectionID string) (*model.FormLayout, error)
	ReorderSections(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req ReorderSectionsRequest) (*model.FormLayout, error)

	SetDefault(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req SetDefaultRequest) (*model.FormLayout, error)
}

type layoutService struct {
	db      *gorm.DB
	catalog CatalogService
	access  AccessService
	audit   AuditRecorder
}

func NewLayoutService(db *gorm.DB, catalog CatalogService, access AccessService, audit AuditRecorder) LayoutService {
	return &layoutService{db: db, catalog: catalog, access: access, audit: audit}
}

// --- Pure section operations ---

// layoutFieldSet collects every field name referenced anywhere in the layout
func layoutFieldSet(sections []model.Section) map[string]bool {
	set := map[string]bool{}
	for _, sec := range sections {
		for _, f := range sec.Fields {
			set[f] = true
		}
	}
	return set
}

// addFieldToSection appends fieldName to the target section. The uniqueness
// constraint is layout-global: a field already referenced by ANY section is
// rejected, not just one already in the target.
func addFieldToSection(sections []model.Section, sectionID, fieldName string) ([]model.Section, error) {
	if layoutFieldSet(sections)[fieldName] {
		return nil, apperr.Validation("field '%s' is already added to this layout", fieldName)
	}
	for i := range sections {
		if sections[i].ID == sectionID {
			sections[i].Fields = append(sections[i].Fields, fieldName)
			return sections, nil
		}
	}
	return nil, apperr.NotFound("section '%s' not found in layout", sectionID)
}

// removeSection deletes the section with the given id
func removeSection(sections []model.Section, sectionID string) ([]model.Section, error) {
	for i := range sections {
		if sections[i].ID == sectionID {
			out := append(sections[:i:i], sections[i+1:]...)
			return renumberSections(out), nil
		}
	}
	return nil, apperr.NotFound("section '%s' not found in layout", sectionID)
}

// reorderSections rearranges sections into the order given by ids, which
// must be a permutation of the current section ids.
func reorderSections(sections []model.Section, ids []string) ([]model.Section, error) {
	if len(ids) != len(sections) {
		return nil, apperr.Validation("section order must list all %d sections", len(sections))
	}
	byID := make(map[string]model.Section, len(sections))
	for _, sec := range sections {
		byID[sec.ID] = sec
	}
	out := make([]model.Section, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		sec, ok := byID[id]
		if !ok {
			return nil, apperr.Validation("unknown section '%s' in order", id)
		}
		if seen[id] {
			return nil, apperr.Validation("section '%s' listed twice in order", id)
		}
		seen[id] = true
		out = append(out, sec)
	}
	return renumberSections(out), nil
}

// renumberSections rewrites Order to match array position
func renumberSections(sections []model.Section) []model.Section {
	for i := range sections {
		sections[i].Order = i + 1
	}
	return sections
}

// validateSections rejects duplicate section ids and duplicate field
// references anywhere across the layout.
func validateSections(sections []model.Section) error {
	secIDs := map[string]bool{}
	fields := map[string]bool{}
	for _, sec := range sections {
		if sec.ID == "" {
			return apperr.Validation("section '%s' is missing an id", sec.Title)
		}
		if secIDs[sec.ID] {
			return apperr.Validation("duplicate section id '%s'", sec.ID)
		}
		secIDs[sec.ID] = true
		for _, f := range sec.Fields {
			if fields[f] {
				return apperr.Validation("field '%s' appears more than once in the layout", f)
			}
			fields[f] = true
		}
	}
	return nil
}

// --- Implementation ---

func (s *layoutService) GetLayout(ctx context.Context, tenantID uuid.UUID, requestType string, agentType *string) (*model.FormLayout, error) {
	if !model.ValidRequestType(requestType) {
		return nil, apperr.Validation("unknown request type '%s'", requestType)
	}

	base := s.db.WithContext(ctx).
		Where("tenant_id = ? AND request_type = ? AND is_default = true AND is_active = true", tenantID, requestType)

	var layout model.FormLayout
	if agentType != nil && *agentType != "" {
		err := base.Session(&gorm.Session{}).Where("agent_type = ?", *agentType).First(&layout).Error
		if err == nil {
			return &layout, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Transport(err, "failed to resolve layout")
		}
	}

	err := base.Where("agent_type IS NULL").First(&layout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no default layout for request type '%s'", requestType)
		}
		return nil, apperr.Transport(err, "failed to resolve layout")
	}
	return &layout, nil
}

func (s *layoutService) GetLayoutByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*model.FormLayout, error) {
	var layout model.FormLayout
	err := s.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&layout).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("layout not found")
		}
		return nil, apperr.Transport(err, "failed to load layout")
	}
	return &layout, nil
}

func (s *layoutService) ListLayouts(ctx context.Context, tenantID uuid.UUID, requestType string) ([]model.FormLayout, error) {
	q := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if requestType != "" {
		q = q.Where("request_type = ?", requestType)
	}
	var layouts []model.FormLayout
	if err := q.Order("created_at asc").Find(&layouts).Error; err != nil {
		return nil, apperr.Transport(err, "failed to list layouts")
	}
	return layouts, nil
}

// RenderableSections filters the layout down to what the role may see.
// Viewable-but-not-editable fields come back flagged read-only.
func (s *layoutService) RenderableSections(ctx context.Context, tenantID uuid.UUID, role string, layout *model.FormLayout) ([]RenderedSection, error) {
	sections, err := layout.DecodeSections()
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	catalogFields, err := s.catalog.ListFields(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	// First source wins on name collision; the layout editor stores bare
	// names, so built-ins shadow same-named custom fields here.
	byName := map[string]CatalogField{}
	for _, f := range catalogFields {
		if _, ok := byName[f.FieldName]; !ok {
			byName[f.FieldName] = f
		}
	}

	accessByKey, err := s.access.ResolveAll(ctx, tenantID, role, layout.RequestType)
	if err != nil {
		return nil, err
	}

	out := make([]RenderedSection, 0, len(sections))
	for _, sec := range sections {
		rendered := RenderedSection{Section: sec, Fields: []RenderedField{}}
		for _, name := range sec.Fields {
			field, ok := byName[name]
			if !ok {
				continue // field removed from catalog; layouts keep the reference
			}
			access := accessByKey[field.Source+":"+field.FieldName]
			if !access.View {
				continue
			}
			rendered.Fields = append(rendered.Fields, RenderedField{
				CatalogField: field,
				ReadOnly:     !access.Edit,
			})
		}
		out = append(out, rendered)
	}
	return out, nil
}

func (s *layoutService) CreateLayout(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, req CreateLayoutRequest) (*model.FormLayout, error) {
	if !model.ValidRequestType(req.RequestType) {
		return nil, apperr.Validation("unknown request type '%s'", req.RequestType)
	}
	sections := renumberSections(req.Sections)
	if err := validateSections(sections); err != nil {
		return nil, err
	}

	layout := &model.FormLayout{
		TenantID:    tenantID,
		Name:        req.Name,
		RequestType: req.RequestType,
		AgentType:   req.AgentType,
		IsActive:    true,
	}
	if err := layout.EncodeSections(sections); err != nil {
		return nil, apperr.Validation("malformed sections: %v", err)
	}
	if len(req.FieldDependencies) > 0 {
		if err := encodeJSONColumn(&layout.FieldDependencies, req.FieldDependencies); err != nil {
			return nil, apperr.Validation("malformed field dependencies: %v", err)
		}
	}

	if err := s.db.WithContext(ctx).Create(layout).Error; err != nil {
		return nil, apperr.Transport(err, "failed to create layout")
	}

	s.audit.Record(ctx, tenantID, actorID, model.ActionCreateLayout, layout.ID.String(), layout.Name, map[string]interface{}{
		"request_type": layout.RequestType,
	})
	return layout, nil
}

func (s *layoutService) UpdateLayout(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID, req UpdateLayoutRequest) (*model.FormLayout, error) {
	layout, err := s.GetLayoutByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		layout.Name = req.Name
	}
	if req.Sections != nil {
		sections := renumberSections(req.Sections)
		if err := validateSections(sections); err != nil {
			return nil, err
		}
		if err := layout.EncodeSections(sections); err != nil {
			return nil, apperr.Validation("malformed sections: %v", err)
		}
	}
	if req.FieldDependencies != nil {
		if err := encodeJSONColumn(&layout.FieldDependencies, req.FieldDependencies); err != nil {
			return nil, apperr.Validation("malformed field dependencies: %v", err)
		}
	}
	if req.IsActive != nil {
		layout.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(layout).Error; err != nil {
		return nil, apperr.Transport(err, "failed to update layout")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionUpdateLayout, layout.ID.String(), layout.Name, nil)
	return layout, nil
}

func (s *layoutService) DeleteLayout(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, id uuid.UUID) error {
	layout, err := s.GetLayoutByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(layout).Error; err != nil {
		return apperr.Transport(err, "failed to delete layout")
	}
	s.audit.Record(ctx, tenantID, actorID, model.ActionDeleteLayout, layout.ID.String(), layout.Name, nil)
	return nil
}

// mutateSections loads the layout, applies fn to its decoded sections, and
// persists the result.
func (s *layoutService) mutateSections(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, action string, fn func([]model.Section) ([]model.Section, error)) (*model.FormLayout, error) {
	layout, err := s.GetLayoutByID(ctx, tenantID, layoutID)
	if err != nil {
		return nil, err
	}
	sections, err := layout.DecodeSections()
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	sections, err = fn(sections)
	if err != nil {
		return nil, err
	}
	if err := layout.EncodeSections(sections); err != nil {
		return nil, apperr.Validation("malformed sections: %v", err)
	}
	if err := s.db.WithContext(ctx).Save(layout).Error; err != nil {
		return nil, apperr.Transport(err, "failed to save layout")
	}
	s.audit.Record(ctx, tenantID, actorID, action, layout.ID.String(), layout.Name, nil)
	return layout, nil
}

func (s *layoutService) AddFieldToSection(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req AddFieldRequest) (*model.FormLayout, error) {
	// The field must exist in the catalog under some source.
	if _, err := s.catalog.GetField(ctx, tenantID, "", req.FieldName); err != nil {
		return nil, err
	}
	return s.mutateSections(ctx, tenantID, actorID, layoutID, model.ActionUpdateLayout, func(sections []model.Section) ([]model.Section, error) {
		return addFieldToSection(sections, req.SectionID, req.FieldName)
	})
}

func (s *layoutService) AddSection(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req AddSectionRequest) (*model.FormLayout, error) {
	return s.mutateSections(ctx, tenantID, actorID, layoutID, model.ActionUpdateLayout, func(sections []model.Section) ([]model.Section, error) {
		sections = append(sections, model.Section{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Fields:      []string{},
		})
		return renumberSections(sections), nil
	})
}

func (s *layoutService) DeleteSection(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, sectionID string) (*model.FormLayout, error) {
	return s.mutateSections(ctx, tenantID, actorID, layoutID, model.ActionUpdateLayout, func(sections []model.Section) ([]model.Section, error) {
		return removeSection(sections, sectionID)
	})
}

func (s *layoutService) ReorderSections(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req ReorderSectionsRequest) (*model.FormLayout, error) {
	return s.mutateSections(ctx, tenantID, actorID, layoutID, model.ActionUpdateLayout, func(sections []model.Section) ([]model.Section, error) {
		return reorderSections(sections, req.SectionIDs)
	})
}

// SetDefault promotes a layout to the default for its (request_type,
// agent_type) surface. Demoting the current default must be explicitly
// confirmed; it is never silent.
func (s *layoutService) SetDefault(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, layoutID uuid.UUID, req SetDefaultRequest) (*model.FormLayout, error) {
	layout, err := s.GetLayoutByID(ctx, tenantID, layoutID)
	if err != nil {
		return nil, err
	}
	if !layout.IsActive {
		return nil, apperr.Validation("cannot make an inactive layout the default")
	}

	scope := s.db.WithContext(ctx).Model(&model.FormLayout{}).
		Where("tenant_id = ? AND request_type = ? AND is_default = true AND is_active = true AND id <> ?",
			tenantID, layout.RequestType, layout.ID)
	if layout.AgentType != nil {
		scope = scope.Where("agent_type = ?", *layout.AgentType)
	} else {
		scope = scope.Where("agent_type IS NULL")
	}

	var current model.FormLayout
	findErr := scope.Session(&gorm.Session{}).First(&current).Error
	switch {
	case findErr == nil:
		if !req.ConfirmReplace {
			return nil, apperr.Conflict("layout '%s' is already the default; confirm replacement to continue", current.Name)
		}
	case !errors.Is(findErr, gorm.ErrRecordNotFound):
		return nil, apperr.Transport(findErr, "failed to check current default")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if findErr == nil {
			if err := tx.Model(&model.FormLayout{}).Where("id = ?", current.ID).Update("is_default", false).Error; err != nil {
				return fmt.Errorf("failed to demote current default: %w", err)
			}
		}
		return tx.Model(&model.FormLayout{}).Where("id = ?", layout.ID).Update("is_default", true).Error
	})
	if err != nil {
		return nil, apperr.Transport(err, "failed to set default layout")
	}

	layout.IsDefault = true
	s.audit.Record(ctx, tenantID, actorID, model.ActionSetDefaultLayout, layout.ID.String(), layout.Name, map[string]interface{}{
		"request_type": layout.RequestType,
	})
	return layout, nil
}
