package service

import (
	"context"

	"agenthub/internal/model"
	"agenthub/internal/repository"
	"agenthub/pkg/apperr"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditRecorder is the write side of the audit log, consumed by every
// mutating service. Recording is best-effort inside the caller's
// transaction context; a failed audit write never fails the mutation.
type AuditRecorder interface {
	Record(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, action, entityID, entityName string, details map[string]interface{})
}

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	AuditRecorder
	GetAuditLogs(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(db *gorm.DB, logger *zap.Logger) AuditService {
	return &auditService{db: db, logger: logger}
}

func (s *auditService) Record(ctx context.Context, tenantID uuid.UUID, actorID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) {
	entry := model.AuditLog{
		TenantID:   tenantID,
		UserID:     actorID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    marshalDetails(details),
	}
	if err := repository.GetDB(ctx, s.db).Create(&entry).Error; err != nil {
		s.logger.Warn("audit write failed",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// GetAuditLogs retrieves strictly paginated records with Users pre-loaded
func (s *auditService) GetAuditLogs(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]AuditLogResponse, int64, error) {
	var logs []model.AuditLog
	var total int64

	q := s.db.WithContext(ctx).Model(&model.AuditLog{}).Where("tenant_id = ?", tenantID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Transport(err, "failed to count audit logs")
	}

	offset := (page - 1) * limit
	err := s.db.WithContext(ctx).Preload("User").
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").Offset(offset).Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, 0, apperr.Transport(err, "failed to fetch audit logs")
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}
