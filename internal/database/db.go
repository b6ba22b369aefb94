package database

import (
	"agenthub/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Agent{},
		&model.FieldDefinition{},
		&model.FormLayout{},
		&model.FieldAccessRule{},
		&model.WorkflowTemplate{},
		&model.WorkflowStep{},
		&model.ApproverGroup{},
		&model.PermissionRecord{},
		&model.RoleDataFilter{},
		&model.AgentAssignment{},
		&model.AssessmentQuestion{},
		&model.AssessmentResponse{},
		&model.QuestionReview{},
		&model.SecurityIncident{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.Warn("Failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}
