package services

import (
	"context"
	"log/slog"

	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/repositories"
	"github.com/google/uuid"
)

// AuditLogger records structured audit entries for state-changing
// operations. Recording is strictly best-effort: failures are logged
// locally and never abort or fail the operation being audited.
type AuditLogger interface {
	Record(ctx context.Context, actorID *int, action, entityType string, entityID int, description string, success bool)
}

type auditService struct {
	activityRepo repositories.ActivityRepository
	logger       *slog.Logger
}

func NewAuditService(activityRepo repositories.ActivityRepository, logger *slog.Logger) AuditLogger {
	return &auditService{activityRepo: activityRepo, logger: logger}
}

func (s *auditService) Record(ctx context.Context, actorID *int, action, entityType string, entityID int, description string, success bool) {
	activity := &models.Activity{
		ID:          uuid.NewString(),
		ActorID:     actorID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Success:     success,
	}
	if err := s.activityRepo.Insert(ctx, activity); err != nil {
		s.logger.Error("audit record failed",
			slog.String("action", action),
			slog.String("entity_type", entityType),
			slog.Int("entity_id", entityID),
			slog.Any("error", err))
	}
}

// NopAudit discards all records; used in tests.
type NopAudit struct{}

func (NopAudit) Record(context.Context, *int, string, string, int, string, bool) {}
