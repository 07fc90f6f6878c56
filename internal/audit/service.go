package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/pkg/db/models"
	"github.com/mercatohq/mercato-backend/pkg/enums"
	pkgerrors "github.com/mercatohq/mercato-backend/pkg/errors"
	"github.com/mercatohq/mercato-backend/pkg/logger"
	"github.com/mercatohq/mercato-backend/pkg/types"
)

// Entry is one transition attempt to record.
type Entry struct {
	Action     string
	ActorID    *uuid.UUID
	ActorRole  enums.ActorRole
	TargetID   uuid.UUID
	TargetType enums.AuditTargetType
	Details    types.JSONMap
	Severity   enums.AuditSeverity
}

// Recorder is the surface lifecycle services call on every transition
// attempt, success or rejection.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the audit recorder.
func NewService(repo Repository, logg *logger.Logger) (Recorder, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, entry Entry) error {
	if entry.Action == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit action required")
	}
	if entry.TargetID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "audit target required")
	}
	severity := entry.Severity
	if severity == "" {
		severity = enums.AuditSeverityInfo
	}

	row := &models.AuditLog{
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		TargetID:   entry.TargetID,
		TargetType: entry.TargetType,
		Details:    entry.Details,
		Severity:   severity,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
	}
	return nil
}
