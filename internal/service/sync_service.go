package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/access"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// SyncService records provider writes in the outbox and reports their state.
type SyncService struct {
	tasks    repository.SyncTaskRepository
	users    repository.UserRepository
	meetings repository.MeetingRepository
	enabled  bool
	logger   *zap.Logger
}

// SyncDependencies bundles what the sync service needs.
type SyncDependencies struct {
	SyncTaskRepo    repository.SyncTaskRepository
	UserRepo        repository.UserRepository
	MeetingRepo     repository.MeetingRepository
	ProviderEnabled bool
	Logger          *zap.Logger
}

// NewSyncService constructs the service.
func NewSyncService(deps SyncDependencies) *SyncService {
	return &SyncService{
		tasks:    deps.SyncTaskRepo,
		users:    deps.UserRepo,
		meetings: deps.MeetingRepo,
		enabled:  deps.ProviderEnabled,
		logger:   orNop(deps.Logger),
	}
}

// Enabled reports whether provider writes are recorded at all.
func (s *SyncService) Enabled() bool { return s.enabled }

// Enqueue records a provider write. With the provider disabled nothing is
// recorded and the entity keeps provider_sync "none".
func (s *SyncService) Enqueue(ctx context.Context, kind domain.SyncTaskKind, entityType domain.EntityType, entityID int64, payload domain.SyncPayload) (*domain.SyncTask, error) {
	if !s.enabled {
		return nil, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	task := &domain.SyncTask{
		Kind:          kind,
		EntityType:    entityType,
		EntityID:      entityID,
		Payload:       raw,
		Status:        domain.SyncStatusPending,
		NextAttemptAt: time.Now().UTC(),
	}
	if err := s.tasks.Enqueue(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("provider sync enqueued",
		zap.String("kind", string(kind)),
		zap.String("entity_type", string(entityType)),
		zap.Int64("entity_id", entityID),
		zap.Int64("task_id", task.ID))
	return task, nil
}

// Status summarizes the outbox rows of one entity.
func (s *SyncService) Status(ctx context.Context, entityType domain.EntityType, entityID int64) (domain.ProviderSync, error) {
	tasks, err := s.tasks.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return domain.ProviderSyncNone, err
	}
	return domain.SummarizeSync(tasks), nil
}

// hasPending reports whether a task of kind is still waiting for entityID.
func (s *SyncService) hasPending(ctx context.Context, kind domain.SyncTaskKind, entityType domain.EntityType, entityID int64) (bool, error) {
	tasks, err := s.tasks.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return false, err
	}
	for _, t := range tasks {
		if t.Kind == kind && t.Status == domain.SyncStatusPending {
			return true, nil
		}
	}
	return false, nil
}

// SyncTaskQuery selects outbox rows. Without an entity only super admins may
// list, and then Status and Limit apply.
type SyncTaskQuery struct {
	EntityType *domain.EntityType
	EntityID   *int64
	Status     *domain.SyncTaskStatus
	Limit      int
}

// List returns outbox rows visible to the caller.
func (s *SyncService) List(ctx context.Context, principal *domain.Principal, q SyncTaskQuery) ([]domain.SyncTask, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}

	if q.EntityType == nil || q.EntityID == nil {
		if q.EntityType != nil || q.EntityID != nil {
			return nil, apperrors.NewValidationError("entity_type and entity_id must be given together", nil)
		}
		if actor.Role != domain.RoleSuperAdmin {
			return nil, apperrors.NewForbidden("only super admins can list all sync tasks")
		}
		return s.tasks.List(ctx, repository.SyncTaskFilter{Status: q.Status, Limit: q.Limit})
	}

	switch *q.EntityType {
	case domain.EntityUser:
		target, err := loadUser(ctx, s.users, *q.EntityID)
		if err != nil {
			return nil, err
		}
		if !access.CanViewUserProfile(actor, target) {
			return nil, apperrors.NewForbidden("not allowed to view this user")
		}
	case domain.EntityMeeting:
		meeting, err := s.meetings.GetByID(ctx, *q.EntityID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("meeting", map[string]any{"id": *q.EntityID})
			}
			return nil, err
		}
		participants, err := s.meetings.ListParticipants(ctx, meeting.ID)
		if err != nil {
			return nil, err
		}
		if !access.CanViewMeeting(actor, meeting, participantIDs(participants)) {
			return nil, apperrors.NewForbidden("not allowed to view this meeting")
		}
	default:
		return nil, apperrors.NewValidationError("unknown entity_type", map[string]any{"entity_type": *q.EntityType})
	}

	tasks, err := s.tasks.ListByEntity(ctx, *q.EntityType, *q.EntityID)
	if err != nil {
		return nil, err
	}
	if q.Status == nil {
		return tasks, nil
	}
	filtered := tasks[:0]
	for _, t := range tasks {
		if t.Status == *q.Status {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}
