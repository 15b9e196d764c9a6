package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/events"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// loadActor resolves the caller's current record. The token only proves who
// they are; role and hierarchy are always read fresh.
func loadActor(ctx context.Context, users repository.UserRepository, principal *domain.Principal) (*domain.User, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	actor, err := users.GetByID(ctx, principal.UserID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, err
	}
	return actor, nil
}

func loadUser(ctx context.Context, users repository.UserRepository, id int64) (*domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, err
	}
	return user, nil
}

func newEvent(eventType events.EventType, actorID int64, payload any) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// publish delivers an event after the write has committed. Notification
// failures are logged, never surfaced to the caller.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
