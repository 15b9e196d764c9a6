// Package worker drains the provider outbox. Every provider write the
// services enqueue is executed here, retried with exponential backoff and
// eventually marked done or failed.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/observability"
	"github.com/spec-kit/orgchat-service/internal/provider"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// SyncWorker polls due outbox rows and runs them against the provider.
type SyncWorker struct {
	tasks    repository.SyncTaskRepository
	users    repository.UserRepository
	meetings repository.MeetingRepository
	provider provider.Provider
	metrics  *observability.Metrics
	logger   *zap.Logger
	cfg      config.OutboxConfig
	now      func() time.Time
}

// SyncDependencies bundles what the worker needs.
type SyncDependencies struct {
	SyncTaskRepo repository.SyncTaskRepository
	UserRepo     repository.UserRepository
	MeetingRepo  repository.MeetingRepository
	Provider     provider.Provider
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewSyncWorker constructs the worker.
func NewSyncWorker(cfg config.OutboxConfig, deps SyncDependencies) *SyncWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncWorker{
		tasks:    deps.SyncTaskRepo,
		users:    deps.UserRepo,
		meetings: deps.MeetingRepo,
		provider: deps.Provider,
		metrics:  deps.Metrics,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context) error {
	if w.provider == nil || !w.provider.Enabled() {
		w.logger.Info("provider disabled; sync worker idle")
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.logger.Info("sync worker started", zap.Duration("poll_interval", w.cfg.PollInterval))
	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("sync pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce claims one batch of due tasks and executes them in order. It
// returns how many tasks it claimed.
func (w *SyncWorker) RunOnce(ctx context.Context) (int, error) {
	lease := w.cfg.MaxBackoff
	if lease < time.Minute {
		lease = time.Minute
	}
	due, err := w.tasks.ClaimDue(ctx, w.now(), lease, w.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim sync tasks: %w", err)
	}
	for _, task := range due {
		if ctx.Err() != nil {
			break
		}
		w.process(ctx, task)
	}
	return len(due), nil
}

func (w *SyncWorker) process(ctx context.Context, task domain.SyncTask) {
	log := w.logger.With(
		zap.Int64("task_id", task.ID),
		zap.String("kind", string(task.Kind)),
		zap.Int64("entity_id", task.EntityID))

	err := w.execute(ctx, task)
	attempts := task.Attempts + 1
	switch {
	case err == nil:
		if markErr := w.tasks.MarkDone(ctx, task.ID); markErr != nil {
			log.Error("mark sync task done", zap.Error(markErr))
			return
		}
		w.metrics.RecordSync(string(task.Kind), "done")
		log.Info("sync task done", zap.Int("attempts", attempts))

	case isPermanent(err) || attempts >= w.cfg.MaxAttempts:
		if markErr := w.tasks.MarkFailed(ctx, task.ID, attempts, err.Error()); markErr != nil {
			log.Error("mark sync task failed", zap.Error(markErr))
			return
		}
		w.metrics.RecordSync(string(task.Kind), "failed")
		log.Warn("sync task failed", zap.Int("attempts", attempts), zap.Error(err))

	default:
		next := w.now().Add(w.retryDelay(attempts))
		if markErr := w.tasks.MarkRetry(ctx, task.ID, attempts, err.Error(), next); markErr != nil {
			log.Error("schedule sync retry", zap.Error(markErr))
			return
		}
		w.metrics.RecordSync(string(task.Kind), "retry")
		log.Info("sync task retry scheduled", zap.Int("attempts", attempts), zap.Time("next_attempt_at", next), zap.Error(err))
	}
}

// retryDelay is the exponential backoff interval after attempts failures.
func (w *SyncWorker) retryDelay(attempts int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InitialBackoff
	b.MaxInterval = w.cfg.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

func (w *SyncWorker) execute(ctx context.Context, task domain.SyncTask) error {
	var payload domain.SyncPayload
	if len(task.Payload) > 0 {
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return permanent(fmt.Errorf("decode payload: %w", err))
		}
	}
	switch task.Kind {
	case domain.SyncUserProvision:
		return w.provisionUser(ctx, task.EntityID)
	case domain.SyncMeetingCreate:
		return w.createMeeting(ctx, task.EntityID)
	case domain.SyncMeetingUpdate:
		return w.updateMeeting(ctx, task.EntityID, payload)
	case domain.SyncMeetingDelete:
		return w.deleteMeeting(ctx, payload)
	}
	return permanent(fmt.Errorf("unknown sync task kind %q", task.Kind))
}

// provisionUser links an existing provider account by email or creates one.
// A user deleted before the task ran needs nothing.
func (w *SyncWorker) provisionUser(ctx context.Context, userID int64) error {
	user, err := w.users.GetByID(ctx, userID)
	if apperrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.ProviderUserID != nil {
		return nil
	}

	account, err := w.provider.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if account == nil {
		account, err = w.provider.CreateUser(ctx, provider.CreateUserInput{
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		})
		if err != nil {
			return err
		}
	}
	email := account.Email
	if email == "" {
		email = user.Email
	}
	return w.users.SetProviderIdentity(ctx, user.ID, account.ID, email)
}

func meetingInput(m *domain.Meeting) provider.MeetingInput {
	return provider.MeetingInput{
		Topic:     m.Title,
		Agenda:    m.Description,
		StartTime: m.StartTime,
		Duration:  int(m.Duration() / time.Minute),
	}
}

// createMeeting reads the latest meeting row, so edits made while the task
// was pending are included.
func (w *SyncWorker) createMeeting(ctx context.Context, meetingID int64) error {
	meeting, err := w.meetings.GetByID(ctx, meetingID)
	if apperrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if meeting.ProviderMeetingID != nil {
		return nil
	}
	created, err := w.provider.CreateMeeting(ctx, meetingInput(meeting))
	if err != nil {
		return err
	}
	err = w.meetings.SetProviderHandle(ctx, meeting.ID, strconv.FormatInt(created.ID, 10), created.Password, created.JoinURL)
	if apperrors.IsNotFound(err) {
		// Deleted while the provider call was in flight.
		return w.provider.DeleteMeeting(ctx, strconv.FormatInt(created.ID, 10))
	}
	return err
}

func (w *SyncWorker) updateMeeting(ctx context.Context, meetingID int64, payload domain.SyncPayload) error {
	meeting, err := w.meetings.GetByID(ctx, meetingID)
	if apperrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	handle := payload.ProviderMeetingID
	if meeting.ProviderMeetingID != nil {
		handle = *meeting.ProviderMeetingID
	}
	if handle == "" {
		return permanent(errors.New("meeting has no provider handle"))
	}
	return w.provider.UpdateMeeting(ctx, handle, meetingInput(meeting))
}

func (w *SyncWorker) deleteMeeting(ctx context.Context, payload domain.SyncPayload) error {
	if payload.ProviderMeetingID == "" {
		return nil
	}
	err := w.provider.DeleteMeeting(ctx, payload.ProviderMeetingID)
	if provider.IsNotFound(err) {
		return nil
	}
	return err
}

// permanentError marks failures retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

func isPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p) || provider.IsPermanent(err)
}
