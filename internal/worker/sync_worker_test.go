package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/observability"
	"github.com/spec-kit/orgchat-service/internal/provider"
	"github.com/spec-kit/orgchat-service/internal/repository/memory"
)

type fakeProvider struct {
	provider.Disabled

	mu       sync.Mutex
	accounts map[string]*provider.User
	created  []provider.MeetingInput
	updated  map[string]provider.MeetingInput
	deleted  []string
	failWith error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*provider.User{}, updated: map[string]provider.MeetingInput{}}
}

func (f *fakeProvider) Enabled() bool { return true }

func (f *fakeProvider) GetUserByEmail(_ context.Context, email string) (*provider.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.accounts[email], nil
}

func (f *fakeProvider) CreateUser(_ context.Context, in provider.CreateUserInput) (*provider.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &provider.User{ID: "zu-" + in.Email, Email: in.Email, FirstName: in.FirstName}
	f.accounts[in.Email] = u
	return u, nil
}

func (f *fakeProvider) CreateMeeting(_ context.Context, in provider.MeetingInput) (*provider.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.created = append(f.created, in)
	return &provider.Meeting{ID: 8800 + int64(len(f.created)), Password: "pw", JoinURL: "https://zoom.example/j/1"}, nil
}

func (f *fakeProvider) UpdateMeeting(_ context.Context, id string, in provider.MeetingInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = in
	return nil
}

func (f *fakeProvider) DeleteMeeting(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == "gone" {
		return &provider.APIError{Status: http.StatusNotFound}
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type harness struct {
	store    *memory.Store
	provider *fakeProvider
	worker   *SyncWorker
	metrics  *observability.Metrics
	company  *domain.Company
}

func newHarness(t *testing.T, maxAttempts int) *harness {
	t.Helper()
	store := memory.New()
	company := &domain.Company{Name: "Acme"}
	require.NoError(t, store.Companies().Create(context.Background(), company))
	fp := newFakeProvider()
	metrics := observability.NewMetrics()
	w := NewSyncWorker(config.OutboxConfig{
		BatchSize:      10,
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
	}, SyncDependencies{
		SyncTaskRepo: store.SyncTasks(),
		UserRepo:     store.Users(),
		MeetingRepo:  store.Meetings(),
		Provider:     fp,
		Metrics:      metrics,
	})
	return &harness{store: store, provider: fp, worker: w, metrics: metrics, company: company}
}

func (h *harness) user(t *testing.T, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", FirstName: username, Role: domain.RoleEmployee, CompanyID: &h.company.ID}
	require.NoError(t, h.store.Users().Create(context.Background(), u))
	return u
}

func (h *harness) enqueue(t *testing.T, kind domain.SyncTaskKind, entity domain.EntityType, id int64, payload domain.SyncPayload) *domain.SyncTask {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	task := &domain.SyncTask{Kind: kind, EntityType: entity, EntityID: id, Payload: raw}
	require.NoError(t, h.store.SyncTasks().Enqueue(context.Background(), task))
	return task
}

func (h *harness) task(t *testing.T, entity domain.EntityType, id int64) domain.SyncTask {
	t.Helper()
	tasks, err := h.store.SyncTasks().ListByEntity(context.Background(), entity, id)
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
	return tasks[len(tasks)-1]
}

func TestProvisionCreatesAccount(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	u := h.user(t, "dave")
	h.enqueue(t, domain.SyncUserProvision, domain.EntityUser, u.ID, domain.SyncPayload{Email: u.Email})

	n, err := h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := h.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderUserID)
	assert.Equal(t, "zu-dave@example.com", *got.ProviderUserID)
	assert.Equal(t, domain.SyncStatusDone, h.task(t, domain.EntityUser, u.ID).Status)
	assert.Equal(t, int64(1), h.metrics.Snapshot().SyncTasks["provider.user.create|done"])

	n, err = h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProvisionLinksExistingAccount(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	u := h.user(t, "erin")
	h.provider.accounts[u.Email] = &provider.User{ID: "existing", Email: u.Email}
	h.enqueue(t, domain.SyncUserProvision, domain.EntityUser, u.ID, domain.SyncPayload{})

	_, err := h.worker.RunOnce(ctx)
	require.NoError(t, err)

	got, err := h.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "existing", *got.ProviderUserID)
}

func TestTransientFailuresRetryThenFail(t *testing.T) {
	h := newHarness(t, 2)
	ctx := context.Background()
	u := h.user(t, "frank")
	h.provider.failWith = errors.New("connection reset")
	h.enqueue(t, domain.SyncUserProvision, domain.EntityUser, u.ID, domain.SyncPayload{})

	start := time.Now().UTC()
	_, err := h.worker.RunOnce(ctx)
	require.NoError(t, err)
	task := h.task(t, domain.EntityUser, u.ID)
	assert.Equal(t, domain.SyncStatusPending, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, "connection reset", task.LastError)
	assert.True(t, task.NextAttemptAt.After(start))

	n, err := h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "not due yet")

	h.worker.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	_, err = h.worker.RunOnce(ctx)
	require.NoError(t, err)
	task = h.task(t, domain.EntityUser, u.ID)
	assert.Equal(t, domain.SyncStatusFailed, task.Status)
	assert.Equal(t, 2, task.Attempts)
}

func TestClientErrorsFailImmediately(t *testing.T) {
	h := newHarness(t, 5)
	u := h.user(t, "gina")
	h.provider.failWith = &provider.APIError{Status: http.StatusBadRequest, Message: "invalid email"}
	h.enqueue(t, domain.SyncUserProvision, domain.EntityUser, u.ID, domain.SyncPayload{})

	_, err := h.worker.RunOnce(context.Background())
	require.NoError(t, err)
	task := h.task(t, domain.EntityUser, u.ID)
	assert.Equal(t, domain.SyncStatusFailed, task.Status)
	assert.Equal(t, 1, task.Attempts)
}

func TestMeetingLifecycleSync(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	organizer := h.user(t, "hank")
	start := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
	meeting := &domain.Meeting{
		Title:       "Planning",
		StartTime:   start,
		EndTime:     start.Add(45 * time.Minute),
		OrganizerID: organizer.ID,
		CompanyID:   h.company.ID,
	}
	require.NoError(t, h.store.Meetings().Create(ctx, meeting))
	h.enqueue(t, domain.SyncMeetingCreate, domain.EntityMeeting, meeting.ID, domain.SyncPayload{})

	_, err := h.worker.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, h.provider.created, 1)
	assert.Equal(t, "Planning", h.provider.created[0].Topic)
	assert.Equal(t, 45, h.provider.created[0].Duration)

	got, err := h.store.Meetings().GetByID(ctx, meeting.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ProviderMeetingID)
	assert.Equal(t, "8801", *got.ProviderMeetingID)
	assert.Equal(t, "https://zoom.example/j/1", *got.ProviderJoinURL)

	got.Title = "Planning v2"
	require.NoError(t, h.store.Meetings().Update(ctx, got))
	h.enqueue(t, domain.SyncMeetingUpdate, domain.EntityMeeting, meeting.ID, domain.SyncPayload{ProviderMeetingID: "8801"})
	_, err = h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Planning v2", h.provider.updated["8801"].Topic)

	require.NoError(t, h.store.Meetings().Delete(ctx, meeting.ID))
	h.enqueue(t, domain.SyncMeetingDelete, domain.EntityMeeting, meeting.ID, domain.SyncPayload{ProviderMeetingID: "8801"})
	_, err = h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"8801"}, h.provider.deleted)
	assert.Equal(t, domain.SyncStatusDone, h.task(t, domain.EntityMeeting, meeting.ID).Status)
}

func TestStaleMeetingTasksComplete(t *testing.T) {
	h := newHarness(t, 3)
	ctx := context.Background()
	h.enqueue(t, domain.SyncMeetingCreate, domain.EntityMeeting, 404, domain.SyncPayload{})
	h.enqueue(t, domain.SyncMeetingDelete, domain.EntityMeeting, 405, domain.SyncPayload{ProviderMeetingID: "gone"})

	n, err := h.worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, h.provider.created)
	assert.Equal(t, domain.SyncStatusDone, h.task(t, domain.EntityMeeting, 404).Status)
	assert.Equal(t, domain.SyncStatusDone, h.task(t, domain.EntityMeeting, 405).Status)
}

func TestRetryDelayGrows(t *testing.T) {
	w := NewSyncWorker(config.OutboxConfig{InitialBackoff: time.Second, MaxBackoff: 10 * time.Second}, SyncDependencies{})
	first := w.retryDelay(1)
	assert.InDelta(t, float64(time.Second), float64(first), float64(150*time.Millisecond))
	third := w.retryDelay(3)
	assert.InDelta(t, float64(4*time.Second), float64(third), float64(600*time.Millisecond))
	assert.LessOrEqual(t, w.retryDelay(20), 11*time.Second)
}
