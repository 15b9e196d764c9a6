package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/orgchat-service/internal/api/http/handlers"
	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/events"
	"github.com/spec-kit/orgchat-service/internal/observability"
	"github.com/spec-kit/orgchat-service/internal/provider"
	"github.com/spec-kit/orgchat-service/internal/relay"
	"github.com/spec-kit/orgchat-service/internal/repository/memory"
	"github.com/spec-kit/orgchat-service/internal/service"
)

type nopDeliverer struct{}

func (nopDeliverer) Deliver(int64, relay.OutboundFrame) bool { return false }

type testServer struct {
	app     *fiber.App
	store   *memory.Store
	tokens  *auth.TokenManager
	metrics *observability.Metrics
	acme    *domain.Company
	root    *domain.User
	admin   *domain.User
	alice   *domain.User
	bob     *domain.User
	carol   *domain.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 60, BcryptCost: bcrypt.MinCost}}
	store := memory.New()
	s := &testServer{store: store, metrics: observability.NewMetrics()}

	s.acme = &domain.Company{Name: "Acme"}
	require.NoError(t, store.Companies().Create(ctx, s.acme))
	hash, err := auth.NewPasswordHasher(cfg.Auth).Hash("secret1")
	require.NoError(t, err)
	mk := func(username string, role domain.Role, company *domain.Company, manager *domain.User) *domain.User {
		u := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: hash, Role: role}
		if company != nil {
			u.CompanyID = &company.ID
		}
		if manager != nil {
			u.ManagerID = &manager.ID
		}
		require.NoError(t, store.Users().Create(ctx, u))
		return u
	}
	s.root = mk("root", domain.RoleSuperAdmin, nil, nil)
	s.admin = mk("admin", domain.RoleCompanyAdmin, s.acme, nil)
	s.alice = mk("alice", domain.RoleManager, s.acme, nil)
	s.bob = mk("bob", domain.RoleEmployee, s.acme, s.alice)
	s.carol = mk("carol", domain.RoleEmployee, s.acme, nil)

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, nopDeliverer{}, nil).RegisterHandlers()
	syncSvc := service.NewSyncService(service.SyncDependencies{
		SyncTaskRepo: store.SyncTasks(),
		UserRepo:     store.Users(),
		MeetingRepo:  store.Meetings(),
	})
	authSvc := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: store.Users(), CompanyRepo: store.Companies(), Sync: syncSvc})
	userSvc := service.NewUserService(cfg, service.UserDependencies{UserRepo: store.Users(), CompanyRepo: store.Companies(), Sync: syncSvc})
	s.tokens = authSvc.TokenManager()

	companySvc := service.NewCompanyService(service.CompanyDependencies{CompanyRepo: store.Companies(), UserRepo: store.Users()})
	messageSvc := service.NewMessageService(service.MessageDependencies{
		MessageRepo: store.Messages(),
		UserRepo:    store.Users(),
		Dispatcher:  dispatcher,
	})
	meetingSvc := service.NewMeetingService(service.MeetingDependencies{
		MeetingRepo: store.Meetings(),
		UserRepo:    store.Users(),
		Sync:        syncSvc,
		Dispatcher:  dispatcher,
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), s.metrics, 0, []string{"*"})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("orgchat-service", "test", s.metrics, nil),
		Auth:           handlers.NewAuthHandler(authSvc),
		Users:          handlers.NewUsersHandler(userSvc),
		Companies:      handlers.NewCompaniesHandler(companySvc),
		Messages:       handlers.NewMessagesHandler(messageSvc),
		Meetings:       handlers.NewMeetingsHandler(meetingSvc),
		Sync:           handlers.NewSyncHandler(syncSvc, userSvc, nil),
		Provider:       handlers.NewProviderHandler(provider.Disabled{}, 0),
		AuthMiddleware: auth.NewAuthMiddleware(s.tokens),
	})
	s.app = app
	return s
}

func (s *testServer) token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, _, err := s.tokens.GenerateToken(u)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path string, as *domain.User, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, as))
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = s.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "requests")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	status, _ = s.send(t, req)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", nil, map[string]any{
		"username":  "dave",
		"email":     "dave@example.com",
		"password":  "secret1",
		"companyId": s.acme.ID,
		"managerId": s.alice.ID,
	})
	require.Equal(t, http.StatusCreated, status, body)
	registered := body["data"].(map[string]any)
	assert.NotEmpty(t, registered["token"])
	assert.Equal(t, "employee", registered["user"].(map[string]any)["role"])

	status, body = s.do(t, http.MethodPost, "/api/auth/login", nil, map[string]any{"username": "dave", "password": "secret1"})
	require.Equal(t, http.StatusOK, status)
	token := body["data"].(map[string]any)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	status, body = s.send(t, req)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dave", body["data"].(map[string]any)["username"])

	status, body = s.do(t, http.MethodPost, "/api/auth/login", nil, map[string]any{"username": "dave", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", nil, map[string]any{
		"username": "x",
		"email":    "not-an-email",
		"password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "username")
	assert.Contains(t, details, "email")

	status, _ = s.do(t, http.MethodPost, "/api/auth/register", nil, map[string]any{
		"username": "sneaky",
		"email":    "sneaky@example.com",
		"password": "secret1",
		"role":     "super_admin",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/companies", s.admin, map[string]any{"name": "Initech"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, _ = s.do(t, http.MethodPost, "/api/companies", s.root, map[string]any{"name": "Initech"})
	assert.Equal(t, http.StatusCreated, status)

	status, _ = s.do(t, http.MethodPost, "/api/users", s.bob, map[string]any{
		"username": "eve", "email": "eve@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestMessagingFlow(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/messages", s.bob, map[string]any{
		"receiverId": s.alice.ID,
		"content":    "hi boss",
	})
	require.Equal(t, http.StatusCreated, status, body)
	msg := body["data"].(map[string]any)
	assert.Equal(t, "text", msg["type"])
	id := int64(msg["id"].(float64))

	status, _ = s.do(t, http.MethodPost, "/api/messages", s.bob, map[string]any{
		"receiverId": s.carol.ID,
		"content":    "psst",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodGet, "/api/messages/conversation/"+strconv.FormatInt(s.bob.ID, 10), s.alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, http.MethodPut, "/api/messages/"+strconv.FormatInt(id, 10)+"/read", s.alice, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["data"].(map[string]any)["isRead"])

	status, body = s.do(t, http.MethodGet, "/api/messages/conversations", s.alice, nil)
	require.Equal(t, http.StatusOK, status)
	convs := body["data"].([]any)
	require.Len(t, convs, 1)
	assert.Equal(t, float64(0), convs[0].(map[string]any)["unreadCount"])

	status, _ = s.do(t, http.MethodPut, "/api/messages/abc/read", s.alice, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestVoiceMessageCarriesBase64Audio(t *testing.T) {
	s := newTestServer(t)
	clip := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("OggS"), 4096))

	status, body := s.do(t, http.MethodPost, "/api/messages", s.alice, map[string]any{
		"receiverId": s.bob.ID,
		"type":       "voice",
		"content":    clip,
	})
	require.Equal(t, http.StatusCreated, status, body)
	msg := body["data"].(map[string]any)
	assert.Equal(t, "voice", msg["type"])
	assert.Equal(t, clip, msg["content"])

	status, _ = s.do(t, http.MethodPost, "/api/messages", s.alice, map[string]any{
		"receiverId": s.bob.ID,
		"type":       "voice",
		"content":    "note.webm",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestMeetingFlow(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/api/meetings", s.alice, map[string]any{
		"title":          "Weekly sync",
		"startTime":      "2030-01-01T10:00:00Z",
		"endTime":        "2030-01-01T11:00:00Z",
		"participantIds": []int64{s.bob.ID},
	})
	require.Equal(t, http.StatusCreated, status, body)
	m := body["data"].(map[string]any)
	assert.Equal(t, "none", m["providerSync"])
	assert.Len(t, m["participants"], 1)
	path := "/api/meetings/" + strconv.FormatInt(int64(m["id"].(float64)), 10)

	status, _ = s.do(t, http.MethodGet, path, s.bob, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/meetings", s.alice, map[string]any{
		"title":     "Backwards",
		"startTime": "2030-01-01T11:00:00Z",
		"endTime":   "2030-01-01T10:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodDelete, path+"/participants/"+strconv.FormatInt(s.bob.ID, 10), s.bob, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodDelete, path, s.alice, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, path, s.alice, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSyncTasksAndPresence(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/sync/tasks?status=pending", s.root, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])

	status, _ = s.do(t, http.MethodGet, "/api/sync/tasks?entity_type=ticket", s.root, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/presence", s.bob, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"].(map[string]any)["online"])
}

func TestProviderDisabled(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/provider/contacts", s.alice, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "PROVIDER_DISABLED", errorCode(body))
}

func TestVoiceUploadRejectsNonAudio(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("toContact", "bob@example.com"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="voice"; filename="note.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("not audio"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/provider/voice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(t, s.alice))
	status, body := s.send(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}
