package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/orgchat-service/internal/config"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/events"
	"github.com/spec-kit/orgchat-service/internal/relay"
	"github.com/spec-kit/orgchat-service/internal/repository/memory"
)

// world is a two-company hierarchy wired to every service.
type world struct {
	store *memory.Store
	inbox *inbox

	acme, globex *domain.Company
	root         *domain.User // super_admin
	admin        *domain.User // acme company_admin
	alice        *domain.User // acme manager
	bob          *domain.User // acme employee reporting to alice
	carol        *domain.User // acme employee without manager
	gadmin       *domain.User // globex company_admin

	auth      *AuthService
	users     *UserService
	companies *CompanyService
	messages  *MessageService
	meetings  *MeetingService
	sync      *SyncService
}

type delivery struct {
	UserID int64
	Frame  relay.OutboundFrame
}

type inbox struct {
	mu     sync.Mutex
	online map[int64]bool
	got    []delivery
}

func (b *inbox) Deliver(userID int64, frame relay.OutboundFrame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.online[userID] {
		return false
	}
	b.got = append(b.got, delivery{UserID: userID, Frame: frame})
	return true
}

func (b *inbox) For(userID int64) []relay.OutboundFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []relay.OutboundFrame
	for _, d := range b.got {
		if d.UserID == userID {
			out = append(out, d.Frame)
		}
	}
	return out
}

func testConfig() config.Config {
	return config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}}
}

func newWorld(t *testing.T, providerEnabled bool) *world {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	w := &world{store: store, inbox: &inbox{online: map[int64]bool{}}}

	w.acme = &domain.Company{Name: "Acme"}
	require.NoError(t, store.Companies().Create(ctx, w.acme))
	w.globex = &domain.Company{Name: "Globex"}
	require.NoError(t, store.Companies().Create(ctx, w.globex))

	mk := func(username string, role domain.Role, company *domain.Company, manager *domain.User) *domain.User {
		u := &domain.User{Username: username, Email: username + "@example.com", FirstName: username, Role: role}
		if company != nil {
			u.CompanyID = &company.ID
		}
		if manager != nil {
			u.ManagerID = &manager.ID
		}
		require.NoError(t, store.Users().Create(ctx, u))
		return u
	}
	w.root = mk("root", domain.RoleSuperAdmin, nil, nil)
	w.admin = mk("admin", domain.RoleCompanyAdmin, w.acme, nil)
	w.alice = mk("alice", domain.RoleManager, w.acme, nil)
	w.bob = mk("bob", domain.RoleEmployee, w.acme, w.alice)
	w.carol = mk("carol", domain.RoleEmployee, w.acme, nil)
	w.gadmin = mk("gadmin", domain.RoleCompanyAdmin, w.globex, nil)

	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, w.inbox, nil).RegisterHandlers()

	cfg := testConfig()
	w.sync = NewSyncService(SyncDependencies{
		SyncTaskRepo:    store.SyncTasks(),
		UserRepo:        store.Users(),
		MeetingRepo:     store.Meetings(),
		ProviderEnabled: providerEnabled,
	})
	w.auth = NewAuthService(cfg, AuthDependencies{UserRepo: store.Users(), CompanyRepo: store.Companies(), Sync: w.sync})
	w.users = NewUserService(cfg, UserDependencies{UserRepo: store.Users(), CompanyRepo: store.Companies(), Sync: w.sync})
	w.companies = NewCompanyService(CompanyDependencies{CompanyRepo: store.Companies(), UserRepo: store.Users()})
	w.messages = NewMessageService(MessageDependencies{MessageRepo: store.Messages(), UserRepo: store.Users(), Dispatcher: dispatcher})
	w.meetings = NewMeetingService(MeetingDependencies{
		MeetingRepo: store.Meetings(),
		UserRepo:    store.Users(),
		Sync:        w.sync,
		Dispatcher:  dispatcher,
	})
	return w
}

func as(u *domain.User) *domain.Principal {
	return &domain.Principal{UserID: u.ID, Username: u.Username, Role: u.Role, CompanyID: u.CompanyID}
}

func ptr[T any](v T) *T { return &v }
