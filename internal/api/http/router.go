package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/orgchat-service/internal/api/http/handlers"
	"github.com/spec-kit/orgchat-service/internal/auth"
	"github.com/spec-kit/orgchat-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Companies      *handlers.CompaniesHandler
	Messages       *handlers.MessagesHandler
	Meetings       *handlers.MeetingsHandler
	Sync           *handlers.SyncHandler
	Provider       *handlers.ProviderHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	admins := auth.RequireRoles(domain.RoleSuperAdmin, domain.RoleCompanyAdmin)
	superOnly := auth.RequireRoles(domain.RoleSuperAdmin)

	users := protected.Group("/users")
	users.Get("/", cfg.Users.List)
	users.Get("/contacts", cfg.Users.Contacts)
	users.Post("/", admins, cfg.Users.Create)
	users.Get("/:id", cfg.Users.Get)
	users.Get("/:id/subordinates", cfg.Users.Subordinates)
	users.Put("/:id", cfg.Users.Update)
	users.Put("/:id/role", admins, cfg.Users.ChangeRole)
	users.Delete("/:id", admins, cfg.Users.Delete)

	companies := protected.Group("/companies")
	companies.Get("/", cfg.Companies.List)
	companies.Post("/", superOnly, cfg.Companies.Create)
	companies.Get("/:id", cfg.Companies.Get)
	companies.Put("/:id", cfg.Companies.Update)
	companies.Delete("/:id", superOnly, cfg.Companies.Delete)
	companies.Get("/:id/org-chart", cfg.Companies.OrgChart)

	messages := protected.Group("/messages")
	messages.Get("/", cfg.Messages.List)
	messages.Post("/", cfg.Messages.Send)
	messages.Get("/conversations", cfg.Messages.Conversations)
	messages.Get("/conversation/:userId", cfg.Messages.Conversation)
	messages.Put("/:id/read", cfg.Messages.MarkRead)

	meetings := protected.Group("/meetings")
	meetings.Get("/", cfg.Meetings.List)
	meetings.Post("/", cfg.Meetings.Create)
	meetings.Get("/:id", cfg.Meetings.Get)
	meetings.Put("/:id", cfg.Meetings.Update)
	meetings.Delete("/:id", cfg.Meetings.Delete)
	meetings.Post("/:id/participants", cfg.Meetings.AddParticipant)
	meetings.Delete("/:id/participants/:userId", cfg.Meetings.RemoveParticipant)

	protected.Get("/sync/tasks", cfg.Sync.Tasks)
	protected.Get("/presence", cfg.Sync.Presence)

	prov := protected.Group("/provider")
	prov.Get("/meetings", cfg.Provider.ListMeetings)
	prov.Post("/meetings", cfg.Provider.CreateMeeting)
	prov.Get("/meetings/:meetingId", cfg.Provider.GetMeeting)
	prov.Patch("/meetings/:meetingId", cfg.Provider.UpdateMeeting)
	prov.Delete("/meetings/:meetingId", cfg.Provider.DeleteMeeting)
	prov.Get("/contacts", cfg.Provider.Contacts)
	prov.Get("/channels", cfg.Provider.ListChannels)
	prov.Post("/channels", cfg.Provider.CreateChannel)
	prov.Patch("/channels/:channelId", cfg.Provider.UpdateChannel)
	prov.Get("/channels/:channelId/members", cfg.Provider.ListMembers)
	prov.Post("/channels/:channelId/members", cfg.Provider.AddMembers)
	prov.Delete("/channels/:channelId/members/:memberId", cfg.Provider.RemoveMember)
	prov.Get("/messages", cfg.Provider.ListMessages)
	prov.Post("/messages", cfg.Provider.SendMessage)
	prov.Patch("/messages/:messageId", cfg.Provider.UpdateMessage)
	prov.Delete("/messages/:messageId", cfg.Provider.DeleteMessage)
	prov.Post("/upload", cfg.Provider.Upload)
	prov.Post("/voice", cfg.Provider.Voice)
}
