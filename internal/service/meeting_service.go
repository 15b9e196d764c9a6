package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/access"
	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/events"
	"github.com/spec-kit/orgchat-service/internal/repository"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// MeetingService schedules meetings and keeps participants informed.
type MeetingService struct {
	meetings   repository.MeetingRepository
	users      repository.UserRepository
	sync       *SyncService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// MeetingDependencies bundles repositories for the meeting service.
type MeetingDependencies struct {
	MeetingRepo repository.MeetingRepository
	UserRepo    repository.UserRepository
	Sync        *SyncService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// MeetingDetail is a meeting with its participants and provider sync state.
type MeetingDetail struct {
	Meeting      *domain.Meeting
	Participants []domain.MeetingParticipant
	ProviderSync domain.ProviderSync
}

// CreateMeetingInput schedules a meeting. CompanyID defaults to the
// organizer's company.
type CreateMeetingInput struct {
	Title          string
	Description    string
	StartTime      time.Time
	EndTime        time.Time
	CompanyID      *int64
	ParticipantIDs []int64
}

// UpdateMeetingInput changes selected fields. A non-nil ParticipantIDs
// replaces the participant list.
type UpdateMeetingInput struct {
	Title          *string
	Description    *string
	StartTime      *time.Time
	EndTime        *time.Time
	ParticipantIDs *[]int64
}

// NewMeetingService constructs the service.
func NewMeetingService(deps MeetingDependencies) *MeetingService {
	return &MeetingService{
		meetings:   deps.MeetingRepo,
		users:      deps.UserRepo,
		sync:       deps.Sync,
		dispatcher: deps.Dispatcher,
		logger:     orNop(deps.Logger),
	}
}

// List returns the meetings visible to the caller: everything (optionally by
// company) for super admins, the company's meetings for company admins, and
// meetings the caller organizes or attends for everyone else.
func (s *MeetingService) List(ctx context.Context, principal *domain.Principal, companyID *int64) ([]domain.Meeting, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return s.meetings.List(ctx, repository.MeetingFilter{CompanyID: companyID})
	case domain.RoleCompanyAdmin:
		if actor.CompanyID == nil {
			return []domain.Meeting{}, nil
		}
		return s.meetings.List(ctx, repository.MeetingFilter{CompanyID: actor.CompanyID})
	}
	return s.meetings.List(ctx, repository.MeetingFilter{UserID: &actor.ID})
}

// Get returns one meeting with its participants.
func (s *MeetingService) Get(ctx context.Context, principal *domain.Principal, id int64) (*MeetingDetail, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	meeting, participants, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanViewMeeting(actor, meeting, participantIDs(participants)) {
		return nil, apperrors.NewForbidden("not allowed to view this meeting")
	}
	return s.detail(ctx, meeting, participants)
}

// Create schedules a meeting, invites participants and enqueues the provider
// meeting.
func (s *MeetingService) Create(ctx context.Context, principal *domain.Principal, in CreateMeetingInput) (*MeetingDetail, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}

	companyID := in.CompanyID
	if companyID == nil {
		companyID = actor.CompanyID
	}
	if companyID == nil {
		return nil, apperrors.NewValidationError("companyId is required", map[string]any{"field": "companyId"})
	}
	if !access.CanCreateMeetingFor(actor, *companyID) {
		return nil, apperrors.NewForbidden("You can only create meetings for your company")
	}

	meeting := &domain.Meeting{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		OrganizerID: actor.ID,
		CompanyID:   *companyID,
	}
	if meeting.Title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if err := meeting.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	invitees := dedupe(in.ParticipantIDs)
	if err := s.checkParticipants(ctx, meeting, invitees); err != nil {
		return nil, err
	}

	if err := s.meetings.Create(ctx, meeting); err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, uid := range invitees {
		if err := s.meetings.AddParticipant(ctx, meeting.ID, uid); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	s.logger.Info("meeting created",
		zap.Int64("meeting_id", meeting.ID),
		zap.Int64("organizer_id", actor.ID),
		zap.Int("participants", len(invitees)))

	s.enqueue(ctx, domain.SyncMeetingCreate, meeting.ID, domain.SyncPayload{})
	if len(invitees) > 0 {
		publish(ctx, s.dispatcher, s.logger, newEvent(events.EventMeetingInvite, actor.ID, events.MeetingPayload{
			Meeting:    *meeting,
			Recipients: invitees,
		}))
	}

	participants, err := s.meetings.ListParticipants(ctx, meeting.ID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, meeting, participants)
}

// Update edits a meeting and, when given, replaces its participant list.
// Added and removed participants are notified.
func (s *MeetingService) Update(ctx context.Context, principal *domain.Principal, id int64, in UpdateMeetingInput) (*MeetingDetail, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	meeting, current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanMutateMeeting(actor, meeting) {
		return nil, apperrors.NewForbidden("not allowed to update this meeting")
	}

	updated := *meeting
	scheduleChanged := false
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", map[string]any{"field": "title"})
		}
		scheduleChanged = scheduleChanged || title != updated.Title
		updated.Title = title
	}
	if in.Description != nil {
		scheduleChanged = scheduleChanged || *in.Description != updated.Description
		updated.Description = *in.Description
	}
	if in.StartTime != nil {
		scheduleChanged = scheduleChanged || !in.StartTime.Equal(updated.StartTime)
		updated.StartTime = in.StartTime.UTC()
	}
	if in.EndTime != nil {
		scheduleChanged = scheduleChanged || !in.EndTime.Equal(updated.EndTime)
		updated.EndTime = in.EndTime.UTC()
	}
	if err := updated.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	var added, removed []int64
	if in.ParticipantIDs != nil {
		wanted := dedupe(*in.ParticipantIDs)
		have := participantIDs(current)
		for _, uid := range wanted {
			if !slices.Contains(have, uid) {
				added = append(added, uid)
			}
		}
		for _, uid := range have {
			if !slices.Contains(wanted, uid) {
				removed = append(removed, uid)
			}
		}
		if err := s.checkParticipants(ctx, &updated, added); err != nil {
			return nil, err
		}
	}

	if err := s.meetings.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, uid := range added {
		if err := s.meetings.AddParticipant(ctx, id, uid); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	for _, uid := range removed {
		if err := s.meetings.RemoveParticipant(ctx, id, uid); err != nil && !apperrors.IsNotFound(err) {
			return nil, apperrors.MapError(err)
		}
	}

	if scheduleChanged && updated.ProviderMeetingID != nil {
		s.enqueue(ctx, domain.SyncMeetingUpdate, id, domain.SyncPayload{ProviderMeetingID: *updated.ProviderMeetingID})
	}
	s.notify(ctx, actor.ID, events.EventMeetingUpdated, updated, added, events.MeetingActionAdded)
	s.notify(ctx, actor.ID, events.EventMeetingUpdated, updated, removed, events.MeetingActionRemoved)

	participants, err := s.meetings.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, &updated, participants)
}

// Delete cancels a meeting. Participants are notified and the provider
// meeting is removed through the outbox, so a provider outage never blocks
// the local delete.
func (s *MeetingService) Delete(ctx context.Context, principal *domain.Principal, id int64) error {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return err
	}
	meeting, participants, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanMutateMeeting(actor, meeting) {
		return apperrors.NewForbidden("not allowed to delete this meeting")
	}
	if err := s.meetings.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("meeting deleted", zap.Int64("meeting_id", id), zap.Int64("actor_id", actor.ID))

	if meeting.ProviderMeetingID != nil {
		s.enqueue(ctx, domain.SyncMeetingDelete, id, domain.SyncPayload{ProviderMeetingID: *meeting.ProviderMeetingID})
	}
	s.notify(ctx, actor.ID, events.EventMeetingCancelled, *meeting, participantIDs(participants), events.MeetingActionCancelled)
	return nil
}

// AddParticipant invites one user. Adding an existing participant is a no-op.
func (s *MeetingService) AddParticipant(ctx context.Context, principal *domain.Principal, meetingID, userID int64) (*MeetingDetail, error) {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return nil, err
	}
	meeting, current, err := s.load(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if !access.CanMutateMeeting(actor, meeting) {
		return nil, apperrors.NewForbidden("not allowed to change participants")
	}
	already := slices.Contains(participantIDs(current), userID)
	if !already {
		if err := s.checkParticipants(ctx, meeting, []int64{userID}); err != nil {
			return nil, err
		}
		if err := s.meetings.AddParticipant(ctx, meetingID, userID); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.notify(ctx, actor.ID, events.EventMeetingUpdated, *meeting, []int64{userID}, events.MeetingActionAdded)
	}
	participants, err := s.meetings.ListParticipants(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, meeting, participants)
}

// RemoveParticipant removes one user. Participants may remove themselves.
func (s *MeetingService) RemoveParticipant(ctx context.Context, principal *domain.Principal, meetingID, userID int64) error {
	actor, err := loadActor(ctx, s.users, principal)
	if err != nil {
		return err
	}
	meeting, current, err := s.load(ctx, meetingID)
	if err != nil {
		return err
	}
	if actor.ID != userID && !access.CanMutateMeeting(actor, meeting) {
		return apperrors.NewForbidden("not allowed to change participants")
	}
	if !slices.Contains(participantIDs(current), userID) {
		return apperrors.NewNotFound("participant", map[string]any{"userId": userID})
	}
	if err := s.meetings.RemoveParticipant(ctx, meetingID, userID); err != nil {
		return apperrors.MapError(err)
	}
	s.notify(ctx, actor.ID, events.EventMeetingUpdated, *meeting, []int64{userID}, events.MeetingActionRemoved)
	return nil
}

func (s *MeetingService) load(ctx context.Context, id int64) (*domain.Meeting, []domain.MeetingParticipant, error) {
	meeting, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundAs(err, "meeting")
	}
	participants, err := s.meetings.ListParticipants(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return meeting, participants, nil
}

// checkParticipants requires every invitee to exist and belong to the
// meeting's company.
func (s *MeetingService) checkParticipants(ctx context.Context, meeting *domain.Meeting, ids []int64) error {
	for _, uid := range ids {
		user, err := s.users.GetByID(ctx, uid)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("participant does not exist", map[string]any{"userId": uid})
			}
			return err
		}
		if !access.CanJoinMeeting(user, meeting) {
			return apperrors.NewValidationError("participant belongs to another company", map[string]any{"userId": uid})
		}
	}
	return nil
}

func (s *MeetingService) enqueue(ctx context.Context, kind domain.SyncTaskKind, meetingID int64, payload domain.SyncPayload) {
	if s.sync == nil {
		return
	}
	if _, err := s.sync.Enqueue(ctx, kind, domain.EntityMeeting, meetingID, payload); err != nil {
		s.logger.Warn("provider meeting sync not enqueued",
			zap.String("kind", string(kind)),
			zap.Int64("meeting_id", meetingID),
			zap.Error(err))
	}
}

func (s *MeetingService) notify(ctx context.Context, actorID int64, eventType events.EventType, meeting domain.Meeting, recipients []int64, action events.MeetingAction) {
	if len(recipients) == 0 {
		return
	}
	publish(ctx, s.dispatcher, s.logger, newEvent(eventType, actorID, events.MeetingPayload{
		Meeting:    meeting,
		Recipients: recipients,
		Action:     action,
	}))
}

func (s *MeetingService) detail(ctx context.Context, meeting *domain.Meeting, participants []domain.MeetingParticipant) (*MeetingDetail, error) {
	status := domain.ProviderSyncNone
	if s.sync != nil {
		st, err := s.sync.Status(ctx, domain.EntityMeeting, meeting.ID)
		if err != nil {
			return nil, err
		}
		status = st
	}
	if participants == nil {
		participants = []domain.MeetingParticipant{}
	}
	return &MeetingDetail{Meeting: meeting, Participants: participants, ProviderSync: status}, nil
}

func participantIDs(participants []domain.MeetingParticipant) []int64 {
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
