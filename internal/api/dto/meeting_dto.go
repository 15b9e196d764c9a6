package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// CreateMeetingRequest schedules a meeting. companyId defaults to the
// organizer's company.
type CreateMeetingRequest struct {
	Title          string    `json:"title" validate:"required,notblank,max=200"`
	Description    string    `json:"description" validate:"max=2000"`
	StartTime      time.Time `json:"startTime" validate:"required"`
	EndTime        time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
	CompanyID      *int64    `json:"companyId"`
	ParticipantIDs []int64   `json:"participantIds" validate:"omitempty,dive,gt=0"`
}

// UpdateMeetingRequest changes selected fields. A present participantIds
// replaces the participant list.
type UpdateMeetingRequest struct {
	Title          *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description    *string    `json:"description" validate:"omitempty,max=2000"`
	StartTime      *time.Time `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	ParticipantIDs *[]int64   `json:"participantIds"`
}

type ParticipantRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
}

type ParticipantResponse struct {
	ID       int64 `json:"id"`
	UserID   int64 `json:"userId"`
	Attended bool  `json:"attended"`
}

type MeetingResponse struct {
	ID                int64                 `json:"id"`
	Title             string                `json:"title"`
	Description       string                `json:"description"`
	StartTime         time.Time             `json:"startTime"`
	EndTime           time.Time             `json:"endTime"`
	OrganizerID       int64                 `json:"organizerId"`
	CompanyID         int64                 `json:"companyId"`
	ProviderMeetingID *string               `json:"providerMeetingId,omitempty"`
	ProviderJoinURL   *string               `json:"joinUrl,omitempty"`
	ProviderPassword  *string               `json:"password,omitempty"`
	Participants      []ParticipantResponse `json:"participants,omitempty"`
	ProviderSync      string                `json:"providerSync,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
}

func NewMeetingResponse(m *domain.Meeting) MeetingResponse {
	return MeetingResponse{
		ID:                m.ID,
		Title:             m.Title,
		Description:       m.Description,
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
		OrganizerID:       m.OrganizerID,
		CompanyID:         m.CompanyID,
		ProviderMeetingID: m.ProviderMeetingID,
		ProviderJoinURL:   m.ProviderJoinURL,
		ProviderPassword:  m.ProviderPassword,
		CreatedAt:         m.CreatedAt,
	}
}

func NewMeetingDetailResponse(m *domain.Meeting, participants []domain.MeetingParticipant, sync domain.ProviderSync) MeetingResponse {
	resp := NewMeetingResponse(m)
	resp.ProviderSync = string(sync)
	resp.Participants = make([]ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		resp.Participants = append(resp.Participants, ParticipantResponse{ID: p.ID, UserID: p.UserID, Attended: p.Attended})
	}
	return resp
}

func NewMeetingList(meetings []domain.Meeting) []MeetingResponse {
	out := make([]MeetingResponse, 0, len(meetings))
	for i := range meetings {
		out = append(out, NewMeetingResponse(&meetings[i]))
	}
	return out
}

type SyncTaskResponse struct {
	ID            int64           `json:"id"`
	Kind          string          `json:"kind"`
	EntityType    string          `json:"entityType"`
	EntityID      int64           `json:"entityId"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"lastError,omitempty"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func NewSyncTaskList(tasks []domain.SyncTask) []SyncTaskResponse {
	out := make([]SyncTaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, SyncTaskResponse{
			ID:            t.ID,
			Kind:          string(t.Kind),
			EntityType:    string(t.EntityType),
			EntityID:      t.EntityID,
			Payload:       t.Payload,
			Status:        string(t.Status),
			Attempts:      t.Attempts,
			LastError:     t.LastError,
			NextAttemptAt: t.NextAttemptAt,
			CreatedAt:     t.CreatedAt,
			UpdatedAt:     t.UpdatedAt,
		})
	}
	return out
}
