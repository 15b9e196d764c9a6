package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
)

type meetingRepo struct{ s *Store }

func (r *meetingRepo) Create(_ context.Context, meeting *domain.Meeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[meeting.OrganizerID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.companies[meeting.CompanyID]; !ok {
		return repository.ErrNotFound
	}
	meeting.ID = r.s.id("meetings")
	meeting.CreatedAt = r.s.now()
	r.s.meetings[meeting.ID] = *meeting
	return nil
}

func (r *meetingRepo) Update(_ context.Context, meeting *domain.Meeting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.meetings[meeting.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Title = meeting.Title
	existing.Description = meeting.Description
	existing.StartTime = meeting.StartTime
	existing.EndTime = meeting.EndTime
	r.s.meetings[meeting.ID] = existing
	return nil
}

func (r *meetingRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.meetings[id]; !ok {
		return repository.ErrNotFound
	}
	r.s.deleteMeetingLocked(id)
	return nil
}

func (r *meetingRepo) GetByID(_ context.Context, id int64) (*domain.Meeting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.meetings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *meetingRepo) isParticipantLocked(meetingID, userID int64) bool {
	for _, p := range r.s.participants {
		if p.MeetingID == meetingID && p.UserID == userID {
			return true
		}
	}
	return false
}

func (r *meetingRepo) List(_ context.Context, filter repository.MeetingFilter) ([]domain.Meeting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Meeting
	for _, m := range r.s.meetings {
		if filter.CompanyID != nil && m.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.UserID != nil && m.OrganizerID != *filter.UserID && !r.isParticipantLocked(m.ID, *filter.UserID) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (r *meetingRepo) SetProviderHandle(_ context.Context, id int64, providerMeetingID, password, joinURL string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.meetings[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.ProviderMeetingID = &providerMeetingID
	m.ProviderPassword = &password
	m.ProviderJoinURL = &joinURL
	r.s.meetings[id] = m
	return nil
}

func (r *meetingRepo) AddParticipant(_ context.Context, meetingID, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.meetings[meetingID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	if r.isParticipantLocked(meetingID, userID) {
		return nil
	}
	id := r.s.id("meeting_participants")
	r.s.participants[id] = domain.MeetingParticipant{ID: id, MeetingID: meetingID, UserID: userID}
	return nil
}

func (r *meetingRepo) RemoveParticipant(_ context.Context, meetingID, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, p := range r.s.participants {
		if p.MeetingID == meetingID && p.UserID == userID {
			delete(r.s.participants, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *meetingRepo) ListParticipants(_ context.Context, meetingID int64) ([]domain.MeetingParticipant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.MeetingParticipant
	for _, p := range r.s.participants {
		if p.MeetingID == meetingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
