// Package memory implements the repository interfaces on process memory. It
// mirrors the Postgres schema's uniqueness and cascade rules so services
// behave the same on either backend.
package memory

import (
	"sync"
	"time"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/repository"
)

// Store holds every table behind one lock.
type Store struct {
	mu sync.RWMutex

	nextID       map[string]int64
	companies    map[int64]domain.Company
	users        map[int64]domain.User
	messages     map[int64]domain.Message
	meetings     map[int64]domain.Meeting
	participants map[int64]domain.MeetingParticipant
	syncTasks    map[int64]domain.SyncTask

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nextID:       map[string]int64{},
		companies:    map[int64]domain.Company{},
		users:        map[int64]domain.User{},
		messages:     map[int64]domain.Message{},
		meetings:     map[int64]domain.Meeting{},
		participants: map[int64]domain.MeetingParticipant{},
		syncTasks:    map[int64]domain.SyncTask{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Companies returns the company repository view.
func (s *Store) Companies() repository.CompanyRepository { return &companyRepo{s} }

// Messages returns the message repository view.
func (s *Store) Messages() repository.MessageRepository { return &messageRepo{s} }

// Meetings returns the meeting repository view.
func (s *Store) Meetings() repository.MeetingRepository { return &meetingRepo{s} }

// SyncTasks returns the outbox repository view.
func (s *Store) SyncTasks() repository.SyncTaskRepository { return &syncTaskRepo{s} }

// deleteUserLocked removes a user and everything that references them.
func (s *Store) deleteUserLocked(id int64) {
	delete(s.users, id)
	for uid, u := range s.users {
		if u.ManagedBy(id) {
			u.ManagerID = nil
			s.users[uid] = u
		}
	}
	for mid, m := range s.messages {
		if m.SenderID == id || m.ReceiverID == id {
			delete(s.messages, mid)
		}
	}
	for mid, m := range s.meetings {
		if m.OrganizerID == id {
			s.deleteMeetingLocked(mid)
		}
	}
	for pid, p := range s.participants {
		if p.UserID == id {
			delete(s.participants, pid)
		}
	}
}

func (s *Store) deleteMeetingLocked(id int64) {
	delete(s.meetings, id)
	for pid, p := range s.participants {
		if p.MeetingID == id {
			delete(s.participants, pid)
		}
	}
}
