package domain

import (
	"encoding/json"
	"time"
)

// SyncTaskKind names a provider operation recorded in the outbox.
type SyncTaskKind string

const (
	SyncUserProvision SyncTaskKind = "provider.user.create"
	SyncMeetingCreate SyncTaskKind = "provider.meeting.create"
	SyncMeetingUpdate SyncTaskKind = "provider.meeting.update"
	SyncMeetingDelete SyncTaskKind = "provider.meeting.delete"
)

// SyncTaskStatus is the lifecycle state of an outbox row.
type SyncTaskStatus string

const (
	SyncStatusPending SyncTaskStatus = "pending"
	SyncStatusDone    SyncTaskStatus = "done"
	SyncStatusFailed  SyncTaskStatus = "failed"
)

// EntityType identifies what a sync task is about.
type EntityType string

const (
	EntityUser    EntityType = "user"
	EntityMeeting EntityType = "meeting"
)

// SyncTask is one pending or finished write to the external provider.
type SyncTask struct {
	ID            int64
	Kind          SyncTaskKind
	EntityType    EntityType
	EntityID      int64
	Payload       json.RawMessage
	Status        SyncTaskStatus
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProviderSync summarizes the sync state of an entity for API responses.
type ProviderSync string

const (
	ProviderSyncNone    ProviderSync = "none"
	ProviderSyncPending ProviderSync = "pending"
	ProviderSyncSynced  ProviderSync = "synced"
	ProviderSyncFailed  ProviderSync = "failed"
)

// SummarizeSync folds the tasks of one entity into a single status; the most
// recent task wins.
func SummarizeSync(tasks []SyncTask) ProviderSync {
	if len(tasks) == 0 {
		return ProviderSyncNone
	}
	latest := tasks[0]
	for _, t := range tasks[1:] {
		if t.ID > latest.ID {
			latest = t
		}
	}
	switch latest.Status {
	case SyncStatusDone:
		return ProviderSyncSynced
	case SyncStatusFailed:
		return ProviderSyncFailed
	}
	return ProviderSyncPending
}

// SyncPayload is the JSON body of a sync task. Most kinds reload the entity
// when they run; a delete has to carry the handle because the row is gone.
type SyncPayload struct {
	ProviderMeetingID string `json:"providerMeetingId,omitempty"`
	Email             string `json:"email,omitempty"`
}
