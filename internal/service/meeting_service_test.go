package service

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/relay"
)

var standup = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func scheduleStandup(t *testing.T, w *world, participants ...int64) *MeetingDetail {
	t.Helper()
	detail, err := w.meetings.Create(context.Background(), as(w.alice), CreateMeetingInput{
		Title:          "Standup",
		StartTime:      standup,
		EndTime:        standup.Add(15 * time.Minute),
		ParticipantIDs: participants,
	})
	require.NoError(t, err)
	return detail
}

func TestCreateMeetingInvitesParticipants(t *testing.T) {
	w := newWorld(t, false)
	w.inbox.online[w.bob.ID] = true

	detail := scheduleStandup(t, w, w.bob.ID, w.carol.ID, w.bob.ID)

	assert.Equal(t, w.acme.ID, detail.Meeting.CompanyID)
	assert.Equal(t, w.alice.ID, detail.Meeting.OrganizerID)
	assert.ElementsMatch(t, []int64{w.bob.ID, w.carol.ID}, participantIDs(detail.Participants))
	assert.Equal(t, domain.ProviderSyncNone, detail.ProviderSync)

	frames := w.inbox.For(w.bob.ID)
	require.Len(t, frames, 1)
	assert.Equal(t, relay.FrameMeetingInvite, frames[0].Type)
	assert.Equal(t, detail.Meeting.ID, frames[0].MeetingID)
	require.NotNil(t, frames[0].StartTime)
	assert.True(t, standup.Equal(*frames[0].StartTime))
}

func TestCreateMeetingValidation(t *testing.T) {
	w := newWorld(t, false)
	ctx := context.Background()

	_, err := w.meetings.Create(ctx, as(w.alice), CreateMeetingInput{Title: "Backwards", StartTime: standup, EndTime: standup})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = w.meetings.Create(ctx, as(w.alice), CreateMeetingInput{
		Title: "Mixed", StartTime: standup, EndTime: standup.Add(time.Hour), ParticipantIDs: []int64{w.gadmin.ID},
	})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, err = w.meetings.Create(ctx, as(w.alice), CreateMeetingInput{
		Title: "Elsewhere", StartTime: standup, EndTime: standup.Add(time.Hour), CompanyID: &w.globex.ID,
	})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = w.meetings.Create(ctx, as(w.root), CreateMeetingInput{Title: "Nowhere", StartTime: standup, EndTime: standup.Add(time.Hour)})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestMeetingVisibility(t *testing.T) {
	w := newWorld(t, false)
	ctx := context.Background()
	detail := scheduleStandup(t, w, w.bob.ID)
	id := detail.Meeting.ID

	for _, u := range []*domain.User{w.root, w.admin, w.alice, w.bob} {
		_, err := w.meetings.Get(ctx, as(u), id)
		assert.NoError(t, err, u.Username)
	}
	_, err := w.meetings.Get(ctx, as(w.carol), id)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	list, err := w.meetings.List(ctx, as(w.carol), nil)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = w.meetings.List(ctx, as(w.bob), nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = w.meetings.List(ctx, as(w.gadmin), nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateMeetingDiffsParticipants(t *testing.T) {
	w := newWorld(t, false)
	ctx := context.Background()
	w.inbox.online[w.bob.ID] = true
	w.inbox.online[w.carol.ID] = true
	detail := scheduleStandup(t, w, w.bob.ID)

	updated, err := w.meetings.Update(ctx, as(w.alice), detail.Meeting.ID, UpdateMeetingInput{
		Title:          ptr("Daily sync"),
		ParticipantIDs: &[]int64{w.carol.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Daily sync", updated.Meeting.Title)
	assert.Equal(t, []int64{w.carol.ID}, participantIDs(updated.Participants))

	bob := w.inbox.For(w.bob.ID)
	require.Len(t, bob, 2)
	assert.Equal(t, relay.FrameMeetingUpdate, bob[1].Type)
	assert.Equal(t, "removed", bob[1].Action)

	carol := w.inbox.For(w.carol.ID)
	require.Len(t, carol, 1)
	assert.Equal(t, "added", carol[0].Action)
	assert.NotNil(t, carol[0].StartTime)

	_, err = w.meetings.Update(ctx, as(w.bob), detail.Meeting.ID, UpdateMeetingInput{Title: ptr("Mine now")})
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestDeleteMeetingCascadesAndNotifies(t *testing.T) {
	w := newWorld(t, false)
	ctx := context.Background()
	w.inbox.online[w.bob.ID] = true
	detail := scheduleStandup(t, w, w.bob.ID, w.carol.ID)
	id := detail.Meeting.ID

	require.NoError(t, w.meetings.Delete(ctx, as(w.admin), id))

	_, err := w.meetings.Get(ctx, as(w.alice), id)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	participants, err := w.store.Meetings().ListParticipants(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, participants)

	frames := w.inbox.For(w.bob.ID)
	require.Len(t, frames, 2)
	assert.Equal(t, "cancelled", frames[1].Action)
}

func TestParticipantsCanLeave(t *testing.T) {
	w := newWorld(t, false)
	ctx := context.Background()
	detail := scheduleStandup(t, w, w.bob.ID)
	id := detail.Meeting.ID

	err := w.meetings.RemoveParticipant(ctx, as(w.carol), id, w.bob.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	require.NoError(t, w.meetings.RemoveParticipant(ctx, as(w.bob), id, w.bob.ID))
	err = w.meetings.RemoveParticipant(ctx, as(w.bob), id, w.bob.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = w.meetings.AddParticipant(ctx, as(w.alice), id, w.carol.ID)
	require.NoError(t, err)
	again, err := w.meetings.AddParticipant(ctx, as(w.alice), id, w.carol.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{w.carol.ID}, participantIDs(again.Participants))
}

func TestMeetingOutbox(t *testing.T) {
	w := newWorld(t, true)
	ctx := context.Background()
	detail := scheduleStandup(t, w, w.bob.ID)
	id := detail.Meeting.ID
	assert.Equal(t, domain.ProviderSyncPending, detail.ProviderSync)

	tasks, err := w.store.SyncTasks().ListByEntity(ctx, domain.EntityMeeting, id)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.SyncMeetingCreate, tasks[0].Kind)

	// Without a provider handle there is nothing to update remotely yet.
	_, err = w.meetings.Update(ctx, as(w.alice), id, UpdateMeetingInput{Title: ptr("Renamed")})
	require.NoError(t, err)
	tasks, err = w.store.SyncTasks().ListByEntity(ctx, domain.EntityMeeting, id)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	require.NoError(t, w.store.Meetings().SetProviderHandle(ctx, id, "zm-1", "pw", "https://zoom.example/j/1"))
	require.NoError(t, w.store.SyncTasks().MarkDone(ctx, tasks[0].ID))

	_, err = w.meetings.Update(ctx, as(w.alice), id, UpdateMeetingInput{StartTime: ptr(standup.Add(time.Minute))})
	require.NoError(t, err)
	require.NoError(t, w.meetings.Delete(ctx, as(w.alice), id))

	tasks, err = w.store.SyncTasks().ListByEntity(ctx, domain.EntityMeeting, id)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, domain.SyncMeetingUpdate, tasks[1].Kind)
	assert.Equal(t, domain.SyncMeetingDelete, tasks[2].Kind)

	var payload domain.SyncPayload
	require.NoError(t, json.Unmarshal(tasks[2].Payload, &payload))
	assert.Equal(t, "zm-1", payload.ProviderMeetingID)
}
