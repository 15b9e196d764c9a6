package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

func TestMeetingRules(t *testing.T) {
	u := fixture()
	meeting := &domain.Meeting{ID: 7, OrganizerID: u["M"].ID, CompanyID: 1}
	participants := []int64{u["B"].ID}

	assert.True(t, CanViewMeeting(u["S"], meeting, participants))
	assert.True(t, CanViewMeeting(u["A"], meeting, participants))
	assert.True(t, CanViewMeeting(u["M"], meeting, participants))
	assert.True(t, CanViewMeeting(u["B"], meeting, participants))
	assert.False(t, CanViewMeeting(u["C"], meeting, participants))
	assert.False(t, CanViewMeeting(u["X"], meeting, participants))

	assert.True(t, CanMutateMeeting(u["M"], meeting))
	assert.True(t, CanMutateMeeting(u["A"], meeting))
	assert.False(t, CanMutateMeeting(u["B"], meeting))
	assert.False(t, CanMutateMeeting(u["X"], meeting))

	assert.True(t, CanCreateMeetingFor(u["B"], 1))
	assert.False(t, CanCreateMeetingFor(u["B"], 2))
	assert.True(t, CanCreateMeetingFor(u["S"], 2))

	assert.True(t, CanJoinMeeting(u["C"], meeting))
	assert.False(t, CanJoinMeeting(u["Z"], meeting))
}

func TestCompanyRules(t *testing.T) {
	u := fixture()
	assert.True(t, CanManageCompany(u["S"], 2))
	assert.True(t, CanManageCompany(u["A"], 1))
	assert.False(t, CanManageCompany(u["A"], 2))
	assert.False(t, CanManageCompany(u["M"], 1))

	assert.True(t, CanViewOrgChart(u["B"], 1))
	assert.False(t, CanViewOrgChart(u["B"], 2))
}
