package access

import (
	"slices"

	"github.com/spec-kit/orgchat-service/internal/domain"
)

// CanViewMeeting: super admins, the company's admins, the organizer and the
// participants.
func CanViewMeeting(viewer *domain.User, meeting *domain.Meeting, participantIDs []int64) bool {
	if viewer == nil || meeting == nil {
		return false
	}
	if CanMutateMeeting(viewer, meeting) {
		return true
	}
	return slices.Contains(participantIDs, viewer.ID)
}

// CanMutateMeeting: super admins, the company's admins and the organizer.
func CanMutateMeeting(actor *domain.User, meeting *domain.Meeting) bool {
	if actor == nil || meeting == nil {
		return false
	}
	switch {
	case actor.Role == domain.RoleSuperAdmin:
		return true
	case actor.ID == meeting.OrganizerID:
		return true
	case actor.Role == domain.RoleCompanyAdmin:
		return actor.InCompany(meeting.CompanyID)
	}
	return false
}

// CanCreateMeetingFor reports whether actor may schedule inside companyID.
func CanCreateMeetingFor(actor *domain.User, companyID int64) bool {
	if actor == nil {
		return false
	}
	return actor.Role == domain.RoleSuperAdmin || actor.InCompany(companyID)
}

// CanJoinMeeting reports whether user may be added as a participant.
func CanJoinMeeting(user *domain.User, meeting *domain.Meeting) bool {
	if user == nil || meeting == nil {
		return false
	}
	return user.Role == domain.RoleSuperAdmin || user.InCompany(meeting.CompanyID)
}
