// Package access holds the pure authorization rules of the hierarchy. Nothing
// here touches storage; callers load the users and ask.
package access

import "github.com/spec-kit/orgchat-service/internal/domain"

// CanCommunicate reports whether sender may message receiver. The first
// matching rule wins:
//
//	super_admin                          -> allow
//	different or missing company         -> deny
//	company_admin                        -> allow
//	manager  -> company_admin            -> allow
//	manager  -> own direct-report employee -> allow
//	employee -> company_admin            -> allow
//	employee -> own manager              -> allow
//	anything else                        -> deny
//
// Self is not excluded here; list call sites drop the caller themselves.
func CanCommunicate(sender, receiver *domain.User) bool {
	if sender == nil || receiver == nil {
		return false
	}
	if sender.Role == domain.RoleSuperAdmin {
		return true
	}
	if !sender.SameCompany(receiver) {
		return false
	}

	switch sender.Role {
	case domain.RoleCompanyAdmin:
		return true
	case domain.RoleManager:
		if receiver.Role == domain.RoleCompanyAdmin {
			return true
		}
		return receiver.Role == domain.RoleEmployee && receiver.ManagedBy(sender.ID)
	case domain.RoleEmployee:
		if receiver.Role == domain.RoleCompanyAdmin {
			return true
		}
		return receiver.Role == domain.RoleManager && sender.ManagedBy(receiver.ID)
	}
	return false
}

// CanSeeUser is the directory form of CanCommunicate: a user appears in the
// viewer's contact list exactly when the viewer may message them.
func CanSeeUser(viewer, target *domain.User) bool {
	if viewer == nil || target == nil || viewer.ID == target.ID {
		return false
	}
	return CanCommunicate(viewer, target)
}

// VisibleUsers filters candidates down to the viewer's contacts.
func VisibleUsers(viewer *domain.User, candidates []domain.User) []domain.User {
	out := make([]domain.User, 0, len(candidates))
	for i := range candidates {
		if CanSeeUser(viewer, &candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	return out
}
