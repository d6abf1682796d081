package auth

import (
	"context"

	"github.com/arispretz/codeuniverse-backend/internal/store"
)

// ResolveRole maps a verified identity to an authorization role by looking up
// the local user record for its subject. A missing record, an empty stored
// role, or a failed lookup all degrade to RoleGuest; the connection still
// proceeds. The result is fixed for the session's lifetime; role changes are
// observed only on reconnect.
func ResolveRole(ctx context.Context, s store.Store, subject string) string {
	user, err := s.GetUserByExternalID(ctx, subject)
	if err != nil {
		return RoleGuest
	}
	if user == nil {
		// Builtin identities carry the internal user ID as their subject.
		user, err = s.GetUserByID(ctx, subject)
		if err != nil || user == nil {
			return RoleGuest
		}
	}
	if user.Role == "" {
		return RoleGuest
	}
	return user.Role
}
