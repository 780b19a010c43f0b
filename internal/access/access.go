// Package access maps verified caller identities to profiles and
// enforces which operations each role may invoke. Roles are derived
// from the store on every request, never from anything the client
// asserts.
package access

import (
	"context"
	"errors"
	"strings"

	"parkease-api/internal/apperr"
	"parkease-api/internal/model"
	"parkease-api/internal/store"
)

type Gate struct {
	store  store.Store
	admins map[string]bool
}

// NewGate configures the gate. adminEmails promotes matching
// identities to admin at profile creation; role is immutable after
// that.
func NewGate(st store.Store, adminEmails []string) *Gate {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			admins[e] = true
		}
	}
	return &Gate{store: st, admins: admins}
}

// RoleFor returns the role a new profile with this email gets.
func (g *Gate) RoleFor(email string) model.Role {
	if g.admins[strings.ToLower(email)] {
		return model.RoleAdmin
	}
	return model.RoleUser
}

// Ensure creates the profile on first contact. Idempotent: the same
// identity never yields two profiles, a second call returns the
// existing one.
func (g *Gate) Ensure(ctx context.Context, u *model.User) (*model.User, error) {
	u.Role = g.RoleFor(u.Email)
	err := g.store.CreateUser(ctx, u)
	if err == nil {
		return u, nil
	}
	if errors.Is(err, store.ErrDuplicate) {
		existing, lookupErr := g.store.UserByEmail(ctx, u.Email)
		if lookupErr != nil {
			return nil, lookupErr
		}
		return existing, nil
	}
	return nil, err
}

// Resolve turns a verified user id into the authoritative profile.
func (g *Gate) Resolve(ctx context.Context, userID string) (*model.User, error) {
	u, err := g.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// valid token for a profile we do not know
			return nil, apperr.New(apperr.Unauthenticated, "unknown identity")
		}
		return nil, err
	}
	return u, nil
}

// RequireAdmin gates occupancy and lot/slot management.
func (g *Gate) RequireAdmin(u *model.User) error {
	if u.Role != model.RoleAdmin {
		return apperr.New(apperr.Forbidden, "admin role required")
	}
	return nil
}
