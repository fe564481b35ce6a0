package auth

import (
	"fmt"
	"net/http"

	"github.com/paper-guides/backend/srvcerror"
)

// Role is the closed set of privilege levels an actor can hold.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleGuest, RoleUser, RoleAdmin:
		return r, nil
	case "":
		return RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Actor is whoever is performing an operation.
type Actor struct {
	Username string
	Role     Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsAuthenticated() bool {
	return a.Role != RoleGuest && a.Role != "" && a.Username != ""
}

func (a Actor) String() string {
	if a.Username == "" {
		return string(RoleGuest)
	}
	return fmt.Sprintf("%s(%s)", a.Username, a.Role)
}

var Guest = Actor{Role: RoleGuest}

const ErrCodeAdminRoleRequired = "admin_role_required"

var ErrAdminRoleRequired = newErrAdminRoleRequired()

func newErrAdminRoleRequired() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeAdminRoleRequired,
		"access denied, administrator privileges required",
	).SetHttpStatusCode(http.StatusForbidden)
}

const ErrCodeLoginRequired = "login_required"

var ErrLoginRequired = newErrLoginRequired()

func newErrLoginRequired() *srvcerror.Error {
	return srvcerror.New(
		ErrCodeLoginRequired,
		"you must be logged in to do that",
	).SetHttpStatusCode(http.StatusUnauthorized)
}

// RequireAdmin is the single authorization guard for every moderation operation.
func RequireAdmin(actor Actor) error {
	if !actor.IsAuthenticated() || !actor.IsAdmin() {
		return newErrAdminRoleRequired().
			SetDebug(fmt.Errorf("actor %s is not an admin", actor))
	}
	return nil
}

func RequireLogin(actor Actor) error {
	if !actor.IsAuthenticated() {
		return newErrLoginRequired()
	}
	return nil
}
