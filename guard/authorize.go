// Package guard holds the rules that run before any mutation is committed:
// the authorization evaluator and the daily quota ledger. The crud services
// call into it as the first stages of every create, update, delete, like and
// comment.
package guard

import (
	"loopLife/domain"
	"loopLife/errs"
)

// Action is the kind of mutation being attempted against a resource.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
	ActionLike
	ActionComment
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionLike:
		return "like"
	case ActionComment:
		return "comment"
	}
	return "unknown"
}

// Authorize decides whether actor may perform action on a resource owned by
// ownerID. It's a pure function with no side effects, evaluated in order:
// anonymous actors are rejected first, admins override ownership, owners are
// allowed, everyone else is denied. A nil return means allow.
func Authorize(actor *domain.User, ownerID int, action Action) error {
	if actor == nil {
		return errs.Errorf(errs.EUNAUTHENTICATED, "You must be logged in to %s.", action)
	}
	if actor.IsAdmin() {
		return nil
	}
	if actor.ID == ownerID {
		return nil
	}
	return errs.Errorf(errs.EUNAUTHORIZED, "You are not allowed to %s this resource.", action)
}

// RequireAuth allows any authenticated actor through. Used for actions that
// need a logged in user but no ownership, like liking or commenting.
func RequireAuth(actor *domain.User, action Action) error {
	if actor == nil {
		return errs.Errorf(errs.EUNAUTHENTICATED, "You must be logged in to %s.", action)
	}
	return nil
}

// RequireAdmin allows only admins through. Used for actions that have no
// owner, like listing all registered users.
func RequireAdmin(actor *domain.User) error {
	if actor == nil {
		return errs.Errorf(errs.EUNAUTHENTICATED, "You must be logged in to do this.")
	}
	if !actor.IsAdmin() {
		return errs.Errorf(errs.EUNAUTHORIZED, "You are not allowed to do this.")
	}
	return nil
}
