package models

import "errors"

// Session carries the opaque bearer credential and the user id. It is passed
// explicitly to every backend-facing operation.
type Session struct {
	Token  string
	UserID string
}

// Validate reports whether the session can address user-scoped routes.
func (s Session) Validate() error {
	if s.UserID == "" {
		return errors.New("session has no user id")
	}
	return nil
}
