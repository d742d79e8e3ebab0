package audit

import "context"

type Action string

const (
	ActionRegister     Action = "register"
	ActionLogin        Action = "login"
	ActionAuthenticate Action = "authenticate"
	ActionUpdate       Action = "update_profile"
	ActionDeregister   Action = "deregister"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Failure reasons. They stay server-side; clients only see the uniform error.
const (
	ReasonUserNotFound     = "user_not_found"
	ReasonPasswordMismatch = "password_mismatch"
	ReasonDuplicateEmail   = "duplicate_email"
	ReasonDuplicateName    = "duplicate_username"
	ReasonMissingToken     = "missing_token"
	ReasonMalformedToken   = "malformed_token"
	ReasonBadSignature     = "invalid_signature"
	ReasonExpired          = "expired"
	ReasonStoreError       = "store_error"
	ReasonMalformedHash    = "malformed_hash"
	ReasonInvalidInput     = "invalid_input"
)

type Event struct {
	Action  Action
	Outcome string
	Reason  string
	UserID  string
	// Subject is what the caller claimed to be, e.g. the submitted username.
	Subject string
}

type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, Event) {}
