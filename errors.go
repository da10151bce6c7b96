package httpc

import (
	"github.com/nettide/httpc/internal/errs"
)

// Error carries one of the closed error kinds plus an optional opaque
// diagnostic cause. The kind is fixed where the failure is first observed
// and never reclassified.
type Error = errs.Error

type ErrorKind = errs.Kind

const (
	ErrBodyDecode        = errs.BodyDecode
	ErrBodyTransfer      = errs.BodyTransfer
	ErrBuild             = errs.Build
	ErrConnect           = errs.Connect
	ErrConnectionUpgrade = errs.ConnectionUpgrade
	ErrOther             = errs.Other
	ErrRedirect          = errs.Redirect
	ErrRequest           = errs.Request
	ErrTimeout           = errs.Timeout
	ErrUserAborted       = errs.UserAborted
)

// IsKind reports whether err carries the given kind, unwrapping as needed.
var IsKind = errs.Is
