package auth

import "errors"

// ErrManualAuthRequired is returned when the authenticator is configured
// with ModeManualOnly and no usable login exists. The caller must run an
// explicit Authenticate before requests can be sent.
var ErrManualAuthRequired = errors.New("manual authentication required")
