package rollout

import "errors"

var (
	ErrMissingConfiguration = errors.New("feature flag config is missing")
	ErrInvalidConfiguration = errors.New("feature flag config is invalid")
)
