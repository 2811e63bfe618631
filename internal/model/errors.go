package model

import "errors"

var (
	ErrArtifactMissing        = errors.New("model artifact not found")
	ErrArtifactCorrupt        = errors.New("model artifact corrupt")
	ErrInferenceFailure       = errors.New("inference failed")
	ErrProbabilityUnavailable = errors.New("probabilities unavailable")
	errHandleClosed           = errors.New("model handle closed")
)
