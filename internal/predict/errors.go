package predict

import (
	"errors"

	"github.com/samcharles93/tabpredict/internal/model"
)

// ErrInputEmpty is returned when a batch has no records. It is reported
// before any model work happens.
var ErrInputEmpty = errors.New("no records in input")

// ErrorKind names a failure class so adapters can map it to a status or
// exit code.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindInputEmpty       ErrorKind = "input_empty"
	KindArtifactMissing  ErrorKind = "artifact_missing"
	KindArtifactCorrupt  ErrorKind = "artifact_corrupt"
	KindInferenceFailure ErrorKind = "inference_failure"
	KindInternal         ErrorKind = "internal"
)

// Kind classifies err. Missing and corrupt artifacts are checked before
// inference so a load failure is never reported as an inference failure.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInputEmpty):
		return KindInputEmpty
	case errors.Is(err, model.ErrArtifactMissing):
		return KindArtifactMissing
	case errors.Is(err, model.ErrArtifactCorrupt):
		return KindArtifactCorrupt
	case errors.Is(err, model.ErrInferenceFailure):
		return KindInferenceFailure
	default:
		return KindInternal
	}
}
