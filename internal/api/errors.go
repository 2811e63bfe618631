package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tabpredict/internal/predict"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// ResponseError is the body of every non-2xx response, wrapped as {"error": ...}.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

func writeBadRequest(c *echo.Context, msg, param string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, param, "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// writeServiceError maps a core failure to its status and error type.
func writeServiceError(c *echo.Context, err error) error {
	if errors.Is(err, ErrInvalidRequest) {
		return writeBadRequest(c, err.Error(), "")
	}
	kind := predict.Kind(err)
	switch kind {
	case predict.KindInputEmpty:
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "inputs", string(kind))
	case predict.KindArtifactMissing:
		return writeError(c, http.StatusServiceUnavailable, "model_unavailable", err.Error(), "", string(kind))
	case predict.KindArtifactCorrupt:
		return writeError(c, http.StatusInternalServerError, "model_corrupt", err.Error(), "", string(kind))
	case predict.KindInferenceFailure:
		return writeError(c, http.StatusUnprocessableEntity, "inference_error", err.Error(), "", string(kind))
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
}
