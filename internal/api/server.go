// Package api is the HTTP delivery adapter for the prediction service.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tabpredict/internal/predict"
	"github.com/samcharles93/tabpredict/internal/tabular"
	"github.com/samcharles93/tabpredict/internal/version"
)

const usageMessage = `tabular prediction service is running; use POST /predict with {"inputs":[{...}]}`

// Predictor is the part of predict.Service the handlers call.
type Predictor interface {
	Predict(ctx context.Context, batch tabular.Batch, opts predict.Options) (*predict.Outcome, error)
	Describe(ctx context.Context) (*predict.Description, error)
}

type Server struct {
	service Predictor
}

func NewServer(service Predictor) *Server {
	return &Server{service: service}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.handleRoot)
	e.GET("/healthz", s.handleHealth)
	e.GET("/model", s.handleModel)
	e.POST("/predict", s.handlePredict)
}

// PredictRequest is the POST /predict body.
type PredictRequest struct {
	Inputs tabular.Batch `json:"inputs"`
}

// PredictResponse carries one prediction per input record, in input order.
type PredictResponse struct {
	Predictions   []any       `json:"predictions"`
	Probabilities [][]float64 `json:"probabilities,omitempty"`
}

func (s *Server) handleRoot(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": usageMessage})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) handleModel(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "prediction service not configured", "", "")
	}
	desc, err := s.service.Describe(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, desc)
}

func (s *Server) handlePredict(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "prediction service not configured", "", "")
	}
	want, err := wantProbabilities(c.QueryParam("probabilities"))
	if err != nil {
		return writeBadRequest(c, err.Error(), "probabilities")
	}
	req, err := decodeJSON[PredictRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error(), "")
	}

	out, err := s.service.Predict(c.Request().Context(), req.Inputs, predict.Options{
		WantProbabilities: want,
		Source:            "api",
		RequestID:         requestID(c),
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, PredictResponse{
		Predictions:   out.Result.Predictions,
		Probabilities: out.Result.Probabilities,
	})
}

// wantProbabilities reads the probabilities query flag. Absent means yes.
func wantProbabilities(raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, newInvalidRequest(fmt.Sprintf("probabilities must be a boolean, got %q", raw))
	}
	return v, nil
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, newInvalidRequest("request body is empty")
		}
		return out, newInvalidRequest(fmt.Sprintf("malformed request body: %v", err))
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return out, newInvalidRequest("request body must hold a single JSON object")
	}
	return out, nil
}
