// Package predict is the inference core shared by the HTTP and batch
// adapters: validate input, load the model, reconcile features, run
// inference, release the model.
package predict

import (
	"context"
	"time"

	"github.com/samcharles93/tabpredict/internal/inference"
	"github.com/samcharles93/tabpredict/internal/logger"
	"github.com/samcharles93/tabpredict/internal/model"
	"github.com/samcharles93/tabpredict/internal/reconcile"
	"github.com/samcharles93/tabpredict/internal/tabular"
)

// Handle is a loaded model, valid for one invocation.
type Handle interface {
	inference.Model
	Schema() (model.Schema, bool)
	Kind() string
	Classes() []any
	NumFeatures() int
	Close() error
}

type Loader interface {
	Load(ctx context.Context) (Handle, error)
}

type LoaderFunc func(ctx context.Context) (Handle, error)

func (f LoaderFunc) Load(ctx context.Context) (Handle, error) {
	return f(ctx)
}

// ArtifactLoader reads the artifact at path on every call. Nothing is cached
// between invocations.
func ArtifactLoader(path string) Loader {
	return LoaderFunc(func(context.Context) (Handle, error) {
		h, err := model.Load(path)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
}

type Options struct {
	WantProbabilities bool
	// Source and RequestID only label the audit event.
	Source    string
	RequestID string
}

type Outcome struct {
	Table        tabular.Table
	Report       reconcile.Report
	Capabilities model.Capabilities

	// Classes are normalized labels in probability-vector order.
	Classes []any
	Result  *inference.Result
}

type Service struct {
	loader   Loader
	recorder Recorder
	now      func() time.Time
}

// NewService returns a service loading models through loader. recorder may
// be nil.
func NewService(loader Loader, recorder Recorder) *Service {
	return &Service{
		loader:   loader,
		recorder: recorder,
		now:      time.Now,
	}
}

// Predict runs one invocation over batch.
func (s *Service) Predict(ctx context.Context, batch tabular.Batch, opts Options) (out *Outcome, err error) {
	log := logger.FromContext(ctx)
	start := s.now()
	defer func() {
		s.record(ctx, opts, len(batch), out, err, s.now().Sub(start))
	}()

	if len(batch) == 0 {
		return nil, ErrInputEmpty
	}

	h, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("closing model handle", "error", cerr)
		}
	}()

	schema, hasSchema := h.Schema()
	table, report := reconcile.Reconcile(batch, schema, hasSchema)
	if len(report.Missing) > 0 {
		log.Warn("expected columns missing from input, filled with default",
			"columns", report.Missing, "default", reconcile.DefaultValue)
	}
	if len(report.Dropped) > 0 {
		log.Debug("input columns ignored by model", "columns", report.Dropped)
	}

	caps := h.Capabilities()
	res, err := inference.Run(ctx, table, h, opts.WantProbabilities)
	if err != nil {
		return nil, err
	}
	log.Debug("inference complete", "rows", len(res.Predictions), "probabilities", res.Probabilities != nil)

	return &Outcome{
		Table:        table,
		Report:       report,
		Capabilities: caps,
		Classes:      normalizeClasses(h.Classes()),
		Result:       res,
	}, nil
}

// Description summarizes a model artifact.
type Description struct {
	Kind         string             `json:"kind"`
	Schema       model.Schema       `json:"schema,omitempty"`
	NumFeatures  int                `json:"n_features"`
	Classes      []any              `json:"classes"`
	Capabilities model.Capabilities `json:"capabilities"`
}

// Describe loads the model and reports its declared shape.
func (s *Service) Describe(ctx context.Context) (*Description, error) {
	h, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	schema, _ := h.Schema()
	return &Description{
		Kind:         h.Kind(),
		Schema:       schema,
		NumFeatures:  h.NumFeatures(),
		Classes:      normalizeClasses(h.Classes()),
		Capabilities: h.Capabilities(),
	}, nil
}

func normalizeClasses(classes []any) []any {
	out := make([]any, len(classes))
	for i, c := range classes {
		out[i] = inference.NormalizeLabel(c)
	}
	return out
}
