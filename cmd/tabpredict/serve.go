package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tabpredict/internal/api"
	"github.com/samcharles93/tabpredict/internal/audit"
	"github.com/samcharles93/tabpredict/internal/logger"
	"github.com/samcharles93/tabpredict/internal/predict"
)

const defaultBodyLimit = 10 << 20

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		bodyLimit   int64
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve predictions over HTTP",
		Flags: append(append(commonModelFlags(), auditFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.Int64Flag{
				Name:        "body-limit",
				Usage:       "maximum request body size in bytes",
				Value:       defaultBodyLimit,
				Destination: &bodyLimit,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, cfg, &addr, &bodyLimit)
			log := logger.FromContext(ctx)

			if modelPath == "" {
				return commandError(fmt.Errorf("%w: --model or %s is required", errUsage, envModelPath))
			}
			if bodyLimit <= 0 {
				return commandError(fmt.Errorf("%w: --body-limit must be positive", errUsage))
			}

			recorder, closeAudit, err := openRecorder(auditDB)
			if err != nil {
				return commandError(err)
			}
			defer closeAudit()

			service := predict.NewService(predict.ArtifactLoader(modelPath), recorder)
			// The model is loaded per request; this only warns early about a bad path.
			if desc, err := service.Describe(ctx); err != nil {
				log.Warn("model not loadable at startup, requests will fail until it is", "model", modelPath, "error", err)
			} else {
				log.Info("model ready", "model", modelPath, "kind", desc.Kind, "features", desc.NumFeatures)
			}

			server := api.NewServer(service)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(middleware.BodyLimit(bodyLimit))
			e.Use(api.RequestContext(log))
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					srv.ReadTimeout = readTimeout
					return nil
				},
			}
			if err := sc.Start(ctx, e); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return commandError(err)
			}
			return nil
		},
	}
}

// openRecorder opens the audit store when path is set. The returned close
// func is always safe to call.
func openRecorder(path string) (predict.Recorder, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	store, err := audit.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
