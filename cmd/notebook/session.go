package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/QuesmaOrg/demo-webr-ggplot/code"
	"github.com/QuesmaOrg/demo-webr-ggplot/config"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource/local"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource/s3"
	"github.com/QuesmaOrg/demo-webr-ggplot/datasource/web"
	"github.com/QuesmaOrg/demo-webr-ggplot/exec"
	"github.com/QuesmaOrg/demo-webr-ggplot/history"
	"github.com/QuesmaOrg/demo-webr-ggplot/logging"
	"github.com/QuesmaOrg/demo-webr-ggplot/runtime/backend/remote"
)

// openNotebook connects to the worker and returns an initialized notebook.
// The returned cleanup releases the session, history and sources.
func openNotebook(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*exec.Notebook, func(), error) {
	sources, err := buildSources(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := sources.StartAll(ctx); err != nil {
		logger.Warn("data sources unavailable", "error", err)
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			_ = sources.StopAll()
			return nil, nil, err
		}
	}

	var header http.Header
	if cfg.Worker.Token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + cfg.Worker.Token}}
	}
	client, err := remote.Dial(ctx, cfg.Worker.URL, remote.WebSocketOptions{
		Header: header,
		Logger: logger.Named("worker"),
	})
	if err != nil {
		closeAll(logger, store, sources)
		return nil, nil, fmt.Errorf("connect to worker: %w", err)
	}
	session := remote.New(remote.Config{
		Client:         client,
		Timeout:        cfg.GetTimeout(),
		CaptureTimeout: cfg.GetCaptureTimeout(),
		Logger:         logger.Named("remote"),
	})

	opts := exec.Options{
		Session:         session,
		Executor:        executorOptions(cfg),
		RunMode:         exec.RunMode(cfg.Notebook.RunMode),
		DataDir:         cfg.Notebook.DataDir,
		Sources:         sources,
		Logger:          logger.Named("notebook"),
		DefaultPackages: cfg.Notebook.DefaultPackages,
	}
	if store != nil {
		opts.History = store
	}
	nb, err := exec.New(opts)
	if err != nil {
		_ = session.Close()
		closeAll(logger, store, sources)
		return nil, nil, err
	}
	if _, err := nb.Init(ctx); err != nil {
		_ = nb.Close()
		closeAll(logger, store, sources)
		return nil, nil, err
	}

	cleanup := func() {
		if err := nb.Close(); err != nil {
			logger.Warn("closing session failed", "error", err)
		}
		closeAll(logger, store, sources)
	}
	return nb, cleanup, nil
}

func closeAll(logger *logging.Logger, store *history.Store, sources *datasource.Registry) {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("closing history failed", "error", err)
		}
	}
	if err := sources.StopAll(); err != nil {
		logger.Warn("stopping data sources failed", "error", err)
	}
}

func executorOptions(cfg *config.Config) []code.Option {
	opts := []code.Option{code.WithWidth(cfg.Executor.Width)}
	if len(cfg.Executor.PlotClasses) > 0 {
		opts = append(opts, code.WithPlotClasses(cfg.Executor.PlotClasses...))
	}
	if cfg.Executor.ErrorMarker != nil {
		opts = append(opts, code.WithErrorMarker(*cfg.Executor.ErrorMarker))
	}
	return opts
}

// buildSources registers every configured data source.
func buildSources(cfg *config.Config) (*datasource.Registry, error) {
	reg := datasource.NewRegistry()
	for _, src := range cfg.Sources.Local {
		if err := reg.Register(local.New(src.Name, src.Dir)); err != nil {
			return nil, err
		}
	}
	for _, src := range cfg.Sources.Web {
		s, err := web.New(src.Name, web.Config{
			BaseURL:   src.BaseURL,
			Files:     src.Files,
			CacheSize: src.CacheSize,
			CacheTTL:  src.GetCacheTTL(),
			MaxBytes:  src.MaxBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("web source %s: %w", src.Name, err)
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	for _, src := range cfg.Sources.S3 {
		s, err := s3.New(src.Name, s3.Config{
			Endpoint:  src.Endpoint,
			Region:    src.Region,
			AccessKey: src.AccessKey,
			SecretKey: src.SecretKey,
			Bucket:    src.Bucket,
			UseSSL:    src.UseSSL,
			Prefix:    src.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 source %s: %w", src.Name, err)
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
