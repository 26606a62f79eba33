// Package bootstrap wires the platform and domain layers together and runs
// the service lifecycle: configuration, logging, storage, broadcast,
// translation, the session registry, and both transports.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"captionkit-server-go/internal/domain/auth"
	"captionkit-server-go/internal/domain/broadcast"
	"captionkit-server-go/internal/domain/session"
	"captionkit-server-go/internal/domain/translation"
	platformconfig "captionkit-server-go/internal/platform/config"
	platformerrors "captionkit-server-go/internal/platform/errors"
	platformlogging "captionkit-server-go/internal/platform/logging"
	platformstorage "captionkit-server-go/internal/platform/storage"
	httptransport "captionkit-server-go/internal/transport/http"
	"captionkit-server-go/internal/transport/ws"

	// provider adapters register themselves with the asr registry
	_ "captionkit-server-go/internal/domain/asr/adapters/assemblyai"
	_ "captionkit-server-go/internal/domain/asr/adapters/deepgram"
	_ "captionkit-server-go/internal/domain/asr/adapters/speechmatics"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID      string
	Kind    platformerrors.Kind
	Execute stepFn
}

type appState struct {
	config      *platformconfig.Config
	logger      *platformlogging.Logger
	storage     *platformstorage.Store
	broadcaster broadcast.Broadcaster
	translator  translation.Translator
	registry    *session.Registry
	wsServer    *ws.Server
	apiServer   *httptransport.Server
}

// Run starts the whole service and blocks until shutdown completes.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, initGraph(), state); err != nil {
		return err
	}
	logger := state.logger
	defer logger.Close()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)
	group.Go(func() error {
		return state.wsServer.Start(groupCtx)
	})
	if state.apiServer != nil {
		group.Go(func() error {
			return state.apiServer.Start(groupCtx)
		})
	}

	logger.InfoTag("Bootstrap", "all services started")

	select {
	case <-signalCtx.Done():
		logger.InfoTag("Bootstrap", "shutdown signal received")
	case <-groupCtx.Done():
		logger.WarnTag("Bootstrap", "a service stopped unexpectedly")
	}
	cancel()

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorTag("Bootstrap", "shutdown finished with error: %v", err)
		return err
	}

	if state.broadcaster != nil {
		if err := state.broadcaster.Close(); err != nil {
			logger.WarnTag("Bootstrap", "broadcaster close: %v", err)
		}
	}

	logger.InfoTag("Bootstrap", "shutdown complete")
	return nil
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	for _, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
	}
	return nil
}

func initGraph() []initStep {
	return []initStep{
		{ID: "config:load", Kind: platformerrors.KindConfig, Execute: loadConfigStep},
		{ID: "logging:init", Kind: platformerrors.KindBootstrap, Execute: initLoggingStep},
		{ID: "storage:open", Kind: platformerrors.KindStorage, Execute: openStorageStep},
		{ID: "broadcast:init", Kind: platformerrors.KindTransport, Execute: initBroadcastStep},
		{ID: "translation:init", Kind: platformerrors.KindTranslation, Execute: initTranslationStep},
		{ID: "session:init-registry", Kind: platformerrors.KindBootstrap, Execute: initRegistryStep},
		{ID: "transport:init", Kind: platformerrors.KindTransport, Execute: initTransportStep},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	cfg, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = cfg
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	platformlogging.DefaultLogger = logger
	return nil
}

func openStorageStep(_ context.Context, state *appState) error {
	store, err := platformstorage.Open(state.config.Storage, state.logger)
	if err != nil {
		return err
	}
	state.storage = store
	return nil
}

func initBroadcastStep(_ context.Context, state *appState) error {
	if !state.config.Redis.Enabled {
		state.broadcaster = broadcast.Nop{}
		state.logger.InfoTag("Bootstrap", "redis disabled, captions stay local")
		return nil
	}

	publisher, err := broadcast.New(state.config.Redis, state.logger)
	if err != nil {
		return err
	}
	state.broadcaster = publisher
	state.logger.InfoTag("Bootstrap", "broadcasting captions via %s", state.config.Redis.Addr)
	return nil
}

func initTranslationStep(_ context.Context, state *appState) error {
	if state.config.Translation.APIKey == "" {
		state.logger.InfoTag("Bootstrap", "no translation api key, translation disabled")
		return nil
	}
	translator, err := translation.NewOpenAITranslator(state.config.Translation)
	if err != nil {
		return err
	}
	state.translator = translator
	return nil
}

func initRegistryStep(_ context.Context, state *appState) error {
	state.registry = session.NewRegistry(session.Deps{
		Config:      state.config,
		Logger:      state.logger,
		Storage:     state.storage,
		Broadcaster: state.broadcaster,
		Translator:  state.translator,
	})
	return nil
}

func initTransportStep(_ context.Context, state *appState) error {
	cfg := state.config

	var verifier *auth.AuthToken
	var access *auth.AccessChecker
	if cfg.Server.Auth.Enabled {
		if cfg.Server.Auth.JWTSecret == "" {
			return fmt.Errorf("auth enabled without a jwt secret")
		}
		verifier = auth.NewAuthToken(cfg.Server.Auth.JWTSecret)
		access = auth.NewAccessChecker(state.storage)
	}

	router := ws.NewRouter(cfg, state.registry, verifier, access, state.logger)
	state.wsServer = ws.NewServer(cfg.Server, router, state.registry, state.logger)

	if cfg.Web.Enabled {
		svc, err := httptransport.NewService(cfg, state.registry, state.logger)
		if err != nil {
			return err
		}
		apiRouter := httptransport.Build(cfg, state.logger)
		svc.Register(apiRouter.API)
		state.apiServer = httptransport.NewServer(cfg, apiRouter.Engine, state.logger)
	}
	return nil
}
