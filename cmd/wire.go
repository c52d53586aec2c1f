package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	fsblob "github.com/zapgate/zapgate/internal/adapters/blob/fs"
	"github.com/zapgate/zapgate/internal/adapters/events/rabbit"
	"github.com/zapgate/zapgate/internal/adapters/protocol/evogateway"
	statusadapter "github.com/zapgate/zapgate/internal/adapters/render/status"
	"github.com/zapgate/zapgate/internal/adapters/status/eventing"
	"github.com/zapgate/zapgate/internal/adapters/status/gormstore"
	"github.com/zapgate/zapgate/internal/adapters/status/tomlrepo"
	"github.com/zapgate/zapgate/internal/application"
	"github.com/zapgate/zapgate/internal/config"
	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/ports"
)

type app struct {
	cfg            config.Config
	blobs          ports.SessionBlobStore
	statusRepo     ports.StatusRepository
	logger         *slog.Logger
	statusRenderer func(domain.ConnectionStatus, statusadapter.RenderOptions) (string, error)
	newConnector   func() (ports.Connector, error)
	newPublisher   func() (ports.EventPublisher, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	statusRepo, err := wireStatusRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire status repository: %w", err)
	}

	a := &app{
		cfg:            cfg,
		blobs:          fsblob.NewStore(cfg.BlobDir),
		statusRepo:     statusRepo,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}

	a.newConnector = func() (ports.Connector, error) {
		return evogateway.NewClient(evogateway.Config{
			BaseURL:        cfg.Gateway.BaseURL,
			APIKey:         cfg.Gateway.APIKey,
			InstancePrefix: cfg.Gateway.InstancePrefix,
			Logger:         logger,
		})
	}

	a.newPublisher = func() (ports.EventPublisher, error) {
		if cfg.Events.RabbitURL == "" {
			return nil, nil
		}
		return rabbit.New(cfg.Events.RabbitURL, cfg.Events.Exchange, logger)
	}

	return a, nil
}

func wireStatusRepository(cfg config.Config) (ports.StatusRepository, error) {
	if cfg.StatusBackend == config.StatusBackendSQLite {
		return gormstore.Open(cfg.SQLitePath, ports.SystemClock{})
	}
	return tomlrepo.NewRepository(viper.New(), ports.SystemClock{})
}

func (a *app) plan() domain.NumberPlan {
	plan := domain.DefaultNumberPlan()
	if a.cfg.CountryCode != "" {
		plan.CountryCode = a.cfg.CountryCode
	}
	return plan
}

// statusWriter layers the status-changed event publication over the durable
// repository when a publisher is configured.
func (a *app) statusWriter(publisher ports.EventPublisher) ports.StatusRepository {
	if publisher == nil {
		return a.statusRepo
	}
	return eventing.Wrap(a.statusRepo, publisher, a.logger)
}

func (a *app) lifecycle(publisher ports.EventPublisher) (*application.LifecycleManager, error) {
	connector, err := a.newConnector()
	if err != nil {
		return nil, fmt.Errorf("wire gateway connector: %w", err)
	}

	return application.NewLifecycleManager(a.blobs, a.statusWriter(publisher), connector, application.LifecycleConfig{
		SessionPrefix: a.cfg.SessionPrefix,
		WorkRoot:      a.cfg.WorkRoot,
		Logger:        a.logger,
	}), nil
}

func (a *app) dispatcher(publisher ports.EventPublisher) (*application.Dispatcher, error) {
	lifecycle, err := a.lifecycle(publisher)
	if err != nil {
		return nil, err
	}

	return application.NewDispatcher(lifecycle, application.DispatcherConfig{
		Plan:           a.plan(),
		AcquireTimeout: a.cfg.SendTimeout,
		Publisher:      publisher,
		Logger:         a.logger,
	}), nil
}

func (a *app) orchestrator(publisher ports.EventPublisher) (*application.Orchestrator, error) {
	lifecycle, err := a.lifecycle(publisher)
	if err != nil {
		return nil, err
	}

	return application.NewOrchestrator(lifecycle, a.statusWriter(publisher), application.OrchestratorConfig{
		AcquireTimeout: a.cfg.PairTimeout,
		Logger:         a.logger,
	}), nil
}
