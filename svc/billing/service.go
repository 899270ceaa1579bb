package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linkdeck/linkdeck/pkg/billing"
	"github.com/linkdeck/linkdeck/pkg/billing/mongostore"
	"github.com/linkdeck/linkdeck/pkg/billing/pgstore"
	"github.com/linkdeck/linkdeck/pkg/config"
	"github.com/linkdeck/linkdeck/pkg/email"
	"github.com/linkdeck/linkdeck/pkg/httpserver"
	"github.com/linkdeck/linkdeck/pkg/mongo"
	"github.com/linkdeck/linkdeck/pkg/pg"
	"github.com/linkdeck/linkdeck/pkg/redis"
)

// defaultPlans is the built-in catalog used when no YAML file is configured.
// Provider plan codes must match the plans created on the Paystack dashboard.
var defaultPlans = []billing.Plan{
	{
		Code:             "pro-monthly",
		Name:             "Pro (monthly)",
		ProviderPlanCode: "PLN_linkdeck_pro_monthly",
		Cycle:            billing.CycleMonthly,
		Amount:           500,
		Currency:         "USD",
	},
	{
		Code:             "pro-annually",
		Name:             "Pro (annually)",
		ProviderPlanCode: "PLN_linkdeck_pro_annually",
		Cycle:            billing.CycleAnnually,
		Amount:           4800,
		Currency:         "USD",
	},
}

// Service is the assembled billing engine: webhook handler, maintenance
// sweeper and their backing store, lock, provider and notifier.
type Service struct {
	log     *slog.Logger
	store   billing.SubscriberStore
	manager *billing.Manager
	handler http.Handler
	server  *httpserver.Server
	sweeper *billing.Sweeper
	closers []func(context.Context) error
}

// New wires the service from configuration. Backend configs (postgres,
// mongo, redis, email, paystack) are loaded from the environment only when
// the corresponding driver or feature is enabled.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}

	svc := &Service{log: log}

	store, healthchecks, err := svc.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	locker, lockCheck, err := svc.buildLocker(ctx, cfg)
	if err != nil {
		return nil, errors.Join(err, svc.Close(ctx))
	}
	if lockCheck != nil {
		healthchecks = append(healthchecks, lockCheck)
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		return nil, errors.Join(err, svc.Close(ctx))
	}

	catalog, err := buildCatalog(cfg.Billing.PlanCatalogPath)
	if err != nil {
		return nil, errors.Join(err, svc.Close(ctx))
	}

	var provider billing.ProviderClient
	if cfg.ProviderAPIEnabled {
		var paystackCfg billing.PaystackConfig
		if err := config.Load(&paystackCfg); err != nil {
			return nil, errors.Join(err, svc.Close(ctx))
		}
		client, err := billing.NewPaystackClient(paystackCfg)
		if err != nil {
			return nil, errors.Join(err, svc.Close(ctx))
		}
		provider = client
	}

	managerOpts := []billing.ManagerOption{
		billing.WithNotifier(notifier),
		billing.WithLogger(log),
	}
	routerOpts := []billing.RouterOption{
		billing.WithRouterLogger(log),
	}
	if provider != nil {
		managerOpts = append(managerOpts, billing.WithProvider(provider))
		routerOpts = append(routerOpts, billing.WithChargeVerification(provider))
	}

	manager := billing.NewManager(store, managerOpts...)
	router := billing.NewRouter(store, manager, catalog, routerOpts...)

	webhook, err := billing.NewWebhookHandler(cfg.Billing.WebhookSecret, router, locker, log)
	if err != nil {
		return nil, errors.Join(err, svc.Close(ctx))
	}

	mux := chi.NewRouter()
	mux.Get("/health", httpserver.HealthCheckHandler(log, healthchecks...))
	mux.Mount("/", webhook.Routes())

	svc.store = store
	svc.manager = manager
	svc.handler = mux
	svc.server = httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	svc.sweeper = billing.NewSweeper(store, manager, cfg.Billing.SweepInterval, log)

	return svc, nil
}

// Handler exposes the assembled HTTP handler, mainly for tests.
func (s *Service) Handler() http.Handler { return s.handler }

// Store exposes the subscriber store for the signup and account flows; the
// webhook pipeline itself never creates records.
func (s *Service) Store() billing.SubscriberStore { return s.store }

// Manager exposes lifecycle operations for app-initiated transitions such as
// an in-product cancel button.
func (s *Service) Manager() *billing.Manager { return s.manager }

// Run serves HTTP and runs the maintenance sweeper until ctx is cancelled,
// then releases backend connections.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		if err := s.sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.ErrorContext(ctx, "sweeper stopped", slog.Any("error", err))
		}
	}()

	err := s.server.Run(ctx, s.handler)
	cancel()
	<-sweepDone

	closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer closeCancel()
	return errors.Join(err, s.Close(closeCtx))
}

// Close releases all backend connections opened by New.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) buildStore(ctx context.Context, cfg Config) (billing.SubscriberStore, []func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case DriverPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		if err := pg.Migrate(ctx, pool, pgCfg, s.log); err != nil {
			return nil, nil, err
		}
		return pgstore.New(pool), []func(context.Context) error{pg.Healthcheck(pool)}, nil

	case DriverMongo:
		var mongoCfg mongo.Config
		if err := config.Load(&mongoCfg); err != nil {
			return nil, nil, err
		}
		client, db, err := mongo.Connect(ctx, mongoCfg)
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, func(ctx context.Context) error {
			return client.Disconnect(ctx)
		})
		return mongostore.New(db), []func(context.Context) error{mongo.Healthcheck(client)}, nil

	case DriverMemory, "":
		return billing.NewMemoryStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func (s *Service) buildLocker(ctx context.Context, cfg Config) (billing.Locker, func(context.Context) error, error) {
	if !cfg.RedisLockEnabled {
		return billing.NewKeyedMutex(), nil, nil
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return nil, nil, err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return nil, nil, err
	}
	s.closers = append(s.closers, func(context.Context) error {
		return client.Close()
	})

	locker := redis.NewLocker(client,
		redis.WithLockTTL(redisCfg.LockTTL),
		redis.WithLockRetryInterval(redisCfg.LockRetryInterval),
	)
	return locker, redis.Healthcheck(client), nil
}

func buildNotifier(cfg Config) (billing.Notifier, error) {
	switch cfg.EmailProvider {
	case "postmark":
		var emailCfg email.Config
		if err := config.Load(&emailCfg); err != nil {
			return nil, err
		}
		sender, err := email.NewPostmarkClient(emailCfg)
		if err != nil {
			return nil, err
		}
		return NewTemplateNotifier(sender), nil
	case "dev":
		return NewTemplateNotifier(email.NewDevSender(cfg.EmailDevDir)), nil
	case "noop", "":
		return billing.NoopNotifier{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}

func buildCatalog(path string) (*billing.Catalog, error) {
	if path != "" {
		return billing.LoadCatalogFile(path)
	}
	return billing.NewCatalog(defaultPlans...)
}
