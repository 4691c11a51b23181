package commands

import (
	"context"
	"database/sql"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	"github.com/vrooli/jobs/cache"
	"github.com/vrooli/jobs/config"
	"github.com/vrooli/jobs/db"
	"github.com/vrooli/jobs/errors"
	"github.com/vrooli/jobs/jobs"
	"github.com/vrooli/jobs/logger"
	"github.com/vrooli/jobs/metrics"
	"github.com/vrooli/jobs/moderation"
	"github.com/vrooli/jobs/notify"
	"github.com/vrooli/jobs/pulse/schedule"
	"github.com/vrooli/jobs/reminder"
	"github.com/vrooli/jobs/server"
)

// Container holds the wired daemon components.
// Commands use the getters and never touch dig directly.
type Container struct {
	cfg       *config.Config
	db        *sql.DB
	nc        *nats.Conn
	cache     cache.Cache
	registry  *prometheus.Registry
	scheduler *schedule.Scheduler
	catalog   []jobs.Entry
	server    *server.Server
}

func (c *Container) Config() *config.Config         { return c.cfg }
func (c *Container) DB() *sql.DB                    { return c.db }
func (c *Container) Cache() cache.Cache             { return c.cache }
func (c *Container) Registry() *prometheus.Registry { return c.registry }
func (c *Container) Scheduler() *schedule.Scheduler { return c.scheduler }
func (c *Container) Catalog() []jobs.Entry          { return c.catalog }
func (c *Container) Server() *server.Server         { return c.server }

// natsConn holds a nil connection unless a backend is configured to use NATS
type natsConn struct{ *nats.Conn }

// NewContainer builds every component from cfg. ctx bounds the NATS bucket setup.
// Close releases the database and NATS connection.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	d := dig.New()

	providers := []interface{}{
		func() *config.Config { return cfg },
		func() context.Context { return ctx },
		newDatabase,
		newRegistry,
		newMetrics,
		newNATSConn,
		newCache,
		newDispatcher,
		schedule.NewExecutionStore,
		newModeration,
		newReminders,
		newScheduler,
		newCatalog,
		newServer,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, errors.Wrap(err, "failed to register provider")
		}
	}

	var result *Container
	err := d.Invoke(func(
		conn *sql.DB,
		nc natsConn,
		c cache.Cache,
		reg *prometheus.Registry,
		sched *schedule.Scheduler,
		catalog []jobs.Entry,
		srv *server.Server,
	) {
		result = &Container{
			cfg:       cfg,
			db:        conn,
			nc:        nc.Conn,
			cache:     c,
			registry:  reg,
			scheduler: sched,
			catalog:   catalog,
			server:    srv,
		}
	})
	if err != nil {
		return nil, errors.Wrap(dig.RootCause(err), "failed to build daemon")
	}
	return result, nil
}

// Close releases connections. The scheduler and server are stopped by their owners.
func (c *Container) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return c.db.Close()
}

func newDatabase(cfg *config.Config) (*sql.DB, error) {
	return db.OpenWithMigrations(cfg.Database.Path, logger.ComponentLogger("db"))
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func newNATSConn(cfg *config.Config) (natsConn, error) {
	if cfg.Cache.Backend != "nats" && cfg.Notify.Backend != "nats" {
		return natsConn{}, nil
	}
	log := logger.ComponentLogger("nats")
	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("jobsd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnw("NATS disconnected", logger.FieldError, err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infow("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return natsConn{}, errors.Wrapf(err, "failed to connect to NATS at %s", cfg.NATS.URL)
	}
	return natsConn{nc}, nil
}

func newCache(ctx context.Context, cfg *config.Config, nc natsConn) (cache.Cache, error) {
	if cfg.Cache.Backend != "nats" {
		return cache.NewMemory(), nil
	}
	js, err := jetstream.New(nc.Conn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create JetStream context")
	}
	return cache.NewNATS(ctx, js, cfg.Cache.Bucket, cfg.ReminderWindow())
}

func newDispatcher(cfg *config.Config, nc natsConn) notify.Dispatcher {
	if cfg.Notify.Backend != "nats" {
		return notify.NewLog(logger.ComponentLogger("notify"))
	}
	return notify.NewNATS(nc.Conn, cfg.Notify.SubjectPrefix, cfg.Notify.MaxPerSecond)
}

func newModeration(cfg *config.Config, conn *sql.DB, d notify.Dispatcher, m *metrics.Metrics) *moderation.Processor {
	return moderation.NewProcessor(moderation.NewStore(conn), moderation.Options{
		EscalationTimeout: cfg.EscalationTimeout(),
		Dispatcher:        d,
		Metrics:           m,
		Logger:            logger.ComponentLogger("moderation"),
	})
}

func newReminders(cfg *config.Config, conn *sql.DB, c cache.Cache, d notify.Dispatcher, m *metrics.Metrics) *reminder.Engine {
	return reminder.NewEngine(reminder.NewStore(conn, nil), reminder.Options{
		Window:     cfg.ReminderWindow(),
		Cache:      c,
		Dispatcher: d,
		Metrics:    m,
		Logger:     logger.ComponentLogger("reminder"),
	})
}

func newScheduler(cfg *config.Config, history *schedule.ExecutionStore, m *metrics.Metrics) *schedule.Scheduler {
	return schedule.New(schedule.Options{
		MaxConcurrent: cfg.Scheduler.MaxConcurrentJobs,
		Recorder:      history,
		Metrics:       m,
	})
}

func newCatalog(cfg *config.Config, mod *moderation.Processor, rem *reminder.Engine, history *schedule.ExecutionStore, m *metrics.Metrics) []jobs.Entry {
	return jobs.Catalog(jobs.Deps{
		Config:     cfg,
		Moderation: mod,
		Reminders:  rem,
		History:    history,
		Metrics:    m,
	})
}

func newServer(cfg *config.Config, sched *schedule.Scheduler, history *schedule.ExecutionStore, reg *prometheus.Registry) *server.Server {
	return server.New(server.Options{
		Address:  cfg.Server.Address,
		Jobs:     sched,
		History:  history,
		Gatherer: reg,
	})
}
