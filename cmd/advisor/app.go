package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/config"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/alerts"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/api"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/market"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/web"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dedup"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/i18n"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/localstore"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/rabbitmq"
)

// app holds the infrastructure shared by the commands. Optional parts
// (broker, influx) stay nil when unconfigured.
type app struct {
	cfg config.Config
	log *zap.Logger

	registry  *prometheus.Registry
	client    *api.Client
	locales   i18n.Table
	store     *localstore.Store
	publisher *rabbitmq.Publisher
	influx    influxdb2.Client
	history   *market.History
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.client = api.NewClient(api.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout(),
		BreakerFailures: cfg.API.BreakerFailures,
		BreakerOpenFor:  cfg.API.BreakerOpenFor(),
		Metrics:         api.NewMetrics(a.registry),
		Logger:          log.Named("api"),
	})

	locales, err := i18n.Load(cfg.LocalesPath)
	if err != nil {
		return nil, err
	}
	a.locales = locales

	a.store, err = localstore.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	if cfg.MQTTEnabled() {
		client, err := rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.User,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID,
		}, log.Named("mqtt"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = rabbitmq.NewPublisher(client, 1, log.Named("mqtt"))
	}

	if cfg.InfluxEnabled() {
		a.influx = influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		a.history = market.NewHistory(a.influx.WriteAPIBlocking(cfg.Influx.Org, cfg.Influx.Bucket), log.Named("history"))
	}
	return a, nil
}

// alertService builds the alert service around opener.
func (a *app) alertService(opener alerts.Opener) *alerts.Service {
	c := alerts.Config{
		Store:       a.store,
		Opener:      opener,
		TopicPrefix: a.cfg.MQTT.TopicPrefix,
		Dedup:       dedup.New(alerts.DefaultDedupTTL, 0),
		Logger:      a.log.Named("alerts"),
	}
	// a nil *Publisher in the interface would not read as "disabled"
	if a.publisher != nil {
		c.Publisher = a.publisher
	}
	return alerts.New(c)
}

// checks are the dependency probes behind /healthz and /readyz.
func (a *app) checks() []web.Check {
	checks := []web.Check{
		{Name: "store", Probe: a.store.Ping},
		{Name: "api", Optional: true, Probe: func(context.Context) error {
			if a.client.BreakerState() == gobreaker.StateOpen {
				return errors.New("circuit open")
			}
			return nil
		}},
	}
	if a.publisher != nil {
		checks = append(checks, web.Check{Name: "mqtt", Optional: true, Probe: func(context.Context) error {
			if !a.publisher.Connected() {
				return errors.New("not connected")
			}
			return nil
		}})
	}
	if a.influx != nil {
		checks = append(checks, web.Check{Name: "influx", Optional: true, Probe: func(ctx context.Context) error {
			ok, err := a.influx.Ping(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("ping failed")
			}
			if age := a.history.LastErrorAge(); age < 30*time.Second {
				return fmt.Errorf("write failed %s ago", age.Round(time.Second))
			}
			return nil
		}})
	}
	return checks
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.influx != nil {
		a.influx.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	}
}
