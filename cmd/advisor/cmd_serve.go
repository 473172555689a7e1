package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/alerts"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/market"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/progress"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/render"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/speech"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/voicenav"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/web"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/schedule"
)

var (
	serveLang        string
	serveStaticPrice bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve page fragments, actions, health and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveLang, "lang", "en", "initial page language")
	serveCmd.Flags().BoolVar(&serveStaticPrice, "static-market", true, "render and refresh the built-in mandi table")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := web.NewPage(a.locales, serveLang)
	clock := schedule.Real{}

	opts := []render.Option{render.WithLogger(logger.Named("render"))}
	if a.history != nil {
		opts = append(opts, render.WithHistory(a.history))
	}
	prog := progress.New(doc, clock, progress.Config{
		Step:      cfg.Progress.Step(),
		Ceiling:   cfg.Progress.Ceiling,
		HideDelay: cfg.Progress.HideDelay(),
	})
	defer prog.Stop()

	fallback := market.NewFallback(doc, clock, cfg.Market.RefreshInterval(), logger.Named("market"))
	if serveStaticPrice {
		fallback.RenderStatic()
		fallback.AutoRefresh(ctx)
		defer fallback.Stop()
	}

	speaker := speech.NewSpeaker(speech.NewLogEngine(logger.Named("speech")), logger.Named("speech"))

	srv := web.NewServer(web.Deps{
		Doc:      doc,
		Renderer: render.New(doc, a.client, opts...),
		Progress: prog,
		Market:   fallback,
		Voice:    voicenav.New(doc, speaker, a.locales),
		Alerts:   a.alertService(&alerts.LogOpener{Log: logger.Named("links")}),
		Gatherer: a.registry,
		Checks:   a.checks(),
		Logger:   logger.Named("http"),
	})

	logger.Info("advisor starting",
		zap.String("api", cfg.API.BaseURL), zap.Bool("mqtt", cfg.MQTTEnabled()), zap.Bool("influx", cfg.InfluxEnabled()))
	err = web.Run(ctx, cfg.HTTP.ListenAddr, srv.Handler(), 5*time.Second, logger)
	logger.Info("advisor stopped")
	return err
}

// commandContext is the signal-aware context for one-shot commands.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
