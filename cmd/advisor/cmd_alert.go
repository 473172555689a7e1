package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/alerts"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
)

var alertInBrowser bool

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Weather alerts over WhatsApp links",
}

var alertPhoneCmd = &cobra.Command{
	Use:   "phone [number]",
	Short: "Save the phone number alerts are sent to (prompts when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAlertPhone,
}

var alertSendCmd = &cobra.Command{
	Use:   "send [district] [message...]",
	Short: "Send a weather alert for a district",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAlertSend,
}

var alertRandomCmd = &cobra.Command{
	Use:   "random [district]",
	Short: "Send one of the canned weather alerts",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertRandom,
}

func init() {
	alertCmd.PersistentFlags().BoolVar(&alertInBrowser, "browser", false, "open WhatsApp links in Chrome instead of printing them")
	alertCmd.AddCommand(alertPhoneCmd, alertSendCmd, alertRandomCmd)
}

func runAlertPhone(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	svc := a.alertService(nil)
	if len(args) == 0 {
		svc.CollectPhone(ctx, alerts.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
		return nil
	}
	p := &alerts.FixedPrompter{Answer: strings.TrimSpace(args[0])}
	svc.CollectPhone(ctx, p)
	for _, n := range p.Notices() {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runAlertSend(cmd *cobra.Command, args []string) error {
	return withAlertService(cmd, func(ctx context.Context, svc *alerts.Service) {
		if !svc.SendWeatherAlert(ctx, args[0], strings.Join(args[1:], " ")) {
			fmt.Fprintln(cmd.ErrOrStderr(), "no phone number saved; run \"advisor alert phone\" first")
		}
	})
}

func runAlertRandom(cmd *cobra.Command, args []string) error {
	return withAlertService(cmd, func(ctx context.Context, svc *alerts.Service) {
		if svc.Phone(ctx) == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "no phone number saved; run \"advisor alert phone\" first")
			return
		}
		svc.GetWeatherAlerts(ctx, args[0])
	})
}

func withAlertService(cmd *cobra.Command, fn func(context.Context, *alerts.Service)) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var opener alerts.Opener = alerts.WriterOpener{W: cmd.OutOrStdout()}
	if alertInBrowser {
		b, err := dom.ConnectBrowser(ctx, dom.BrowserConfig{
			DebuggerURL: cfg.Browser.DebuggerURL,
			Headless:    false,
			PageURL:     "about:blank",
			Logger:      logger.Named("browser"),
		})
		if err != nil {
			return err
		}
		// the browser stays open so the WhatsApp tab survives the command
		opener = alerts.BrowserOpener{Browser: b.Rod()}
	}
	fn(ctx, a.alertService(opener))
	return nil
}
