package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/model"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/speech"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/voicenav"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/i18n"
)

var (
	readSections bool
	readPause    time.Duration
)

var readPageCmd = &cobra.Command{
	Use:   "read-page [url]",
	Short: "Read the advisory page aloud in a Chrome tab",
	Long: `Opens the page (default browser.page_url) over the DevTools protocol and
speaks it with the browser's speech synthesis. With --sections every section
is announced in navigation order instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReadPage,
}

func init() {
	readPageCmd.Flags().BoolVar(&readSections, "sections", false, "announce each section in turn")
	readPageCmd.Flags().DurationVar(&readPause, "pause", 8*time.Second, "time given to each section with --sections")
}

func runReadPage(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	pageURL := cfg.Browser.PageURL
	if len(args) == 1 {
		pageURL = args[0]
	}
	b, err := dom.ConnectBrowser(ctx, dom.BrowserConfig{
		DebuggerURL: cfg.Browser.DebuggerURL,
		Headless:    cfg.Browser.Headless,
		PageURL:     pageURL,
		Logger:      logger.Named("browser"),
	})
	if err != nil {
		return err
	}
	defer b.Close()

	locales, err := i18n.Load(cfg.LocalesPath)
	if err != nil {
		return err
	}
	engine := speech.NewBrowserEngine(b.Page())
	speaker := speech.NewSpeaker(engine, logger.Named("speech"))
	if !readSections {
		nav := voicenav.New(b, speaker, locales)
		fmt.Fprintln(cmd.OutOrStdout(), nav.PageText())
		nav.ReadFullPage()
		return engine.Wait(ctx)
	}

	// echo each announcement while the browser speaks it
	nav := voicenav.New(b, echoSpeaker{speaker, cmd}, locales)
	nav.Start()
	defer nav.Stop()
	for i := 1; i < len(model.Sections); i++ {
		// each announcement cancels the previous one
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(readPause):
		}
		nav.Next()
	}
	return engine.Wait(ctx)
}

type echoSpeaker struct {
	inner *speech.Speaker
	cmd   *cobra.Command
}

func (e echoSpeaker) Speak(text, lang string) {
	fmt.Fprintln(e.cmd.OutOrStdout(), text)
	e.inner.Speak(text, lang)
}
