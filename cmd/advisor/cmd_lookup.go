package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/api"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/market"
	"github.com/LeonardoBeccarini/smartcrop_advisory/internal/services/render"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/dom"
	"github.com/LeonardoBeccarini/smartcrop_advisory/pkg/schedule"
)

var recQuery api.RecommendQuery

var recommendCmd = &cobra.Command{
	Use:     "recommend",
	Short:   "Ask the backend for a crop recommendation",
	Example: `  advisor recommend --district Patiala --nitrogen 40 --phosphorus 20 --potassium 30 --ph 6.8`,
	RunE:    runRecommend,
}

var weatherCmd = &cobra.Command{
	Use:   "weather [district]",
	Short: "Show current weather for a district",
	Args:  cobra.ExactArgs(1),
	RunE:  runWeather,
}

var (
	marketStatic bool
	marketCSV    bool
)

var marketCmd = &cobra.Command{
	Use:   "market [district]",
	Short: "Show mandi prices (live, built-in or from the configured CSV)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMarket,
}

func init() {
	f := recommendCmd.Flags()
	f.StringVar(&recQuery.District, "district", "", "district name")
	f.StringVar(&recQuery.Taluk, "taluk", "", "taluk name")
	f.StringVar(&recQuery.Nitrogen, "nitrogen", "", "soil nitrogen (kg/ha)")
	f.StringVar(&recQuery.Phosphorus, "phosphorus", "", "soil phosphorus (kg/ha)")
	f.StringVar(&recQuery.Potassium, "potassium", "", "soil potassium (kg/ha)")
	f.StringVar(&recQuery.PH, "ph", "", "soil pH (default 7.0)")
	f.StringVar(&recQuery.LastCrop, "last-crop", "", "previous crop")

	marketCmd.Flags().BoolVar(&marketStatic, "static", false, "print the built-in table without calling the backend")
	marketCmd.Flags().BoolVar(&marketCSV, "csv", false, "read prices from market.csv_url")
}

// lookupDoc is an off-screen page holding just the lookup targets.
func lookupDoc() *dom.Memory {
	return dom.NewMemory(dom.WeatherBox, dom.MarketTable, dom.RecResult)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := lookupDoc()
	render.New(doc, a.client, render.WithLogger(logger)).ShowRecommendation(ctx, recQuery)
	return printText(cmd.OutOrStdout(), doc, dom.RecResult)
}

func runWeather(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	doc := lookupDoc()
	render.New(doc, a.client, render.WithLogger(logger)).LoadWeather(ctx, args[0])
	return printText(cmd.OutOrStdout(), doc, dom.WeatherBox)
}

func runMarket(cmd *cobra.Command, args []string) error {
	district := ""
	if len(args) == 1 {
		district = args[0]
	}
	doc := lookupDoc()
	out := cmd.OutOrStdout()

	if marketStatic {
		market.NewFallback(doc, schedule.Real{}, 0, logger).RenderStatic()
		return printText(out, doc, dom.MarketTable)
	}

	ctx, stop := commandContext(cmd)
	defer stop()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if marketCSV {
		if cfg.Market.CSVURL == "" {
			return errors.New("market.csv_url is not configured")
		}
		text, err := market.NewCSVCache(nil).Fetch(ctx, cfg.Market.CSVURL)
		if err != nil {
			return err
		}
		rows, err := market.ParseCSV(text)
		if err != nil {
			return err
		}
		if a.history != nil {
			a.history.Record(ctx, district, rows)
		}
		html, err := render.MarketTableHTML(rows, render.UnitQtl)
		if err != nil {
			return err
		}
		doc.SetHTML(dom.MarketTable, html)
		return printText(out, doc, dom.MarketTable)
	}

	opts := []render.Option{render.WithLogger(logger)}
	if a.history != nil {
		opts = append(opts, render.WithHistory(a.history))
	}
	render.New(doc, a.client, opts...).LoadMarket(ctx, district)
	return printText(out, doc, dom.MarketTable)
}

// printText writes the element's text, one non-blank line per line. Table
// cells are separated by " | ".
func printText(w io.Writer, doc dom.Document, id string) error {
	inner, _ := doc.HTML(id)
	inner = strings.NewReplacer("</td><td>", " | ", "</th><th>", " | ", "</tr>", "\n</tr>").Replace(inner)
	tmp := dom.NewMemory()
	tmp.Add(id, inner)
	text, _ := tmp.TextContent(id)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
