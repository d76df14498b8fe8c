package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/forest-guardian/sentinel-raster/internal/config"
	"github.com/forest-guardian/sentinel-raster/internal/gdalio"
	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/notification"
	"github.com/forest-guardian/sentinel-raster/internal/ui"
)

func printBanner() {
	figure1 := figure.NewFigure("Sentinel", "isometric1", true)
	figure2 := figure.NewFigure("Raster", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func initCLI(app *ui.App, notifier *notification.Discord) {
	defer func() {
		if r := recover(); r != nil {
			pc, file, line, ok := runtime.Caller(3)
			location := "Unknown location"
			if ok {
				location = fmt.Sprintf("%s:%d in %s", file, line, runtime.FuncForPC(pc).Name())
			}

			log.Errorw("panic", "error", r, "location", location)
			ui.PrintError(fmt.Sprintf("PANIC: %v", r))
			fmt.Printf("%sLocation: %s%s\n", ui.ColorRed, location, ui.ColorReset)
			fmt.Printf("%sExiting...%s\n", ui.ColorRed, ui.ColorReset)

			msg := fmt.Sprintf("Sentinel raster CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, debug.Stack())
			if err := notifier.Error(msg); err != nil {
				fmt.Printf("%sFailed to send notification: %s%s\n", ui.ColorRed, err.Error(), ui.ColorReset)
			}
			os.Exit(2)
		}
	}()
	printBanner()
	ui.ShowMenu(app)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("%s%s%s\n", ui.ColorRed, err.Error(), ui.ColorReset)
		os.Exit(1)
	}
	if err := log.Init(cfg.Logging.Debug); err != nil {
		fmt.Printf("%s%s%s\n", ui.ColorRed, err.Error(), ui.ColorReset)
		os.Exit(1)
	}
	defer log.Sync()

	notifier := notification.NewDiscord(cfg.Discord.ErrorURL, cfg.Discord.SuccessURL)
	app := ui.NewApp(cfg, gdalio.NewCodec(), gdalio.NewGeometry(), notifier)
	log.Infow("configuration loaded", "root", cfg.RootPath, "bands", cfg.BandDir, "workers", cfg.Workers, "crs", cfg.TargetCRS)
	initCLI(app, notifier)
}
