package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/roi"
)

type menuOption struct {
	title   string
	handler func(app *App)
}

// ShowMenu displays the main menu and handles user input
func ShowMenu(app *App) {
	menuOptions := []menuOption{
		{"Calculate a spectral index for a date", IndexForDate},
		{"Compare a spectral index between two dates", CompareDates},
		{"Analyze a spectral index over time", AnalyzeSeries},
		{"Prepare and merge elevation models", PrepareDEM},
		{"Extract downloaded SAFE products", ExtractGranules},
		{"View the list of region presets", func(*App) { ListPresets() }},
		{"View the dates available for a tile", ListDates},
		{"Exit the application", func(*App) { fmt.Println("Exiting..."); os.Exit(0) }},
	}

	for {
		fmt.Println(ColorBlue + "===================" + ColorReset)
		for i, opt := range menuOptions {
			fmt.Printf("%s%d. %s%s\n", ColorBlue, i+1, opt.title, ColorReset)
		}
		choice, err := ReadInt("Please enter your choice: ", 1, len(menuOptions))
		if err != nil {
			PrintError(err.Error())
			continue
		}
		menuOptions[choice-1].handler(app)
	}
}

func IndexForDate(app *App) {
	kind, err := ReadIndex()
	if err != nil {
		PrintError(err.Error())
		return
	}
	tile, date, err := ReadTileAndDate(app)
	if err != nil {
		PrintError(err.Error())
		return
	}
	window, err := ReadWindow(app, tile, date)
	if err != nil {
		PrintError(err.Error())
		return
	}
	paths, err := app.IndexForDate(kind, tile, date, window, ReadYesNo("Render a PNG quick-look?"))
	app.notify(fmt.Sprintf("%s %s %s", kind, tile, date), err)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintSuccess("Saved " + strings.Join(paths, ", "))
}

func CompareDates(app *App) {
	kind, err := ReadIndex()
	if err != nil {
		PrintError(err.Error())
		return
	}
	tile, before, err := ReadTileAndDate(app)
	if err != nil {
		PrintError(err.Error())
		return
	}
	after := ReadString("Enter the later date (YYYYMMDD): ")
	window, err := ReadWindow(app, tile, before)
	if err != nil {
		PrintError(err.Error())
		return
	}
	path, err := app.CompareDates(kind, tile, before, after, window)
	app.notify(fmt.Sprintf("%s comparison %s %s-%s", kind, tile, before, after), err)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintSuccess("Saved " + path)
}

func AnalyzeSeries(app *App) {
	kind, err := ReadIndex()
	if err != nil {
		PrintError(err.Error())
		return
	}
	tile := ReadString("Enter the tile id (e.g. T28RBS): ")
	dates := ReadDates("Enter dates separated by commas (empty for all): ")
	first := ""
	if len(dates) > 0 {
		first = dates[0]
	} else if all, err := app.Dates(tile); err == nil && len(all) > 0 {
		first = all[0]
	}
	window, err := ReadWindow(app, tile, first)
	if err != nil {
		PrintError(err.Error())
		return
	}
	report, err := app.AnalyzeSeries(kind, tile, dates, window)
	app.notify(fmt.Sprintf("%s time series %s", kind, tile), err)
	if err != nil {
		PrintError(err.Error())
		if report == nil {
			return
		}
	}
	fmt.Printf("%sMean: %.4f  Std: %.4f  Var: %.4f%s\n", ColorGreen,
		report.Stats.SeriesMean, report.Stats.SeriesStd, report.Stats.SeriesVar, ColorReset)
	PrintSuccess("Saved " + strings.Join(report.Paths, ", "))
}

func PrepareDEM(app *App) {
	PrintWarning("Both elevation models are cleaned, reprojected to " + app.cfg.TargetCRS + " and merged.")
	first := ReadString("Enter the path of the first elevation model: ")
	second := ReadString("Enter the path of the second elevation model: ")
	other := ReadString("Raster to crop against (empty to skip): ")
	paths, err := app.PrepareDEM(first, second, other)
	app.notify("elevation merge", err)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintSuccess("Saved " + strings.Join(paths, ", "))
}

func ExtractGranules(app *App) {
	granules, err := app.ExtractGranules()
	if err != nil {
		PrintError(err.Error())
	}
	for _, g := range granules {
		fmt.Printf("%s%s %s%s\n", ColorGreen, g.Tile, g.Date, ColorReset)
	}
	if err == nil {
		PrintSuccess(fmt.Sprintf("%d granules extracted", len(granules)))
	}
}

func ListPresets() {
	for _, name := range roi.Names() {
		w, _ := roi.Lookup(name)
		fmt.Printf("%s%-20s %s%s\n", ColorGreen, name, w, ColorReset)
	}
}

func ListDates(app *App) {
	tile := ReadString("Enter the tile id (e.g. T28RBS): ")
	dates, err := app.Dates(tile)
	if err != nil {
		PrintError(err.Error())
		return
	}
	if len(dates) == 0 {
		PrintWarning("No dates found for " + tile)
		return
	}
	for _, d := range dates {
		fmt.Printf("%s%s%s\n", ColorGreen, d, ColorReset)
	}
}
