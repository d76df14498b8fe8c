package ui

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/forest-guardian/sentinel-raster/internal/roi"
	"github.com/forest-guardian/sentinel-raster/internal/spectral"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var stdin = bufio.NewReader(os.Stdin)

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Printf("%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Printf("\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

func PrintSuccess(message string) {
	fmt.Printf("\n%s%s%s\n", ColorGreen, message, ColorReset)
}

func PrintInfo(message string) {
	fmt.Printf("%s%s%s", ColorBlue, message, ColorReset)
}

// ReadString reads a trimmed line from stdin
func ReadString(prompt string) string {
	PrintInfo(prompt)
	input, _ := stdin.ReadString('\n')
	return strings.TrimSpace(input)
}

// ReadInt reads an integer in [min, max] from stdin
func ReadInt(prompt string, min, max int) (int, error) {
	input := ReadString(prompt)
	value, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", input)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}
	return value, nil
}

// ReadYesNo treats anything starting with y as yes
func ReadYesNo(prompt string) bool {
	return strings.HasPrefix(strings.ToLower(ReadString(prompt+" [y/N]: ")), "y")
}

// ReadIndex asks for one of the supported spectral indices
func ReadIndex() (spectral.Index, error) {
	names := make([]string, len(spectral.Indices))
	for i, idx := range spectral.Indices {
		names[i] = string(idx)
	}
	return spectral.ParseIndex(ReadString(fmt.Sprintf("Enter the index (%s): ", strings.Join(names, ", "))))
}

// ReadTileAndDate reads a tile id and lists its dates before asking for one
func ReadTileAndDate(app *App) (string, string, error) {
	tile := ReadString("Enter the tile id (e.g. T28RBS): ")
	if tile == "" {
		return "", "", fmt.Errorf("tile id cannot be empty")
	}
	if dates, err := app.Dates(tile); err == nil {
		PrintInfo(fmt.Sprintf("Available dates: %s\n", strings.Join(dates, ", ")))
	}
	date := ReadString("Enter the date (YYYYMMDD): ")
	if date == "" {
		return "", "", fmt.Errorf("date cannot be empty")
	}
	return tile, date, nil
}

// ReadDates reads a comma separated date list. Empty means every date.
func ReadDates(prompt string) []string {
	var dates []string
	for _, d := range strings.Split(ReadString(prompt), ",") {
		if d = strings.TrimSpace(d); d != "" {
			dates = append(dates, d)
		}
	}
	return dates
}

// ReadWindow accepts a preset name, a "col,row,width,height" window, a
// GeoJSON file or nothing.
func ReadWindow(app *App, tile, date string) (*raster.Window, error) {
	input := ReadString(fmt.Sprintf("Region of interest (%s, col,row,width,height, a .geojson path or empty for full tile): ",
		strings.Join(roi.Names(), ", ")))
	if !strings.HasSuffix(strings.ToLower(input), ".geojson") {
		return roi.Resolve(input)
	}
	key := ReadString("Property to select features by (empty for all): ")
	var value string
	if key != "" {
		value = ReadString(fmt.Sprintf("Value of %s: ", key))
	}
	return app.WindowFromGeoJSON(tile, date, input, key, value)
}
