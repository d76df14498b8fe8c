package sentinel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
)

// Archive locates band files of extracted Sentinel-2 granules laid out as
// <root>/<tile>/<date>/R<resolution>m/*_B<band>_*.jp2.
type Archive struct {
	root string
}

func NewArchive(root string) *Archive {
	return &Archive{root: root}
}

func (a *Archive) Root() string { return a.root }

func ResolutionDir(resolution int) string {
	return fmt.Sprintf("R%dm", resolution)
}

// Locate returns one path per band code, in the order the codes are given.
func (a *Archive) Locate(tile, date string, resolution int, bands ...string) ([]string, error) {
	dir := filepath.Join(a.root, tile, date, ResolutionDir(resolution))
	files, err := filepath.Glob(filepath.Join(dir, "*.jp2"))
	if err != nil {
		return nil, &raster.IOError{Op: "glob", Path: dir, Err: err}
	}
	sort.Strings(files)

	paths := make([]string, 0, len(bands))
	for _, band := range bands {
		path, ok := match(files, band)
		if !ok {
			return nil, &raster.IOError{
				Op:   "locate",
				Path: dir,
				Err:  fmt.Errorf("band B%s not found for tile %s on %s: %w", band, tile, date, os.ErrNotExist),
			}
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func match(files []string, band string) (string, bool) {
	needle := "B" + band
	for _, f := range files {
		if strings.Contains(filepath.Base(f), needle) {
			return f, true
		}
	}
	return "", false
}

// Dates lists the capture dates available for a tile, ascending.
func (a *Archive) Dates(tile string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.root, tile))
	if err != nil {
		return nil, &raster.IOError{Op: "list", Path: filepath.Join(a.root, tile), Err: err}
	}
	var dates []string
	for _, e := range entries {
		if e.IsDir() {
			dates = append(dates, e.Name())
		}
	}
	sort.Strings(dates)
	return dates, nil
}
