package sentinel

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/log"
)

// Granule identifies a SAFE product by tile and acquisition date/time.
type Granule struct {
	Tile string
	Date string
	Time string
}

// ParseSAFEName splits names such as
// S2A_MSIL2A_20190213T115221_N0211_R123_T28RBS_20190213T142127.SAFE.
func ParseSAFEName(name string) (Granule, error) {
	parts := strings.Split(strings.TrimSuffix(name, ".SAFE"), "_")
	if len(parts) < 6 {
		return Granule{}, fmt.Errorf("unexpected SAFE name %q", name)
	}
	dateTime := strings.SplitN(parts[2], "T", 2)
	if len(dateTime) != 2 {
		return Granule{}, fmt.Errorf("unexpected acquisition time in %q", name)
	}
	return Granule{Tile: parts[5], Date: dateTime[0], Time: dateTime[1]}, nil
}

// ExtractAll copies the IMG_DATA tree of every SAFE folder in rawDir into
// the archive as <root>/<tile>/<date>/. It returns the granules copied.
func (a *Archive) ExtractAll(rawDir string) ([]Granule, error) {
	entries, err := os.ReadDir(rawDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawDir, err)
	}
	var out []Granule
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(e.Name(), ".SAFE") {
			continue
		}
		g, err := ParseSAFEName(e.Name())
		if err != nil {
			return out, err
		}
		if err := a.extract(filepath.Join(rawDir, e.Name()), g); err != nil {
			return out, err
		}
		log.Infow("granule extracted", "tile", g.Tile, "date", g.Date)
		out = append(out, g)
	}
	return out, nil
}

func (a *Archive) extract(safeDir string, g Granule) error {
	granules, err := os.ReadDir(filepath.Join(safeDir, "GRANULE"))
	if err != nil {
		return fmt.Errorf("failed to read GRANULE folder: %w", err)
	}
	if len(granules) == 0 {
		return fmt.Errorf("no granule inside %s", safeDir)
	}
	src := filepath.Join(safeDir, "GRANULE", granules[0].Name(), "IMG_DATA")
	dst := filepath.Join(a.root, g.Tile, g.Date)
	return copyTree(src, dst)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, os.ModePerm)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
