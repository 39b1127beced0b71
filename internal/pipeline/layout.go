package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ManifestName is the per-day manifest file.
const ManifestName = "manifest.csv"

const (
	dayPrefix     = "day_"
	stagingSuffix = ".partial"
	lockName      = ".daydrill.lock"
)

// Layout describes where a day's files live.
type Layout struct {
	Root      string
	Pad       int // zero padding of the day number
	Ext       string
	Templates []string
}

// DayName returns the directory name for day, e.g. day_007.
func (l Layout) DayName(day int) string {
	return fmt.Sprintf("%s%0*d", dayPrefix, l.Pad, day)
}

// DayDir is the committed directory of day.
func (l Layout) DayDir(day int) string {
	return filepath.Join(l.Root, l.DayName(day))
}

// StagingDir is where day is built before being renamed into place.
func (l Layout) StagingDir(day int) string {
	return filepath.Join(l.Root, "."+l.DayName(day)+stagingSuffix)
}

// LockPath is the run lock file.
func (l Layout) LockPath() string {
	return filepath.Join(l.Root, lockName)
}

// TrackName is the file name of a template's track.
func (l Layout) TrackName(template string) string {
	return template + "." + strings.TrimPrefix(l.Ext, ".")
}

// ManifestPath is the committed manifest of day.
func (l Layout) ManifestPath(day int) string {
	return filepath.Join(l.DayDir(day), ManifestName)
}

// TrackPath is the committed track of template for day.
func (l Layout) TrackPath(day int, template string) string {
	return filepath.Join(l.DayDir(day), l.TrackName(template))
}

// Required lists every file a complete day has.
func (l Layout) Required(day int) []string {
	paths := make([]string, 0, len(l.Templates)+1)
	paths = append(paths, l.ManifestPath(day))
	for _, tpl := range l.Templates {
		paths = append(paths, l.TrackPath(day, tpl))
	}
	return paths
}

// Missing lists the required files of day that do not exist.
func (l Layout) Missing(day int) ([]string, error) {
	var missing []string
	for _, p := range l.Required(day) {
		_, err := os.Stat(p)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			missing = append(missing, p)
		case err != nil:
			return nil, err
		}
	}
	return missing, nil
}

// Complete reports whether every required file of day exists. Only
// existence is checked.
func (l Layout) Complete(day int) (bool, error) {
	missing, err := l.Missing(day)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}
