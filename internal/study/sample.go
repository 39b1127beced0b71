package study

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// SampleItems is the starter vocabulary written by WriteSample.
var SampleItems = []Item{
	{ID: "1", Front: "sol", Back: "sun", SecondaryBack: "The sun is shining today.", SecondaryFront: "Solen skinner i dag.", OriginDay: 1},
	{ID: "2", Front: "måne", Back: "moon", SecondaryBack: "The moon is beautiful tonight.", SecondaryFront: "Månen er smuk i aften.", OriginDay: 1},
	{ID: "3", Front: "vand", Back: "water", SecondaryBack: "I need some water.", SecondaryFront: "Jeg skal have noget vand.", OriginDay: 1},
	{ID: "4", Front: "tryghed", Back: "security", SecondaryBack: "We seek security.", SecondaryFront: "Vi søger tryghed.", OriginDay: 2},
	{ID: "5", Front: "akkord", Back: "chord", SecondaryBack: "He plays a chord.", SecondaryFront: "Han spiller en akkord.", OriginDay: 2},
	{ID: "6", Front: "lys", Back: "light", SecondaryBack: "There is light at the end of the tunnel.", SecondaryFront: "Der er lys for enden af tunnelen.", OriginDay: 3},
	{ID: "7", Front: "mørke", Back: "darkness", SecondaryBack: "The darkness fell.", SecondaryFront: "Mørket faldt på.", OriginDay: 3},
}

// Write encodes items as master CSV using the canonical column names.
func Write(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnID, ColumnFront, ColumnBack, ColumnSecondaryBack, ColumnSecondaryFront, ColumnOriginDay}); err != nil {
		return err
	}
	for _, it := range items {
		row := []string{it.ID, it.Front, it.Back, it.SecondaryBack, it.SecondaryFront, strconv.Itoa(it.OriginDay)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSample creates path with SampleItems. It refuses to overwrite an
// existing file and reports whether a file was written.
func WriteSample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat master data: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create master data directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("create master data: %w", err)
	}
	if err := Write(f, SampleItems); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, fmt.Errorf("write master data: %w", err)
	}
	return true, f.Close()
}
