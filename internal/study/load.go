package study

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")

	// ErrDuplicateID is returned when two rows share an id.
	ErrDuplicateID = errors.New("duplicate item id")

	// ErrInvalidDay is returned when StudyDay is not a positive integer.
	ErrInvalidDay = errors.New("study day must be a positive integer")

	// ErrEmptyField is returned when a required cell is blank.
	ErrEmptyField = errors.New("required field is empty")
)

// LoadError reports a malformed master file, pointing at the offending line.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
	} else {
		b.WriteString("master data")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " (%s)", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Canonical column names as written by WriteSample.
const (
	ColumnID             = "id"
	ColumnFront          = "W2"
	ColumnBack           = "W1"
	ColumnSecondaryFront = "L2"
	ColumnSecondaryBack  = "L1"
	ColumnOriginDay      = "StudyDay"
)

// columnAliases maps accepted header spellings (lower-cased) to canonical names.
var columnAliases = map[string]string{
	"id":              ColumnID,
	"item_id":         ColumnID,
	"w2":              ColumnFront,
	"front":           ColumnFront,
	"w1":              ColumnBack,
	"back":            ColumnBack,
	"l2":              ColumnSecondaryFront,
	"secondary_front": ColumnSecondaryFront,
	"l1":              ColumnSecondaryBack,
	"secondary_back":  ColumnSecondaryBack,
	"studyday":        ColumnOriginDay,
	"study_day":       ColumnOriginDay,
	"origin_day":      ColumnOriginDay,
}

var requiredColumns = []string{ColumnID, ColumnFront, ColumnBack, ColumnOriginDay}

// Load reads the master item list from a CSV file.
func Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open master data: %w", err)
	}
	defer f.Close() //nolint:errcheck

	items, err := Parse(f)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, err
	}
	return items, nil
}

// Parse reads the master item list from CSV. The header row is required;
// any malformed row is fatal.
func Parse(r io.Reader) ([]Item, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Line: 1, Err: errors.New("empty file, header row expected")}
		}
		return nil, &LoadError{Line: 1, Err: err}
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if canonical, ok := columnAliases[strings.ToLower(name)]; ok {
			index[canonical] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &LoadError{Line: 1, Column: col, Err: ErrMissingColumn}
		}
	}

	cell := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var items []Item
	seen := make(map[string]int)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Err: err}
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		it := Item{
			ID:             cell(record, ColumnID),
			Front:          cell(record, ColumnFront),
			Back:           cell(record, ColumnBack),
			SecondaryFront: cell(record, ColumnSecondaryFront),
			SecondaryBack:  cell(record, ColumnSecondaryBack),
		}
		for _, req := range []struct{ col, v string }{{ColumnID, it.ID}, {ColumnFront, it.Front}, {ColumnBack, it.Back}} {
			if req.v == "" {
				return nil, &LoadError{Line: line, Column: req.col, Err: ErrEmptyField}
			}
		}

		day, err := strconv.Atoi(cell(record, ColumnOriginDay))
		if err != nil || day < 1 {
			return nil, &LoadError{Line: line, Column: ColumnOriginDay, Err: ErrInvalidDay}
		}
		it.OriginDay = day

		if prev, dup := seen[it.ID]; dup {
			return nil, &LoadError{Line: line, Column: ColumnID, Err: fmt.Errorf("%w: %q first seen on line %d", ErrDuplicateID, it.ID, prev)}
		}
		seen[it.ID] = line
		items = append(items, it)
	}

	return items, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
