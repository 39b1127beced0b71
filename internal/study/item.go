package study

import (
	"fmt"
	"strings"
)

// Item is a single learning item from the master list. Items are never
// mutated after loading; OriginDay is the day the item is first taught.
type Item struct {
	ID             string
	Front          string // target-language word
	Back           string // base-language word
	SecondaryFront string // target-language sentence
	SecondaryBack  string // base-language sentence
	OriginDay      int
}

// Field identifies one of the content fields of an Item.
type Field int

const (
	FieldFront Field = iota
	FieldBack
	FieldSecondaryFront
	FieldSecondaryBack
)

// String returns the manifest column name of the field.
func (f Field) String() string {
	switch f {
	case FieldFront:
		return "front"
	case FieldBack:
		return "back"
	case FieldSecondaryFront:
		return "secondary_front"
	case FieldSecondaryBack:
		return "secondary_back"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField is the inverse of Field.String.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "front":
		return FieldFront, nil
	case "back":
		return FieldBack, nil
	case "secondary_front":
		return FieldSecondaryFront, nil
	case "secondary_back":
		return FieldSecondaryBack, nil
	default:
		return 0, fmt.Errorf("unknown item field %q", s)
	}
}

// Text returns the content of the given field.
func (it Item) Text(f Field) string {
	switch f {
	case FieldFront:
		return it.Front
	case FieldBack:
		return it.Back
	case FieldSecondaryFront:
		return it.SecondaryFront
	case FieldSecondaryBack:
		return it.SecondaryBack
	default:
		return ""
	}
}

// Kind tells whether an item is taught for the first time or reviewed.
type Kind int

const (
	KindNew Kind = iota
	KindReview
)

func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindReview:
		return "review"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return KindNew, nil
	case "review":
		return KindReview, nil
	default:
		return 0, fmt.Errorf("unknown item kind %q", s)
	}
}

// MaxOriginDay returns the highest origin day in items, or 0 when empty.
func MaxOriginDay(items []Item) int {
	max := 0
	for _, it := range items {
		if it.OriginDay > max {
			max = it.OriginDay
		}
	}
	return max
}
