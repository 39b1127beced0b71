package pipeline

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/dgnsrekt/daydrill/internal/schedule"
)

var manifestHeader = []string{
	"template", "sequence", "slot", "item_id",
	"front", "back", "secondary_front", "secondary_back",
	"origin_day", "kind",
}

// WriteManifest writes one row per scheduled entry of every sequence in
// plan order. The sequence column is the 1-based position within its
// template.
func WriteManifest(w io.Writer, plan *schedule.DayPlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(manifestHeader); err != nil {
		return err
	}
	for _, seq := range plan.Sequences {
		for i, e := range seq.Entries {
			row := []string{
				seq.Rule.Template,
				strconv.Itoa(i + 1),
				strconv.Itoa(e.Slot),
				e.Item.ID,
				e.Item.Front,
				e.Item.Back,
				e.Item.SecondaryFront,
				e.Item.SecondaryBack,
				strconv.Itoa(e.Item.OriginDay),
				e.Kind.String(),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
