package picker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
)

// Describer fetches the description of a single crackme.
type Describer interface {
	Description(ctx context.Context, id string) (string, error)
}

// Window returns the inclusive bounds of the filtered positions around cursor
// in a list of n entries.
func Window(cursor, n int) (lo, hi int) {
	return max(0, cursor-1), min(n-1, cursor+1)
}

// Candidates returns the record indices in the window around cursor that still
// lack a description, in list order.
func Candidates(records []*crackme.Record, filtered []int, cursor int) []int {
	if len(filtered) == 0 {
		return nil
	}
	lo, hi := Window(cursor, len(filtered))
	var out []int
	for pos := lo; pos <= hi; pos++ {
		if i := filtered[pos]; !records[i].HasDescription() {
			out = append(out, i)
		}
	}
	return out
}

// Fill stores a fetched description on r. A record that already has one keeps
// it; the rejected write is only logged.
func Fill(ctx context.Context, r *crackme.Record, desc string) {
	if err := r.SetDescription(desc); err != nil {
		if errors.Is(err, crackme.ErrDescriptionSet) {
			slog.DebugContext(ctx, "description already present", "id", r.ID)
			return
		}
		slog.WarnContext(ctx, "storing description failed", "id", r.ID, "err", err)
	}
}

// Prefetch fetches, one at a time, the descriptions missing in the window
// around cursor. The first fetch error is returned.
func Prefetch(ctx context.Context, d Describer, records []*crackme.Record, filtered []int, cursor int) error {
	for _, i := range Candidates(records, filtered, cursor) {
		r := records[i]
		desc, err := d.Description(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("fetching description for %s: %w", r.ID, err)
		}
		Fill(ctx, r, desc)
	}
	return nil
}
