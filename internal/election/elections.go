package election

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/brensch/electionjson/internal/ordered"
	"github.com/brensch/electionjson/internal/rowsource"
)

// Election is one row of the static elections reference table. ID is the
// election date as YYYYMMDD.
type Election struct {
	ID    string
	Label string
}

// LoadElections reads the elections table, keeping one entry per id (the
// last row wins) and ordering them ascending by id.
func LoadElections(path string, delim rune) ([]Election, error) {
	byID := ordered.New[string, Election]()
	err := rowsource.Each(path, delim, func(r rowsource.Row) error {
		f := fieldReader{row: r}
		e := Election{ID: f.str("id"), Label: f.str("label")}
		if f.err != nil {
			return fmt.Errorf("%s: %w", path, f.err)
		}
		byID.Set(e.ID, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := byID.Values()
	slices.SortFunc(out, func(a, b Election) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
