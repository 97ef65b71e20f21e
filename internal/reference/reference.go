// Package reference converts the static lookup tables (regions,
// municipalities, elections, participants) and the pre-processed section
// turnout history into their index documents. Nothing here aggregates.
package reference

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goodsign/monday"

	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/ordered"
	"github.com/brensch/electionjson/internal/rowsource"
)

const (
	electionIDLayout  = "20060102"
	electionDayLayout = "2 January 2006"
	electionTitle     = "Избори за Народно събрание - "
)

// Region is an electoral region (РИК).
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Municipality belongs to one region.
type Municipality struct {
	ID       string `json:"id"`
	RegionID string `json:"rid"`
	Name     string `json:"name"`
}

// ElectionEntry is one election in the elections index.
type ElectionEntry struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

func required(r rowsource.Row, field string) (string, error) {
	v, ok := r.Get(field)
	if !ok {
		return "", &election.MalformedRowError{Field: field}
	}
	return v, nil
}

// optional mirrors a lenient lookup: absent fields read as empty.
func optional(r rowsource.Row, field string) string {
	v, _ := r.Get(field)
	return v
}

// sortedByID collects rows keyed by id (later rows replace earlier ones) and
// returns them ascending by id.
func sortedByID[T any](path string, delim rune, parse func(rowsource.Row) (string, T, error)) ([]T, error) {
	byID := ordered.New[string, T]()
	err := rowsource.Each(path, delim, func(r rowsource.Row) error {
		id, v, err := parse(r)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		byID.Set(id, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return byID.SortedValues(), nil
}

// LoadRegions reads riks.csv.
func LoadRegions(path string, delim rune) ([]Region, error) {
	return sortedByID(path, delim, func(r rowsource.Row) (string, Region, error) {
		id, err := required(r, "rik_code")
		if err != nil {
			return "", Region{}, err
		}
		name, err := required(r, "rik_name")
		if err != nil {
			return "", Region{}, err
		}
		return id, Region{ID: id, Name: name}, nil
	})
}

// LoadMunicipalities reads municipalities.csv.
func LoadMunicipalities(path string, delim rune) ([]Municipality, error) {
	return sortedByID(path, delim, func(r rowsource.Row) (string, Municipality, error) {
		var m Municipality
		var err error
		if m.ID, err = required(r, "municipality_code"); err != nil {
			return "", m, err
		}
		if m.RegionID, err = required(r, "rik_code"); err != nil {
			return "", m, err
		}
		if m.Name, err = required(r, "municipality"); err != nil {
			return "", m, err
		}
		return m.ID, m, nil
	})
}

// ElectionName is the display name of the election held on the date encoded
// in id, e.g. "Избори за Народно събрание - 4 април 2021".
func ElectionName(id string) (string, error) {
	day, err := time.Parse(electionIDLayout, id)
	if err != nil {
		return "", fmt.Errorf("election id %q is not a date: %w", id, err)
	}
	date := strings.ToLower(monday.Format(day, electionDayLayout, monday.LocaleBgBG))
	return electionTitle + date, nil
}

// ElectionIndex builds the elections index, sorted by id.
func ElectionIndex(elections []election.Election) ([]ElectionEntry, error) {
	out := make([]ElectionEntry, 0, len(elections))
	for _, e := range elections {
		name, err := ElectionName(e.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ElectionEntry{ID: e.ID, Code: e.Label, Name: name})
	}
	slices.SortFunc(out, func(a, b ElectionEntry) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
