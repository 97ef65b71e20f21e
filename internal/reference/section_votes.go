package reference

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/rowsource"
)

const electionColumnPrefix = "E"

// DatedValue is a section's vote count at one election date.
type DatedValue struct {
	Date  string `json:"d"`
	Value int64  `json:"v"`
}

// SectionVotes is one section's vote history.
type SectionVotes struct {
	ID   string       `json:"id"`
	Data []DatedValue `json:"data"`
}

// SectionTotalVotes is the sections_total_votes document.
type SectionTotalVotes struct {
	Sections []SectionVotes `json:"sections"`
}

// LoadSectionTotalVotes converts sections_total_votes.csv. Every non-empty
// E<YYYYMMDD> column becomes a dated value, in column order; sections keep
// file order.
func LoadSectionTotalVotes(path string, delim rune) (SectionTotalVotes, error) {
	doc := SectionTotalVotes{Sections: []SectionVotes{}}
	err := rowsource.Each(path, delim, func(r rowsource.Row) error {
		id, err := required(r, "section_id")
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		entry := SectionVotes{ID: id, Data: []DatedValue{}}
		for _, field := range r.Fields() {
			if !strings.HasPrefix(field, electionColumnPrefix) {
				continue
			}
			raw, ok := r.Get(field)
			if !ok || raw == "" {
				continue
			}
			day, err := time.Parse(electionIDLayout, strings.TrimPrefix(field, electionColumnPrefix))
			if err != nil {
				return fmt.Errorf("%s: column %q: %w", path, field, err)
			}
			v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", path, &election.MalformedRowError{Field: field, Value: raw, Err: err})
			}
			entry.Data = append(entry.Data, DatedValue{Date: day.Format(time.DateOnly), Value: v})
		}
		doc.Sections = append(doc.Sections, entry)
		return nil
	})
	if err != nil {
		return SectionTotalVotes{}, err
	}
	return doc, nil
}
