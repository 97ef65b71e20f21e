package reference

import (
	"fmt"

	"github.com/brensch/electionjson/internal/ordered"
	"github.com/brensch/electionjson/internal/rowsource"
)

// noSubCode marks a registration without a sub-code.
const noSubCode = "0"

// ParticipantElection is a participant's registration in one election.
type ParticipantElection struct {
	ElectionID string  `json:"eid"`
	RegName    string  `json:"reg_name"`
	RegCode    string  `json:"reg_code"`
	RegSubCode *string `json:"reg_sub_code,omitempty"`
}

// Participant is a party or coalition across every election it ran in.
type Participant struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Elections []ParticipantElection `json:"elections"`
}

// Participants accumulates the participants tables of several elections.
type Participants struct {
	byID *ordered.Map[string, *Participant]
}

// NewParticipants returns an empty accumulator.
func NewParticipants() *Participants {
	return &Participants{byID: ordered.New[string, *Participant]()}
}

// Add reads one election's participants table. A participant keeps the name
// from the first election that lists it.
func (p *Participants) Add(electionID, path string, delim rune) error {
	err := rowsource.Each(path, delim, func(r rowsource.Row) error {
		id := optional(r, "code")
		name := optional(r, "name")
		entry := p.byID.GetOrInsert(id, func() *Participant {
			return &Participant{ID: id, Name: name, Elections: []ParticipantElection{}}
		})

		reg := ParticipantElection{
			ElectionID: electionID,
			RegName:    optional(r, "registration_name"),
			RegCode:    optional(r, "registration_code"),
		}
		if sub := optional(r, "registration_sub_code"); sub != noSubCode {
			reg.RegSubCode = &sub
		}
		entry.Elections = append(entry.Elections, reg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("participants of %s: %w", electionID, err)
	}
	return nil
}

// Sorted returns the participants ascending by id.
func (p *Participants) Sorted() []Participant {
	out := make([]Participant, 0, p.byID.Len())
	for _, v := range p.byID.SortedValues() {
		out = append(out, *v)
	}
	return out
}
