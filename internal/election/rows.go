package election

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brensch/electionjson/internal/rowsource"
)

// Column names of the protocols and votes tables.
const (
	ColSectionID                   = "section_id"
	ColPreRegisteredVoters         = "pre_registered_voters"
	ColRegisteredVoters            = "registered_voters"
	ColOnsiteListedVoters          = "onsite_listed_voters"
	ColVotedVoters                 = "voted_voters"
	ColDistributedBallots          = "distributed_ballots"
	ColUnusedPaperBallots          = "unused_paper_ballots"
	ColDestroyedPaperBallots       = "destroyed_paper_ballots"
	ColUrnPaperBallots             = "urn_paper_ballots"
	ColUrnMachineBallots           = "urn_machine_ballots"
	ColInvalidPaperBallots         = "invalid_paper_ballots"
	ColValidPaperVotesForParties   = "valid_paper_votes_for_parties"
	ColValidMachineVotesForParties = "valid_machine_votes_for_parties"
	ColSupportNoonePaperBallots    = "support_noone_paper_ballots"
	ColSupportNooneMachineBallots  = "support_noone_machine_ballots"

	ColParticipantCode  = "participant_code"
	ColParticipantName  = "participant_name"
	ColPaperVotes       = "paper_votes"
	ColMachineVotes     = "machine_votes"
	ColMachineDataVotes = "machine_data_votes"
)

// MalformedRowError reports a row missing an expected field or holding a
// value that does not parse as an integer.
type MalformedRowError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedRowError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed row: missing field %q", e.Field)
	}
	return fmt.Sprintf("malformed row: field %q value %q: %v", e.Field, e.Value, e.Err)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

// ProtocolRow is one polling section's administrative counters for one election.
type ProtocolRow struct {
	SectionID                   string
	PreRegisteredVoters         int64
	RegisteredVoters            int64
	OnsiteListedVoters          int64
	VotedVoters                 int64
	DistributedBallots          int64
	UnusedPaperBallots          int64
	DestroyedPaperBallots       int64
	UrnPaperBallots             int64
	UrnMachineBallots           int64
	InvalidPaperBallots         int64
	ValidPaperVotesForParties   int64
	ValidMachineVotesForParties int64
	SupportNoonePaperBallots    int64
	SupportNooneMachineBallots  int64
}

// VoteRow is one (section, participant) pair's votes for one election.
type VoteRow struct {
	SectionID        string
	ParticipantID    string
	ParticipantName  string
	PaperVotes       int64
	MachineVotes     int64
	MachineDataVotes int64
}

// fieldReader collects the first lookup or parse failure so callers can read
// a whole row and check once.
type fieldReader struct {
	row rowsource.Row
	err error
}

func (f *fieldReader) str(field string) string {
	if f.err != nil {
		return ""
	}
	v, ok := f.row.Get(field)
	if !ok {
		f.err = &MalformedRowError{Field: field}
	}
	return v
}

func (f *fieldReader) integer(field string) int64 {
	raw := f.str(field)
	if f.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		f.err = &MalformedRowError{Field: field, Value: raw, Err: err}
		return 0
	}
	return n
}

// ParseProtocolRow reads a protocols table row.
func ParseProtocolRow(row rowsource.Row) (ProtocolRow, error) {
	f := fieldReader{row: row}
	p := ProtocolRow{
		SectionID:                   f.str(ColSectionID),
		PreRegisteredVoters:         f.integer(ColPreRegisteredVoters),
		RegisteredVoters:            f.integer(ColRegisteredVoters),
		OnsiteListedVoters:          f.integer(ColOnsiteListedVoters),
		VotedVoters:                 f.integer(ColVotedVoters),
		DistributedBallots:          f.integer(ColDistributedBallots),
		UnusedPaperBallots:          f.integer(ColUnusedPaperBallots),
		DestroyedPaperBallots:       f.integer(ColDestroyedPaperBallots),
		UrnPaperBallots:             f.integer(ColUrnPaperBallots),
		UrnMachineBallots:           f.integer(ColUrnMachineBallots),
		InvalidPaperBallots:         f.integer(ColInvalidPaperBallots),
		ValidPaperVotesForParties:   f.integer(ColValidPaperVotesForParties),
		ValidMachineVotesForParties: f.integer(ColValidMachineVotesForParties),
		SupportNoonePaperBallots:    f.integer(ColSupportNoonePaperBallots),
		SupportNooneMachineBallots:  f.integer(ColSupportNooneMachineBallots),
	}
	if f.err != nil {
		return ProtocolRow{}, f.err
	}
	return p, nil
}

// ParseVoteRow reads a votes_combined table row.
func ParseVoteRow(row rowsource.Row) (VoteRow, error) {
	f := fieldReader{row: row}
	v := VoteRow{
		SectionID:        f.str(ColSectionID),
		ParticipantID:    f.str(ColParticipantCode),
		ParticipantName:  f.str(ColParticipantName),
		PaperVotes:       f.integer(ColPaperVotes),
		MachineVotes:     f.integer(ColMachineVotes),
		MachineDataVotes: f.integer(ColMachineDataVotes),
	}
	if f.err != nil {
		return VoteRow{}, f.err
	}
	return v, nil
}

// EachProtocolRow parses every row of a protocols table in file order.
func EachProtocolRow(path string, delim rune, fn func(ProtocolRow) error) error {
	row := 1
	return rowsource.Each(path, delim, func(r rowsource.Row) error {
		row++
		p, err := ParseProtocolRow(r)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}
		return fn(p)
	})
}

// EachVoteRow parses every row of a votes table in file order.
func EachVoteRow(path string, delim rune, fn func(VoteRow) error) error {
	row := 1
	return rowsource.Each(path, delim, func(r rowsource.Row) error {
		row++
		v, err := ParseVoteRow(r)
		if err != nil {
			return fmt.Errorf("%s row %d: %w", path, row, err)
		}
		return fn(v)
	})
}
