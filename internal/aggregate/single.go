package aggregate

import (
	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/hierarchy"
	"github.com/brensch/electionjson/internal/ordered"
)

// Breakdown is one participant's votes within a record.
type Breakdown struct {
	ID          string
	Name        string
	Paper       int64
	Machine     int64
	MachineData int64
	Total       int64
}

// Record is the single-election aggregate for one level key.
type Record struct {
	ID         string
	ElectionID string
	Counters
	Votes *ordered.Map[string, *Breakdown]
}

func newRecord() *Record {
	return &Record{Votes: ordered.New[string, *Breakdown]()}
}

func newBreakdown() *Breakdown {
	return &Breakdown{}
}

// Single folds one election's rows into per-level records.
type Single struct {
	electionID string
	levels     [4]*ordered.Map[string, *Record]
}

// NewSingle returns an empty aggregator for electionID.
func NewSingle(electionID string) *Single {
	s := &Single{electionID: electionID}
	for i := range s.levels {
		s.levels[i] = ordered.New[string, *Record]()
	}
	return s
}

// ElectionID is the election the aggregator folds.
func (s *Single) ElectionID() string {
	return s.electionID
}

// Records returns the records of level l keyed by level id.
func (s *Single) Records(l hierarchy.Level) *ordered.Map[string, *Record] {
	return s.levels[l]
}

// Record looks up the record for key at level l without creating it.
func (s *Single) Record(l hierarchy.Level, key string) (*Record, bool) {
	return s.levels[l].Get(key)
}

func (s *Single) record(l hierarchy.Level, key string) *Record {
	r := s.levels[l].GetOrInsert(key, newRecord)
	r.ID = key
	r.ElectionID = s.electionID
	return r
}

// FoldProtocol adds a protocol row into the section's record and each of
// its ancestors.
func (s *Single) FoldProtocol(p election.ProtocolRow) {
	keys := hierarchy.KeysFor(p.SectionID)
	delta := contribution(p)
	for _, l := range hierarchy.Levels() {
		s.record(l, keys.For(l)).add(delta)
	}
}

// FoldVotes adds a vote row into the participant's breakdown at the section
// and each of its ancestors.
func (s *Single) FoldVotes(v election.VoteRow) {
	keys := hierarchy.KeysFor(v.SectionID)
	for _, l := range hierarchy.Levels() {
		b := s.record(l, keys.For(l)).Votes.GetOrInsert(v.ParticipantID, newBreakdown)
		b.ID = v.ParticipantID
		b.Name = v.ParticipantName
		b.Paper += v.PaperVotes
		b.Machine += v.MachineVotes
		b.MachineData += v.MachineDataVotes
		b.Total = b.Paper + b.Machine
	}
}
