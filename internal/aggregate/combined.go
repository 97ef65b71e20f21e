package aggregate

import (
	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/hierarchy"
	"github.com/brensch/electionjson/internal/ordered"
)

// Point is one election's value in a time series.
type Point struct {
	ElectionID string
	Value      int64
}

// Series maps election id to its point, in first-seen order.
type Series = ordered.Map[string, *Point]

func newSeries() *Series {
	return ordered.New[string, *Point]()
}

// at returns the point for electionID, creating it at zero.
func at(s *Series, electionID string) *Point {
	p := s.GetOrInsert(electionID, func() *Point { return &Point{} })
	p.ElectionID = electionID
	return p
}

// CombinedBreakdown is one participant's votes as per-election series.
type CombinedBreakdown struct {
	ID          string
	Name        string
	Paper       *Series
	Machine     *Series
	MachineData *Series
	Total       *Series
}

func newCombinedBreakdown() *CombinedBreakdown {
	return &CombinedBreakdown{
		Paper:       newSeries(),
		Machine:     newSeries(),
		MachineData: newSeries(),
		Total:       newSeries(),
	}
}

// CombinedRecord holds every metric of one level key as a series over
// elections.
type CombinedRecord struct {
	ID     string
	series [MetricCount]*Series
	Votes  *ordered.Map[string, *CombinedBreakdown]
}

func newCombinedRecord() *CombinedRecord {
	r := &CombinedRecord{Votes: ordered.New[string, *CombinedBreakdown]()}
	for i := range r.series {
		r.series[i] = newSeries()
	}
	return r
}

// Series returns the series of metric m.
func (r *CombinedRecord) Series(m Metric) *Series {
	return r.series[m]
}

// Value returns the value of metric m for electionID, if recorded.
func (r *CombinedRecord) Value(m Metric, electionID string) (int64, bool) {
	p, ok := r.series[m].Get(electionID)
	if !ok {
		return 0, false
	}
	return p.Value, true
}

// Combined folds rows of every election into per-level records that live for
// the whole run.
type Combined struct {
	levels [4]*ordered.Map[string, *CombinedRecord]
}

// NewCombined returns an empty cross-election aggregator.
func NewCombined() *Combined {
	c := &Combined{}
	for i := range c.levels {
		c.levels[i] = ordered.New[string, *CombinedRecord]()
	}
	return c
}

// Records returns the records of level l keyed by level id.
func (c *Combined) Records(l hierarchy.Level) *ordered.Map[string, *CombinedRecord] {
	return c.levels[l]
}

// Record looks up the record for key at level l without creating it.
func (c *Combined) Record(l hierarchy.Level, key string) (*CombinedRecord, bool) {
	return c.levels[l].Get(key)
}

func (c *Combined) record(l hierarchy.Level, key string) *CombinedRecord {
	r := c.levels[l].GetOrInsert(key, newCombinedRecord)
	r.ID = key
	return r
}

// FoldProtocol adds a protocol row of electionID into every level it rolls
// up into.
func (c *Combined) FoldProtocol(electionID string, p election.ProtocolRow) {
	keys := hierarchy.KeysFor(p.SectionID)
	delta := contribution(p)
	for _, l := range hierarchy.Levels() {
		r := c.record(l, keys.For(l))
		for _, m := range Metrics() {
			if m.Derived() {
				continue
			}
			at(r.series[m], electionID).Value += delta.Get(m)
		}
		for _, m := range []Metric{UrnBallots, ValidVotes} {
			a, b := derivedFrom(m)
			at(r.series[m], electionID).Value = at(r.series[a], electionID).Value + at(r.series[b], electionID).Value
		}
	}
}

// FoldVotes adds a vote row of electionID into the participant's series at
// every level.
func (c *Combined) FoldVotes(electionID string, v election.VoteRow) {
	keys := hierarchy.KeysFor(v.SectionID)
	for _, l := range hierarchy.Levels() {
		b := c.record(l, keys.For(l)).Votes.GetOrInsert(v.ParticipantID, newCombinedBreakdown)
		b.ID = v.ParticipantID
		b.Name = v.ParticipantName
		paper := at(b.Paper, electionID)
		paper.Value += v.PaperVotes
		machine := at(b.Machine, electionID)
		machine.Value += v.MachineVotes
		at(b.MachineData, electionID).Value += v.MachineDataVotes
		at(b.Total, electionID).Value = paper.Value + machine.Value
	}
}
