package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/hierarchy"
)

func protocol(section string, rv int64) election.ProtocolRow {
	return election.ProtocolRow{
		SectionID:                   section,
		PreRegisteredVoters:         1,
		RegisteredVoters:            rv,
		OnsiteListedVoters:          2,
		VotedVoters:                 rv / 2,
		DistributedBallots:          rv,
		UnusedPaperBallots:          3,
		DestroyedPaperBallots:       1,
		UrnPaperBallots:             rv / 4,
		UrnMachineBallots:           rv / 5,
		InvalidPaperBallots:         2,
		ValidPaperVotesForParties:   rv / 4,
		ValidMachineVotesForParties: rv / 5,
		SupportNoonePaperBallots:    1,
		SupportNooneMachineBallots:  2,
	}
}

// fixture is two elections over sections in two regions, with one short id.
var fixture = map[string]struct {
	protocols []election.ProtocolRow
	votes     []election.VoteRow
}{
	"20210404": {
		protocols: []election.ProtocolRow{
			protocol("010100001", 100),
			protocol("010100001", 50),
			protocol("010200003", 300),
			protocol("020100001", 200),
			protocol("99", 40),
		},
		votes: []election.VoteRow{
			{SectionID: "010100001", ParticipantID: "P2", ParticipantName: "Two", PaperVotes: 7, MachineVotes: 1, MachineDataVotes: 1},
			{SectionID: "010100001", ParticipantID: "P1", ParticipantName: "One", PaperVotes: 10, MachineVotes: 5, MachineDataVotes: 5},
			{SectionID: "010100001", ParticipantID: "P1", ParticipantName: "One", PaperVotes: 3},
			{SectionID: "020100001", ParticipantID: "P1", ParticipantName: "One", PaperVotes: 20, MachineVotes: 2, MachineDataVotes: 2},
		},
	},
	"20230402": {
		protocols: []election.ProtocolRow{
			protocol("010100001", 120),
			protocol("020100001", 80),
		},
		votes: []election.VoteRow{
			{SectionID: "010100001", ParticipantID: "P3", ParticipantName: "Three", PaperVotes: 4, MachineVotes: 4, MachineDataVotes: 4},
			{SectionID: "020100001", ParticipantID: "P1", ParticipantName: "One", PaperVotes: 1, MachineVotes: 1},
		},
	},
}

var fixtureOrder = []string{"20210404", "20230402"}

func foldFixture() (map[string]*Single, *Combined) {
	singles := map[string]*Single{}
	combined := NewCombined()
	for _, eid := range fixtureOrder {
		s := NewSingle(eid)
		for _, p := range fixture[eid].protocols {
			s.FoldProtocol(p)
			combined.FoldProtocol(eid, p)
		}
		for _, v := range fixture[eid].votes {
			s.FoldVotes(v)
			combined.FoldVotes(eid, v)
		}
		singles[eid] = s
	}
	return singles, combined
}

func TestRepeatedProtocolRowsAddUp(t *testing.T) {
	s := NewSingle("e1")
	s.FoldProtocol(election.ProtocolRow{SectionID: "010101", RegisteredVoters: 100})
	s.FoldProtocol(election.ProtocolRow{SectionID: "010101", RegisteredVoters: 50})

	for _, tc := range []struct {
		level hierarchy.Level
		key   string
	}{
		{hierarchy.Section, "010101"},
		{hierarchy.Municipality, "0101"},
		{hierarchy.Region, "01"},
		{hierarchy.Total, "total"},
	} {
		r, ok := s.Record(tc.level, tc.key)
		require.True(t, ok, tc.key)
		assert.Equal(t, int64(150), r.RegisteredVoters, tc.key)
		assert.Equal(t, tc.key, r.ID)
		assert.Equal(t, "e1", r.ElectionID)
	}
}

func TestRepeatedVoteRowsAddUp(t *testing.T) {
	s := NewSingle("e1")
	s.FoldVotes(election.VoteRow{SectionID: "010101", ParticipantID: "P1", ParticipantName: "One", PaperVotes: 10, MachineVotes: 5})
	s.FoldVotes(election.VoteRow{SectionID: "010101", ParticipantID: "P1", ParticipantName: "One", PaperVotes: 3})

	for _, l := range hierarchy.Levels() {
		r, ok := s.Record(l, hierarchy.KeysFor("010101").For(l))
		require.True(t, ok)
		b, ok := r.Votes.Get("P1")
		require.True(t, ok)
		assert.Equal(t, int64(13), b.Paper)
		assert.Equal(t, int64(5), b.Machine)
		assert.Equal(t, int64(18), b.Total)
		assert.Equal(t, "One", b.Name)
	}
}

func TestDerivedCountersHold(t *testing.T) {
	singles, _ := foldFixture()
	for eid, s := range singles {
		for _, l := range hierarchy.Levels() {
			for key, r := range s.Records(l).All() {
				assert.Equal(t, r.UrnPaperBallots+r.UrnMachineBallots, r.UrnBallots, "%s %s %s", eid, l, key)
				assert.Equal(t, r.ValidVotesForParties+r.SupportNoone, r.ValidVotes, "%s %s %s", eid, l, key)
				for _, b := range r.Votes.Values() {
					assert.Equal(t, b.Paper+b.Machine, b.Total)
				}
			}
		}
	}
}

func TestTotalIsSumOfSections(t *testing.T) {
	singles, _ := foldFixture()
	for eid, s := range singles {
		total, ok := s.Record(hierarchy.Total, hierarchy.TotalKey)
		require.True(t, ok)
		for _, m := range Metrics() {
			var sum int64
			for _, r := range s.Records(hierarchy.Section).Values() {
				sum += r.Get(m)
			}
			assert.Equal(t, sum, total.Get(m), "%s %s", eid, m)
		}
	}
}

func TestRegionsPartitionTotal(t *testing.T) {
	singles, _ := foldFixture()
	s := singles["20210404"]
	assert.Equal(t, []string{"01", "02", "99"}, s.Records(hierarchy.Region).SortedKeys())

	var sum int64
	for _, r := range s.Records(hierarchy.Region).Values() {
		sum += r.RegisteredVoters
	}
	total, _ := s.Record(hierarchy.Total, hierarchy.TotalKey)
	assert.Equal(t, total.RegisteredVoters, sum)

	r01, _ := s.Record(hierarchy.Region, "01")
	assert.Equal(t, int64(450), r01.RegisteredVoters)
}

func TestShortSectionIDDoesNotPanic(t *testing.T) {
	s := NewSingle("e1")
	assert.NotPanics(t, func() {
		s.FoldProtocol(election.ProtocolRow{SectionID: "9", RegisteredVoters: 1})
		s.FoldVotes(election.VoteRow{SectionID: "9", ParticipantID: "P"})
	})
	_, ok := s.Record(hierarchy.Municipality, "9")
	assert.True(t, ok)
}

func TestVotesWithoutProtocolCreateRecords(t *testing.T) {
	s := NewSingle("e1")
	s.FoldVotes(election.VoteRow{SectionID: "030300001", ParticipantID: "P9", PaperVotes: 2})
	r, ok := s.Record(hierarchy.Section, "030300001")
	require.True(t, ok)
	assert.Equal(t, "e1", r.ElectionID)
	assert.Zero(t, r.RegisteredVoters)
	assert.Equal(t, 1, r.Votes.Len())
}

func TestVotesOnlyKeyHasElectionButNoCombinedCounters(t *testing.T) {
	v := election.VoteRow{SectionID: "030300001", ParticipantID: "P9", PaperVotes: 2, MachineVotes: 1}
	s := NewSingle("e1")
	s.FoldVotes(v)
	c := NewCombined()
	c.FoldVotes("e1", v)

	r, ok := s.Record(hierarchy.Section, "030300001")
	require.True(t, ok)
	assert.Equal(t, "e1", r.ElectionID)
	assert.Zero(t, r.RegisteredVoters)

	cr, ok := c.Record(hierarchy.Section, "030300001")
	require.True(t, ok)
	for _, m := range Metrics() {
		assert.Zero(t, cr.Series(m).Len(), m.String())
	}
	cb, ok := cr.Votes.Get("P9")
	require.True(t, ok)
	total, ok := cb.Total.Get("e1")
	require.True(t, ok)
	assert.Equal(t, int64(3), total.Value)
}

func TestCombinedMatchesSingle(t *testing.T) {
	singles, combined := foldFixture()
	for eid, s := range singles {
		for _, l := range hierarchy.Levels() {
			for key, r := range s.Records(l).All() {
				cr, ok := combined.Record(l, key)
				require.True(t, ok, "%s %s", l, key)
				_, hasProtocols := cr.Value(RegisteredVoters, eid)
				for _, m := range Metrics() {
					v, ok := cr.Value(m, eid)
					if !hasProtocols {
						// a key reached only by vote rows: zero counters, no points
						assert.Zero(t, r.Get(m), "%s %s %s %s", eid, l, key, m)
						assert.False(t, ok, "%s %s %s %s", eid, l, key, m)
						continue
					}
					require.True(t, ok, "%s %s %s %s", eid, l, key, m)
					assert.Equal(t, r.Get(m), v, "%s %s %s %s", eid, l, key, m)
				}
				for pid, b := range r.Votes.All() {
					cb, ok := cr.Votes.Get(pid)
					require.True(t, ok)
					for _, pair := range []struct {
						want   int64
						series *Series
					}{
						{b.Paper, cb.Paper},
						{b.Machine, cb.Machine},
						{b.MachineData, cb.MachineData},
						{b.Total, cb.Total},
					} {
						p, ok := pair.series.Get(eid)
						require.True(t, ok)
						assert.Equal(t, pair.want, p.Value)
						assert.Equal(t, eid, p.ElectionID)
					}
				}
			}
		}
	}
}

func TestCombinedSeriesSpanElections(t *testing.T) {
	_, combined := foldFixture()
	total, ok := combined.Record(hierarchy.Total, hierarchy.TotalKey)
	require.True(t, ok)
	assert.Equal(t, fixtureOrder, total.Series(RegisteredVoters).SortedKeys())

	p1, ok := total.Votes.Get("P1")
	require.True(t, ok)
	assert.Equal(t, fixtureOrder, p1.Total.SortedKeys())
	v, _ := p1.Total.Get("20210404")
	assert.Equal(t, int64(10+5+3+20+2), v.Value)

	p3, ok := total.Votes.Get("P3")
	require.True(t, ok)
	assert.Equal(t, []string{"20230402"}, p3.Paper.SortedKeys())
}

func TestAdditiveMetrics(t *testing.T) {
	additive := AdditiveMetrics()
	assert.Len(t, additive, MetricCount-2)
	assert.NotContains(t, additive, UrnBallots)
	assert.NotContains(t, additive, ValidVotes)
	assert.Equal(t, "registered_voters", RegisteredVoters.String())
}
