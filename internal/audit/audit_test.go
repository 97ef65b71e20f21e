package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/electionjson/internal/aggregate"
	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/hierarchy"
)

const protocolsCSV = `section_id;pre_registered_voters;registered_voters;onsite_listed_voters;voted_voters;distributed_ballots;unused_paper_ballots;destroyed_paper_ballots;urn_paper_ballots;urn_machine_ballots;invalid_paper_ballots;valid_paper_votes_for_parties;valid_machine_votes_for_parties;support_noone_paper_ballots;support_noone_machine_ballots
010100001;1;100;2;60;100;40;0;30;30;1;25;28;2;2
010100001;0;50;0;20;50;30;0;10;10;0;9;10;1;0
020300007;3;200;5;150;200;50;1;100;50;4;90;48;3;2
`

const votesCSV = `section_id;rik_code;municipality_code;participant_code;participant_name;paper_votes;machine_votes;machine_data_votes
010100001;01;0101;P1;One;10;5;5
010100001;01;0101;P2;Two;15;23;23
020300007;02;0203;P1;One;50;20;20
020300007;02;0203;P2;Two;40;28;28
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTables(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	protocols := filepath.Join(dir, "41_protocols.csv")
	votes := filepath.Join(dir, "51_votes_combined.csv")
	require.NoError(t, os.WriteFile(protocols, []byte(protocolsCSV), 0o644))
	require.NoError(t, os.WriteFile(votes, []byte(votesCSV), 0o644))
	return protocols, votes
}

func fold(t *testing.T, protocols, votes string) *aggregate.Single {
	t.Helper()
	s := aggregate.NewSingle("20210404")
	require.NoError(t, election.EachProtocolRow(protocols, ';', func(p election.ProtocolRow) error {
		s.FoldProtocol(p)
		return nil
	}))
	require.NoError(t, election.EachVoteRow(votes, ';', func(v election.VoteRow) error {
		s.FoldVotes(v)
		return nil
	}))
	return s
}

func openAuditor(t *testing.T) *Auditor {
	t.Helper()
	a, err := Open(context.Background(), ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestCheckElectionPasses(t *testing.T) {
	ctx := context.Background()
	protocols, votes := writeTables(t)
	a := openAuditor(t)

	require.NoError(t, a.CheckElection(ctx, protocols, votes, fold(t, protocols, votes)))

	events, err := a.Events(ctx, "20210404")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventCheckOK, events[0].Event)
}

func TestCheckElectionFindsTamperedTotals(t *testing.T) {
	ctx := context.Background()
	protocols, votes := writeTables(t)
	a := openAuditor(t)

	s := fold(t, protocols, votes)
	r, ok := s.Record(hierarchy.Region, "02")
	require.True(t, ok)
	r.RegisteredVoters++
	total, _ := s.Record(hierarchy.Total, hierarchy.TotalKey)
	p1, _ := total.Votes.Get("P1")
	p1.Paper--

	err := a.CheckElection(ctx, protocols, votes, s)
	var mErr *MismatchError
	require.True(t, errors.As(err, &mErr))
	require.Len(t, mErr.Mismatches, 2)
	assert.Equal(t, Mismatch{Level: "riks", Key: "02", Metric: "registered_voters", Expected: 200, Actual: 201}, mErr.Mismatches[0])
	assert.Equal(t, Mismatch{Level: "total", Key: "P1", Metric: "paper_votes", Expected: 60, Actual: 59}, mErr.Mismatches[1])

	events, err := a.Events(ctx, "20210404")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventCheckMismatch, events[0].Event)
	assert.True(t, strings.Contains(events[0].Message, "2 mismatches"))
}

func TestCheckElectionMissingTable(t *testing.T) {
	ctx := context.Background()
	_, votes := writeTables(t)
	a := openAuditor(t)

	err := a.CheckElection(ctx, filepath.Join(t.TempDir(), "missing.csv"), votes, aggregate.NewSingle("20210404"))
	require.Error(t, err)

	events, err := a.Events(ctx, "20210404")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventCheckError, events[0].Event)
}

func TestReadCSVQuotesPath(t *testing.T) {
	assert.Equal(t, `read_csv('C:/data/o''brien.csv', delim=';', header=true, all_varchar=true)`, readCSV(`C:\data\o'brien.csv`))
}
