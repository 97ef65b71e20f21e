package election

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/electionjson/internal/rowsource"
)

var protocolHeader = []string{
	ColSectionID, ColPreRegisteredVoters, ColRegisteredVoters, ColOnsiteListedVoters,
	ColVotedVoters, ColDistributedBallots, ColUnusedPaperBallots, ColDestroyedPaperBallots,
	ColUrnPaperBallots, ColUrnMachineBallots, ColInvalidPaperBallots,
	ColValidPaperVotesForParties, ColValidMachineVotesForParties,
	ColSupportNoonePaperBallots, ColSupportNooneMachineBallots,
}

func protocolValues(section string, start int) []string {
	values := []string{section}
	for i := 1; i < len(protocolHeader); i++ {
		values = append(values, strconv.Itoa(start+i))
	}
	return values
}

func TestParseProtocolRow(t *testing.T) {
	row := rowsource.NewRow(protocolHeader, protocolValues("010100001", 0))

	p, err := ParseProtocolRow(row)
	require.NoError(t, err)
	assert.Equal(t, ProtocolRow{
		SectionID:                   "010100001",
		PreRegisteredVoters:         1,
		RegisteredVoters:            2,
		OnsiteListedVoters:          3,
		VotedVoters:                 4,
		DistributedBallots:          5,
		UnusedPaperBallots:          6,
		DestroyedPaperBallots:       7,
		UrnPaperBallots:             8,
		UrnMachineBallots:           9,
		InvalidPaperBallots:         10,
		ValidPaperVotesForParties:   11,
		ValidMachineVotesForParties: 12,
		SupportNoonePaperBallots:    13,
		SupportNooneMachineBallots:  14,
	}, p)
}

func TestParseProtocolRowMissingField(t *testing.T) {
	row := rowsource.NewRow(protocolHeader[:5], protocolValues("01", 0)[:5])

	_, err := ParseProtocolRow(row)
	var malformed *MalformedRowError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, ColDistributedBallots, malformed.Field)
}

func TestParseVoteRow(t *testing.T) {
	header := []string{ColSectionID, ColParticipantCode, ColParticipantName, ColPaperVotes, ColMachineVotes, ColMachineDataVotes}

	v, err := ParseVoteRow(rowsource.NewRow(header, []string{"010101", "P1", "Партия", " 10 ", "5", "4"}))
	require.NoError(t, err)
	assert.Equal(t, VoteRow{
		SectionID:        "010101",
		ParticipantID:    "P1",
		ParticipantName:  "Партия",
		PaperVotes:       10,
		MachineVotes:     5,
		MachineDataVotes: 4,
	}, v)

	_, err = ParseVoteRow(rowsource.NewRow(header, []string{"010101", "P1", "x", "", "5", "4"}))
	var malformed *MalformedRowError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, ColPaperVotes, malformed.Field)
	assert.NotNil(t, malformed.Unwrap())
}

func TestEachProtocolRowReportsRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocols.csv")
	good := strings.Join(protocolValues("010101", 0), ";")
	bad := strings.Join(append(protocolValues("010102", 0)[:3], "x"), ";")
	content := strings.Join(protocolHeader, ";") + "\n" + good + "\n" + bad + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	var seen []string
	err := EachProtocolRow(path, ';', func(p ProtocolRow) error {
		seen = append(seen, p.SectionID)
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Equal(t, []string{"010101"}, seen)
}

func TestLoadElectionsSortedAndDeduplicated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elections.csv")
	content := "id;label\n20230402;ns2023\n20210404;ns2021a\n20210404;ns2021\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	elections, err := LoadElections(path, ';')
	require.NoError(t, err)
	assert.Equal(t, []Election{
		{ID: "20210404", Label: "ns2021"},
		{ID: "20230402", Label: "ns2023"},
	}, elections)
}

func TestLoadElectionsMissingFile(t *testing.T) {
	_, err := LoadElections(filepath.Join(t.TempDir(), "nope.csv"), ';')
	var readErr *rowsource.SourceReadError
	assert.True(t, errors.As(err, &readErr))
}
