// Package export writes section-level election records as Parquet files for
// ad hoc analysis alongside the JSON tree.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/brensch/electionjson/internal/aggregate"
	"github.com/brensch/electionjson/internal/hierarchy"
)

// SectionRow is one section's counters in one election.
type SectionRow struct {
	SectionID             string `parquet:"name=section_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ElectionID            string `parquet:"name=election_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	PreRegisteredVoters   int64  `parquet:"name=pre_registered_voters, type=INT64"`
	RegisteredVoters      int64  `parquet:"name=registered_voters, type=INT64"`
	OnsiteListedVoters    int64  `parquet:"name=onsite_listed_voters, type=INT64"`
	VotedVoters           int64  `parquet:"name=voted_voters, type=INT64"`
	DistributedBallots    int64  `parquet:"name=distributed_ballots, type=INT64"`
	UnusedPaperBallots    int64  `parquet:"name=unused_paper_ballots, type=INT64"`
	DestroyedPaperBallots int64  `parquet:"name=destroyed_paper_ballots, type=INT64"`
	UrnBallots            int64  `parquet:"name=urn_ballots, type=INT64"`
	UrnPaperBallots       int64  `parquet:"name=urn_paper_ballots, type=INT64"`
	UrnMachineBallots     int64  `parquet:"name=urn_machine_ballots, type=INT64"`
	InvalidPaperBallots   int64  `parquet:"name=invalid_paper_ballots, type=INT64"`
	ValidVotes            int64  `parquet:"name=valid_votes, type=INT64"`
	ValidVotesForParties  int64  `parquet:"name=valid_votes_for_parties, type=INT64"`
	SupportNoone          int64  `parquet:"name=support_noone, type=INT64"`
}

// SectionVoteRow is one participant's votes in one section.
type SectionVoteRow struct {
	SectionID       string `parquet:"name=section_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ParticipantID   string `parquet:"name=participant_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ParticipantName string `parquet:"name=participant_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Paper           int64  `parquet:"name=paper_votes, type=INT64"`
	Machine         int64  `parquet:"name=machine_votes, type=INT64"`
	MachineData     int64  `parquet:"name=machine_data_votes, type=INT64"`
	Total           int64  `parquet:"name=total_votes, type=INT64"`
}

// SectionsFile and SectionVotesFile name the files written for an election.
func SectionsFile(electionID string) string     { return electionID + "_sections.parquet" }
func SectionVotesFile(electionID string) string { return electionID + "_section_votes.parquet" }

// SectionRows flattens the section level of s, ordered by section id.
func SectionRows(s *aggregate.Single) []SectionRow {
	records := s.Records(hierarchy.Section)
	out := make([]SectionRow, 0, records.Len())
	for _, r := range records.SortedValues() {
		out = append(out, SectionRow{
			SectionID:             r.ID,
			ElectionID:            r.ElectionID,
			PreRegisteredVoters:   r.PreRegisteredVoters,
			RegisteredVoters:      r.RegisteredVoters,
			OnsiteListedVoters:    r.OnsiteListedVoters,
			VotedVoters:           r.VotedVoters,
			DistributedBallots:    r.DistributedBallots,
			UnusedPaperBallots:    r.UnusedPaperBallots,
			DestroyedPaperBallots: r.DestroyedPaperBallots,
			UrnBallots:            r.UrnBallots,
			UrnPaperBallots:       r.UrnPaperBallots,
			UrnMachineBallots:     r.UrnMachineBallots,
			InvalidPaperBallots:   r.InvalidPaperBallots,
			ValidVotes:            r.ValidVotes,
			ValidVotesForParties:  r.ValidVotesForParties,
			SupportNoone:          r.SupportNoone,
		})
	}
	return out
}

// SectionVoteRows flattens every section's breakdowns, ordered by section id
// then participant id.
func SectionVoteRows(s *aggregate.Single) []SectionVoteRow {
	var out []SectionVoteRow
	for _, r := range s.Records(hierarchy.Section).SortedValues() {
		for _, b := range r.Votes.SortedValues() {
			out = append(out, SectionVoteRow{
				SectionID:       r.ID,
				ParticipantID:   b.ID,
				ParticipantName: b.Name,
				Paper:           b.Paper,
				Machine:         b.Machine,
				MachineData:     b.MachineData,
				Total:           b.Total,
			})
		}
	}
	return out
}

// WriteElection writes both Parquet files for s into dir.
func WriteElection(dir string, s *aggregate.Single, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create parquet directory %s: %w", dir, err)
	}

	sections := SectionRows(s)
	path := filepath.Join(dir, SectionsFile(s.ElectionID()))
	if err := writeRows(path, new(SectionRow), sections); err != nil {
		return err
	}
	logger.Info("Wrote section parquet.", slog.String("path", path), slog.Int("rows", len(sections)))

	votes := SectionVoteRows(s)
	path = filepath.Join(dir, SectionVotesFile(s.ElectionID()))
	if err := writeRows(path, new(SectionVoteRow), votes); err != nil {
		return err
	}
	logger.Info("Wrote section votes parquet.", slog.String("path", path), slog.Int("rows", len(votes)))
	return nil
}

func writeRows[T any](path string, schema *T, rows []T) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet %s: %w", path, err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close parquet %s: %w", path, cerr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, schema, 1)
	if err != nil {
		return fmt.Errorf("init parquet writer %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			return fmt.Errorf("write parquet row %d to %s: %w", i, path, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet %s: %w", path, err)
	}
	return nil
}
