// Package materialize turns aggregate records into the JSON documents read
// by the front end. The short field codes exist only here.
package materialize

import (
	"github.com/brensch/electionjson/internal/aggregate"
)

// VoteBreakdownDoc is a participant's votes in a single-election document.
type VoteBreakdownDoc struct {
	ID          string `json:"id"`
	Name        string `json:"n"`
	Paper       int64  `json:"p"`
	Machine     int64  `json:"m"`
	MachineData int64  `json:"md"`
	Total       int64  `json:"t"`
}

// ElectionDoc is the single-election document of one level key.
type ElectionDoc struct {
	ID                    string             `json:"id"`
	ElectionID            string             `json:"e"`
	PreRegisteredVoters   int64              `json:"prv"`
	RegisteredVoters      int64              `json:"rv"`
	OnsiteListedVoters    int64              `json:"olv"`
	VotedVoters           int64              `json:"v"`
	DistributedBallots    int64              `json:"db"`
	UnusedPaperBallots    int64              `json:"uupb"`
	DestroyedPaperBallots int64              `json:"dpb"`
	UrnBallots            int64              `json:"ub"`
	UrnPaperBallots       int64              `json:"upb"`
	UrnMachineBallots     int64              `json:"umb"`
	InvalidPaperBallots   int64              `json:"ipb"`
	ValidVotes            int64              `json:"vv"`
	ValidVotesForParties  int64              `json:"vvp"`
	SupportNoone          int64              `json:"vvsn"`
	Votes                 []VoteBreakdownDoc `json:"vd"`
}

// PointDoc is one election's value in a series.
type PointDoc struct {
	ElectionID string `json:"e"`
	Value      int64  `json:"v"`
}

// CombinedBreakdownDoc is a participant's votes as series over elections.
type CombinedBreakdownDoc struct {
	ID          string     `json:"id"`
	Name        string     `json:"n"`
	Paper       []PointDoc `json:"p"`
	Machine     []PointDoc `json:"m"`
	MachineData []PointDoc `json:"md"`
	Total       []PointDoc `json:"t"`
}

// CombinedDoc is the cross-election document of one level key.
type CombinedDoc struct {
	ID                    string                 `json:"id"`
	PreRegisteredVoters   []PointDoc             `json:"prv"`
	RegisteredVoters      []PointDoc             `json:"rv"`
	OnsiteListedVoters    []PointDoc             `json:"olv"`
	VotedVoters           []PointDoc             `json:"v"`
	DistributedBallots    []PointDoc             `json:"db"`
	UnusedPaperBallots    []PointDoc             `json:"uupb"`
	DestroyedPaperBallots []PointDoc             `json:"dpb"`
	UrnBallots            []PointDoc             `json:"ub"`
	UrnPaperBallots       []PointDoc             `json:"upb"`
	UrnMachineBallots     []PointDoc             `json:"umb"`
	InvalidPaperBallots   []PointDoc             `json:"ipb"`
	ValidVotes            []PointDoc             `json:"vv"`
	ValidVotesForParties  []PointDoc             `json:"vvp"`
	SupportNoone          []PointDoc             `json:"vvsn"`
	Votes                 []CombinedBreakdownDoc `json:"vd"`
}

// ElectionDocument converts a single-election record. Breakdowns are sorted
// by participant id.
func ElectionDocument(r *aggregate.Record) ElectionDoc {
	doc := ElectionDoc{
		ID:                    r.ID,
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
		Votes:                 make([]VoteBreakdownDoc, 0, r.Votes.Len()),
	}
	for _, b := range r.Votes.SortedValues() {
		doc.Votes = append(doc.Votes, VoteBreakdownDoc{
			ID:          b.ID,
			Name:        b.Name,
			Paper:       b.Paper,
			Machine:     b.Machine,
			MachineData: b.MachineData,
			Total:       b.Total,
		})
	}
	return doc
}

// CombinedDocument converts a cross-election record. Breakdowns are sorted by
// participant id and every series by election id.
func CombinedDocument(r *aggregate.CombinedRecord) CombinedDoc {
	doc := CombinedDoc{
		ID:                    r.ID,
		PreRegisteredVoters:   seriesDoc(r.Series(aggregate.PreRegisteredVoters)),
		RegisteredVoters:      seriesDoc(r.Series(aggregate.RegisteredVoters)),
		OnsiteListedVoters:    seriesDoc(r.Series(aggregate.OnsiteListedVoters)),
		VotedVoters:           seriesDoc(r.Series(aggregate.VotedVoters)),
		DistributedBallots:    seriesDoc(r.Series(aggregate.DistributedBallots)),
		UnusedPaperBallots:    seriesDoc(r.Series(aggregate.UnusedPaperBallots)),
		DestroyedPaperBallots: seriesDoc(r.Series(aggregate.DestroyedPaperBallots)),
		UrnBallots:            seriesDoc(r.Series(aggregate.UrnBallots)),
		UrnPaperBallots:       seriesDoc(r.Series(aggregate.UrnPaperBallots)),
		UrnMachineBallots:     seriesDoc(r.Series(aggregate.UrnMachineBallots)),
		InvalidPaperBallots:   seriesDoc(r.Series(aggregate.InvalidPaperBallots)),
		ValidVotes:            seriesDoc(r.Series(aggregate.ValidVotes)),
		ValidVotesForParties:  seriesDoc(r.Series(aggregate.ValidVotesForParties)),
		SupportNoone:          seriesDoc(r.Series(aggregate.SupportNoone)),
		Votes:                 make([]CombinedBreakdownDoc, 0, r.Votes.Len()),
	}
	for _, b := range r.Votes.SortedValues() {
		doc.Votes = append(doc.Votes, CombinedBreakdownDoc{
			ID:          b.ID,
			Name:        b.Name,
			Paper:       seriesDoc(b.Paper),
			Machine:     seriesDoc(b.Machine),
			MachineData: seriesDoc(b.MachineData),
			Total:       seriesDoc(b.Total),
		})
	}
	return doc
}

func seriesDoc(s *aggregate.Series) []PointDoc {
	out := make([]PointDoc, 0, s.Len())
	for _, p := range s.SortedValues() {
		out = append(out, PointDoc{ElectionID: p.ElectionID, Value: p.Value})
	}
	return out
}
