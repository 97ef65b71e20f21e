// Package aggregate rolls per-section election rows up the geographic
// hierarchy, both per election and as cross-election time series.
package aggregate

import "github.com/brensch/electionjson/internal/election"

// Metric identifies one protocol counter.
type Metric int

// Metrics in output order.
const (
	PreRegisteredVoters Metric = iota
	RegisteredVoters
	OnsiteListedVoters
	VotedVoters
	DistributedBallots
	UnusedPaperBallots
	DestroyedPaperBallots
	UrnBallots
	UrnPaperBallots
	UrnMachineBallots
	InvalidPaperBallots
	ValidVotes
	ValidVotesForParties
	SupportNoone

	metricCount
)

// MetricCount is the number of protocol metrics.
const MetricCount = int(metricCount)

var metricNames = [MetricCount]string{
	"pre_registered_voters",
	"registered_voters",
	"onsite_listed_voters",
	"voted_voters",
	"distributed_ballots",
	"unused_paper_ballots",
	"destroyed_paper_ballots",
	"urn_ballots",
	"urn_paper_ballots",
	"urn_machine_ballots",
	"invalid_paper_ballots",
	"valid_votes",
	"valid_votes_for_parties",
	"support_noone",
}

// Metrics returns all metrics in output order.
func Metrics() []Metric {
	out := make([]Metric, MetricCount)
	for i := range out {
		out[i] = Metric(i)
	}
	return out
}

// AdditiveMetrics returns the metrics summed directly from rows.
func AdditiveMetrics() []Metric {
	out := make([]Metric, 0, MetricCount-2)
	for _, m := range Metrics() {
		if !m.Derived() {
			out = append(out, m)
		}
	}
	return out
}

func (m Metric) String() string {
	if m < 0 || int(m) >= MetricCount {
		return "unknown"
	}
	return metricNames[m]
}

// Derived reports whether the metric is recomputed from other metrics
// rather than accumulated.
func (m Metric) Derived() bool {
	return m == UrnBallots || m == ValidVotes
}

// Counters are the administrative totals of one record.
type Counters struct {
	PreRegisteredVoters   int64
	RegisteredVoters      int64
	OnsiteListedVoters    int64
	VotedVoters           int64
	DistributedBallots    int64
	UnusedPaperBallots    int64
	DestroyedPaperBallots int64
	UrnBallots            int64
	UrnPaperBallots       int64
	UrnMachineBallots     int64
	InvalidPaperBallots   int64
	ValidVotes            int64
	ValidVotesForParties  int64
	SupportNoone          int64
}

// contribution is what a single protocol row adds to every level it rolls
// up into. Derived fields are left at zero.
func contribution(p election.ProtocolRow) Counters {
	return Counters{
		PreRegisteredVoters:   p.PreRegisteredVoters,
		RegisteredVoters:      p.RegisteredVoters,
		OnsiteListedVoters:    p.OnsiteListedVoters,
		VotedVoters:           p.VotedVoters,
		DistributedBallots:    p.DistributedBallots,
		UnusedPaperBallots:    p.UnusedPaperBallots,
		DestroyedPaperBallots: p.DestroyedPaperBallots,
		UrnPaperBallots:       p.UrnPaperBallots,
		UrnMachineBallots:     p.UrnMachineBallots,
		InvalidPaperBallots:   p.InvalidPaperBallots,
		ValidVotesForParties:  p.ValidPaperVotesForParties + p.ValidMachineVotesForParties,
		SupportNoone:          p.SupportNoonePaperBallots + p.SupportNooneMachineBallots,
	}
}

// Get returns the value of metric m.
func (c *Counters) Get(m Metric) int64 {
	return *c.field(m)
}

func (c *Counters) field(m Metric) *int64 {
	switch m {
	case PreRegisteredVoters:
		return &c.PreRegisteredVoters
	case RegisteredVoters:
		return &c.RegisteredVoters
	case OnsiteListedVoters:
		return &c.OnsiteListedVoters
	case VotedVoters:
		return &c.VotedVoters
	case DistributedBallots:
		return &c.DistributedBallots
	case UnusedPaperBallots:
		return &c.UnusedPaperBallots
	case DestroyedPaperBallots:
		return &c.DestroyedPaperBallots
	case UrnBallots:
		return &c.UrnBallots
	case UrnPaperBallots:
		return &c.UrnPaperBallots
	case UrnMachineBallots:
		return &c.UrnMachineBallots
	case InvalidPaperBallots:
		return &c.InvalidPaperBallots
	case ValidVotes:
		return &c.ValidVotes
	case ValidVotesForParties:
		return &c.ValidVotesForParties
	case SupportNoone:
		return &c.SupportNoone
	}
	panic("aggregate: unknown metric " + m.String())
}

// add sums the additive fields of d into c and recomputes the derived ones.
func (c *Counters) add(d Counters) {
	for _, m := range AdditiveMetrics() {
		*c.field(m) += d.Get(m)
	}
	c.recompute()
}

func (c *Counters) recompute() {
	c.UrnBallots = c.UrnPaperBallots + c.UrnMachineBallots
	c.ValidVotes = c.ValidVotesForParties + c.SupportNoone
}

// derivedFrom returns the addends of a derived metric.
func derivedFrom(m Metric) (Metric, Metric) {
	switch m {
	case UrnBallots:
		return UrnPaperBallots, UrnMachineBallots
	case ValidVotes:
		return ValidVotesForParties, SupportNoone
	}
	panic("aggregate: metric is not derived: " + m.String())
}
