// Package audit cross-checks aggregated records against sums computed
// independently by DuckDB straight from the source tables.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // Driver

	"github.com/brensch/electionjson/internal/aggregate"
	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/hierarchy"
)

// Audit log events.
const (
	EventCheckOK       = "check_ok"
	EventCheckMismatch = "check_mismatch"
	EventCheckError    = "check_error"
)

const schemaSequenceSQL = `CREATE SEQUENCE IF NOT EXISTS audit_log_id_seq;`
const schemaTableSQL = `
CREATE TABLE IF NOT EXISTS audit_log (
    log_id      BIGINT PRIMARY KEY DEFAULT nextval('audit_log_id_seq'),
    election_id VARCHAR NOT NULL,
    event       VARCHAR NOT NULL,
    message     VARCHAR,
    checked_at  TIMESTAMP NOT NULL,
    duration_ms BIGINT
);
`

// protocolSums lists the SQL expression summed for each additive metric.
var protocolSums = []struct {
	metric aggregate.Metric
	expr   string
}{
	{aggregate.PreRegisteredVoters, col(election.ColPreRegisteredVoters)},
	{aggregate.RegisteredVoters, col(election.ColRegisteredVoters)},
	{aggregate.OnsiteListedVoters, col(election.ColOnsiteListedVoters)},
	{aggregate.VotedVoters, col(election.ColVotedVoters)},
	{aggregate.DistributedBallots, col(election.ColDistributedBallots)},
	{aggregate.UnusedPaperBallots, col(election.ColUnusedPaperBallots)},
	{aggregate.DestroyedPaperBallots, col(election.ColDestroyedPaperBallots)},
	{aggregate.UrnPaperBallots, col(election.ColUrnPaperBallots)},
	{aggregate.UrnMachineBallots, col(election.ColUrnMachineBallots)},
	{aggregate.InvalidPaperBallots, col(election.ColInvalidPaperBallots)},
	{aggregate.ValidVotesForParties, col(election.ColValidPaperVotesForParties) + " + " + col(election.ColValidMachineVotesForParties)},
	{aggregate.SupportNoone, col(election.ColSupportNoonePaperBallots) + " + " + col(election.ColSupportNooneMachineBallots)},
}

func col(name string) string {
	return fmt.Sprintf("CAST(TRIM(%s) AS BIGINT)", name)
}

func sum(expr string) string {
	return fmt.Sprintf("CAST(SUM(%s) AS BIGINT)", expr)
}

// readCSV renders a read_csv call for path. DuckDB wants forward slashes and
// single quotes doubled.
func readCSV(path string) string {
	p := strings.ReplaceAll(path, `\`, `/`)
	p = strings.ReplaceAll(p, "'", "''")
	return fmt.Sprintf("read_csv('%s', delim=';', header=true, all_varchar=true)", p)
}

// Mismatch is one value the aggregator and DuckDB disagree on.
type Mismatch struct {
	Level    string
	Key      string
	Metric   string
	Expected int64
	Actual   int64
}

// MismatchError reports every disagreement found for one election.
type MismatchError struct {
	ElectionID string
	Mismatches []Mismatch
}

func (e *MismatchError) Error() string {
	first := e.Mismatches[0]
	return fmt.Sprintf("audit of election %s found %d mismatches, first: %s %s %s expected %d got %d",
		e.ElectionID, len(e.Mismatches), first.Level, first.Key, first.Metric, first.Expected, first.Actual)
}

// Event is one audit_log row.
type Event struct {
	ElectionID string
	Event      string
	Message    string
	CheckedAt  time.Time
}

// Auditor owns the DuckDB connection used for checks and the audit log.
type Auditor struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to the DuckDB database at dbPath (":memory:" for a
// throwaway database) and creates the audit log.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Auditor, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb database (%s): %w", dbPath, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping duckdb database (%s): %w", dbPath, err)
	}
	if _, err := db.ExecContext(ctx, schemaSequenceSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute sequence setup: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute table setup: %w", err)
	}
	logger.Info("Audit database ready.", slog.String("path", dbPath))
	return &Auditor{db: db, logger: logger}, nil
}

// Close closes the database.
func (a *Auditor) Close() error {
	return a.db.Close()
}

// CheckElection recomputes region and national protocol sums and national
// per-participant votes from the source tables and compares them with s.
func (a *Auditor) CheckElection(ctx context.Context, protocolsPath, votesPath string, s *aggregate.Single) error {
	start := time.Now()
	l := a.logger.With(slog.String("election", s.ElectionID()))

	var mismatches []Mismatch
	protocolMismatches, err := a.checkProtocols(ctx, protocolsPath, s)
	if err == nil {
		mismatches = append(mismatches, protocolMismatches...)
		var voteMismatches []Mismatch
		voteMismatches, err = a.checkVotes(ctx, votesPath, s)
		mismatches = append(mismatches, voteMismatches...)
	}
	duration := time.Since(start)

	if err != nil {
		a.logEvent(ctx, s.ElectionID(), EventCheckError, err.Error(), duration)
		return fmt.Errorf("audit election %s: %w", s.ElectionID(), err)
	}
	if len(mismatches) > 0 {
		mErr := &MismatchError{ElectionID: s.ElectionID(), Mismatches: mismatches}
		a.logEvent(ctx, s.ElectionID(), EventCheckMismatch, mErr.Error(), duration)
		l.Error("Audit found mismatches.", slog.Int("count", len(mismatches)))
		return mErr
	}
	a.logEvent(ctx, s.ElectionID(), EventCheckOK, "", duration)
	l.Info("Audit passed.", slog.Duration("duration", duration))
	return nil
}

func (a *Auditor) checkProtocols(ctx context.Context, path string, s *aggregate.Single) ([]Mismatch, error) {
	sums := make([]string, 0, len(protocolSums))
	for _, ps := range protocolSums {
		sums = append(sums, sum(ps.expr))
	}
	query := fmt.Sprintf(`SELECT substr(%[1]s, 1, 2) AS rik, %[2]s FROM %[3]s GROUP BY GROUPING SETS ((substr(%[1]s, 1, 2)), ()) ORDER BY rik NULLS LAST;`,
		election.ColSectionID, strings.Join(sums, ", "), readCSV(path))

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query protocol sums: %w", err)
	}
	defer rows.Close()

	var mismatches []Mismatch
	seen := 0
	for rows.Next() {
		var rik sql.NullString
		values := make([]sql.NullInt64, len(protocolSums))
		dest := []any{&rik}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan protocol sums: %w", err)
		}

		level, key := hierarchy.Region, rik.String
		if !rik.Valid {
			if !values[0].Valid {
				continue // empty table: the grand total row is all NULL
			}
			level, key = hierarchy.Total, hierarchy.TotalKey
		}
		seen++
		r, ok := s.Record(level, key)
		if !ok {
			mismatches = append(mismatches, Mismatch{Level: level.Category(), Key: key, Metric: "record"})
			continue
		}
		for i, ps := range protocolSums {
			if got := r.Get(ps.metric); got != values[i].Int64 {
				mismatches = append(mismatches, Mismatch{
					Level:    level.Category(),
					Key:      key,
					Metric:   ps.metric.String(),
					Expected: values[i].Int64,
					Actual:   got,
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate protocol sums: %w", err)
	}
	a.logger.Debug("Checked protocol sums.", slog.String("election", s.ElectionID()), slog.Int("groups", seen))
	return mismatches, nil
}

func (a *Auditor) checkVotes(ctx context.Context, path string, s *aggregate.Single) ([]Mismatch, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s GROUP BY 1 ORDER BY 1;`,
		election.ColParticipantCode,
		sum(col(election.ColPaperVotes)),
		sum(col(election.ColMachineVotes)),
		sum(col(election.ColMachineDataVotes)),
		readCSV(path))

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query vote sums: %w", err)
	}
	defer rows.Close()

	total, hasTotal := s.Record(hierarchy.Total, hierarchy.TotalKey)
	var mismatches []Mismatch
	participants := 0
	for rows.Next() {
		var pid string
		var paper, machine, machineData sql.NullInt64
		if err := rows.Scan(&pid, &paper, &machine, &machineData); err != nil {
			return nil, fmt.Errorf("scan vote sums: %w", err)
		}
		participants++
		if !hasTotal {
			mismatches = append(mismatches, Mismatch{Level: hierarchy.Total.Category(), Key: hierarchy.TotalKey, Metric: "record"})
			break
		}
		b, ok := total.Votes.Get(pid)
		if !ok {
			mismatches = append(mismatches, Mismatch{Level: hierarchy.Total.Category(), Key: pid, Metric: "participant"})
			continue
		}
		for _, c := range []struct {
			metric   string
			expected int64
			actual   int64
		}{
			{"paper_votes", paper.Int64, b.Paper},
			{"machine_votes", machine.Int64, b.Machine},
			{"machine_data_votes", machineData.Int64, b.MachineData},
		} {
			if c.expected != c.actual {
				mismatches = append(mismatches, Mismatch{Level: hierarchy.Total.Category(), Key: pid, Metric: c.metric, Expected: c.expected, Actual: c.actual})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote sums: %w", err)
	}
	if hasTotal && total.Votes.Len() != participants {
		mismatches = append(mismatches, Mismatch{
			Level:    hierarchy.Total.Category(),
			Key:      hierarchy.TotalKey,
			Metric:   "participants",
			Expected: int64(participants),
			Actual:   int64(total.Votes.Len()),
		})
	}
	return mismatches, nil
}

// logEvent records an audit outcome. Failures are logged, not returned: the
// check result is what matters to the caller.
func (a *Auditor) logEvent(ctx context.Context, electionID, event, message string, duration time.Duration) {
	query := `INSERT INTO audit_log (election_id, event, message, checked_at, duration_ms) VALUES (?, ?, ?, ?, ?);`
	_, err := a.db.ExecContext(ctx, query,
		electionID,
		event,
		sql.NullString{String: message, Valid: message != ""},
		time.Now().UTC(),
		duration.Milliseconds(),
	)
	if err != nil {
		a.logger.Warn("Failed to write audit log.", slog.String("election", electionID), "error", err)
	}
}

// Events returns the audit log of electionID, oldest first.
func (a *Auditor) Events(ctx context.Context, electionID string) ([]Event, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT election_id, event, message, checked_at FROM audit_log WHERE election_id = ? ORDER BY log_id;`, electionID)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var msg sql.NullString
		if err := rows.Scan(&e.ElectionID, &e.Event, &msg, &e.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.Message = msg.String
		out = append(out, e)
	}
	return out, rows.Err()
}
