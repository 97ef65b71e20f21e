package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/brensch/electionjson/internal/aggregate"
	"github.com/brensch/electionjson/internal/audit"
	"github.com/brensch/electionjson/internal/config"
	"github.com/brensch/electionjson/internal/election"
	"github.com/brensch/electionjson/internal/export"
	"github.com/brensch/electionjson/internal/materialize"
	"github.com/brensch/electionjson/internal/reference"
)

// paths resolves input tables under the data directory.
type paths struct {
	dataDir string
}

func (p paths) common(name string) string {
	return filepath.Join(p.dataDir, config.CommonDir, name)
}

func (p paths) election(electionID, name string) string {
	return filepath.Join(p.dataDir, electionID, name)
}

func (p paths) processed(name string) string {
	return filepath.Join(p.dataDir, config.ProcessedDir, name)
}

// Run converts every input table under cfg.DataDir into the JSON tree at
// root. It stops at the first error; files already written stay in place.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, root string) error {
	start := time.Now()
	in := paths{dataDir: cfg.DataDir}
	w := materialize.NewWriter(root, logger)
	logger.Info("Starting conversion.", slog.String("data_dir", cfg.DataDir), slog.String("output_dir", root))

	var auditor *audit.Auditor
	if cfg.Audit {
		var err error
		auditor, err = audit.Open(ctx, cfg.AuditDB, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := auditor.Close(); err != nil {
				logger.Error("Failed to close audit database cleanly.", "error", err)
			}
		}()
	}

	elections, err := election.LoadElections(in.common(config.ElectionsFile), config.DefaultDelimiter)
	if err != nil {
		return fmt.Errorf("load elections: %w", err)
	}
	logger.Info("Loaded elections.", slog.Int("count", len(elections)))

	if err := writeReference(w, in, elections, logger); err != nil {
		return err
	}

	combined := aggregate.NewCombined()
	for i, e := range elections {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("conversion cancelled before election %s: %w", e.ID, err)
		}
		l := logger.With(slog.String("election", e.ID), slog.Int("election_num", i+1), slog.Int("total_elections", len(elections)))
		if err := convertElection(ctx, cfg, w, in, e, combined, auditor, l); err != nil {
			return err
		}
	}

	if err := w.WriteCombined(config.CombinedOutputDir, combined); err != nil {
		return fmt.Errorf("write combined view: %w", err)
	}

	history, err := reference.LoadSectionTotalVotes(in.processed(config.SectionTotalVotesFile), config.DefaultDelimiter)
	if err != nil {
		return fmt.Errorf("load section total votes: %w", err)
	}
	if err := w.WriteJSON(materialize.IndexPath(config.CustomOutputDir, config.SectionTotalVotesEntry), history); err != nil {
		return err
	}

	logger.Info("Conversion finished.", slog.Int("files_written", w.Written()), slog.Duration("duration", time.Since(start)))
	return nil
}

func writeReference(w *materialize.Writer, in paths, elections []election.Election, logger *slog.Logger) error {
	regions, err := reference.LoadRegions(in.common(config.RiksFile), config.DefaultDelimiter)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}
	if err := w.WriteJSON(materialize.IndexPath(config.CommonOutputDir, "riks"), regions); err != nil {
		return err
	}

	municipalities, err := reference.LoadMunicipalities(in.common(config.MunicipalitiesFile), config.DefaultDelimiter)
	if err != nil {
		return fmt.Errorf("load municipalities: %w", err)
	}
	if err := w.WriteJSON(materialize.IndexPath(config.CommonOutputDir, "municipalities"), municipalities); err != nil {
		return err
	}

	index, err := reference.ElectionIndex(elections)
	if err != nil {
		return err
	}
	if err := w.WriteJSON(materialize.IndexPath(config.CommonOutputDir, "elections"), index); err != nil {
		return err
	}

	participants := reference.NewParticipants()
	for _, e := range elections {
		if err := participants.Add(e.ID, in.election(e.ID, config.ParticipantsFile), config.DefaultDelimiter); err != nil {
			return err
		}
	}
	if err := w.WriteJSON(materialize.IndexPath(config.CommonOutputDir, "participants"), participants.Sorted()); err != nil {
		return err
	}

	logger.Info("Wrote reference data.",
		slog.Int("regions", len(regions)),
		slog.Int("municipalities", len(municipalities)),
		slog.Int("elections", len(index)))
	return nil
}

// convertElection folds one election into a fresh single-election aggregator
// and into combined, then writes the single-election view. Protocol rows are
// always folded before vote rows.
func convertElection(ctx context.Context, cfg config.Config, w *materialize.Writer, in paths, e election.Election, combined *aggregate.Combined, auditor *audit.Auditor, l *slog.Logger) error {
	start := time.Now()
	protocolsPath := in.election(e.ID, config.ProtocolsFile)
	votesPath := in.election(e.ID, config.VotesFile)
	single := aggregate.NewSingle(e.ID)

	protocols := 0
	err := election.EachProtocolRow(protocolsPath, config.DefaultDelimiter, func(p election.ProtocolRow) error {
		single.FoldProtocol(p)
		combined.FoldProtocol(e.ID, p)
		protocols++
		return nil
	})
	if err != nil {
		return fmt.Errorf("fold protocols of %s: %w", e.ID, err)
	}

	votes := 0
	err = election.EachVoteRow(votesPath, config.DefaultDelimiter, func(v election.VoteRow) error {
		single.FoldVotes(v)
		combined.FoldVotes(e.ID, v)
		votes++
		return nil
	})
	if err != nil {
		return fmt.Errorf("fold votes of %s: %w", e.ID, err)
	}
	l.Info("Folded election tables.", slog.Int("protocol_rows", protocols), slog.Int("vote_rows", votes))

	if auditor != nil {
		if err := auditor.CheckElection(ctx, protocolsPath, votesPath, single); err != nil {
			return err
		}
	}

	if err := w.WriteSingle(single); err != nil {
		return fmt.Errorf("write election %s: %w", e.ID, err)
	}

	if cfg.ParquetDir != "" {
		if err := export.WriteElection(cfg.ParquetDir, single, l); err != nil {
			return fmt.Errorf("export election %s: %w", e.ID, err)
		}
	}

	l.Info("Election converted.", slog.Duration("duration", time.Since(start)))
	return nil
}
