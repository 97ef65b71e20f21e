package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// File and directory names under the data directory.
const (
	CommonDir              = "common"
	ProcessedDir           = "processed"
	ElectionsFile          = "elections.csv"
	RiksFile               = "riks.csv"
	MunicipalitiesFile     = "municipalities.csv"
	ParticipantsFile       = "21_participants.csv"
	ProtocolsFile          = "41_protocols.csv"
	VotesFile              = "51_votes_combined.csv"
	SectionTotalVotesFile  = "sections_total_votes.csv"
	DefaultDelimiter       = ';'
	DefaultAuditDBPath     = ":memory:"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultLogOutput       = "stderr"
	DefaultDataDir         = "data"
	CombinedOutputDir      = "combined"
	CommonOutputDir        = "common"
	CustomOutputDir        = "custom"
	SectionTotalVotesEntry = "sections_total_votes"
)

// Config holds application settings. Everything except the output root
// comes from the environment so the CLI keeps its single positional argument.
type Config struct {
	DataDir    string `env:"ELECTIONJSON_DATA_DIR" envDefault:"data"`
	LogLevel   string `env:"ELECTIONJSON_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"ELECTIONJSON_LOG_FORMAT" envDefault:"text"`
	LogOutput  string `env:"ELECTIONJSON_LOG_OUTPUT" envDefault:"stderr"`
	Audit      bool   `env:"ELECTIONJSON_AUDIT" envDefault:"false"`
	AuditDB    string `env:"ELECTIONJSON_AUDIT_DB" envDefault:":memory:"`
	ParquetDir string `env:"ELECTIONJSON_PARQUET_DIR"`
}

// Load reads Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		DataDir:   DefaultDataDir,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		LogOutput: DefaultLogOutput,
		AuditDB:   DefaultAuditDBPath,
	}
}
