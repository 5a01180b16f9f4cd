package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed once
// at startup and passed into each component.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Reports   ReportsConfig   `yaml:"reports" mapstructure:"reports"`
	Artifacts ArtifactsConfig `yaml:"artifacts" mapstructure:"artifacts"`
	Presets   PresetsConfig   `yaml:"presets" mapstructure:"presets"`
	Matrix    MatrixConfig    `yaml:"matrix" mapstructure:"matrix"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the document store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// PipelineConfig configures stage execution.
type PipelineConfig struct {
	ScriptsDir         string `yaml:"scripts_dir" mapstructure:"scripts_dir"`
	WorkDir            string `yaml:"work_dir" mapstructure:"work_dir"`
	Interpreter        string `yaml:"interpreter" mapstructure:"interpreter"`
	StageTimeoutSecs   int    `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	ScoringTimeoutSecs int    `yaml:"scoring_timeout_secs" mapstructure:"scoring_timeout_secs"`
	StrategyFile       string `yaml:"strategy_file" mapstructure:"strategy_file"`
}

// ReportsConfig locates the raw evidence reports written by the retrieval
// and classification collaborators. Forecast reports are merged across all
// existing files; the first existing risk file wins; the event report is
// optional.
type ReportsConfig struct {
	ForecastFiles []string `yaml:"forecast_files" mapstructure:"forecast_files"`
	EventFile     string   `yaml:"event_file" mapstructure:"event_file"`
	RiskFiles     []string `yaml:"risk_files" mapstructure:"risk_files"`
}

// ArtifactsConfig lists the preprocessing artifacts the pipeline requires
// before any stage runs, plus the directory holding fallback copies.
type ArtifactsConfig struct {
	RiskCatalog    string `yaml:"risk_catalog" mapstructure:"risk_catalog"`
	PremiseCatalog string `yaml:"premise_catalog" mapstructure:"premise_catalog"`
	ForecastIndex  string `yaml:"forecast_index" mapstructure:"forecast_index"`
	RiskIndex      string `yaml:"risk_index" mapstructure:"risk_index"`
	DefaultsDir    string `yaml:"defaults_dir" mapstructure:"defaults_dir"`
}

// PresetsConfig locates deployed preset evidence bundles.
type PresetsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// MatrixConfig locates the strategic matrix cell definitions.
type MatrixConfig struct {
	CellsFile string `yaml:"cells_file" mapstructure:"cells_file"`
}

// ServerConfig configures the HTTP control surface.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RunRatePerMin  float64 `yaml:"run_rate_per_min" mapstructure:"run_rate_per_min"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EVIDENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "data/workdir/documents")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.run_rate_per_min", 6)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("pipeline.scripts_dir", "pipeline")
	v.SetDefault("pipeline.work_dir", "data/workdir")
	v.SetDefault("pipeline.interpreter", "python3")
	v.SetDefault("pipeline.stage_timeout_secs", 300)
	v.SetDefault("pipeline.scoring_timeout_secs", 120)
	v.SetDefault("pipeline.strategy_file", "2-hypothesen/out/strategy_with_hypotheses.json")
	v.SetDefault("reports.forecast_files", []string{
		"4-premisepairs/forecast-reports/out/premise_hypothesis_pairs.json",
		"4-premisepairs/forecast-reports/out/forecast_pairs.json",
	})
	v.SetDefault("reports.event_file", "4-premisepairs/event-reports/out/event_premise_hypothesis_pairs.json")
	v.SetDefault("reports.risk_files", []string{
		"4-premisepairs/risk-reports/out/risk_pairs_nli_simple.json",
		"4-premisepairs/risk-reports/out/risk_hybrid_pairs.json",
	})
	v.SetDefault("artifacts.risk_catalog", "0-preprocessing/risks/out/risks.parquet")
	v.SetDefault("artifacts.premise_catalog", "1-user-input/in/premises.parquet")
	v.SetDefault("artifacts.forecast_index", "embeddings-index/premises.faiss")
	v.SetDefault("artifacts.risk_index", "embeddings-index/risks.faiss")
	v.SetDefault("artifacts.defaults_dir", "data/defaults")
	v.SetDefault("presets.dir", "presets")
	v.SetDefault("matrix.cells_file", "matrix_cells.yaml")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// ResolveWork joins a workdir-relative path onto the configured work dir.
// Absolute paths pass through unchanged.
func (c *Config) ResolveWork(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Pipeline.WorkDir, rel)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
