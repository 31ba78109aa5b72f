package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/caseforge/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Generation   GenerationConfig   `yaml:"generation" mapstructure:"generation"`
	Quality      QualityConfig      `yaml:"quality" mapstructure:"quality"`
	Similarity   SimilarityConfig   `yaml:"similarity" mapstructure:"similarity"`
	Distribution DistributionConfig `yaml:"distribution" mapstructure:"distribution"`
	Pipeline     PipelineConfig     `yaml:"pipeline" mapstructure:"pipeline"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// GenerationConfig configures the generation fan-out.
type GenerationConfig struct {
	Categories  []string `yaml:"categories" mapstructure:"categories"`
	PerCategory int      `yaml:"per_category" mapstructure:"per_category"`
	RatePerSec  float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int      `yaml:"burst" mapstructure:"burst"`
}

// QualityConfig holds the rubric thresholds. A case at or above
// PassThreshold (with no critical or high issues) is accepted; one at
// or above ReviseThreshold is routed to revision instead of rejection.
type QualityConfig struct {
	PassThreshold   float64 `yaml:"pass_threshold" mapstructure:"pass_threshold"`
	ReviseThreshold float64 `yaml:"revise_threshold" mapstructure:"revise_threshold"`
}

// SimilarityConfig configures near-duplicate detection.
type SimilarityConfig struct {
	Threshold     float64 `yaml:"threshold" mapstructure:"threshold"`
	EditWeight    float64 `yaml:"edit_weight" mapstructure:"edit_weight"`
	ShingleWeight float64 `yaml:"shingle_weight" mapstructure:"shingle_weight"`
	ShingleSize   int     `yaml:"shingle_size" mapstructure:"shingle_size"`
}

// DistributionConfig holds per-bucket corpus share targets.
type DistributionConfig struct {
	Levels       map[string]model.TargetRange `yaml:"levels" mapstructure:"levels"`
	Categories   map[string]model.TargetRange `yaml:"categories" mapstructure:"categories"`
	Difficulties map[string]model.TargetRange `yaml:"difficulties" mapstructure:"difficulties"`
}

// PipelineConfig configures controller behavior.
type PipelineConfig struct {
	MaxRevisionCycles int `yaml:"max_revision_cycles" mapstructure:"max_revision_cycles"`
}

// OutputConfig configures where the finalized corpus and reports land.
type OutputConfig struct {
	CorpusPath string `yaml:"corpus_path" mapstructure:"corpus_path"`
	ReportDir  string `yaml:"report_dir" mapstructure:"report_dir"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CASEFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "caseforge.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("generation.categories", []string{
		"confounding", "mediation", "collider", "selection", "reverse-causation",
	})
	v.SetDefault("generation.per_category", 8)
	v.SetDefault("generation.rate_per_sec", 10.0)
	v.SetDefault("generation.burst", 5)
	v.SetDefault("quality.pass_threshold", 7.0)
	v.SetDefault("quality.revise_threshold", 5.0)
	v.SetDefault("similarity.threshold", 0.75)
	v.SetDefault("similarity.edit_weight", 0.6)
	v.SetDefault("similarity.shingle_weight", 0.4)
	v.SetDefault("similarity.shingle_size", 3)
	v.SetDefault("pipeline.max_revision_cycles", 3)
	v.SetDefault("output.corpus_path", "corpus.json")
	v.SetDefault("output.report_dir", "reports")
	v.SetDefault("distribution.levels.tier1.min", 0.15)
	v.SetDefault("distribution.levels.tier1.max", 0.25)
	v.SetDefault("distribution.levels.tier2.min", 0.60)
	v.SetDefault("distribution.levels.tier2.max", 0.70)
	v.SetDefault("distribution.levels.tier3.min", 0.10)
	v.SetDefault("distribution.levels.tier3.max", 0.20)
	v.SetDefault("distribution.difficulties.easy.min", 0.20)
	v.SetDefault("distribution.difficulties.easy.max", 0.40)
	v.SetDefault("distribution.difficulties.medium.min", 0.30)
	v.SetDefault("distribution.difficulties.medium.max", 0.50)
	v.SetDefault("distribution.difficulties.hard.min", 0.20)
	v.SetDefault("distribution.difficulties.hard.max", 0.40)
	v.SetDefault("distribution.categories.confounding.min", 0.10)
	v.SetDefault("distribution.categories.confounding.max", 0.30)
	v.SetDefault("distribution.categories.mediation.min", 0.10)
	v.SetDefault("distribution.categories.mediation.max", 0.30)
	v.SetDefault("distribution.categories.collider.min", 0.10)
	v.SetDefault("distribution.categories.collider.max", 0.30)
	v.SetDefault("distribution.categories.selection.min", 0.10)
	v.SetDefault("distribution.categories.selection.max", 0.30)
	v.SetDefault("distribution.categories.reverse-causation.min", 0.10)
	v.SetDefault("distribution.categories.reverse-causation.max", 0.30)

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

// Validate checks the invariants the pipeline depends on.
func (c *Config) Validate() error {
	if c.Quality.ReviseThreshold > c.Quality.PassThreshold {
		return eris.New("config: quality.revise_threshold above pass_threshold")
	}
	if c.Similarity.Threshold <= 0 || c.Similarity.Threshold > 1 {
		return eris.New("config: similarity.threshold must be in (0, 1]")
	}
	if c.Pipeline.MaxRevisionCycles < 0 {
		return eris.New("config: pipeline.max_revision_cycles must be non-negative")
	}
	if len(c.Generation.Categories) == 0 {
		return eris.New("config: generation.categories is empty")
	}
	return nil
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
