package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/retail-intelligence/internal/artifacts"
	"github.com/yungbote/retail-intelligence/internal/data/db"
	jobrt "github.com/yungbote/retail-intelligence/internal/jobs/runtime"
	"github.com/yungbote/retail-intelligence/internal/ml"
	"github.com/yungbote/retail-intelligence/internal/modules/retail/steps"
	"github.com/yungbote/retail-intelligence/internal/platform/envutil"
	"github.com/yungbote/retail-intelligence/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverNone     = "none"
)

type Config struct {
	LogMode string

	Driver     string
	Postgres   db.PostgresConfig
	SQLitePath string

	InputPath         string
	OutputDir         string
	BatchSize         int
	MaxAttempts       int
	CategoryRulesPath string

	ClusterK       int
	ClusterSeed    uint64
	ClusterNInit   int
	ClusterMaxIter int
	ElbowMaxK      int
	SegmentMapPath string

	ChurnThresholdDays int
	ChurnTestSize      float64
	ChurnSeed          uint64
	SMOTEKNeighbors    int
	LogRegC            float64
	LogRegMaxIter      int

	StageTimeout     time.Duration
	StageMaxAttempts int
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		LogMode: envutil.String("LOG_MODE", "development"),

		Driver: strings.ToLower(envutil.String("WAREHOUSE_DRIVER", DriverSQLite)),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "retail"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		SQLitePath: envutil.String("SQLITE_PATH", "retail.db"),

		InputPath:         envutil.String("RETAIL_INPUT", ""),
		OutputDir:         envutil.String("RETAIL_OUTPUT_DIR", "output"),
		BatchSize:         envutil.Int("LOAD_BATCH_SIZE", 500),
		MaxAttempts:       envutil.Int("LOAD_MAX_ATTEMPTS", steps.DefaultMaxAttempts),
		CategoryRulesPath: envutil.String("CATEGORY_RULES", ""),

		ClusterK:       envutil.Int("CLUSTER_K", 4),
		ClusterSeed:    uint64(envutil.Int64("CLUSTER_SEED", 42)),
		ClusterNInit:   envutil.Int("CLUSTER_N_INIT", ml.DefaultKMeansNInit),
		ClusterMaxIter: envutil.Int("CLUSTER_MAX_ITER", ml.DefaultKMeansMaxIter),
		ElbowMaxK:      envutil.Int("ELBOW_MAX_K", 9),
		SegmentMapPath: envutil.String("SEGMENT_MAP", ""),

		ChurnThresholdDays: envutil.Int("CHURN_THRESHOLD_DAYS", 180),
		ChurnTestSize:      envutil.Float("CHURN_TEST_SIZE", 0.2),
		ChurnSeed:          uint64(envutil.Int64("CHURN_SEED", 42)),
		SMOTEKNeighbors:    envutil.Int("SMOTE_K_NEIGHBORS", ml.DefaultSMOTENeighbors),
		LogRegC:            envutil.Float("LOGREG_C", ml.DefaultLogRegC),
		LogRegMaxIter:      envutil.Int("LOGREG_MAX_ITER", ml.DefaultLogRegMaxIter),

		StageTimeout:     time.Duration(envutil.Int("STAGE_TIMEOUT_SECONDS", 0)) * time.Second,
		StageMaxAttempts: envutil.Int("STAGE_MAX_ATTEMPTS", 1),
	}
	if log != nil {
		log.Info("configuration loaded",
			"warehouse_driver", cfg.Driver,
			"output_dir", cfg.OutputDir,
			"cluster_k", cfg.ClusterK,
			"cluster_seed", cfg.ClusterSeed,
			"churn_threshold_days", cfg.ChurnThresholdDays,
		)
	}
	return cfg
}

// Settings resolves the file-backed parts of the config (segment map and
// category rules) into the per-run settings every stage reads.
func (c Config) Settings() (jobrt.Settings, error) {
	if c.ClusterK < 1 {
		return jobrt.Settings{}, fmt.Errorf("CLUSTER_K must be >= 1, got %d", c.ClusterK)
	}
	if c.ChurnTestSize <= 0 || c.ChurnTestSize >= 1 {
		return jobrt.Settings{}, fmt.Errorf("CHURN_TEST_SIZE must be in (0,1), got %v", c.ChurnTestSize)
	}
	mapping, err := artifacts.LoadSegmentMap(c.SegmentMapPath)
	if err != nil {
		return jobrt.Settings{}, err
	}
	rules, err := LoadCategoryRules(c.CategoryRulesPath)
	if err != nil {
		return jobrt.Settings{}, err
	}
	return jobrt.Settings{
		InputPath:   c.InputPath,
		OutputDir:   c.OutputDir,
		BatchSize:   c.BatchSize,
		MaxAttempts: c.MaxAttempts,
		Categories:  rules,
		KMeans: ml.KMeansConfig{
			K:       c.ClusterK,
			NInit:   c.ClusterNInit,
			MaxIter: c.ClusterMaxIter,
			Seed:    c.ClusterSeed,
		},
		ElbowMaxK:     c.ElbowMaxK,
		SegmentMap:    mapping,
		ThresholdDays: c.ChurnThresholdDays,
		TestSize:      c.ChurnTestSize,
		ChurnSeed:     c.ChurnSeed,
		SMOTE:         ml.SMOTEConfig{KNeighbors: c.SMOTEKNeighbors, Seed: c.ChurnSeed},
		LogRegC:       c.LogRegC,
		LogRegMaxIter: c.LogRegMaxIter,
	}, nil
}

type categoryRulesFile struct {
	Rules steps.CategoryRules `yaml:"rules"`
}

// LoadCategoryRules reads the optional keyword→category YAML. An empty path
// means every product is "unknown".
func LoadCategoryRules(path string) (steps.CategoryRules, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category rules: %w", err)
	}
	var f categoryRulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse category rules %s: %w", path, err)
	}
	return f.Rules, nil
}
