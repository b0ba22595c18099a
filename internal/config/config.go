// Package config loads the Engine's tunable surface — everything
// spec.md calls "configuration, not code": cognitive-load weights and
// caps, shadow/similarity thresholds, cache TTLs, worker pool sizing,
// scan deadlines, ingest exclusions, and the commit-signal vocabulary.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	tomlv2 "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config is the complete Engine configuration.
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	CognitiveLoad CognitiveLoadConfig `json:"cognitiveLoad" mapstructure:"cognitiveLoad"`
	Shadow        ShadowConfig        `json:"shadow" mapstructure:"shadow"`
	Similarity    SimilarityConfig    `json:"similarity" mapstructure:"similarity"`
	Evidence      EvidenceConfig      `json:"evidence" mapstructure:"evidence"`
	Cache         CacheConfig         `json:"cache" mapstructure:"cache"`
	Pipeline      PipelineConfig      `json:"pipeline" mapstructure:"pipeline"`
	Ingest        IngestConfig        `json:"ingest" mapstructure:"ingest"`
	Rules         RulesConfig         `json:"rules" mapstructure:"rules"`
	Logging       LoggingConfig       `json:"logging" mapstructure:"logging"`
}

// CognitiveLoadConfig is §4.5's weighted-feature table: weight and cap
// per feature, plus the React-specific adjustment magnitudes.
type CognitiveLoadConfig struct {
	WeightNesting    float64 `json:"weightNesting" mapstructure:"weightNesting"`
	WeightBranch     float64 `json:"weightBranch" mapstructure:"weightBranch"`
	WeightBoolean    float64 `json:"weightBoolean" mapstructure:"weightBoolean"`
	WeightCallback   float64 `json:"weightCallback" mapstructure:"weightCallback"`
	WeightAmbiguity  float64 `json:"weightAmbiguity" mapstructure:"weightAmbiguity"`
	WeightContext    float64 `json:"weightContext" mapstructure:"weightContext"`
	WeightException  float64 `json:"weightException" mapstructure:"weightException"`
	WeightSideEffect float64 `json:"weightSideEffect" mapstructure:"weightSideEffect"`

	CapNesting    int `json:"capNesting" mapstructure:"capNesting"`
	CapBranch     int `json:"capBranch" mapstructure:"capBranch"`
	CapBoolean    int `json:"capBoolean" mapstructure:"capBoolean"`
	CapCallback   int `json:"capCallback" mapstructure:"capCallback"`
	CapSideEffect int `json:"capSideEffect" mapstructure:"capSideEffect"`

	ReactiveDependencyPenalty float64 `json:"reactiveDependencyPenalty" mapstructure:"reactiveDependencyPenalty"`
	CleanupBonus              float64 `json:"cleanupBonus" mapstructure:"cleanupBonus"`
	RenderSideEffectPenalty   float64 `json:"renderSideEffectPenalty" mapstructure:"renderSideEffectPenalty"`
}

// ShadowConfig holds the thresholds the scorer compares UnitScores
// against to set the shadow flag and to select runway's baseline.
type ShadowConfig struct {
	CognitiveLoadThreshold int `json:"cognitiveLoadThreshold" mapstructure:"cognitiveLoadThreshold"`
	ReviewEvidenceMax      int `json:"reviewEvidenceMax" mapstructure:"reviewEvidenceMax"`
}

// SimilarityConfig holds §4.6's shingle size and the two similarity
// thresholds (non-component pairs vs component-to-component pairs).
type SimilarityConfig struct {
	ShingleSize            int     `json:"shingleSize" mapstructure:"shingleSize"`
	MinHashPermutations    int     `json:"minHashPermutations" mapstructure:"minHashPermutations"`
	ThresholdNonComponent  float64 `json:"thresholdNonComponent" mapstructure:"thresholdNonComponent"`
	ThresholdComponent     float64 `json:"thresholdComponent" mapstructure:"thresholdComponent"`
}

// EvidenceConfig holds §4.3's configurable touch-count windows.
type EvidenceConfig struct {
	TouchWindowShortDays int      `json:"touchWindowShortDays" mapstructure:"touchWindowShortDays"`
	TouchWindowLongDays  int      `json:"touchWindowLongDays" mapstructure:"touchWindowLongDays"`
	CommitSignals        []string `json:"commitSignals" mapstructure:"commitSignals"`
}

// CacheConfig holds §4.7's TTLs.
type CacheConfig struct {
	FullScanTTLDays   int `json:"fullScanTtlDays" mapstructure:"fullScanTtlDays"`
	IncrementalTTLDays int `json:"incrementalTtlDays" mapstructure:"incrementalTtlDays"`
}

// PipelineConfig holds §5's concurrency and deadline knobs.
type PipelineConfig struct {
	WorkerPoolSize        int `json:"workerPoolSize" mapstructure:"workerPoolSize"`
	FullScanDeadlineMins  int `json:"fullScanDeadlineMins" mapstructure:"fullScanDeadlineMins"`
	IncrementalDeadlineSecs int `json:"incrementalDeadlineSecs" mapstructure:"incrementalDeadlineSecs"`
}

// IngestConfig holds §4.1's include/exclude rules.
type IngestConfig struct {
	Extensions       []string `json:"extensions" mapstructure:"extensions"`
	ExcludeFragments []string `json:"excludeFragments" mapstructure:"excludeFragments"`
}

// RulesConfig points at the declarative rule file (§6.3), itself an
// I/O facade outside the Engine's scored core, plus the per-rule
// thresholds §4.4 requires be "configuration, not code."
type RulesConfig struct {
	RulesetPath string         `json:"rulesetPath" mapstructure:"rulesetPath"`
	Thresholds  RuleThresholds `json:"thresholds" mapstructure:"thresholds"`
}

// RuleThresholds holds the numeric knobs behind the 15 fixed rule
// matchers (§4.4).
type RuleThresholds struct {
	BooleanOverloadMin     int     `json:"booleanOverloadMin" mapstructure:"booleanOverloadMin"`
	DeepNestingMin         int     `json:"deepNestingMin" mapstructure:"deepNestingMin"`
	InlineHandlerMin       int     `json:"inlineHandlerMin" mapstructure:"inlineHandlerMin"`
	PropSpreadMin          int     `json:"propSpreadMin" mapstructure:"propSpreadMin"`
	AnyTypeMaxCount        int     `json:"anyTypeMaxCount" mapstructure:"anyTypeMaxCount"`
	PropertyChainMinDepth  int     `json:"propertyChainMinDepth" mapstructure:"propertyChainMinDepth"`
	MagicStringMinRepeats  int     `json:"magicStringMinRepeats" mapstructure:"magicStringMinRepeats"`
	MagicStringMinLength   int     `json:"magicStringMinLength" mapstructure:"magicStringMinLength"`
	CommentRatioMin        float64 `json:"commentRatioMin" mapstructure:"commentRatioMin"`
	AmbiguityMin           float64 `json:"ambiguityMin" mapstructure:"ambiguityMin"`
}

// LoggingConfig controls the ambient structured logger.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// FullScanTTL and IncrementalTTL convert the configured day counts to
// durations for internal/cache.
func (c CacheConfig) FullScanTTL() time.Duration {
	return time.Duration(c.FullScanTTLDays) * 24 * time.Hour
}

func (c CacheConfig) IncrementalTTL() time.Duration {
	return time.Duration(c.IncrementalTTLDays) * 24 * time.Hour
}

func (p PipelineConfig) FullScanDeadline() time.Duration {
	return time.Duration(p.FullScanDeadlineMins) * time.Minute
}

func (p PipelineConfig) IncrementalDeadline() time.Duration {
	return time.Duration(p.IncrementalDeadlineSecs) * time.Second
}

// DefaultConfig returns the Engine's out-of-the-box configuration,
// matching spec.md's exact weight/cap table and thresholds.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		CognitiveLoad: CognitiveLoadConfig{
			WeightNesting:    15,
			WeightBranch:     10,
			WeightBoolean:    8,
			WeightCallback:   12,
			WeightAmbiguity:  10,
			WeightContext:    5,
			WeightException:  8,
			WeightSideEffect: 7,

			CapNesting:    8,
			CapBranch:     20,
			CapBoolean:    12,
			CapCallback:   6,
			CapSideEffect: 6,

			ReactiveDependencyPenalty: 15,
			CleanupBonus:              -5,
			RenderSideEffectPenalty:   20,
		},
		Shadow: ShadowConfig{
			CognitiveLoadThreshold: 70,
			ReviewEvidenceMax:      30,
		},
		Similarity: SimilarityConfig{
			ShingleSize:           4,
			MinHashPermutations:   128,
			ThresholdNonComponent: 0.70,
			ThresholdComponent:    0.85,
		},
		Evidence: EvidenceConfig{
			TouchWindowShortDays: 30,
			TouchWindowLongDays:  90,
			CommitSignals:        []string{"refactor", "test", "type", "fix", "chore", "feat"},
		},
		Cache: CacheConfig{
			FullScanTTLDays:    7,
			IncrementalTTLDays: 1,
		},
		Pipeline: PipelineConfig{
			WorkerPoolSize:          8,
			FullScanDeadlineMins:    20,
			IncrementalDeadlineSecs: 60,
		},
		Ingest: IngestConfig{
			Extensions:       []string{".ts", ".tsx", ".js", ".jsx"},
			ExcludeFragments: []string{"node_modules", "dist", "build", ".next", "coverage", "vendor"},
		},
		Rules: RulesConfig{
			RulesetPath: ".shadowscan/rules.yaml",
			Thresholds: RuleThresholds{
				BooleanOverloadMin:    6,
				DeepNestingMin:        5,
				InlineHandlerMin:      3,
				PropSpreadMin:         3,
				AnyTypeMaxCount:       3,
				PropertyChainMinDepth: 3,
				MagicStringMinRepeats: 3,
				MagicStringMinLength:  2,
				CommentRatioMin:       0.4,
				AmbiguityMin:          0.5,
			},
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <repoRoot>/.shadowscan/config.json,
// falling back to DefaultConfig when no file is present.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".shadowscan"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigTOML loads configuration from <repoRoot>/.shadowscan/config.toml
// for repositories that prefer TOML over JSON, falling back to
// DefaultConfig when no file is present.
func LoadConfigTOML(repoRoot string) (*Config, error) {
	path := filepath.Join(repoRoot, ".shadowscan", "config.toml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := tomlv2.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTOML writes the configuration to <repoRoot>/.shadowscan/config.toml
// using the BurntSushi encoder, for parity with the JSON Save below.
func (c *Config) SaveTOML(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".shadowscan")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, "config.toml"))
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(c)
}

// Save writes the configuration to <repoRoot>/.shadowscan/config.json.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".shadowscan")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Similarity.ThresholdNonComponent <= 0 || c.Similarity.ThresholdNonComponent > 1 {
		return &ConfigError{Field: "similarity.thresholdNonComponent", Message: "must be in (0, 1]"}
	}
	if c.Similarity.ThresholdComponent <= 0 || c.Similarity.ThresholdComponent > 1 {
		return &ConfigError{Field: "similarity.thresholdComponent", Message: "must be in (0, 1]"}
	}
	if c.Pipeline.WorkerPoolSize < 1 {
		return &ConfigError{Field: "pipeline.workerPoolSize", Message: "must be >= 1"}
	}
	return nil
}

// ConfigError reports a field-scoped configuration problem.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
