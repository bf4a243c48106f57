// Package config loads the pipeline's INI configuration file. The
// section/key layout mirrors the original Python implementation's
// configparser-based config_service: PIPELINE, INPUT, OUTPUT, MEMORY,
// ANOMALY are required; RETENTION and METRICS are optional additions
// for the background sweep and the Prometheus mirror.
//
// Validation is fail-fast: every required section is checked for
// presence before any typed getter runs, each section's required keys
// are checked before that section's getters run, and all of it happens
// before any file I/O
// beyond reading the config file itself happens (spec.md §7).
package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// ConfigError carries the section/key context of a configuration
// failure, mirroring the teacher's fmt.Errorf("REPOSITORY/INIT > ...")
// wrapping idiom translated into a typed, inspectable error.
type ConfigError struct {
	Section string
	Key     string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: section %q: %v", e.Section, e.Err)
	}
	return fmt.Sprintf("config: [%s] %s: %v", e.Section, e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func errAt(section, key string, err error) error {
	return &ConfigError{Section: section, Key: key, Err: err}
}

// PipelineConfig is the PIPELINE section.
type PipelineConfig struct {
	ChunkSize        int
	MaxRows          int // -1 = unbounded
	EnableCheckpoint bool
	CheckpointFile   string
	BronzeCheckpoint string
	SilverCheckpoint string
}

// InputConfig is the INPUT section.
type InputConfig struct {
	InputType   string // file | directory
	InputPath   string
	FilePattern string // required iff InputType == directory
}

// OutputConfig is the OUTPUT section.
type OutputConfig struct {
	OutputDir string
	Format    string // csv | parquet
}

// MemoryConfig is the MEMORY section. Advisory hints only; the pipeline
// never fails because of them.
type MemoryConfig struct {
	MaxChunkMB    int
	FlushInterval int
}

// AnomalyConfig is the ANOMALY section.
type AnomalyConfig struct {
	TopN                 int
	HighRevenueThreshold float64
}

// RetentionConfig is the optional RETENTION section (§4.8). Disabled
// unless explicitly enabled.
type RetentionConfig struct {
	Enabled    bool
	MaxAgeDays int
	Policy     string // delete | move
	MoveTarget string // required iff Policy == move
}

// MetricsConfig is the optional METRICS section (§4.9). Empty
// ListenAddr means the HTTP export is disabled.
type MetricsConfig struct {
	ListenAddr string
}

// Config is the fully parsed and validated configuration.
type Config struct {
	Pipeline  PipelineConfig
	Input     InputConfig
	Output    OutputConfig
	Memory    MemoryConfig
	Anomaly   AnomalyConfig
	Retention RetentionConfig
	Metrics   MetricsConfig
}

// Load reads and validates the INI file at path, returning a
// *ConfigError wrapped failure on the first problem found.
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, errAt("", "", fmt.Errorf("read config file %q: %w", path, err))
	}

	if err := requireSections(f, "PIPELINE", "INPUT", "OUTPUT", "MEMORY", "ANOMALY"); err != nil {
		return nil, err
	}

	cfg := &Config{}

	if err := loadPipeline(f, cfg); err != nil {
		return nil, err
	}
	if err := loadInput(f, cfg); err != nil {
		return nil, err
	}
	if err := loadOutput(f, cfg); err != nil {
		return nil, err
	}
	if err := loadMemory(f, cfg); err != nil {
		return nil, err
	}
	if err := loadAnomaly(f, cfg); err != nil {
		return nil, err
	}
	loadRetention(f, cfg)
	loadMetrics(f, cfg)

	return cfg, nil
}

func requireSections(f *ini.File, names ...string) error {
	for _, name := range names {
		if !f.HasSection(name) {
			return errAt(name, "", fmt.Errorf("missing required section"))
		}
	}
	return nil
}

func requireKeys(f *ini.File, section string, keys ...string) error {
	sec := f.Section(section)
	for _, k := range keys {
		if !sec.HasKey(k) {
			return errAt(section, k, fmt.Errorf("missing required key"))
		}
	}
	return nil
}

func loadPipeline(f *ini.File, cfg *Config) error {
	const s = "PIPELINE"
	if err := requireKeys(f, s, "chunk_size", "max_rows", "enable_checkpoint"); err != nil {
		return err
	}
	sec := f.Section(s)

	chunkSize, err := sec.Key("chunk_size").Int()
	if err != nil {
		return errAt(s, "chunk_size", err)
	}
	if chunkSize <= 0 {
		return errAt(s, "chunk_size", fmt.Errorf("must be > 0, got %d", chunkSize))
	}

	maxRows, err := sec.Key("max_rows").Int()
	if err != nil {
		return errAt(s, "max_rows", err)
	}

	enableCheckpoint, err := sec.Key("enable_checkpoint").Bool()
	if err != nil {
		return errAt(s, "enable_checkpoint", err)
	}

	cfg.Pipeline = PipelineConfig{
		ChunkSize:        chunkSize,
		MaxRows:          maxRows,
		EnableCheckpoint: enableCheckpoint,
		CheckpointFile:   sec.Key("checkpoint_file").String(),
		BronzeCheckpoint: sec.Key("bronze_checkpoint").String(),
		SilverCheckpoint: sec.Key("silver_checkpoint").String(),
	}

	if enableCheckpoint && cfg.Pipeline.BronzeCheckpoint == "" && cfg.Pipeline.SilverCheckpoint == "" && cfg.Pipeline.CheckpointFile == "" {
		return errAt(s, "checkpoint_file", fmt.Errorf("enable_checkpoint=true requires checkpoint_file or bronze_checkpoint/silver_checkpoint"))
	}

	return nil
}

func loadInput(f *ini.File, cfg *Config) error {
	const s = "INPUT"
	if err := requireKeys(f, s, "input_type", "input_path"); err != nil {
		return err
	}
	sec := f.Section(s)

	inputType := strings.ToLower(strings.TrimSpace(sec.Key("input_type").String()))
	if inputType != "file" && inputType != "directory" {
		return errAt(s, "input_type", fmt.Errorf("must be 'file' or 'directory', got %q", inputType))
	}

	pattern := sec.Key("file_pattern").String()
	if inputType == "directory" && pattern == "" {
		return errAt(s, "file_pattern", fmt.Errorf("required when input_type=directory"))
	}

	cfg.Input = InputConfig{
		InputType:   inputType,
		InputPath:   sec.Key("input_path").String(),
		FilePattern: pattern,
	}
	return nil
}

func loadOutput(f *ini.File, cfg *Config) error {
	const s = "OUTPUT"
	if err := requireKeys(f, s, "output_dir", "format"); err != nil {
		return err
	}
	sec := f.Section(s)

	format := strings.ToLower(strings.TrimSpace(sec.Key("format").String()))
	if format != "csv" && format != "parquet" {
		return errAt(s, "format", fmt.Errorf("must be 'csv' or 'parquet', got %q", format))
	}

	cfg.Output = OutputConfig{
		OutputDir: sec.Key("output_dir").String(),
		Format:    format,
	}
	return nil
}

func loadMemory(f *ini.File, cfg *Config) error {
	const s = "MEMORY"
	sec := f.Section(s)

	maxChunkMB, err := sec.Key("max_chunk_mb").Int()
	if err != nil && sec.HasKey("max_chunk_mb") {
		return errAt(s, "max_chunk_mb", err)
	}
	flushInterval, err := sec.Key("flush_interval").Int()
	if err != nil && sec.HasKey("flush_interval") {
		return errAt(s, "flush_interval", err)
	}

	cfg.Memory = MemoryConfig{MaxChunkMB: maxChunkMB, FlushInterval: flushInterval}
	return nil
}

func loadAnomaly(f *ini.File, cfg *Config) error {
	const s = "ANOMALY"
	if err := requireKeys(f, s, "top_n", "high_revenue_threshold"); err != nil {
		return err
	}
	sec := f.Section(s)

	topN, err := sec.Key("top_n").Int()
	if err != nil {
		return errAt(s, "top_n", err)
	}
	if topN <= 0 {
		return errAt(s, "top_n", fmt.Errorf("must be > 0, got %d", topN))
	}

	threshold, err := sec.Key("high_revenue_threshold").Float64()
	if err != nil {
		return errAt(s, "high_revenue_threshold", err)
	}

	cfg.Anomaly = AnomalyConfig{TopN: topN, HighRevenueThreshold: threshold}
	return nil
}

func loadRetention(f *ini.File, cfg *Config) {
	const s = "RETENTION"
	if !f.HasSection(s) {
		return
	}
	sec := f.Section(s)
	cfg.Retention = RetentionConfig{
		Enabled:    sec.Key("enabled").MustBool(false),
		MaxAgeDays: sec.Key("max_age_days").MustInt(0),
		Policy:     strings.ToLower(sec.Key("policy").MustString("delete")),
		MoveTarget: sec.Key("move_target").String(),
	}
}

func loadMetrics(f *ini.File, cfg *Config) {
	const s = "METRICS"
	if !f.HasSection(s) {
		return
	}
	cfg.Metrics = MetricsConfig{ListenAddr: f.Section(s).Key("listen_addr").String()}
}
