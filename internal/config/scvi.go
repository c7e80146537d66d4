package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BatchKeyColumns are concatenated, in order, to form the per-cell batch key
// used when setting up the training data.
var BatchKeyColumns = []string{"dataset_id", "assay", "suspension_type", "donor_id"}

// ValidOrganisms lists the experiments a training query may target.
var ValidOrganisms = []string{"homo_sapiens", "mus_musculus"}

// SCVIConfig is the YAML configuration of an scVI training run.
type SCVIConfig struct {
	Census       SCVICensusConfig `yaml:"census" json:"census"`
	HVG          SCVIHVGConfig    `yaml:"hvg" json:"hvg"`
	Model        SCVIModelConfig  `yaml:"model" json:"model"`
	Train        SCVITrainConfig  `yaml:"train" json:"train"`
	TrainingPlan map[string]any   `yaml:"training_plan" json:"training_plan"`
}

// SCVICensusConfig selects the cells to train on.
type SCVICensusConfig struct {
	Organism string `yaml:"organism" json:"organism"`
	ObsQuery string `yaml:"obs_query" json:"obs_query"`
}

// SCVIHVGConfig controls highly variable gene selection.
type SCVIHVGConfig struct {
	TopNHVG  int      `yaml:"top_n_hvg" json:"top_n_hvg"`
	HVGBatch []string `yaml:"hvg_batch" json:"hvg_batch"`
	MinGenes int      `yaml:"min_genes" json:"min_genes"`
}

// SCVIModelConfig holds the model architecture.
type SCVIModelConfig struct {
	NHidden     int     `yaml:"n_hidden" json:"n_hidden"`
	NLatent     int     `yaml:"n_latent" json:"n_latent"`
	NLayers     int     `yaml:"n_layers" json:"n_layers"`
	DropoutRate float64 `yaml:"dropout_rate" json:"dropout_rate"`
}

// SCVITrainConfig holds trainer settings.
type SCVITrainConfig struct {
	MaxEpochs     int            `yaml:"max_epochs" json:"max_epochs"`
	BatchSize     int            `yaml:"batch_size" json:"batch_size"`
	TrainSize     float64        `yaml:"train_size" json:"train_size"`
	EarlyStopping bool           `yaml:"early_stopping" json:"early_stopping"`
	Devices       int            `yaml:"devices" json:"devices"`
	NumWorkers    int            `yaml:"num_workers" json:"num_workers"`
	Trainer       map[string]any `yaml:"trainer" json:"trainer"`
}

// LoadSCVIConfig reads and validates a training configuration file.
func LoadSCVIConfig(path string) (*SCVIConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read scvi config: %w", err)
	}

	cfg, err := ParseSCVIConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid scvi config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseSCVIConfig decodes and validates a training configuration.
func ParseSCVIConfig(data []byte) (*SCVIConfig, error) {
	var cfg SCVIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c *SCVIConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(contains(ValidOrganisms, c.Census.Organism),
		"census.organism: %q must be one of: %s", c.Census.Organism, strings.Join(ValidOrganisms, ", "))
	check(strings.TrimSpace(c.Census.ObsQuery) != "", "census.obs_query: must not be empty")

	check(c.HVG.TopNHVG > 0, "hvg.top_n_hvg: must be positive, got %d", c.HVG.TopNHVG)
	check(c.HVG.MinGenes >= 0, "hvg.min_genes: must not be negative, got %d", c.HVG.MinGenes)

	check(c.Model.NHidden > 0, "model.n_hidden: must be positive, got %d", c.Model.NHidden)
	check(c.Model.NLatent > 0, "model.n_latent: must be positive, got %d", c.Model.NLatent)
	check(c.Model.NLayers > 0, "model.n_layers: must be positive, got %d", c.Model.NLayers)
	check(c.Model.DropoutRate >= 0 && c.Model.DropoutRate < 1,
		"model.dropout_rate: must be in [0, 1), got %g", c.Model.DropoutRate)

	check(c.Train.MaxEpochs > 0, "train.max_epochs: must be positive, got %d", c.Train.MaxEpochs)
	check(c.Train.BatchSize > 0, "train.batch_size: must be positive, got %d", c.Train.BatchSize)
	check(c.Train.TrainSize > 0 && c.Train.TrainSize <= 1,
		"train.train_size: must be in (0, 1], got %g", c.Train.TrainSize)
	check(c.Train.Devices > 0, "train.devices: must be positive, got %d", c.Train.Devices)
	check(c.Train.NumWorkers >= 0, "train.num_workers: must not be negative, got %d", c.Train.NumWorkers)

	return errors.Join(errs...)
}

// BatchKey describes how the per-cell batch label is composed.
func (c *SCVIConfig) BatchKey() string {
	return strings.Join(BatchKeyColumns, "+")
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
