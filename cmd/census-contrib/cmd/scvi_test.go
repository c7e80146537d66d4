package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scviYAML = `
census:
  organism: mus_musculus
  obs_query: is_primary_data == True
hvg:
  top_n_hvg: 4000
  hvg_batch: [assay]
  min_genes: 300
model:
  n_hidden: 128
  n_latent: 10
  n_layers: 1
  dropout_rate: 0.1
train:
  max_epochs: 20
  batch_size: 512
  train_size: 0.9
  early_stopping: false
  devices: 1
  num_workers: 2
training_plan:
  lr: 0.001
`

func TestSCVIValidate(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scvi.yaml", scviYAML)

	stdout, _, err := execute(t, "scvi", "validate", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "scVI configuration OK")
	assert.Contains(t, stdout, "Organism: mus_musculus")
	assert.Contains(t, stdout, "HVG: top 4000 by assay, min_genes 300")
	assert.Contains(t, stdout, "Batch key: dataset_id+assay+suspension_type+donor_id")
}

func TestSCVIValidateJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scvi.yaml", scviYAML)

	stdout, _, err := execute(t, "scvi", "validate", path, "--format", "json")
	require.NoError(t, err)

	var plan struct {
		Config struct {
			Model struct {
				NLatent int `json:"n_latent"`
			} `json:"model"`
			TrainingPlan map[string]any `json:"training_plan"`
		} `json:"config"`
		BatchKey string `json:"batch_key"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &plan))
	assert.Equal(t, 10, plan.Config.Model.NLatent)
	assert.InDelta(t, 0.001, plan.Config.TrainingPlan["lr"], 1e-12)
	assert.Equal(t, "dataset_id+assay+suspension_type+donor_id", plan.BatchKey)
}

func TestSCVIValidateReportsEveryProblem(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scvi.yaml", `
census:
  organism: danio_rerio
model:
  dropout_rate: 1.5
`)

	_, _, err := execute(t, "scvi", "validate", path)
	require.Error(t, err)
	for _, want := range []string{"census.organism", "census.obs_query", "model.dropout_rate", "train.max_epochs"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSCVIValidateRequiresFile(t *testing.T) {
	_, _, err := execute(t, "scvi", "validate")
	require.Error(t, err)

	_, _, err = execute(t, "scvi", "validate", "/nonexistent/scvi.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scvi config")
}
