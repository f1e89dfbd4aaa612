package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplekit/domain/design"
	"samplekit/internal/errors"
)

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FullSpec(t *testing.T) {
	path := writeSpec(t, `
data_path: population.csv
key_column: customer_id
output_path: out.xlsx
seed: 7
sampling:
  method: stratified
  sample_size: 200
  stratify_by: [income_level, location]
  allocation: proportional
  outcome_variables: [lifetime_value]
allocation:
  treatment_size: 100
  control_size: 100
balance:
  covariates: [age, income]
  smd_threshold: 0.2
  alpha: 0.01
`)

	spec, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), spec.Seed)
	assert.Equal(t, "customer_id", spec.KeyColumn)
	assert.Equal(t, "out.xlsx", spec.OutputPath)

	opts := spec.Options()
	assert.Equal(t, design.Stratified, opts.Method)
	assert.Equal(t, []string{"income_level", "location"}, opts.StratifyBy)
	assert.Equal(t, design.AllocProportional, opts.Allocation)
	assert.Equal(t, []string{"lifetime_value"}, opts.OutcomeVariables)

	th := spec.Thresholds()
	assert.Equal(t, 0.2, th.SMD)
	assert.Equal(t, 0.01, th.Alpha)
	// Unset categorical threshold falls back to the default.
	assert.Equal(t, 0.1, th.CategoricalEffect)
}

func TestLoad_BlockedAllocation(t *testing.T) {
	path := writeSpec(t, `
data_path: population.csv
sampling:
  method: simple_random
  outcome_variables: [lifetime_value]
allocation:
  block_by: [income_level]
  per_block_size: 25
`)
	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"income_level"}, spec.Allocation.BlockBy)
	assert.Equal(t, 25, spec.Allocation.PerBlockSize)
}

func TestLoad_SeedDefaults(t *testing.T) {
	path := writeSpec(t, `
data_path: population.csv
sampling:
  method: simple_random
  sample_size: 50
`)
	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), spec.Seed)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SAMPLEKIT_DATA_PATH", "/elsewhere/pop.csv")
	t.Setenv("SAMPLEKIT_SEED", "99")

	path := writeSpec(t, `
data_path: population.csv
sampling:
  method: simple_random
  sample_size: 50
`)
	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/pop.csv", spec.DataPath)
	assert.Equal(t, int64(99), spec.Seed)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		code string
	}{
		{
			name: "missing data_path",
			body: "sampling:\n  method: simple_random\n  sample_size: 50\n",
			code: errors.CodeConfiguration,
		},
		{
			name: "missing method",
			body: "data_path: population.csv\nsampling:\n  sample_size: 50\n",
			code: errors.CodeConfiguration,
		},
		{
			name: "missing sizes",
			body: "data_path: population.csv\nsampling:\n  method: simple_random\n",
			code: errors.CodeInvalidSampleSize,
		},
		{
			name: "blocked without per_block_size",
			body: "data_path: population.csv\nsampling:\n  method: simple_random\nallocation:\n  block_by: [region]\n",
			code: errors.CodeInvalidSampleSize,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeSpec(t, tc.body))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeSpec(t, "data_path: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
