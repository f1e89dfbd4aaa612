package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"samplekit/domain/design"
	"samplekit/internal/errors"
)

// RunSpec is a declarative description of one sampling run, loaded from a
// YAML file. Environment variables override the data paths so the same
// spec can point at different inputs between machines.
type RunSpec struct {
	DataPath   string `yaml:"data_path"`
	KeyColumn  string `yaml:"key_column"`
	OutputPath string `yaml:"output_path"`
	Seed       int64  `yaml:"seed"`

	Sampling   SamplingSpec   `yaml:"sampling"`
	Allocation AllocationSpec `yaml:"allocation"`
	Balance    BalanceSpec    `yaml:"balance"`
}

// SamplingSpec mirrors design.Options in YAML form.
type SamplingSpec struct {
	Method          string         `yaml:"method"`
	SampleSize      int            `yaml:"sample_size"`
	WithReplacement bool           `yaml:"with_replacement"`
	StratifyBy      []string       `yaml:"stratify_by"`
	Allocation      string         `yaml:"allocation"`
	CustomSizes     map[string]int `yaml:"custom_sizes"`

	ClusterBy       string  `yaml:"cluster_by"`
	ClusterCount    int     `yaml:"cluster_count"`
	WithinCluster   string  `yaml:"within_cluster"`
	WithinFraction  float64 `yaml:"within_fraction"`
	WithinFixedSize int     `yaml:"within_fixed_size"`

	OrderVariable    string   `yaml:"order_variable"`
	OutcomeVariables []string `yaml:"outcome_variables"`
	CheckCovariates  []string `yaml:"check_covariates"`
}

// AllocationSpec sizes the two experimental arms. When block_by is set
// the allocation is a randomized block design: per_block_size units per
// block per arm, and the sizes above are ignored.
type AllocationSpec struct {
	TreatmentSize int `yaml:"treatment_size"`
	ControlSize   int `yaml:"control_size"`

	BlockBy      []string `yaml:"block_by"`
	PerBlockSize int      `yaml:"per_block_size"`
}

// BalanceSpec names the covariates to assess and the verdict thresholds.
type BalanceSpec struct {
	Covariates        []string `yaml:"covariates"`
	SMDThreshold      float64  `yaml:"smd_threshold"`
	CategoricalEffect float64  `yaml:"categorical_effect_threshold"`
	Alpha             float64  `yaml:"alpha"`
}

// Load reads and validates a run spec from a YAML file, applying defaults
// and environment overrides.
func Load(path string) (*RunSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading run spec")
	}

	spec := &RunSpec{Seed: 42}
	if err := yaml.Unmarshal(raw, spec); err != nil {
		return nil, errors.Wrap(err, "parsing run spec")
	}

	if v := os.Getenv("SAMPLEKIT_DATA_PATH"); v != "" {
		spec.DataPath = v
	}
	if v := os.Getenv("SAMPLEKIT_OUTPUT_PATH"); v != "" {
		spec.OutputPath = v
	}
	if v := os.Getenv("SAMPLEKIT_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "parsing SAMPLEKIT_SEED")
		}
		spec.Seed = seed
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the fields the loader itself owns. Method-specific
// option validation happens in the sampling engine.
func (s *RunSpec) Validate() error {
	if s.DataPath == "" {
		return errors.New(errors.CodeConfiguration, "run spec requires data_path")
	}
	if s.Sampling.Method == "" {
		return errors.New(errors.CodeConfiguration, "run spec requires sampling.method")
	}
	if len(s.Allocation.BlockBy) > 0 {
		if s.Allocation.PerBlockSize <= 0 {
			return errors.New(errors.CodeInvalidSampleSize,
				"blocked allocation requires allocation.per_block_size > 0")
		}
		return nil
	}
	if s.Sampling.SampleSize <= 0 && s.Allocation.TreatmentSize <= 0 {
		return errors.New(errors.CodeInvalidSampleSize,
			"run spec requires sampling.sample_size or allocation sizes")
	}
	return nil
}

// Options translates the YAML sampling section into engine options.
func (s *RunSpec) Options() design.Options {
	return design.Options{
		Method:                design.Method(s.Sampling.Method),
		WithReplacement:       s.Sampling.WithReplacement,
		StratifyBy:            s.Sampling.StratifyBy,
		Allocation:            design.AllocationPolicy(s.Sampling.Allocation),
		CustomAllocation:      s.Sampling.CustomSizes,
		ClusterBy:             s.Sampling.ClusterBy,
		ClusterCount:          s.Sampling.ClusterCount,
		WithinCluster:         design.WithinClusterPolicy(s.Sampling.WithinCluster),
		WithinClusterFraction: s.Sampling.WithinFraction,
		WithinClusterSize:     s.Sampling.WithinFixedSize,
		OrderVariable:         s.Sampling.OrderVariable,
		OutcomeVariables:      s.Sampling.OutcomeVariables,
		CheckCovariates:       s.Sampling.CheckCovariates,
	}
}

// Thresholds translates the YAML balance section into verdict thresholds.
func (s *RunSpec) Thresholds() design.Thresholds {
	return design.Thresholds{
		SMD:               s.Balance.SMDThreshold,
		CategoricalEffect: s.Balance.CategoricalEffect,
		Alpha:             s.Balance.Alpha,
	}.WithDefaults()
}
