package design

import (
	"fmt"

	"samplekit/internal/errors"
)

// Method identifies one of the four sampling strategies. The set is
// closed: the engine matches it exhaustively and rejects anything else.
type Method string

const (
	SimpleRandom Method = "simple_random"
	Stratified   Method = "stratified"
	Systematic   Method = "systematic"
	Cluster      Method = "cluster"
)

// AllocationPolicy selects how a stratified sample is split across strata.
type AllocationPolicy string

const (
	AllocProportional AllocationPolicy = "proportional"
	AllocEqual        AllocationPolicy = "equal"
	AllocCustom       AllocationPolicy = "custom"
)

// WithinClusterPolicy selects the second-stage draw inside each selected
// cluster.
type WithinClusterPolicy string

const (
	WithinTakeAll      WithinClusterPolicy = "all"
	WithinProportional WithinClusterPolicy = "proportional"
	WithinFixedSize    WithinClusterPolicy = "fixed"
)

// Default diagnostic thresholds.
const (
	DefaultRepresentativenessThreshold = 0.05
	DefaultPeriodicityThreshold        = 0.5
	DefaultDesignEffectWarning         = 1.5
)

// Options configures a single sampling call. Fields not relevant to the
// chosen method are ignored; malformed combinations fail fast with a
// configuration error before any randomness is consumed.
type Options struct {
	Method Method `json:"method"`

	// WithReplacement permits duplicate identities in the sample. Only
	// honored by SimpleRandom; everything else draws without replacement.
	WithReplacement bool `json:"with_replacement,omitempty"`

	// StratifyBy names the stratification variables (Stratified only).
	StratifyBy []string `json:"stratify_by,omitempty"`
	// Allocation selects the per-stratum split policy (Stratified only).
	Allocation AllocationPolicy `json:"allocation,omitempty"`
	// CustomAllocation supplies per-stratum sizes when Allocation is
	// AllocCustom, keyed by composite stratum key.
	CustomAllocation map[string]int `json:"custom_allocation,omitempty"`

	// ClusterBy names the cluster key (Cluster only).
	ClusterBy string `json:"cluster_by,omitempty"`
	// ClusterCount is m, the number of first-stage clusters to draw.
	ClusterCount int `json:"cluster_count,omitempty"`
	// WithinCluster selects the second-stage policy (Cluster only).
	WithinCluster WithinClusterPolicy `json:"within_cluster,omitempty"`
	// WithinClusterFraction is the sampling fraction for WithinProportional.
	WithinClusterFraction float64 `json:"within_cluster_fraction,omitempty"`
	// WithinClusterSize is k for WithinFixedSize.
	WithinClusterSize int `json:"within_cluster_size,omitempty"`

	// OrderVariable is the ordering-sensitive variable checked for
	// periodicity (Systematic only).
	OrderVariable string `json:"order_variable,omitempty"`
	// OutcomeVariables drive the efficiency (Stratified) and intraclass
	// correlation (Cluster) diagnostics.
	OutcomeVariables []string `json:"outcome_variables,omitempty"`
	// CheckCovariates drive the representativeness diagnostic
	// (SimpleRandom and Systematic).
	CheckCovariates []string `json:"check_covariates,omitempty"`

	// RepresentativenessThreshold bounds |standardized difference| for a
	// covariate to count as representative. Zero means the default 0.05.
	RepresentativenessThreshold float64 `json:"representativeness_threshold,omitempty"`
	// PeriodicityThreshold bounds |autocorrelation at lag k| before the
	// periodicity flag trips. Zero means the default 0.5.
	PeriodicityThreshold float64 `json:"periodicity_threshold,omitempty"`
}

// WithDefaults fills zero-valued thresholds and policies.
func (o Options) WithDefaults() Options {
	if o.RepresentativenessThreshold == 0 {
		o.RepresentativenessThreshold = DefaultRepresentativenessThreshold
	}
	if o.PeriodicityThreshold == 0 {
		o.PeriodicityThreshold = DefaultPeriodicityThreshold
	}
	if o.Method == Stratified && o.Allocation == "" {
		o.Allocation = AllocProportional
	}
	if o.Method == Cluster && o.WithinCluster == "" {
		o.WithinCluster = WithinTakeAll
	}
	return o
}

// Validate rejects malformed method/option combinations.
func (o Options) Validate() error {
	switch o.Method {
	case SimpleRandom:
		return nil
	case Stratified:
		if len(o.StratifyBy) == 0 {
			return errors.New(errors.CodeConfiguration, "stratified sampling requires stratify_by variables")
		}
		switch o.Allocation {
		case AllocProportional, AllocEqual:
		case AllocCustom:
			if len(o.CustomAllocation) == 0 {
				return errors.New(errors.CodeConfiguration, "custom allocation requires per-stratum sizes")
			}
		default:
			return errors.Newf(errors.CodeConfiguration, "unknown allocation policy %q", o.Allocation)
		}
		return nil
	case Systematic:
		return nil
	case Cluster:
		if o.ClusterBy == "" {
			return errors.New(errors.CodeConfiguration, "cluster sampling requires a cluster_by key")
		}
		if o.ClusterCount <= 0 {
			return errors.New(errors.CodeInvalidSampleSize, "cluster sampling requires cluster_count > 0")
		}
		switch o.WithinCluster {
		case WithinTakeAll:
		case WithinProportional:
			if o.WithinClusterFraction <= 0 || o.WithinClusterFraction > 1 {
				return errors.Newf(errors.CodeConfiguration,
					"within-cluster fraction %v outside (0, 1]", o.WithinClusterFraction)
			}
		case WithinFixedSize:
			if o.WithinClusterSize <= 0 {
				return errors.New(errors.CodeInvalidSampleSize, "within-cluster fixed size must be > 0")
			}
		default:
			return errors.Newf(errors.CodeConfiguration, "unknown within-cluster policy %q", o.WithinCluster)
		}
		return nil
	default:
		return errors.New(errors.CodeConfiguration, fmt.Sprintf("unknown sampling method %q", o.Method))
	}
}

// Thresholds configures the balance verdicts.
type Thresholds struct {
	// SMD bounds |standardized mean difference| for numeric covariates.
	SMD float64 `json:"smd"`
	// CategoricalEffect bounds Cramér's V for categorical covariates.
	CategoricalEffect float64 `json:"categorical_effect"`
	// Alpha is the significance level paired with the effect size.
	Alpha float64 `json:"alpha"`
}

// DefaultThresholds returns the conventional balance cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{SMD: 0.1, CategoricalEffect: 0.1, Alpha: 0.05}
}

// WithDefaults fills zero-valued thresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.SMD == 0 {
		t.SMD = d.SMD
	}
	if t.CategoricalEffect == 0 {
		t.CategoricalEffect = d.CategoricalEffect
	}
	if t.Alpha == 0 {
		t.Alpha = d.Alpha
	}
	return t
}
