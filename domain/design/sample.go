package design

import (
	"samplekit/domain/core"
)

// Selection is one sampled unit: its identity, position in the source
// population, inclusion probability, and partition membership where the
// strategy used one.
type Selection struct {
	UnitID        core.UnitID `json:"unit_id"`
	Position      int         `json:"position"`
	InclusionProb float64     `json:"inclusion_prob"`
	Stratum       string      `json:"stratum,omitempty"`
	Cluster       string      `json:"cluster,omitempty"`
}

// SampleRecord is the artifact of one sampling call: the selected units
// plus the strategy-specific diagnostics. It carries no further mutation.
type SampleRecord struct {
	ID             core.SampleID `json:"id"`
	Method         Method        `json:"method"`
	PopulationSize int           `json:"population_size"`
	Selections     []Selection   `json:"selections"`
	Diagnostics    Diagnostics   `json:"diagnostics"`
}

// Size returns n, the number of selections.
func (r *SampleRecord) Size() int {
	return len(r.Selections)
}

// UnitIDs returns the selected identities in selection order.
func (r *SampleRecord) UnitIDs() []core.UnitID {
	ids := make([]core.UnitID, len(r.Selections))
	for i, s := range r.Selections {
		ids[i] = s.UnitID
	}
	return ids
}

// IDSet returns the selected identities as a set.
func (r *SampleRecord) IDSet() map[core.UnitID]struct{} {
	set := make(map[core.UnitID]struct{}, len(r.Selections))
	for _, s := range r.Selections {
		set[s.UnitID] = struct{}{}
	}
	return set
}

// Diagnostics aggregates the per-strategy quality checks. Soft warnings
// live here as flags and values, never as errors: the engine's contract is
// to surface a questionable number, not to hide it.
type Diagnostics struct {
	Representativeness []Representativeness       `json:"representativeness,omitempty"`
	Efficiency         []StratificationEfficiency `json:"efficiency,omitempty"`
	Periodicity        *PeriodicityCheck          `json:"periodicity,omitempty"`
	ClusterEffects     []ClusterEffect            `json:"cluster_effects,omitempty"`
}

// Representativeness compares a sample mean against the population mean in
// population standard-deviation units.
type Representativeness struct {
	Covariate      string  `json:"covariate"`
	PopulationMean float64 `json:"population_mean"`
	SampleMean     float64 `json:"sample_mean"`
	StdDifference  float64 `json:"std_difference"`
	Representative bool    `json:"representative"`
}

// StratificationEfficiency reports the variance of the stratified design
// against simple random sampling of equal total size for one outcome
// variable. GainPercent is signed: negative means stratification hurt,
// and it is reported as-is.
type StratificationEfficiency struct {
	OutcomeVariable    string  `json:"outcome_variable"`
	StratifiedVariance float64 `json:"stratified_variance"`
	SRSVariance        float64 `json:"srs_variance"`
	GainPercent        float64 `json:"gain_percent"`
	LessEfficient      bool    `json:"less_efficient"`
}

// PeriodicityCheck reports the autocorrelation of the ordering variable at
// the sampling interval. Systematic sampling aliases with periodic
// structure at multiples of k, so a tripped flag means the sample must not
// be presented as safe.
type PeriodicityCheck struct {
	Variable        string  `json:"variable"`
	Interval        int     `json:"interval"`
	Autocorrelation float64 `json:"autocorrelation"`
	Detected        bool    `json:"detected"`
}

// ClusterEffect reports the intraclass correlation and design effect for
// one outcome variable over the selected clusters. HighDesignEffect warns
// (does not fail) when DEFF exceeds 1.5.
type ClusterEffect struct {
	OutcomeVariable     string  `json:"outcome_variable"`
	ICC                 float64 `json:"icc"`
	DesignEffect        float64 `json:"design_effect"`
	MeanClusterSize     float64 `json:"mean_cluster_size"`
	EffectiveSampleSize float64 `json:"effective_sample_size"`
	HighDesignEffect    bool    `json:"high_design_effect"`
}

// BlockEffect reports the randomized-block ANOVA for one outcome variable
// over a blocked allocation: the arm contrast tested against the residual,
// the block effect itself, and the precision bought by blocking relative
// to an unblocked design.
type BlockEffect struct {
	OutcomeVariable    string  `json:"outcome_variable"`
	TreatmentF         float64 `json:"treatment_f"`
	TreatmentP         float64 `json:"treatment_p"`
	BlockF             float64 `json:"block_f"`
	BlockP             float64 `json:"block_p"`
	Blocks             int     `json:"blocks"`
	RelativeEfficiency float64 `json:"relative_efficiency"`
}

// Arm labels the two groups of an allocation.
type Arm string

const (
	ArmTreatment Arm = "treatment"
	ArmControl   Arm = "control"
)

// Allocation partitions a drawn sample into disjoint treatment and control
// arms. Invariant: the two ID sets never intersect and their union is
// exactly the requested total.
type Allocation struct {
	ID        core.AllocationID `json:"id"`
	Treatment *SampleRecord     `json:"treatment"`
	Control   *SampleRecord     `json:"control"`
}

// Size returns the combined number of allocated units.
func (a *Allocation) Size() int {
	return a.Treatment.Size() + a.Control.Size()
}

// ArmOf reports which arm a unit landed in.
func (a *Allocation) ArmOf(id core.UnitID) (Arm, bool) {
	if _, ok := a.Treatment.IDSet()[id]; ok {
		return ArmTreatment, true
	}
	if _, ok := a.Control.IDSet()[id]; ok {
		return ArmControl, true
	}
	return "", false
}
