package ports

import (
	"context"

	"samplekit/domain/design"
	"samplekit/domain/population"
)

// BalanceAssessor compares covariate distributions between allocation arms
type BalanceAssessor interface {
	Assess(ctx context.Context, pop *population.Population, alloc *design.Allocation, covariates []string, thresholds design.Thresholds) (*design.BalanceReport, error)
}
