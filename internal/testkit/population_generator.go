package testkit

import (
	"fmt"
	"math"

	"samplekit/domain/core"
	"samplekit/domain/population"
)

// PopulationConfig configures the synthetic customer population generator.
type PopulationConfig struct {
	Size        int     `json:"size"`
	Seed        int64   `json:"seed"`
	MissingRate float64 `json:"missing_rate"`
}

// DefaultPopulationConfig returns sensible defaults for test populations.
func DefaultPopulationConfig() PopulationConfig {
	return PopulationConfig{
		Size: 1000,
		Seed: 42,
	}
}

// PopulationGenerator builds seeded synthetic e-commerce populations with
// correlated numeric and categorical covariates, matching the shapes the
// sampling and balance code sees in practice.
type PopulationGenerator struct {
	config PopulationConfig
	rng    *core.RandomSource
}

// NewPopulationGenerator creates a generator with its own random stream.
func NewPopulationGenerator(config PopulationConfig) *PopulationGenerator {
	return &PopulationGenerator{
		config: config,
		rng:    core.NewRandomSource(config.Seed),
	}
}

// Covariates lists the generated columns in order.
func Covariates() []string {
	return []string{
		"age", "income", "income_level", "location",
		"total_orders", "avg_order_value", "conversion_rate", "lifetime_value",
	}
}

// Generate builds the population. Income drives the income_level tiers and
// lifetime value so downstream balance checks have real structure to find.
func (g *PopulationGenerator) Generate() (*population.Population, error) {
	units := make([]population.Unit, g.config.Size)
	for i := range units {
		units[i] = g.generateCustomer(i)
	}
	return population.New(Covariates(), units)
}

func (g *PopulationGenerator) generateCustomer(i int) population.Unit {
	age := clamp(38+12*g.rng.NormFloat64(), 18, 85)
	income := math.Exp(10.8 + 0.6*g.rng.NormFloat64())

	level := "Low"
	switch {
	case income >= 90000:
		level = "High"
	case income >= 45000:
		level = "Medium"
	}

	location := "Urban"
	switch r := g.rng.Float64(); {
	case r < 0.35:
		location = "Suburban"
	case r < 0.55:
		location = "Rural"
	}

	orders := float64(g.rng.Intn(20) + 1)
	avgOrder := clamp(45+income/4000+15*g.rng.NormFloat64(), 5, math.Inf(1))
	conversion := clamp(0.03+0.01*g.rng.NormFloat64(), 0.001, 0.5)
	lifetime := orders*avgOrder + 0.002*income

	values := map[string]population.Value{
		"age":             population.Num(math.Round(age)),
		"income":          population.Num(math.Round(income)),
		"income_level":    population.Cat(level),
		"location":        population.Cat(location),
		"total_orders":    population.Num(orders),
		"avg_order_value": population.Num(round2(avgOrder)),
		"conversion_rate": population.Num(round2(conversion * 100)),
		"lifetime_value":  population.Num(round2(lifetime)),
	}

	if g.config.MissingRate > 0 {
		for _, name := range []string{"income", "conversion_rate"} {
			if g.rng.Float64() < g.config.MissingRate {
				values[name] = population.Missing()
			}
		}
	}

	return population.Unit{
		Key:    core.UnitID(fmt.Sprintf("customer_%05d", i+1)),
		Values: values,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
