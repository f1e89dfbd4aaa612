package ports

import (
	"samplekit/domain/population"
)

// PopulationReader loads a population from an external source
type PopulationReader interface {
	ReadPopulation() (*population.Population, error)
}
