package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"samplekit/adapters/balance"
	"samplekit/adapters/export"
	"samplekit/adapters/ingest"
	"samplekit/adapters/sampling"
	"samplekit/domain/core"
	"samplekit/domain/design"
	"samplekit/domain/population"
	"samplekit/internal/config"
	"samplekit/internal/testkit"
)

func main() {
	// Optional; environment overrides come from the shell when absent.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "samplectl",
		Short: "Probability sampling and covariate balance for experiment assignment",
	}

	rootCmd.AddCommand(
		newGenerateCmd(),
		newSampleCmd(),
		newAllocateCmd(),
		newAssessCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	var size int
	var seed int64
	var missingRate float64
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic customer population",
		Long: `Generate a seeded synthetic e-commerce population with correlated
numeric and categorical covariates, written as CSV or XLSX.

Example: samplectl generate --size 5000 --seed 7 --output population.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := testkit.NewPopulationGenerator(testkit.PopulationConfig{
				Size:        size,
				Seed:        seed,
				MissingRate: missingRate,
			})
			pop, err := gen.Generate()
			if err != nil {
				return err
			}

			ds := &export.Dataset{Headers: append([]string{"unit_id"}, testkit.Covariates()...)}
			for i := 0; i < pop.Size(); i++ {
				u := pop.Unit(i)
				row := []string{u.Key.String()}
				for _, c := range testkit.Covariates() {
					row = append(row, u.Value(c).Label())
				}
				ds.Rows = append(ds.Rows, row)
			}
			if err := export.Write(output, ds); err != nil {
				return err
			}
			fmt.Printf("wrote %d units to %s\n", pop.Size(), output)
			return nil
		},
	}

	cmd.Flags().IntVar(&size, "size", 1000, "Number of units to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().Float64Var(&missingRate, "missing-rate", 0, "Fraction of values to blank out")
	cmd.Flags().StringVar(&output, "output", "population.csv", "Output path (.csv or .xlsx)")

	return cmd
}

func newSampleCmd() *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw a probability sample per a run spec",
		Long: `Draw a sample from the population named in a YAML run spec and write
the selections with their design diagnostics.

Example: samplectl sample --spec run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, pop, err := loadRun(specPath)
			if err != nil {
				return err
			}

			rng := core.NewRandomSource(spec.Seed)
			rec, err := sampling.NewEngine().Sample(pop, spec.Sampling.SampleSize, spec.Options(), rng)
			if err != nil {
				return err
			}

			printDiagnostics(rec)
			if spec.OutputPath != "" {
				if err := export.Write(spec.OutputPath, export.SampleDataset(rec)); err != nil {
					return err
				}
				fmt.Printf("wrote %d selections to %s\n", rec.Size(), spec.OutputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "run.yaml", "Path to the YAML run spec")

	return cmd
}

func newAllocateCmd() *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate disjoint treatment and control arms",
		Long: `Draw treatment and control arms per a run spec. The treatment arm is
drawn first and removed before the control draw, so the arms never overlap.
A run spec with allocation.block_by draws a randomized block design instead,
with equal arm counts inside every block.

Example: samplectl allocate --spec run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, pop, err := loadRun(specPath)
			if err != nil {
				return err
			}

			allocator := sampling.NewAllocator(sampling.NewEngine())
			alloc, err := allocateArms(spec, pop, allocator)
			if err != nil {
				return err
			}

			fmt.Printf("allocated %d treatment, %d control\n",
				alloc.Treatment.Size(), alloc.Control.Size())
			if err := printBlockEffects(spec, pop, alloc, allocator); err != nil {
				return err
			}
			if spec.OutputPath != "" {
				if err := export.Write(spec.OutputPath, export.AllocationDataset(alloc)); err != nil {
					return err
				}
				fmt.Printf("wrote allocation to %s\n", spec.OutputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "run.yaml", "Path to the YAML run spec")

	return cmd
}

func newAssessCmd() *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Allocate arms and assess covariate balance",
		Long: `Draw treatment and control arms per a run spec, then compare the
configured covariates between arms and print the composite balance verdict.

Example: samplectl assess --spec run.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, pop, err := loadRun(specPath)
			if err != nil {
				return err
			}

			allocator := sampling.NewAllocator(sampling.NewEngine())
			alloc, err := allocateArms(spec, pop, allocator)
			if err != nil {
				return err
			}

			report, err := balance.NewAssessor().Assess(cmd.Context(), pop, alloc,
				spec.Balance.Covariates, spec.Thresholds())
			if err != nil {
				return err
			}

			fmt.Print(export.BalanceSummary(report))
			for _, e := range report.EffectMagnitude {
				verdict := "balanced"
				if !e.Balanced {
					verdict = "IMBALANCED"
				}
				note := ""
				if e.Note != "" {
					note = " (" + e.Note + ")"
				}
				fmt.Printf("  %-24s %-11s effect=%.4f p=%.4f %s%s\n",
					e.Covariate, e.Type, e.EffectSize, e.PValue, verdict, note)
			}

			if spec.OutputPath != "" {
				if err := export.Write(spec.OutputPath, export.BalanceDataset(report)); err != nil {
					return err
				}
				fmt.Printf("wrote balance report to %s\n", spec.OutputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "run.yaml", "Path to the YAML run spec")

	return cmd
}

// allocateArms draws the arms the run spec describes: a randomized block
// design when block_by is set, draw-remove-draw otherwise.
func allocateArms(spec *config.RunSpec, pop *population.Population, allocator *sampling.Allocator) (*design.Allocation, error) {
	rng := core.NewRandomSource(spec.Seed)
	if len(spec.Allocation.BlockBy) > 0 {
		return allocator.AllocateBlocked(pop, spec.Allocation.BlockBy, spec.Allocation.PerBlockSize, rng)
	}
	return allocator.Allocate(pop,
		spec.Allocation.TreatmentSize, spec.Allocation.ControlSize,
		spec.Options(), rng)
}

// printBlockEffects runs the randomized-block ANOVA over the configured
// outcome variables for blocked allocations.
func printBlockEffects(spec *config.RunSpec, pop *population.Population, alloc *design.Allocation, allocator *sampling.Allocator) error {
	if len(spec.Allocation.BlockBy) == 0 || len(spec.Sampling.OutcomeVariables) == 0 {
		return nil
	}
	effects, err := allocator.BlockEffects(pop, alloc, spec.Sampling.OutcomeVariables)
	if err != nil {
		return err
	}
	for _, e := range effects {
		fmt.Printf("  block design %-18s treatment F=%.2f p=%.4f block F=%.2f p=%.4f RE=%.2f\n",
			e.OutcomeVariable, e.TreatmentF, e.TreatmentP, e.BlockF, e.BlockP, e.RelativeEfficiency)
	}
	return nil
}

// loadRun loads the run spec and the population it points at.
func loadRun(specPath string) (*config.RunSpec, *population.Population, error) {
	spec, err := config.Load(specPath)
	if err != nil {
		return nil, nil, err
	}

	reader := ingest.NewDataReader(spec.DataPath)
	reader.KeyColumn = spec.KeyColumn
	pop, err := reader.ReadPopulation()
	if err != nil {
		return nil, nil, err
	}
	return spec, pop, nil
}

func printDiagnostics(rec *design.SampleRecord) {
	fmt.Printf("drew %d units via %s\n", rec.Size(), rec.Method)
	for _, r := range rec.Diagnostics.Representativeness {
		fmt.Printf("  representativeness %-20s diff=%.4f representative=%t\n",
			r.Covariate, r.StdDifference, r.Representative)
	}
	for _, e := range rec.Diagnostics.Efficiency {
		gain := fmt.Sprintf("%.1f%% gain", e.GainPercent)
		if e.LessEfficient {
			gain = fmt.Sprintf("%.1f%% LOSS", -e.GainPercent)
		}
		fmt.Printf("  efficiency %-20s %s vs simple random\n", e.OutcomeVariable, gain)
	}
	if p := rec.Diagnostics.Periodicity; p != nil {
		flag := ""
		if p.Detected {
			flag = " PERIODICITY DETECTED"
		}
		fmt.Printf("  periodicity %-20s r(%d)=%.4f%s\n", p.Variable, p.Interval, p.Autocorrelation, flag)
	}
	for _, c := range rec.Diagnostics.ClusterEffects {
		flag := ""
		if c.HighDesignEffect {
			flag = " HIGH"
		}
		fmt.Printf("  cluster effect %-18s icc=%.4f deff=%.2f ess=%.0f%s\n",
			c.OutcomeVariable, c.ICC, c.DesignEffect, c.EffectiveSampleSize, flag)
	}
}
