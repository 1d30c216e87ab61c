package app

import (
	"github.com/hardchor/frog-pond/internal/sim"
	"github.com/hardchor/frog-pond/internal/telemetry"
)

// tickRecorder folds each tick into the diagnostics counters and, when a path
// is configured, the telemetry CSV.
type tickRecorder struct {
	counters *telemetry.Counters
	csv      *telemetry.CSVWriter
	logger   telemetry.Logger
	failed   bool
}

func newTickRecorder(counters *telemetry.Counters, csv *telemetry.CSVWriter, logger telemetry.Logger) *tickRecorder {
	return &tickRecorder{counters: counters, csv: csv, logger: logger}
}

func (r *tickRecorder) Observe(result sim.TickResult) {
	r.counters.RecordTick(result.Duration, result.Births, result.Deaths)
	if r.csv == nil || r.failed {
		return
	}
	row := telemetry.TickRow{
		Tick:       result.Tick,
		Population: result.Stats.Population,
		Algae:      result.Stats.Algae,
		Nitrogen:   result.Stats.Nitrogen,
		Oxygen:     result.Stats.Oxygen,
		Births:     result.Births,
		Deaths:     result.Deaths,
		MeanAge:    telemetry.AgeDistribution(result.Ages).Mean,
		Eligible:   result.Eligible,
	}
	if err := r.csv.Write(row); err != nil {
		// One report is enough; the simulation keeps running without the CSV.
		r.failed = true
		r.logger.Printf("telemetry csv disabled: %v", err)
	}
}
