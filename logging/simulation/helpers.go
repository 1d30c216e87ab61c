package simulation

import (
	"context"

	"github.com/hardchor/frog-pond/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick takes longer than its period allows.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventPoolExchange records the per-tick algae growth and nitrogen conversion.
	EventPoolExchange logging.EventType = "simulation.pool_exchange"
)

// TickBudgetOverrunPayload captures timing details for a tick budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

// PoolExchangePayload mirrors the resource pool after it advanced.
type PoolExchangePayload struct {
	Growth      float64 `json:"growth"`
	Consumption int     `json:"consumption"`
	Algae       int     `json:"algae"`
	Nitrogen    int     `json:"nitrogen"`
	Oxygen      int     `json:"oxygen"`
}

// TickBudgetOverrun publishes a warning when the simulation exceeds the configured tick budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.PondRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}

// PoolExchange publishes the resource transition at debug severity.
func PoolExchange(ctx context.Context, pub logging.Publisher, tick uint64, payload PoolExchangePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPoolExchange,
		Tick:     tick,
		Actor:    logging.PondRef(),
		Severity: logging.SeverityDebug,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
