// Package consumption derives liters per 100 km between matched refuels.
package consumption

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/match"
)

// Record is one matched refuel with the distance driven since the previous
// matched refuel of the same vehicle. Distance is nil without a previous
// anchor; Consumption is nil then and also when Distance is not positive.
type Record struct {
	Time        time.Time    `json:"time"`
	Liters      float64      `json:"liters"`
	Odometer    float64      `json:"odometer"`
	Distance    *float64     `json:"distance"`
	Consumption *float64     `json:"consumption"`
	Difference  *float64     `json:"difference"`
	Status      match.Status `json:"status"`
	Suspicious  bool         `json:"suspicious,omitzero"`
}

// Calculator turns match records into consumption records.
type Calculator struct {
	places   int32
	min, max float64
}

func NewCalculator(cfg config.Consumption) *Calculator {
	return &Calculator{places: cfg.DecimalPlaces, min: cfg.Min, max: cfg.Max}
}

// Calculate sorts one vehicle's records by time and computes consumption for
// every matched record with an odometer. Card-only records are neither
// reported nor used as the previous anchor.
func (c *Calculator) Calculate(records []match.Record) []Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b match.Record) int { return a.Time.Compare(b.Time) })

	var (
		out  []Record
		prev *float64
	)
	for _, r := range sorted {
		if r.Status != match.StatusMatched || r.Odometer == nil {
			continue
		}
		rec := Record{
			Time:       r.Time,
			Liters:     r.CardLiters,
			Odometer:   *r.Odometer,
			Difference: r.Difference,
			Status:     r.Status,
		}
		if prev != nil {
			distance := *r.Odometer - *prev
			rec.Distance = &distance
			if distance > 0 {
				v := c.rate(r.CardLiters, distance)
				rec.Consumption = &v
				rec.Suspicious = c.outside(v)
			}
		}
		prev = r.Odometer
		out = append(out, rec)
	}
	return out
}

// CalculateAll runs Calculate for every vehicle.
func (c *Calculator) CalculateAll(byVehicle map[string][]match.Record) map[string][]Record {
	out := make(map[string][]Record, len(byVehicle))
	for v, recs := range byVehicle {
		out[v] = c.Calculate(recs)
	}
	return out
}

func (c *Calculator) rate(liters, distance float64) float64 {
	v := decimal.NewFromFloat(liters).
		Div(decimal.NewFromFloat(distance)).
		Mul(decimal.NewFromInt(100)).
		Round(c.places)
	return v.InexactFloat64()
}

func (c *Calculator) outside(v float64) bool {
	if c.min > 0 && v < c.min {
		return true
	}
	return c.max > 0 && v > c.max
}
