package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.grg.app/fuelrecon/internal/consumption"
	"go.grg.app/fuelrecon/internal/match"
	"go.grg.app/fuelrecon/internal/prompt"
)

const stamp = "02.01.2006 15:04"

type Review struct {
	Inputs `embed:""`
}

// Run lets the user pick a vehicle, then one of its card purchases, and
// prints the purchase with the vehicle's consumption history. Leaving the
// vehicle list ends the review.
func (c Review) Run(ctx context.Context, a *app) error {
	run, err := c.run(ctx, a)
	if err != nil {
		return err
	}
	res := run.Result
	if len(res.Vehicles) == 0 {
		fmt.Println("no purchases on roster cards")
		return nil
	}
	vehicles := make([]string, len(res.Vehicles))
	for i, v := range res.Vehicles {
		vehicles[i] = vehicleLine(v, res.ByVehicle[v])
	}

	for ctx.Err() == nil {
		i, err := prompt.Pick("Vehicle", vehicles)
		if errors.Is(err, prompt.ErrCancelled) {
			return nil
		} else if err != nil {
			return err
		}
		vehicle := res.Vehicles[i]
		recs := res.ByVehicle[vehicle]
		lines := make([]string, len(recs))
		for j, r := range recs {
			lines[j] = recordLine(r)
		}
		j, err := prompt.Pick(vehicle, lines)
		if errors.Is(err, prompt.ErrCancelled) {
			continue
		} else if err != nil {
			return err
		}
		fmt.Println(lines[j])
		printHistory(os.Stdout, run.Consumption[vehicle])
	}
	return ctx.Err()
}

func vehicleLine(vehicle string, recs []match.Record) string {
	var matched int
	for _, r := range recs {
		if r.Status == match.StatusMatched {
			matched++
		}
	}
	return fmt.Sprintf("%s  %d purchases, %d matched", vehicle, len(recs), matched)
}

func recordLine(r match.Record) string {
	s := fmt.Sprintf("%s  card %s  %.2f L  %s", r.Time.Format(stamp), r.CardID, r.CardLiters, r.Status)
	if r.Status == match.StatusMatched {
		s += fmt.Sprintf("  telematics %.2f L at %s, diff %.2f", *r.TelematicsLiters, r.TelematicsTime.Format(stamp), *r.Difference)
	}
	return s
}

func printHistory(w io.Writer, history []consumption.Record) {
	if len(history) == 0 {
		fmt.Fprintln(w, "no matched refuels")
		return
	}
	for _, h := range history {
		distance, rate := "-", "-"
		if h.Distance != nil {
			distance = fmt.Sprintf("%.1f km", *h.Distance)
		}
		if h.Consumption != nil {
			rate = fmt.Sprintf("%.2f L/100km", *h.Consumption)
			if h.Suspicious {
				rate += " (implausible)"
			}
		}
		fmt.Fprintf(w, "  %s  %8.2f L  odometer %.1f  %s  %s\n", h.Time.Format(stamp), h.Liters, h.Odometer, distance, rate)
	}
}
