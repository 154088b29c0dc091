// Package report renders the outcome of a reconciliation run.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"

	"go.grg.app/fuelrecon/internal/consumption"
	"go.grg.app/fuelrecon/internal/match"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// Run is the raw output of one reconciliation.
type Run struct {
	Result      match.Result
	Consumption map[string][]consumption.Record
	Drains      []match.Notification
}

type Report struct {
	RunID         string               `json:"run_id"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Summary       match.Summary        `json:"summary"`
	Vehicles      []Vehicle            `json:"vehicles"`
	Notifications []match.Notification `json:"notifications"`
	Drains        []match.Notification `json:"drains,omitzero"`
}

// Vehicle groups one vehicle's results in card order with its consumption
// history in time order.
type Vehicle struct {
	Vehicle     string               `json:"vehicle"`
	Results     []match.Record       `json:"results"`
	Consumption []consumption.Record `json:"consumption"`
}

// Build assembles a report. Vehicles keep the order of their first card
// purchase.
func Build(run Run, now time.Time) Report {
	r := Report{
		RunID:         uuid.NewString(),
		GeneratedAt:   now.UTC(),
		Summary:       run.Result.Summary(),
		Notifications: run.Result.Notifications,
		Drains:        run.Drains,
	}
	for _, v := range run.Result.Vehicles {
		r.Vehicles = append(r.Vehicles, Vehicle{
			Vehicle:     v,
			Results:     run.Result.ByVehicle[v],
			Consumption: run.Consumption[v],
		})
	}
	return r
}

// Write renders r to w in the given format.
func Write(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatText:
		_, err := io.WriteString(w, Text(r))
		return err
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

func WriteJSON(w io.Writer, r Report) error {
	out, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := (*jsontext.Value)(&out).Indent(); err != nil {
		return err
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

var csvHeader = []string{
	"vehicle", "time", "card_id", "card_liters",
	"telematics_liters", "telematics_time", "difference", "odometer",
	"distance", "consumption", "status", "station",
}

// WriteCSV writes one row per card purchase. Distance and consumption are
// filled from the consumption history of matched rows.
func WriteCSV(w io.Writer, r Report) error {
	o := csv.NewWriter(w)
	if err := o.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range r.Vehicles {
		// purchases sharing a timestamp keep their relative order in both lists
		history := make(map[historyKey][]consumption.Record, len(v.Consumption))
		for _, c := range v.Consumption {
			k := historyKey{c.Time.UnixNano(), c.Odometer, c.Liters}
			history[k] = append(history[k], c)
		}
		for _, rec := range v.Results {
			var distance, rate string
			if rec.Status == match.StatusMatched && rec.Odometer != nil {
				k := historyKey{rec.Time.UnixNano(), *rec.Odometer, rec.CardLiters}
				if cs := history[k]; len(cs) > 0 {
					distance, rate = num(cs[0].Distance), num(cs[0].Consumption)
					history[k] = cs[1:]
				}
			}
			var telTime string
			if rec.TelematicsTime != nil {
				telTime = rec.TelematicsTime.Format(time.RFC3339)
			}
			if err := o.Write([]string{
				v.Vehicle,
				rec.Time.Format(time.RFC3339),
				rec.CardID,
				strconv.FormatFloat(rec.CardLiters, 'f', -1, 64),
				num(rec.TelematicsLiters),
				telTime,
				num(rec.Difference),
				num(rec.Odometer),
				distance,
				rate,
				string(rec.Status),
				rec.Station,
			}); err != nil {
				return err
			}
		}
	}
	o.Flush()
	return o.Error()
}

type historyKey struct {
	time     int64
	odometer float64
	liters   float64
}

func num(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// Text is the human summary of a report.
func Text(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Vehicles: %d\n", r.Summary.Vehicles)
	fmt.Fprintf(&b, "Card refuels: %d\n", r.Summary.Purchases)
	fmt.Fprintf(&b, "Matched: %d (%.1f%%)\n", r.Summary.Matched, r.Summary.MatchRate)
	fmt.Fprintf(&b, "Card only: %d\n", r.Summary.CardOnly)
	fmt.Fprintf(&b, "Notifications: %d\n", r.Summary.Notifications)

	for _, v := range r.Vehicles {
		fmt.Fprintf(&b, "\n[%s]\n", v.Vehicle)
		for _, c := range v.Consumption {
			if c.Consumption == nil {
				continue
			}
			flag := ""
			if c.Suspicious {
				flag = " !"
			}
			fmt.Fprintf(&b, "- %s %.2f L over %s km: %.2f L/100km%s\n",
				c.Time.Format("02.01.2006 15:04"), c.Liters, num(c.Distance), *c.Consumption, flag)
		}
	}
	if len(r.Notifications) > 0 {
		fmt.Fprintf(&b, "\nNotifications:\n")
		for _, n := range r.Notifications {
			fmt.Fprintf(&b, "- %s %s %s: %s\n", n.Kind, n.Vehicle, n.Time.Format("02.01.2006 15:04"), n.Message)
		}
	}
	if len(r.Drains) > 0 {
		fmt.Fprintf(&b, "\nDrains:\n")
		for _, n := range r.Drains {
			fmt.Fprintf(&b, "- %s %s: %s\n", n.Vehicle, n.Time.Format("02.01.2006 15:04"), n.Message)
		}
	}
	return b.String()
}
