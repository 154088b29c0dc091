// Package telematics reads the tracking-system refuel and drain sheets.
//
// The export is hierarchical: a row naming a vehicle is followed by dated
// event rows belonging to it, until the next vehicle row. Both kinds of row
// share the grouping column and are told apart by shape only.
package telematics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/normalize"
	"go.grg.app/fuelrecon/internal/sheet"
)

// Row is one raw line of a sheet.
type Row struct {
	Line     int
	Grouping string
	Time     string
	Quantity string
	Odometer string
}

// Event is a refuel (or drain) attributed to a vehicle.
type Event struct {
	Vehicle  string    `json:"vehicle"`
	Time     time.Time `json:"time"`
	Quantity float64   `json:"liters"`
	Odometer float64   `json:"odometer"`
	Line     int       `json:"line"`
}

// Options control how rows are interpreted.
type Options struct {
	Sentinel string
	Location *time.Location
}

// classifier is the accumulator of the row fold.
type classifier struct {
	vehicle string
	events  []Event
	errs    error
}

// ClassifyRows walks rows in order, carrying the current vehicle. A dated
// row becomes an event of the current vehicle when all of its fields are
// filled; any other row naming a vehicle switches the current vehicle.
// Unparsable event rows are skipped and returned as joined *sheet.RowError.
func ClassifyRows(rows []Row, opts Options) ([]Event, error) {
	var acc classifier
	for _, r := range rows {
		acc = acc.step(r, opts)
	}
	return acc.events, acc.errs
}

func (c classifier) step(r Row, opts Options) classifier {
	// dates first so "15.10.2025" is never read as a vehicle
	if date, ok := normalize.DateLabel(r.Grouping); ok {
		if c.vehicle == "" || opts.blank(r.Time) || opts.blank(r.Quantity) || opts.blank(r.Odometer) {
			return c
		}
		ev, err := event(c.vehicle, date, r, opts.Location)
		if err != nil {
			c.errs = errors.Join(c.errs, &sheet.RowError{Line: r.Line, Err: err})
			return c
		}
		c.events = append(c.events, ev)
		return c
	}
	if v, ok := normalize.VehicleID(r.Grouping); ok {
		c.vehicle = v
	}
	return c
}

func event(vehicle string, date time.Time, r Row, loc *time.Location) (Event, error) {
	clock, ok := normalize.ClockTime(r.Time)
	if !ok {
		return Event{}, fmt.Errorf("invalid time %q", r.Time)
	}
	q, err := normalize.Quantity(r.Quantity)
	if err != nil {
		return Event{}, fmt.Errorf("invalid quantity %q: %w", r.Quantity, err)
	}
	odo, err := normalize.Quantity(r.Odometer)
	if err != nil {
		return Event{}, fmt.Errorf("invalid odometer %q: %w", r.Odometer, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	ts := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc).Add(clock)
	return Event{
		Vehicle:  vehicle,
		Time:     ts,
		Quantity: q.InexactFloat64(),
		Odometer: odo.InexactFloat64(),
		Line:     r.Line,
	}, nil
}

func (o Options) blank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == o.Sentinel
}

// ReadSheet decodes one exported sheet and classifies its rows. A missing
// column or malformed CSV aborts with no events; skipped rows are reported
// alongside the events that were read (see sheet.Partial).
func ReadSheet(r io.Reader, cols config.Sheet, comma rune, opts Options) ([]Event, error) {
	c := sheet.NewReader(r, comma)
	head, err := c.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := sheet.Header(head)
	if err := sheet.Require(idx, cols.Grouping, cols.Time, cols.Quantity, cols.Odometer); err != nil {
		return nil, err
	}

	var rows []Row
	for rec, err := c.Read(); err != io.EOF; rec, err = c.Read() {
		if err != nil {
			return nil, err
		}
		line, _ := c.FieldPos(0)
		rows = append(rows, Row{
			Line:     line,
			Grouping: sheet.Cell(rec, idx, cols.Grouping),
			Time:     sheet.Cell(rec, idx, cols.Time),
			Quantity: sheet.Cell(rec, idx, cols.Quantity),
			Odometer: sheet.Cell(rec, idx, cols.Odometer),
		})
	}
	return ClassifyRows(rows, opts)
}

// ByVehicle groups events by vehicle, keeping table order within each group
// and returning vehicles in order of first appearance.
func ByVehicle(events []Event) (map[string][]Event, []string) {
	groups := make(map[string][]Event)
	var order []string
	for _, e := range events {
		if _, ok := groups[e.Vehicle]; !ok {
			order = append(order, e.Vehicle)
		}
		groups[e.Vehicle] = append(groups[e.Vehicle], e)
	}
	return groups, order
}
