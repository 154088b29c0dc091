// Package cards reads the fuel-card transaction export.
package cards

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/shopspring/decimal"

	"go.grg.app/fuelrecon/internal/normalize"
	"go.grg.app/fuelrecon/internal/sheet"
)

// Event is one fuel purchase.
type Event struct {
	Line     int             `json:"line"`
	Time     time.Time       `json:"time"`
	CardText string          `json:"card_text"`
	CardID   string          `json:"card_id,omitzero"`
	Comment  string          `json:"comment,omitzero"`
	Station  string          `json:"station"`
	Product  string          `json:"product"`
	Liters   float64         `json:"liters"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
}

// record mirrors the export columns.
type record struct {
	Time    string `csv:"Дата и время"`
	Card    string `csv:"Номер карты"`
	Comment string `csv:"Комментарий"`
	Station string `csv:"АЗС"`
	Product string `csv:"Товар"`
	Liters  string `csv:"Кол-во литров"`
	Price   string `csv:"Цена со скидкой"`
	Amount  string `csv:"Сумма со скидкой"`
}

var columns = []string{
	"Дата и время", "Номер карты", "Комментарий", "АЗС", "Товар",
	"Кол-во литров", "Цена со скидкой", "Сумма со скидкой",
}

var timeLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Options control decoding of the export.
type Options struct {
	Comma        rune
	Location     *time.Location
	FuelKeywords []string
}

// Read decodes the export and keeps only fuel purchases. Missing columns or
// malformed CSV abort the load; rows with unparsable values are skipped and
// reported as joined *sheet.RowError next to the events that were read.
func Read(r io.Reader, opts Options) ([]Event, error) {
	c := sheet.NewReader(r, opts.Comma)
	head, err := c.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := sheet.Require(sheet.Header(head), columns...); err != nil {
		return nil, err
	}
	dec, err := csvutil.NewDecoder(c, head...)
	if err != nil {
		return nil, err
	}

	var (
		events []Event
		errs   error
	)
	for {
		var rec record
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		line, _ := c.FieldPos(0)
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, err
			}
			errs = errors.Join(errs, &sheet.RowError{Line: line, Err: err})
			continue
		}
		if !normalize.IsFuelProduct(rec.Product, opts.FuelKeywords) {
			continue
		}
		ev, err := rec.event(opts.Location)
		if err != nil {
			errs = errors.Join(errs, &sheet.RowError{Line: line, Err: err})
			continue
		}
		ev.Line = line
		events = append(events, ev)
	}
	return events, errs
}

func (r record) event(loc *time.Location) (Event, error) {
	ts, err := parseTime(r.Time, loc)
	if err != nil {
		return Event{}, err
	}
	liters, err := normalize.Quantity(r.Liters)
	if err != nil {
		return Event{}, fmt.Errorf("invalid liters %q: %w", r.Liters, err)
	}
	price, err := optional(r.Price)
	if err != nil {
		return Event{}, fmt.Errorf("invalid price %q: %w", r.Price, err)
	}
	amount, err := optional(r.Amount)
	if err != nil {
		return Event{}, fmt.Errorf("invalid amount %q: %w", r.Amount, err)
	}
	id, _ := normalize.CardID(r.Card)
	return Event{
		Time:     ts,
		CardText: strings.TrimSpace(r.Card),
		CardID:   id,
		Comment:  strings.TrimSpace(r.Comment),
		Station:  strings.TrimSpace(r.Station),
		Product:  strings.TrimSpace(r.Product),
		Liters:   liters.InexactFloat64(),
		Price:    price,
		Amount:   amount,
	}, nil
}

func optional(s string) (decimal.Decimal, error) {
	d, err := normalize.Quantity(s)
	if errors.Is(err, normalize.ErrEmpty) {
		return decimal.Zero, nil
	}
	return d, err
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
