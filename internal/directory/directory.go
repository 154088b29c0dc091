// Package directory maps fuel cards to the vehicles that own them.
package directory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"

	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/normalize"
	"go.grg.app/fuelrecon/internal/sheet"
)

var ErrAssignment = errors.New("want card:vehicle")

// RosterRow is one vehicle with the cards issued to it.
type RosterRow struct {
	Vehicle string
	Cards   []string
}

// Directory is a read-only card → vehicle lookup. Cards are stored exactly
// as written in the roster (trimmed); callers look them up by the same
// four-digit form the card export is normalized to.
type Directory struct {
	cards map[string]string
}

// Build indexes the roster. A card listed twice belongs to the last vehicle.
func Build(rows []RosterRow) *Directory {
	d := &Directory{cards: make(map[string]string)}
	for _, r := range rows {
		vehicle := strings.TrimSpace(r.Vehicle)
		for _, c := range r.Cards {
			if c = strings.TrimSpace(c); c != "" {
				d.cards[c] = vehicle
			}
		}
	}
	return d
}

// FromMap builds a directory from card → vehicle pairs.
func FromMap(m map[string]string) *Directory {
	rows := make([]RosterRow, 0, len(m))
	for card, vehicle := range m {
		rows = append(rows, RosterRow{Vehicle: vehicle, Cards: []string{card}})
	}
	return Build(rows)
}

// Lookup returns the vehicle owning card. A miss means the card belongs to
// somebody else and is not an error.
func (d *Directory) Lookup(card string) (string, bool) {
	v, ok := d.cards[card]
	return v, ok
}

// Len returns the number of cards.
func (d *Directory) Len() int { return len(d.cards) }

// Vehicles returns the distinct vehicles, sorted.
func (d *Directory) Vehicles() []string {
	seen := make(map[string]struct{}, len(d.cards))
	var out []string
	for _, v := range d.cards {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// Pairs returns card → vehicle pairs sorted by card.
func (d *Directory) Pairs() [][2]string {
	out := make([][2]string, 0, len(d.cards))
	for c, v := range d.cards {
		out = append(out, [2]string{c, v})
	}
	slices.SortFunc(out, func(a, b [2]string) int { return strings.Compare(a[0], b[0]) })
	return out
}

// ReadRoster reads a roster export: a vehicle column plus any number of
// columns whose name starts with the card prefix, possibly none. All values
// stay raw text so leading zeros survive.
func ReadRoster(r io.Reader, cols config.Roster, comma rune, logger *zap.Logger) ([]RosterRow, error) {
	c := sheet.NewReader(r, comma)
	head, err := c.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := sheet.Header(head)
	if err := sheet.Require(idx, cols.Vehicle); err != nil {
		return nil, err
	}
	var cardCols []string
	for _, h := range head {
		if strings.HasPrefix(h, cols.CardPrefix) {
			cardCols = append(cardCols, h)
		}
	}
	if len(cardCols) == 0 {
		logger.Warn("roster has no card columns", zap.String("prefix", cols.CardPrefix))
	}

	var rows []RosterRow
	for rec, err := c.Read(); err != io.EOF; rec, err = c.Read() {
		if err != nil {
			return nil, err
		}
		row := RosterRow{Vehicle: sheet.Cell(rec, idx, cols.Vehicle)}
		if row.Vehicle == "" {
			continue
		}
		for _, col := range cardCols {
			if card := sheet.Cell(rec, idx, col); card != "" {
				row.Cards = append(row.Cards, card)
				logger.Debug("roster card", zap.String("card", card), zap.String("vehicle", row.Vehicle))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseAssignment reads one "card:vehicle" entry. The card may be written in
// full; only its last four digits are kept.
func ParseAssignment(s string) (card, vehicle string, err error) {
	c, v, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrAssignment, s)
	}
	card, ok = normalize.CardID(c)
	if !ok {
		return "", "", fmt.Errorf("%w: no card number in %q", ErrAssignment, c)
	}
	if vehicle = strings.TrimSpace(v); vehicle == "" {
		return "", "", fmt.Errorf("%w: no vehicle in %q", ErrAssignment, s)
	}
	return card, vehicle, nil
}

// WriteRoster writes the directory in the layout ReadRoster expects, one row
// per vehicle with as many card columns as the largest fleet card count.
func WriteRoster(w io.Writer, d *Directory, cols config.Roster, comma rune) error {
	byVehicle := make(map[string][]string)
	width := 0
	for _, p := range d.Pairs() {
		byVehicle[p[1]] = append(byVehicle[p[1]], p[0])
		width = max(width, len(byVehicle[p[1]]))
	}
	o := csv.NewWriter(w)
	o.Comma = comma
	head := []string{cols.Vehicle}
	for i := range width {
		head = append(head, fmt.Sprintf("%s %d", cols.CardPrefix, i+1))
	}
	if err := o.Write(head); err != nil {
		return err
	}
	for _, v := range d.Vehicles() {
		row := make([]string, width+1)
		row[0] = v
		copy(row[1:], byVehicle[v])
		if err := o.Write(row); err != nil {
			return err
		}
	}
	o.Flush()
	return o.Error()
}
