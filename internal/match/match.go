// Package match pairs fuel-card purchases with telematics refuels.
package match

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"go.grg.app/fuelrecon/internal/cards"
	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/telematics"
)

type Status string

const (
	StatusMatched  Status = "matched"
	StatusCardOnly Status = "card_only"
)

type Kind string

const (
	KindMissingTelematics Kind = "missing_telematics"
	KindMissingCard       Kind = "missing_card"
	KindDrain             Kind = "drain"
)

// Record is the outcome for one card purchase. The telematics fields are set
// if and only if Status is StatusMatched.
type Record struct {
	Vehicle          string     `json:"vehicle"`
	Time             time.Time  `json:"time"`
	CardID           string     `json:"card_id"`
	CardLiters       float64    `json:"card_liters"`
	TelematicsLiters *float64   `json:"telematics_liters"`
	TelematicsTime   *time.Time `json:"telematics_time"`
	Difference       *float64   `json:"difference"`
	Odometer         *float64   `json:"odometer"`
	Status           Status     `json:"status"`
	Station          string     `json:"station"`
}

// Notification is a diagnostic about an event seen on one side only.
type Notification struct {
	Kind    Kind      `json:"kind"`
	Vehicle string    `json:"vehicle"`
	Time    time.Time `json:"time"`
	Liters  float64   `json:"liters"`
	Message string    `json:"message"`
}

// Result is everything one Match call produces.
type Result struct {
	ByVehicle     map[string][]Record
	Vehicles      []string // order of first card purchase
	Notifications []Notification
}

// Directory resolves a normalized card number to its vehicle.
type Directory interface {
	Lookup(card string) (string, bool)
}

// Matcher applies the time and quantity windows of a config.Matching.
type Matcher struct {
	cfg    config.Matching
	logger *zap.Logger
}

func NewMatcher(cfg config.Matching, logger *zap.Logger) *Matcher {
	return &Matcher{cfg: cfg, logger: logger}
}

// Match attributes purchases to vehicles through dir and pairs each with the
// first refuel of that vehicle, in table order, inside both the time window
// and the quantity tolerance. Purchases on unknown cards are dropped.
//
// Telematics refuels with no purchase of the same vehicle within the orphan
// window are reported as well; that scan never alters a Record.
func (m *Matcher) Match(purchases []cards.Event, refuels []telematics.Event, dir Directory) Result {
	res := Result{ByVehicle: make(map[string][]Record)}

	byVehicle := make(map[string][]cards.Event)
	for _, p := range purchases {
		vehicle, ok := dir.Lookup(p.CardID)
		if !ok {
			m.logger.Debug("card not in roster", zap.String("card", p.CardID), zap.String("card_text", p.CardText), zap.Int("line", p.Line))
			continue
		}
		if _, seen := byVehicle[vehicle]; !seen {
			res.Vehicles = append(res.Vehicles, vehicle)
		}
		byVehicle[vehicle] = append(byVehicle[vehicle], p)
	}

	tel, telOrder := telematics.ByVehicle(refuels)

	for _, vehicle := range res.Vehicles {
		for _, p := range byVehicle[vehicle] {
			rec := Record{
				Vehicle:    vehicle,
				Time:       p.Time,
				CardID:     p.CardID,
				CardLiters: p.Liters,
				Status:     StatusCardOnly,
				Station:    p.Station,
			}
			if ev, ok := m.candidate(p, tel[vehicle]); ok {
				liters, odo, ts := ev.Quantity, ev.Odometer, ev.Time
				diff := p.Liters - ev.Quantity
				rec.TelematicsLiters = &liters
				rec.TelematicsTime = &ts
				rec.Difference = &diff
				rec.Odometer = &odo
				rec.Status = StatusMatched
			} else {
				res.Notifications = append(res.Notifications, Notification{
					Kind:    KindMissingTelematics,
					Vehicle: vehicle,
					Time:    p.Time,
					Liters:  p.Liters,
					Message: fmt.Sprintf("refuel of %.2f L found only in the card system", p.Liters),
				})
			}
			res.ByVehicle[vehicle] = append(res.ByVehicle[vehicle], rec)
		}
	}

	for _, vehicle := range telOrder {
		for _, ev := range tel[vehicle] {
			if m.hasPurchase(ev, byVehicle[vehicle]) {
				continue
			}
			res.Notifications = append(res.Notifications, Notification{
				Kind:    KindMissingCard,
				Vehicle: vehicle,
				Time:    ev.Time,
				Liters:  ev.Quantity,
				Message: fmt.Sprintf("refuel of %.2f L found only in telematics", ev.Quantity),
			})
		}
	}

	m.logger.Info("matching done",
		zap.Int("vehicles", len(res.Vehicles)),
		zap.Int("notifications", len(res.Notifications)))
	return res
}

// candidate returns the first refuel within the match window whose quantity
// is within the tolerance of the purchase. Ties go to table order.
func (m *Matcher) candidate(p cards.Event, refuels []telematics.Event) (telematics.Event, bool) {
	limit := p.Liters * m.cfg.QuantityTolerance
	for _, ev := range refuels {
		if absDuration(ev.Time.Sub(p.Time)) > m.cfg.MatchWindow {
			continue
		}
		if math.Abs(ev.Quantity-p.Liters) <= limit {
			return ev, true
		}
	}
	return telematics.Event{}, false
}

func (m *Matcher) hasPurchase(ev telematics.Event, purchases []cards.Event) bool {
	for _, p := range purchases {
		if absDuration(ev.Time.Sub(p.Time)) < m.cfg.OrphanWindow {
			return true
		}
	}
	return false
}

// Drains reports every drain above threshold liters, the allowance for fuel
// level sensor error.
func Drains(drains []telematics.Event, threshold float64) []Notification {
	var out []Notification
	for _, d := range drains {
		if d.Quantity <= threshold {
			continue
		}
		out = append(out, Notification{
			Kind:    KindDrain,
			Vehicle: d.Vehicle,
			Time:    d.Time,
			Liters:  d.Quantity,
			Message: fmt.Sprintf("drain of %.2f L exceeds %.0f L sensor allowance", d.Quantity, threshold),
		})
	}
	return out
}

// Summary counts match outcomes.
type Summary struct {
	Vehicles      int     `json:"vehicles"`
	Purchases     int     `json:"purchases"`
	Matched       int     `json:"matched"`
	CardOnly      int     `json:"card_only"`
	MatchRate     float64 `json:"match_rate"`
	Notifications int     `json:"notifications"`
}

func (r Result) Summary() Summary {
	s := Summary{Vehicles: len(r.Vehicles), Notifications: len(r.Notifications)}
	for _, recs := range r.ByVehicle {
		for _, rec := range recs {
			s.Purchases++
			if rec.Status == StatusMatched {
				s.Matched++
			} else {
				s.CardOnly++
			}
		}
	}
	if s.Purchases > 0 {
		s.MatchRate = float64(s.Matched) / float64(s.Purchases) * 100
	}
	return s
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
