package recon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/match"
	"go.grg.app/fuelrecon/internal/sheet"
)

func open(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open(filepath.Join("..", "..", "testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func fixtures(t *testing.T) Inputs {
	return Inputs{
		Cards:   open(t, "cards.csv"),
		Refuels: open(t, "refuels.csv"),
		Drains:  open(t, "drains.csv"),
		Roster:  open(t, "roster.csv"),
	}
}

func TestRunFixtures(t *testing.T) {
	run, err := New(config.Default(), zaptest.NewLogger(t)).Run(context.Background(), fixtures(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := strings.Join(run.Result.Vehicles, ","); got != "497,203" {
		t.Fatalf("vehicles = %s", got)
	}
	s := run.Result.Summary()
	if s.Purchases != 5 || s.Matched != 4 || s.CardOnly != 1 || s.MatchRate != 80 {
		t.Fatalf("summary = %+v", s)
	}

	scania := run.Result.ByVehicle["497"]
	wantDiff := []float64{2, 0.5}
	for i, want := range wantDiff {
		if scania[i].Status != match.StatusMatched || *scania[i].Difference != want {
			t.Errorf("497[%d] = %+v", i, scania[i])
		}
	}
	if scania[2].Status != match.StatusCardOnly {
		t.Errorf("497[2] status = %s", scania[2].Status)
	}
	if d := *run.Result.ByVehicle["203"][0].Difference; d != -4.5 {
		t.Errorf("203[0] difference = %v", d)
	}

	kinds := make([]string, 0, len(run.Result.Notifications))
	for _, n := range run.Result.Notifications {
		kinds = append(kinds, string(n.Kind)+":"+n.Vehicle)
	}
	if got := strings.Join(kinds, ","); got != "missing_telematics:497,missing_card:203" {
		t.Errorf("notifications = %s", got)
	}
	if len(run.Drains) != 1 || run.Drains[0].Vehicle != "497" || run.Drains[0].Liters != 35.5 {
		t.Errorf("drains = %+v", run.Drains)
	}

	for vehicle, want := range map[string]float64{"497": 13.32, "203": 33.33} {
		recs := run.Consumption[vehicle]
		if len(recs) != 2 {
			t.Fatalf("%s consumption = %+v", vehicle, recs)
		}
		if recs[0].Consumption != nil {
			t.Errorf("%s first consumption = %v", vehicle, *recs[0].Consumption)
		}
		if recs[1].Consumption == nil || *recs[1].Consumption != want {
			t.Errorf("%s consumption = %v, want %v", vehicle, recs[1].Consumption, want)
		}
	}
}

func TestRunDrainsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Drains = false
	run, err := New(cfg, zaptest.NewLogger(t)).Run(context.Background(), fixtures(t))
	if err != nil {
		t.Fatal(err)
	}
	if run.Drains != nil {
		t.Fatalf("drains = %+v", run.Drains)
	}
}

func TestRunMissingColumnsAborts(t *testing.T) {
	in := fixtures(t)
	in.Refuels = strings.NewReader("Группировка;Время;Заправлено\n")
	_, err := New(config.Default(), zaptest.NewLogger(t)).Run(context.Background(), in)
	if !errors.Is(err, sheet.ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(config.Default(), zaptest.NewLogger(t)).Run(ctx, fixtures(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
