package directory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/sheet"
)

func TestBuild(t *testing.T) {
	d := Build([]RosterRow{
		{Vehicle: " 497 ", Cards: []string{"0249", " "}},
		{Vehicle: "203", Cards: []string{" 1234 ", "1235"}},
		{Vehicle: "118"},
	})
	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}
	if v, ok := d.Lookup("0249"); !ok || v != "497" {
		t.Errorf("Lookup(0249) = %q, %v", v, ok)
	}
	if v, ok := d.Lookup("1234"); !ok || v != "203" {
		t.Errorf("Lookup(1234) = %q, %v", v, ok)
	}
	// exact string only: the roster form is not re-normalized
	if _, ok := d.Lookup("249"); ok {
		t.Error("Lookup(249) matched 0249")
	}
	if _, ok := d.Lookup("9999"); ok {
		t.Error("Lookup(9999) matched")
	}
	if got := fmt.Sprint(d.Vehicles()); got != "[203 497]" {
		t.Errorf("Vehicles = %s", got)
	}
}

func TestBuildLastRowWins(t *testing.T) {
	d := Build([]RosterRow{
		{Vehicle: "1", Cards: []string{"5555"}},
		{Vehicle: "2", Cards: []string{"5555"}},
	})
	if v, _ := d.Lookup("5555"); v != "2" {
		t.Fatalf("Lookup = %q, want 2", v)
	}
}

func TestReadRosterFixture(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "..", "testdata", "roster.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cfg := config.Default()
	rows, err := ReadRoster(f, cfg.Input.Roster, cfg.Comma(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("ReadRoster: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	d := Build(rows)
	if got := fmt.Sprint(d.Pairs()); got != "[[0249 497] [1234 203] [1235 203]]" {
		t.Fatalf("Pairs = %s", got)
	}
}

func TestReadRosterMissingColumns(t *testing.T) {
	cfg := config.Default()
	logger := zaptest.NewLogger(t)
	_, err := ReadRoster(strings.NewReader("машина;топливна карта 1\n"), cfg.Input.Roster, ';', logger)
	if !errors.Is(err, sheet.ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
}

func TestReadRosterWithoutCardColumns(t *testing.T) {
	cfg := config.Default()
	rows, err := ReadRoster(strings.NewReader("номер машины;примечание\n497;тягач\n"), cfg.Input.Roster, ';', zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("ReadRoster: %v", err)
	}
	if len(rows) != 1 || rows[0].Vehicle != "497" || len(rows[0].Cards) != 0 {
		t.Fatalf("rows = %+v", rows)
	}
	if d := Build(rows); d.Len() != 0 {
		t.Fatalf("Len = %d, want empty directory", d.Len())
	}
}

func TestFromMap(t *testing.T) {
	d := FromMap(map[string]string{"0249": "497"})
	if v, ok := d.Lookup("0249"); !ok || v != "497" {
		t.Fatalf("Lookup = %q, %v", v, ok)
	}
}

func TestParseAssignment(t *testing.T) {
	for _, tc := range []struct {
		in            string
		card, vehicle string
		ok            bool
	}{
		{"0249:497", "0249", "497", true},
		{"7826 0100 0000 1234 : 203 ", "1234", "203", true},
		{"0249", "", "", false},
		{"abc:497", "", "", false},
		{"0249:", "", "", false},
	} {
		card, vehicle, err := ParseAssignment(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseAssignment(%q) err = %v", tc.in, err)
			continue
		}
		if !tc.ok {
			if !errors.Is(err, ErrAssignment) {
				t.Errorf("ParseAssignment(%q) err = %v, want ErrAssignment", tc.in, err)
			}
			continue
		}
		if card != tc.card || vehicle != tc.vehicle {
			t.Errorf("ParseAssignment(%q) = %q, %q", tc.in, card, vehicle)
		}
	}
}

func TestWriteRosterReadsBack(t *testing.T) {
	cfg := config.Default()
	d := FromMap(map[string]string{"0249": "497", "1234": "203", "1235": "203"})

	var buf strings.Builder
	if err := WriteRoster(&buf, d, cfg.Input.Roster, ';'); err != nil {
		t.Fatal(err)
	}
	want := "номер машины;топливна карта 1;топливна карта 2\n203;1234;1235\n497;0249;\n"
	if buf.String() != want {
		t.Fatalf("roster =\n%s", buf.String())
	}
	rows, err := ReadRoster(strings.NewReader(buf.String()), cfg.Input.Roster, ';', zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	if got := fmt.Sprint(Build(rows).Pairs()); got != fmt.Sprint(d.Pairs()) {
		t.Fatalf("Pairs = %s", got)
	}
}
