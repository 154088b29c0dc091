package telematics

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.grg.app/fuelrecon/internal/config"
	"go.grg.app/fuelrecon/internal/sheet"
)

var opts = Options{Sentinel: "-----", Location: time.UTC}

func TestClassifyRows(t *testing.T) {
	rows := []Row{
		{Line: 1, Grouping: "15.10.2025", Time: "10:00:00", Quantity: "10", Odometer: "1"}, // no vehicle yet
		{Line: 2, Grouping: "Scania т497ес797(406)*", Time: "-----", Quantity: "98", Odometer: "-----"},
		{Line: 3, Grouping: "15.10.2025", Time: "15.10.2025 10:30:00", Quantity: "48,0", Odometer: "120 000"},
		{Line: 4, Grouping: "16.10.2025", Time: "-----", Quantity: "-----", Odometer: "-----"},
		{Line: 5, Grouping: "17.10.2025", Time: "09:00", Quantity: "30", Odometer: "-----"},
		{Line: 6, Grouping: "КАМАЗ 203", Time: "", Quantity: "", Odometer: ""},
		{Line: 7, Grouping: "16.10.2025", Time: "08:05:00", Quantity: "200", Odometer: "355120"},
		{Line: 8, Grouping: "17.10.2025", Time: "08:05:00", Quantity: "many", Odometer: "355120"},
	}
	events, err := ClassifyRows(rows, opts)

	want := []Event{
		{Vehicle: "497", Time: time.Date(2025, 10, 15, 10, 30, 0, 0, time.UTC), Quantity: 48, Odometer: 120000, Line: 3},
		{Vehicle: "203", Time: time.Date(2025, 10, 16, 8, 5, 0, 0, time.UTC), Quantity: 200, Odometer: 355120, Line: 7},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}

	var re *sheet.RowError
	if !errors.As(err, &re) || re.Line != 8 {
		t.Fatalf("err = %v, want row error on line 8", err)
	}
	if !sheet.Partial(err) {
		t.Fatalf("err = %v, want partial", err)
	}
}

func TestClassifyRowsIsRepeatable(t *testing.T) {
	rows := []Row{
		{Line: 1, Grouping: "Volvo a123bc77", Time: "-----"},
		{Line: 2, Grouping: "1.10.2025", Time: "7:15", Quantity: "55", Odometer: "1000"},
	}
	a, _ := ClassifyRows(rows, opts)
	b, _ := ClassifyRows(rows, opts)
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
	if a[0].Vehicle != "123" {
		t.Fatalf("vehicle = %q, want 123", a[0].Vehicle)
	}
}

func TestReadSheetFixture(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "..", "testdata", "refuels.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	cfg := config.Default()
	events, err := ReadSheet(f, cfg.Input.Refuels, cfg.Comma(), opts)
	if !sheet.Partial(err) {
		t.Fatalf("err = %v, want only skipped rows", err)
	}
	if !strings.Contains(err.Error(), "line 9") {
		t.Fatalf("err = %v, want line 9 reported", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}

	groups, order := ByVehicle(events)
	if fmt.Sprint(order) != "[497 203]" {
		t.Fatalf("vehicle order = %v", order)
	}
	if len(groups["497"]) != 2 || len(groups["203"]) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if got := groups["497"][1].Odometer; got != 120450.5 {
		t.Errorf("odometer = %v, want 120450.5", got)
	}
	if got := groups["203"][1].Time; !got.Equal(time.Date(2025, 10, 2, 18, 45, 0, 0, time.UTC)) {
		t.Errorf("time = %v", got)
	}
}

func TestReadSheetMissingColumns(t *testing.T) {
	cfg := config.Default()
	_, err := ReadSheet(strings.NewReader("Группировка;Время\n"), cfg.Input.Drains, ';', opts)
	if !errors.Is(err, sheet.ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
	if sheet.Partial(err) {
		t.Fatal("missing columns reported as partial")
	}
	if _, err := ReadSheet(strings.NewReader(""), cfg.Input.Drains, ';', opts); err == nil {
		t.Fatal("empty sheet accepted")
	}
}

func BenchmarkClassifyRows(b *testing.B) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "Группировка;Время;Заправлено;Пробег")
	for v := range 200 {
		fmt.Fprintf(&buf, "Scania т%03dес797;-----;-----;-----\n", v)
		for d := 1; d <= 28; d++ {
			fmt.Fprintf(&buf, "%02d.10.2025;%02d:15:00;%d,5;%d\n", d, d%24, 40+d, 100000+d*350)
		}
	}
	data := buf.Bytes()
	cols := config.Default().Input.Refuels

	for b.Loop() {
		if _, err := ReadSheet(bytes.NewReader(data), cols, ';', opts); err != nil {
			b.Fatal(err)
		}
	}
}
