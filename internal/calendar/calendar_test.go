package calendar

import (
	"testing"
	"time"
)

func TestEaster(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{2019, "2019-04-21"},
		{2024, "2024-03-31"},
		{2025, "2025-04-20"},
		{2026, "2026-04-05"},
		{2038, "2038-04-25"},
	}

	for _, tt := range tests {
		if got := Easter(tt.year).Format(Layout); got != tt.want {
			t.Errorf("Easter(%d) = %s, want %s", tt.year, got, tt.want)
		}
	}
}

func TestIsHoliday(t *testing.T) {
	tests := []struct {
		date string
		want bool
	}{
		{"2025-01-01", true},
		{"2025-04-20", true},
		{"2025-04-21", true},
		{"2025-04-22", false},
		{"2025-04-25", true},
		{"2025-06-02", true},
		{"2025-12-26", true},
		{"2025-03-10", false},
	}

	for _, tt := range tests {
		d, _ := Parse(tt.date)
		if got := IsHoliday(d); got != tt.want {
			t.Errorf("IsHoliday(%s) = %v, want %v", tt.date, got, tt.want)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	sat, _ := Parse("2025-03-08")
	mon, _ := Parse("2025-03-10")

	if !IsWeekend(sat) {
		t.Error("2025-03-08 is a Saturday")
	}
	if IsWeekend(mon) {
		t.Error("2025-03-10 is a Monday")
	}
}

func TestCivil(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 23:30 UTC on March 9 is already March 10 in Rome.
	instant := time.Date(2025, time.March, 9, 23, 30, 0, 0, time.UTC)
	if got := Civil(instant, rome).Format(Layout); got != "2025-03-10" {
		t.Errorf("Civil() = %s, want 2025-03-10", got)
	}
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	// Europe/Rome switches to summer time on 2025-03-30.
	a := Date(2025, time.March, 28)
	b := Date(2025, time.April, 2)
	if got := DaysBetween(a, b); got != 5 {
		t.Errorf("DaysBetween() = %d, want 5", got)
	}
	if got := DaysBetween(b, a); got != -5 {
		t.Errorf("DaysBetween() = %d, want -5", got)
	}
}

func TestRange(t *testing.T) {
	from, _ := Parse("2025-02-27")
	to, _ := Parse("2025-03-02")

	got := Range(from, to)
	want := []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}
	if len(got) != len(want) {
		t.Fatalf("Range() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Range()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if Range(to, from) != nil {
		t.Error("Range() with inverted bounds should be empty")
	}
}
