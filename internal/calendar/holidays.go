package calendar

import "time"

var fixedHolidays = []struct {
	month time.Month
	day   int
	name  string
}{
	{time.January, 1, "Capodanno"},
	{time.January, 6, "Epifania"},
	{time.April, 25, "Festa della Liberazione"},
	{time.May, 1, "Festa del Lavoro"},
	{time.June, 2, "Festa della Repubblica"},
	{time.August, 15, "Ferragosto"},
	{time.November, 1, "Ognissanti"},
	{time.December, 8, "Immacolata Concezione"},
	{time.December, 25, "Natale"},
	{time.December, 26, "Santo Stefano"},
}

// Easter returns Easter Sunday of the Gregorian year (Meeus/Jones/Butcher).
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return Date(year, time.Month(month), day)
}

// HolidayName returns the Italian public holiday falling on the civil date t.
func HolidayName(t time.Time) (string, bool) {
	y, m, d := t.Date()
	for _, h := range fixedHolidays {
		if h.month == m && h.day == d {
			return h.name, true
		}
	}

	easter := Easter(y)
	day := Date(y, m, d)
	switch {
	case day.Equal(easter):
		return "Pasqua", true
	case day.Equal(easter.AddDate(0, 0, 1)):
		return "Lunedì dell'Angelo", true
	}
	return "", false
}

func IsHoliday(t time.Time) bool {
	_, ok := HolidayName(t)
	return ok
}
