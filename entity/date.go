package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// Date is a packed yyyymmdd date. Zero components are unknown, so the zero Date
// means "no date" and Date(2023_00_00) means "some time in 2023".
type Date int32

func NewDate(year, month, day int) Date {
	return Date(year*10000 + month*100 + day)
}

func (d Date) Year() int  { return int(d) / 10000 }
func (d Date) Month() int { return int(d) / 100 % 100 }
func (d Date) Day() int   { return int(d) % 100 }

// String renders the date in PGN style, e.g. "1972.07.??".
func (d Date) String() string {
	part := func(v, width int) string {
		if v == 0 {
			return strings.Repeat("?", width)
		}
		return fmt.Sprintf("%0*d", width, v)
	}
	return part(d.Year(), 4) + "." + part(d.Month(), 2) + "." + part(d.Day(), 2)
}

// ParseDate accepts "yyyy", "yyyy.mm" or "yyyy.mm.dd" with '?' for unknown parts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid date %q", s)
	}
	limits := []int{9999, 12, 31}
	var v [3]int
	for i, p := range parts {
		if strings.Trim(p, "?") == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid date %q", s)
		}
		v[i] = n
	}
	return NewDate(v[0], v[1], v[2]), nil
}
