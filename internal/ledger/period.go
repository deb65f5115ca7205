package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar month, written as YYYY-MM.
type Period struct {
	Year  int
	Month int
}

// ParsePeriod parses the YYYY-MM form. Surrounding whitespace is ignored.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return Period{}, ErrInvalidPeriod
	}
	for i, r := range s {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return Period{}, ErrInvalidPeriod
		}
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:])
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// CurrentPeriod returns the period containing the current local time.
func CurrentPeriod() Period {
	return PeriodOf(time.Now())
}

func (p Period) Validate() error {
	if p.Year < 1 || p.Year > 9999 {
		return ErrInvalidPeriod
	}
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidPeriod
	}
	return nil
}

func (p Period) IsZero() bool { return p == Period{} }

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// index counts months since year 0 so that periods can be subtracted.
func (p Period) index() int {
	return p.Year*12 + p.Month - 1
}

// MonthsUntil returns how many months lie between p and other. It is negative
// when other is before p.
func (p Period) MonthsUntil(other Period) int {
	return other.index() - p.index()
}

func (p Period) Before(other Period) bool { return p.index() < other.index() }

func (p Period) After(other Period) bool { return p.index() > other.index() }

// AddMonths returns the period n months after p.
func (p Period) AddMonths(n int) Period {
	i := p.index() + n
	return Period{Year: i / 12, Month: i%12 + 1}
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
