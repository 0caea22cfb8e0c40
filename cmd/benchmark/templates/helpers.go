package templates

import (
	"strconv"
	"strings"
	"time"
)

// Row is one benchmark line of the report.
type Row struct {
	Name    string
	Avg     time.Duration
	Min     time.Duration
	P75     time.Duration
	P99     time.Duration
	Max     time.Duration
	Runs    int
	Flushes int
}

type Report struct {
	Title      string
	Generated  time.Time
	Iterations int
	Async      bool
	Rows       []Row
}

func (r Report) slowest() time.Duration {
	var max time.Duration
	for _, row := range r.Rows {
		if row.P99 > max {
			max = row.P99
		}
	}
	return max
}

// barWidth scales d against max into a 0-100 percentage for the inline bars.
func barWidth(d, max time.Duration) int {
	if max <= 0 {
		return 0
	}
	w := int(100 * d / max)
	if w < 1 && d > 0 {
		w = 1
	}
	return w
}

func micros(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Microsecond), 'f', 2, 64) + "µs"
}

func columnList(names ...string) string {
	var sb strings.Builder
	for i, n := range names {
		sb.WriteString("<th>")
		sb.WriteString(n)
		sb.WriteString("</th>")
		if i < len(names)-1 {
			sb.WriteString("\n\t\t\t")
		}
	}
	return sb.String()
}
