package analysis

import "time"

// Business hours: 09:00-17:00 local time on weekdays. Everything else,
// including all weekend hours, counts as off-hours.
const (
	businessStartHour = 9
	businessEndHour   = 17
)

// TimePatterns holds per-partition averages of one metric.
type TimePatterns struct {
	WeekdayAvg       float64
	WeekendAvg       float64
	BusinessHoursAvg float64
	OffHoursAvg      float64

	WeekdayCount  int
	WeekendCount  int
	BusinessCount int
	OffHoursCount int
}

// HasData reports whether any sample landed in any bucket.
func (t TimePatterns) HasData() bool {
	return t.WeekdayCount+t.WeekendCount > 0
}

// AnalyzeTimePatterns partitions samples by weekday/weekend and
// business/off hours and averages the metric within each bucket.
// Samples with a zero timestamp or a zero value are skipped, not
// counted as zero.
func AnalyzeTimePatterns(samples []Sample) TimePatterns {
	var out TimePatterns
	var weekdaySum, weekendSum, businessSum, offSum float64

	for _, s := range samples {
		if s.T.IsZero() || s.V == 0 {
			continue
		}

		wd := s.T.Weekday()
		isWeekday := wd != time.Saturday && wd != time.Sunday

		if isWeekday {
			weekdaySum += s.V
			out.WeekdayCount++
		} else {
			weekendSum += s.V
			out.WeekendCount++
		}

		h := s.T.Hour()
		if isWeekday && h >= businessStartHour && h < businessEndHour {
			businessSum += s.V
			out.BusinessCount++
		} else {
			offSum += s.V
			out.OffHoursCount++
		}
	}

	if out.WeekdayCount > 0 {
		out.WeekdayAvg = weekdaySum / float64(out.WeekdayCount)
	}
	if out.WeekendCount > 0 {
		out.WeekendAvg = weekendSum / float64(out.WeekendCount)
	}
	if out.BusinessCount > 0 {
		out.BusinessHoursAvg = businessSum / float64(out.BusinessCount)
	}
	if out.OffHoursCount > 0 {
		out.OffHoursAvg = offSum / float64(out.OffHoursCount)
	}
	return out
}
