// Package evidence normalizes caller-supplied training history into the
// daily load series consumed by the state estimator.
//
// Records arrive already parsed (file ingestion is an external
// collaborator); this package only derives load values, fills calendar
// gaps, and scores per-day evidence quality. When a record carries no
// direct load (TSS), a TRIMP-based proxy is derived from heart-rate data
// and the athlete's profile zones.
package evidence

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// HRZones are the athlete's heart-rate reference points used for the TRIMP
// proxy when no direct load value is available.
type HRZones struct {
	RestingHR float64 `json:"restingHR" yaml:"restingHR"`
	MaxHR     float64 `json:"maxHR" yaml:"maxHR"`
}

// DefaultZones returns sensible defaults if the profile has none.
func DefaultZones() HRZones {
	return HRZones{RestingHR: 50, MaxHR: 185}
}

// Profile carries the athlete metrics relevant to load derivation.
type Profile struct {
	Zones HRZones `json:"zones" yaml:"zones"`

	// FTP is optional; zero means unknown.
	FTP float64 `json:"ftp,omitempty" yaml:"ftp,omitempty"`
}

// ActivityRecord is one completed activity.
type ActivityRecord struct {
	Date        time.Time `json:"date" yaml:"date"`
	DurationSec float64   `json:"durationSec" yaml:"durationSec"`

	// TSS is the directly measured training stress, if the source computed
	// one. Nil means "derive a proxy".
	TSS *float64 `json:"tss,omitempty" yaml:"tss,omitempty"`

	// AvgHR is the average heart rate, used for the TRIMP proxy.
	AvgHR *float64 `json:"avgHR,omitempty" yaml:"avgHR,omitempty"`

	// PerceivedEffort is an optional 1-10 session RPE.
	PerceivedEffort *float64 `json:"perceivedEffort,omitempty" yaml:"perceivedEffort,omitempty"`
}

// DayObservation is one calendar day of assimilated evidence.
type DayObservation struct {
	Date time.Time

	// Load is the summed daily load (TSS or proxy).
	Load float64

	// Quality is the evidence quality in [0,1]: 1 for measured TSS, lower
	// for proxies, 0 for gap days.
	Quality float64

	// Observed is false for calendar gap days inserted between activities.
	Observed bool
}

// TRIMP computes the Banister training impulse for a record from HR data:
// duration(min) * ΔHR ratio * e^(b * ΔHR ratio), b = 1.92.
func TRIMP(rec ActivityRecord, zones HRZones) float64 {
	if rec.AvgHR == nil || *rec.AvgHR <= 0 {
		return 0
	}
	hrReserve := zones.MaxHR - zones.RestingHR
	if hrReserve <= 0 {
		return 0
	}
	ratio := (*rec.AvgHR - zones.RestingHR) / hrReserve
	ratio = math.Min(1, math.Max(0, ratio))
	minutes := rec.DurationSec / 60
	const b = 1.92
	return minutes * ratio * math.Exp(b*ratio)
}

// HRSS normalizes TRIMP so a one-hour threshold effort scores ~100,
// putting the proxy on the same scale as TSS.
func HRSS(rec ActivityRecord, zones HRZones) float64 {
	const thresholdTRIMP = 100.0
	return TRIMP(rec, zones) / thresholdTRIMP * 100
}

// rpeLoad is the fallback proxy when neither TSS nor HR is available:
// session RPE times hours, scaled so an hour at RPE 7 is ~70.
func rpeLoad(rec ActivityRecord) float64 {
	if rec.PerceivedEffort == nil || *rec.PerceivedEffort <= 0 {
		return 0
	}
	hours := rec.DurationSec / 3600
	return *rec.PerceivedEffort * 10 * hours
}

// recordLoad derives the load and evidence quality for one record.
func recordLoad(rec ActivityRecord, profile Profile) (load, quality float64) {
	switch {
	case rec.TSS != nil && *rec.TSS >= 0:
		return *rec.TSS, 1.0
	case rec.AvgHR != nil:
		return HRSS(rec, profile.Zones), 0.75
	default:
		return rpeLoad(rec), 0.4
	}
}

// DailySeries flattens activity records into one observation per calendar
// day, summing same-day activities and filling interior gaps with
// zero-load, zero-quality days. Records must carry valid dates and finite
// values; a bad record is a validation failure, not something to skip.
func DailySeries(records []ActivityRecord, profile Profile) ([]DayObservation, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if profile.Zones == (HRZones{}) {
		profile.Zones = DefaultZones()
	}

	type dayAgg struct {
		load    float64
		quality float64
		n       int
	}
	byDay := make(map[time.Time]*dayAgg)
	var first, last time.Time
	for i, rec := range records {
		if rec.Date.IsZero() {
			return nil, fmt.Errorf("activity record %d: date is required", i)
		}
		if rec.DurationSec < 0 || math.IsNaN(rec.DurationSec) || math.IsInf(rec.DurationSec, 0) {
			return nil, fmt.Errorf("activity record %d: duration must be a finite non-negative number, got %v", i, rec.DurationSec)
		}
		if rec.TSS != nil && (math.IsNaN(*rec.TSS) || math.IsInf(*rec.TSS, 0) || *rec.TSS < 0) {
			return nil, fmt.Errorf("activity record %d: tss must be a finite non-negative number, got %v", i, *rec.TSS)
		}
		day := rec.Date.UTC().Truncate(24 * time.Hour)
		load, quality := recordLoad(rec, profile)
		agg, ok := byDay[day]
		if !ok {
			agg = &dayAgg{}
			byDay[day] = agg
		}
		agg.load += load
		agg.quality += quality
		agg.n++
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}

	var out []DayObservation
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if agg, ok := byDay[d]; ok {
			out = append(out, DayObservation{
				Date:     d,
				Load:     agg.load,
				Quality:  agg.quality / float64(agg.n),
				Observed: true,
			})
		} else {
			out = append(out, DayObservation{Date: d})
		}
	}
	return out, nil
}

// Coverage is the fraction of days in the series with observed evidence.
func Coverage(series []DayObservation) float64 {
	if len(series) == 0 {
		return 0
	}
	observed := 0
	for _, d := range series {
		if d.Observed {
			observed++
		}
	}
	return float64(observed) / float64(len(series))
}

// WeeklyAverage returns the mean 7-day load over the series.
func WeeklyAverage(series []DayObservation) float64 {
	if len(series) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range series {
		sum += d.Load
	}
	return sum / float64(len(series)) * 7
}

// SortRecords orders records chronologically, in place, for deterministic
// assimilation regardless of caller ordering.
func SortRecords(records []ActivityRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}
