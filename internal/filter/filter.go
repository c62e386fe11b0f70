// Package filter restricts a discovery.LinkMap to a requested period range.
package filter

import (
	"sppd/internal/discovery"
	"sppd/internal/errs"
	"sppd/internal/period"
)

// Range restricts links to [start, end] inclusive, both optional. Keys that
// fail to parse are silently skipped (discovery's regex already constrains
// keys to digits; this is a defensive second line).
//
// Validation order, per spec.md §4.3: format-validate and membership-check
// start, then end, then require start <= end, then include every key whose
// parse succeeds and satisfies period.InRange.
func Range(links discovery.LinkMap, start, end string) (discovery.LinkMap, error) {
	available := links.Periods()

	if start != "" {
		if err := period.ValidateFormat(start); err != nil {
			return nil, err
		}
		if _, ok := links[start]; !ok {
			return nil, &errs.PeriodValidationError{Period: start, Available: available}
		}
	}
	if end != "" {
		if err := period.ValidateFormat(end); err != nil {
			return nil, err
		}
		if _, ok := links[end]; !ok {
			return nil, &errs.PeriodValidationError{Period: end, Available: available}
		}
	}
	if start != "" && end != "" {
		if period.Compare(period.ID(start), period.ID(end)) == period.Greater {
			return nil, &errs.InvalidInput{Reason: "start must be <= end"}
		}
	}

	out := make(discovery.LinkMap, len(links))
	for k, v := range links {
		if period.ValidateFormat(k) != nil {
			continue
		}
		if period.InRange(period.ID(k), period.ID(start), period.ID(end)) {
			out[k] = v
		}
	}
	return out, nil
}
