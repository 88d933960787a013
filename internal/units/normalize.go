package units

import (
	"github.com/dgallion1/specgest/internal/merge"
	"github.com/dgallion1/specgest/internal/schema"
)

// NormalizeMerged converts every resolved parameter to its descriptor's
// desired unit, in place. Parameters whose descriptor declares no desired
// unit pass through unchanged, as do text-only values. Failures are
// collected and returned, one per parameter; the value keeps its original
// unit and the caller decides whether to surface it raw or treat the
// parameter as not found.
func NormalizeMerged(merged *merge.MergedResult, descs []schema.Descriptor) []*ConversionError {
	byName := make(map[string]schema.Descriptor, len(descs))
	for _, d := range descs {
		byName[d.Name] = d
	}

	var errs []*ConversionError
	for name, res := range merged.Resolved {
		d, ok := byName[name]
		if !ok || d.DesiredUnit == "" {
			continue
		}
		if Same(res.Unit, d.DesiredUnit) {
			continue
		}
		if !res.Numeric {
			// Text values carry no convertible magnitude.
			continue
		}
		v, err := Convert(res.Value, res.Unit, d.DesiredUnit)
		if err != nil {
			ce := err.(*ConversionError)
			ce.Param = name
			errs = append(errs, ce)
			continue
		}
		res.Value = v
		res.Unit = d.DesiredUnit
		merged.Resolved[name] = res
	}
	return errs
}
