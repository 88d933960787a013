// Package units converts raw value/unit pairs to a parameter's desired unit.
// Conversions are linear (scale, plus an offset for temperature) and only
// defined between units of the same physical dimension. The package never
// substitutes a value silently: an unsupported pair is an error the caller
// must handle.
package units

import (
	"fmt"
	"strings"
)

// ConversionError reports that no conversion path exists between two units.
type ConversionError struct {
	Param string // filled by the caller when known
	From  string
	To    string
}

func (e *ConversionError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("unsupported unit conversion for %s: %q -> %q", e.Param, e.From, e.To)
	}
	return fmt.Sprintf("unsupported unit conversion: %q -> %q", e.From, e.To)
}

type unitDef struct {
	dim   string
	scale float64 // factor to the dimension's base unit
}

// factors maps canonical unit spellings to their dimension and base factor.
// Temperature is handled separately because its conversions carry an offset.
var factors = map[string]unitDef{
	// pressure, base Pa
	"Pa": {"pressure", 1}, "kPa": {"pressure", 1e3}, "MPa": {"pressure", 1e6},
	"bar": {"pressure", 1e5}, "mbar": {"pressure", 100},
	"psi": {"pressure", 6894.757}, "atm": {"pressure", 101325},

	// flow, base m3/s
	"m3/s": {"flow", 1}, "m3/h": {"flow", 1.0 / 3600},
	"L/s": {"flow", 1e-3}, "L/min": {"flow", 1e-3 / 60}, "L/h": {"flow", 1e-3 / 3600},
	"gpm": {"flow", 6.30902e-5},

	// power, base W
	"W": {"power", 1}, "kW": {"power", 1e3}, "MW": {"power", 1e6},
	"mW": {"power", 1e-3}, "hp": {"power", 745.6999},

	// length, base m
	"mm": {"length", 1e-3}, "cm": {"length", 1e-2}, "m": {"length", 1},
	"km": {"length", 1e3}, "in": {"length", 0.0254}, "ft": {"length", 0.3048},

	// time, base s
	"ms": {"time", 1e-3}, "s": {"time", 1}, "min": {"time", 60}, "h": {"time", 3600},

	// current, base A
	"mA": {"current", 1e-3}, "A": {"current", 1}, "kA": {"current", 1e3},

	// voltage, base V
	"mV": {"voltage", 1e-3}, "V": {"voltage", 1}, "kV": {"voltage", 1e3},

	// frequency, base Hz
	"Hz": {"frequency", 1}, "kHz": {"frequency", 1e3}, "MHz": {"frequency", 1e6},

	// mass, base kg
	"g": {"mass", 1e-3}, "kg": {"mass", 1}, "t": {"mass", 1e3}, "lb": {"mass", 0.45359237},

	// speed, base m/s
	"m/s": {"speed", 1}, "km/h": {"speed", 1.0 / 3.6},

	// resistance, base ohm
	"uohm": {"resistance", 1e-6}, "mohm": {"resistance", 1e-3}, "ohm": {"resistance", 1},

	// energy, base J
	"J": {"energy", 1}, "kJ": {"energy", 1e3}, "kWh": {"energy", 3.6e6},
}

// aliases maps common spellings to canonical ones. Unit symbols are
// case-sensitive in general (mW vs MW), so only unambiguous variants are
// listed here.
var aliases = map[string]string{
	"pa": "Pa", "kpa": "kPa", "mpa": "MPa", "BAR": "bar", "Bar": "bar",
	"PSI": "psi", "ATM": "atm",
	"l/s": "L/s", "l/min": "L/min", "l/h": "L/h", "lpm": "L/min",
	"m³/h": "m3/h", "m³/s": "m3/s",
	"w": "W", "Kw": "kW", "KW": "kW", "HP": "hp",
	"sec": "s", "hr": "h",
	"ka": "kA", "Ka": "kA", "KA": "kA",
	"kv": "kV", "Kv": "kV", "KV": "kV",
	"hz": "Hz", "khz": "kHz",
	"KG": "kg", "Kg": "kg",
	"Ω": "ohm", "mΩ": "mohm", "µΩ": "uohm", "μΩ": "uohm", "uΩ": "uohm",
	"°C": "C", "°F": "F", "℃": "C", "℉": "F",
	"celsius": "C", "fahrenheit": "F", "kelvin": "K",
}

func canonical(unit string) string {
	u := strings.TrimSpace(unit)
	if alias, ok := aliases[u]; ok {
		return alias
	}
	return u
}

// Same reports whether two unit spellings denote the same unit.
func Same(a, b string) bool {
	return canonical(a) == canonical(b)
}

// Convert transforms value from one unit to another. Converting a unit to
// itself returns the value unchanged, so normalization is idempotent.
func Convert(value float64, from, to string) (float64, error) {
	cf, ct := canonical(from), canonical(to)
	if cf == ct {
		return value, nil
	}
	if isTemperature(cf) && isTemperature(ct) {
		return convertTemperature(value, cf, ct), nil
	}
	fd, fok := factors[cf]
	td, tok := factors[ct]
	if !fok || !tok || fd.dim != td.dim {
		return 0, &ConversionError{From: from, To: to}
	}
	return value * fd.scale / td.scale, nil
}

func isTemperature(u string) bool {
	return u == "C" || u == "F" || u == "K"
}

func convertTemperature(value float64, from, to string) float64 {
	// via kelvin
	var k float64
	switch from {
	case "C":
		k = value + 273.15
	case "F":
		k = (value + 459.67) * 5 / 9
	default:
		k = value
	}
	switch to {
	case "C":
		return k - 273.15
	case "F":
		return k*9/5 - 459.67
	default:
		return k
	}
}
