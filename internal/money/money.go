// Package money formats integer minor-unit amounts for display. Amounts stay
// int64 end to end; nothing here does arithmetic on money.
package money

import "strconv"

// Unit describes how a currency is rendered. The unit is always passed
// explicitly so formatting never depends on process-wide locale state.
type Unit struct {
	// Suffix is appended after the digits (e.g. "원").
	Suffix string

	// Prefix is placed before the digits (e.g. "₩"). Usually one of Prefix
	// or Suffix is set.
	Prefix string

	// GroupSize digits are grouped with commas. Zero disables grouping.
	GroupSize int
}

// KRW renders won the way settlement messages do: "12,345원".
var KRW = Unit{Suffix: "원", GroupSize: 3}

// Format renders an integer amount with the unit's grouping and affixes.
func Format(amount int64, u Unit) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	if u.GroupSize > 0 && len(digits) > u.GroupSize {
		var b []byte
		lead := len(digits) % u.GroupSize
		if lead > 0 {
			b = append(b, digits[:lead]...)
		}
		for i := lead; i < len(digits); i += u.GroupSize {
			if len(b) > 0 {
				b = append(b, ',')
			}
			b = append(b, digits[i:i+u.GroupSize]...)
		}
		digits = string(b)
	}

	out := u.Prefix + digits + u.Suffix
	if neg {
		return "-" + out
	}
	return out
}
