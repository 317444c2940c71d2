package adapter

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// currencySymbols is the fixed symbol table shared by the commerce adapters.
// Codes outside the table fall back to a "<CODE> " prefix.
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"NGN": "₦",
	"GHS": "GH₵",
	"KES": "KSh",
	"ZAR": "R",
}

// FormatCurrency renders an amount with the provider symbol table, two
// decimal places and thousands separators: FormatCurrency(1234.5, "NGN")
// yields "₦1,234.50", FormatCurrency(10, "XYZ") yields "XYZ 10.00".
func FormatCurrency(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	number := groupThousands(amount)
	if sym, ok := currencySymbols[code]; ok {
		return sym + number
	}
	if code == "" {
		return number
	}
	return code + " " + number
}

// groupThousands formats amount with two decimals and comma separators.
func groupThousands(amount float64) string {
	neg := amount < 0
	amount = math.Abs(amount)

	whole := int64(amount)
	cents := int64(math.Round((amount - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := fmt.Sprintf("%d", whole)
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
		if len(digits) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}

	out := fmt.Sprintf("%s.%02d", b.String(), cents)
	if neg {
		return "-" + out
	}
	return out
}

// TimeAgo buckets the distance between now and t into the relative-time
// strings used across adapters: "just now" under a minute, then
// minute/hour/day tiers, then (when withWeeks is set, testimonials only) a
// week tier up to four weeks, and finally a plain date.
func TimeAgo(now, t time.Time, withWeeks bool) string {
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}

	mins := int(d.Minutes())
	if mins < 60 {
		return pluralAgo(mins, "minute")
	}

	hours := int(d.Hours())
	if hours < 24 {
		return pluralAgo(hours, "hour")
	}

	days := hours / 24
	if days <= 7 {
		return pluralAgo(days, "day")
	}

	if withWeeks && days <= 28 {
		return pluralAgo(days/7, "week")
	}

	return t.Format("Jan 2, 2006")
}

func pluralAgo(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// CustomerName joins billing first/last names, defaulting to "Someone" when
// both are empty.
func CustomerName(first, last string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		return "Someone"
	}
	return name
}

// Location comma-joins the non-empty parts of (city, country).
func Location(city, country string) string {
	var parts []string
	for _, p := range []string{city, country} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Stars renders a five-star display for a 0-5 rating.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// parseSourceTime parses the timestamp formats the providers emit, returning
// the zero time when nothing matches. Callers fall back to ingestion time.
func parseSourceTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// eventTimestamp returns the source time in RFC3339 when parseable, else the
// ingestion time.
func eventTimestamp(source string) (string, time.Time) {
	if t := parseSourceTime(source); !t.IsZero() {
		return t.UTC().Format(time.RFC3339), t
	}
	now := time.Now().UTC()
	return now.Format(time.RFC3339), now
}
