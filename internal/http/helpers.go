package http

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"goaltrack/internal/core"
)

// clientIP extracts the client address, honoring proxy headers.
func clientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	// X-Forwarded-For may carry a chain, the first hop is the client.
	if idx := strings.IndexByte(ip, ','); idx >= 0 {
		ip = ip[:idx]
	}
	return strings.TrimSpace(ip)
}

// parseAmount coerces a JSON amount field, number or string, into Money.
func parseAmount(v any) (core.Money, error) {
	switch a := v.(type) {
	case string:
		cents, err := core.ParseDecimalToCents(a)
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: cents}, nil
	case float64:
		cents, err := core.ParseDecimalToCents(strconv.FormatFloat(a, 'f', -1, 64))
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: cents}, nil
	case nil:
		return core.Money{}, core.ErrInvalidAmount
	default:
		return core.Money{}, core.ErrInvalidAmount
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// humanizeDays renders an estimated day count as a rough label such as
// "3 days", "2 weeks" or "1 year". Counts round up so an estimate never
// reads as shorter than it is.
func humanizeDays(days float64) string {
	d := int64(math.Ceil(days))
	switch {
	case d <= 1:
		return "1 day"
	case d < 7:
		return fmt.Sprintf("%d days", d)
	case d < 30:
		weeks := (d + 6) / 7
		if weeks == 1 {
			return "1 week"
		}
		return fmt.Sprintf("%d weeks", weeks)
	case d < 365:
		months := (d + 29) / 30
		if months == 1 {
			return "1 month"
		}
		return fmt.Sprintf("%d months", months)
	default:
		years := (d + 364) / 365
		if years == 1 {
			return "1 year"
		}
		return fmt.Sprintf("%d years", years)
	}
}
