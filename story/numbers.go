package story

import (
	"strconv"
	"strings"
)

// FormatNumber scrive un numero senza zeri superflui né esponente
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseNumberPair interpreta "numero,numero", senza spazi attorno ai numeri
func ParseNumberPair(v string) (float64, float64, bool) {
	left, right, found := strings.Cut(v, ",")
	if !found {
		return 0, 0, false
	}
	a, err := strconv.ParseFloat(left, 64)
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.ParseFloat(right, 64)
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// FormatNumberPair è l'inverso di ParseNumberPair
func FormatNumberPair(a, b float64) string {
	return FormatNumber(a) + "," + FormatNumber(b)
}
