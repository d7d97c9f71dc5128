package helper

import (
	"math"
	"strconv"
	"strings"
)

// NormTF приводит таймфрейм к виду bybit-интервала: "1m"→"1", "1h"→"60", "1d"→"D".
func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	switch s {
	case "1m", "1":
		return "1"
	case "3m", "3":
		return "3"
	case "5m", "5":
		return "5"
	case "15m", "15":
		return "15"
	case "30m", "30":
		return "30"
	case "1h", "60m", "60":
		return "60"
	case "4h", "240":
		return "240"
	case "1d", "d":
		return "D"
	default:
		return s
	}
}

func RoundDownToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	steps := math.Floor(qty/step + 1e-12)
	return steps * step
}

func RoundUpToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	steps := math.Ceil(qty/step - 1e-12)
	return steps * step
}

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

// FormatQty печатает количество без экспоненты и без хвостовых нулей —
// биржа отвергает "1e-05" и ругается на лишнюю точность.
func FormatQty(q float64) string {
	s := strconv.FormatFloat(q, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func FormatPrice(px float64) string {
	s := strconv.FormatFloat(px, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func ParseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
