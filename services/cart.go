package services

import (
	"fmt"
	"strings"

	"arepazo-bot/models"
)

// CartSummary renders one display line per cart entry ("2x Arepa: $ 14.000")
// and the running total. Pure: no I/O, same input always yields the same
// output, so the dialog layer can call it as often as it likes.
func CartSummary(cart []models.CartLine) ([]string, int64) {
	lines := make([]string, 0, len(cart))
	var total int64
	for _, line := range cart {
		subtotal := line.Price * int64(line.Qty)
		total += subtotal
		lines = append(lines, fmt.Sprintf("%dx %s: %s", line.Qty, line.Name, FormatPrice(subtotal)))
	}
	return lines, total
}

// FormatPrice formats whole Colombian pesos with dot thousand separators,
// e.g. 10000 -> "$ 10.000". Zero and negative values render as empty, the
// way the original menu rendering treated missing prices.
func FormatPrice(v int64) string {
	if v <= 0 {
		return ""
	}
	digits := fmt.Sprintf("%d", v)
	var b strings.Builder
	b.WriteString("$ ")
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteString(".")
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteString(".")
		}
	}
	return b.String()
}
