package services

import (
	"testing"

	"arepazo-bot/models"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, ""},
		{-500, ""},
		{7, "$ 7"},
		{950, "$ 950"},
		{1000, "$ 1.000"},
		{10000, "$ 10.000"},
		{14500, "$ 14.500"},
		{123456, "$ 123.456"},
		{1234567, "$ 1.234.567"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.in); got != tt.want {
			t.Errorf("FormatPrice(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCartSummary(t *testing.T) {
	cart := []models.CartLine{
		{Name: "Arepa de Chicharrón", Price: 7000, Qty: 2, Category: models.CategoryMain},
		{Name: "Coca-Cola", Price: 3000, Qty: 1, Category: models.CategoryDrink},
	}
	lines, total := CartSummary(cart)
	if total != 17000 {
		t.Errorf("total = %d, want 17000", total)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0] != "2x Arepa de Chicharrón: $ 14.000" {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if lines[1] != "1x Coca-Cola: $ 3.000" {
		t.Errorf("lines[1] = %q", lines[1])
	}
}

func TestCartSummaryEmpty(t *testing.T) {
	lines, total := CartSummary(nil)
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if len(lines) != 0 {
		t.Errorf("len(lines) = %d, want 0", len(lines))
	}
}
