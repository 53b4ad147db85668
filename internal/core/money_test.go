package core

import (
	"errors"
	"math"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{".", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "₹0.00"},
		{5, "₹0.05"},
		{123456, "₹1234.56"},
		{2500000, "₹25000.00"},
		{-500000, "₹-5000.00"},
		{-7, "₹-0.07"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Format("₹"); got != tc.want {
			t.Fatalf("Format(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestCentsFromFloat_RejectsUnrepresentable(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300, 1e17} {
		if _, err := CentsFromFloat(f); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("CentsFromFloat(%v) error = %v, want ErrInvalidAmount", f, err)
		}
	}
}

func TestCentsFromFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want []int64
	}{
		{12.345, []int64{1234, 1235}},
		{19.99, []int64{1999}},
		{-3.5, []int64{-350}},
	}
	for _, c := range cases {
		got, err := CentsFromFloat(c.in)
		if err != nil {
			t.Fatalf("CentsFromFloat(%v) error: %v", c.in, err)
		}
		if got != c.want[0] && got != c.want[len(c.want)-1] {
			t.Fatalf("CentsFromFloat(%v) = %d", c.in, got)
		}
	}
}
