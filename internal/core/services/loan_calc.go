package services

import (
	"math"

	"loansphere/internal/core/domain"
)

// CalculateInterest returns the annual interest rate for a principal amount
// using the platform's tiered brackets.
func CalculateInterest(principal float64) float64 {
	switch {
	case principal < 1000000:
		return 8.45
	case principal < 2500000:
		return 10.0
	default:
		return 12.0
	}
}

// CalculateEMI returns the equated monthly installment, rounded to 2
// decimals:
//
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1), r = annual rate / 1200
//
// A zero tenure yields a zero EMI; a degenerate zero rate falls back to a
// straight principal/months split.
func CalculateEMI(principal float64, months int, rate float64) float64 {
	if months == 0 {
		return 0
	}

	ratePerMonth := rate / 1200
	numerator := math.Pow(1+ratePerMonth, float64(months))
	denominator := numerator - 1

	if denominator == 0 {
		return principal / float64(months)
	}

	return round2(principal * ratePerMonth * (numerator / denominator))
}

// CalculateQuote prices a loan request. It is pure and deterministic:
// identical inputs always produce identical outputs.
func CalculateQuote(principal float64, months int) (domain.Quote, error) {
	if principal < domain.MinPrincipal {
		return domain.Quote{}, domain.ErrPrincipalTooLow
	}

	interest := CalculateInterest(principal)
	emi := CalculateEMI(principal, months, interest)

	return domain.Quote{
		Principal: principal,
		Months:    months,
		Interest:  interest,
		EMI:       emi,
		Amount:    emi * float64(months),
	}, nil
}

// round2 rounds to 2 decimals, half away from zero.
func round2(v float64) float64 {
	if v < 0 {
		return math.Ceil(v*100-0.5) / 100
	}
	return math.Floor(v*100+0.5) / 100
}
