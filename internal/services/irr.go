package services

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"folio/internal/models"
)

// LedgerKind tells the IRR engine which flows mark invested capital.
type LedgerKind int

const (
	// LedgerAuto treats PURCHASE as an outflow only when the set has no DEPOSIT.
	LedgerAuto LedgerKind = iota
	// LedgerPortfolio uses DEPOSIT as the outflow and ignores PURCHASE.
	LedgerPortfolio
	// LedgerBenchmark uses PURCHASE as the outflow and ignores DEPOSIT.
	LedgerBenchmark
)

const (
	irrSeed      = 0.10
	irrMinRate   = -0.99
	irrMaxRate   = 10.0
	irrMaxIter   = 100
	irrTolerance = 1e-9
	daysPerYear  = 365.25
)

type datedAmount struct {
	date   time.Time
	amount float64
}

// CalculateIRR returns the annualised internal rate of return of flows plus a
// terminal inflow of currentValue at asOf, rounded to 4 decimal places.
// Amounts are taken from the investor's side: capital put in is negative,
// sales and dividends are positive. It returns 0 whenever no reasonable rate
// exists: fewer than two dated flows, a single sign, non-convergence, or a
// rate outside [-0.99, 10].
func CalculateIRR(flows []models.CashFlow, currentValue decimal.Decimal, asOf time.Time, kind LedgerKind) float64 {
	purchasesAreOutflows := kind == LedgerBenchmark
	if kind == LedgerAuto {
		purchasesAreOutflows = true
		for _, f := range flows {
			if f.FlowType == models.FlowTypeDeposit {
				purchasesAreOutflows = false
				break
			}
		}
	}

	net := make(map[string]decimal.Decimal)
	dates := make(map[string]time.Time)
	add := func(t time.Time, amount decimal.Decimal) {
		key := dateKey(t)
		net[key] = net[key].Add(amount)
		dates[key] = models.NormalizeDate(t)
	}

	for _, f := range flows {
		switch f.FlowType {
		case models.FlowTypeDeposit:
			if kind != LedgerBenchmark {
				add(f.Date, f.Amount.Abs().Neg())
			}
		case models.FlowTypePurchase:
			if purchasesAreOutflows {
				add(f.Date, f.Amount.Abs().Neg())
			}
		case models.FlowTypeSale, models.FlowTypeDividend:
			add(f.Date, f.Amount.Abs())
		}
	}
	for key, amount := range net {
		if amount.IsZero() {
			delete(net, key)
		}
	}
	if currentValue.IsPositive() {
		add(asOf, currentValue)
	}

	series := make([]datedAmount, 0, len(net))
	hasNeg, hasPos := false, false
	for key, amount := range net {
		if amount.IsZero() {
			continue
		}
		v := amount.InexactFloat64()
		hasNeg = hasNeg || v < 0
		hasPos = hasPos || v > 0
		series = append(series, datedAmount{date: dates[key], amount: v})
	}
	if len(series) < 2 || !hasNeg || !hasPos {
		return 0
	}
	sort.Slice(series, func(i, j int) bool { return series[i].date.Before(series[j].date) })

	amounts := make([]float64, len(series))
	years := make([]float64, len(series))
	for i, s := range series {
		amounts[i] = s.amount
		years[i] = s.date.Sub(series[0].date).Hours() / 24 / daysPerYear
	}

	rate, ok := solveIRR(amounts, years)
	if !ok || math.IsNaN(rate) || math.IsInf(rate, 0) || rate < irrMinRate || rate > irrMaxRate {
		return 0
	}
	return math.Round(rate*1e4) / 1e4
}

// npv is +Inf for r <= -1 so that Newton steps are pushed away from the pole.
func npv(amounts, years []float64, r float64) float64 {
	if r <= -1 {
		return math.Inf(1)
	}
	sum := 0.0
	for i, a := range amounts {
		sum += a / math.Pow(1+r, years[i])
	}
	return sum
}

func dnpv(amounts, years []float64, r float64) float64 {
	sum := 0.0
	for i, a := range amounts {
		if years[i] == 0 {
			continue
		}
		sum -= years[i] * a / math.Pow(1+r, years[i]+1)
	}
	return sum
}

// solveIRR runs Newton-Raphson from irrSeed. A root found outside
// [irrMinRate, irrMaxRate] is rejected outright; bisection on that range is only
// tried when Newton fails to converge.
func solveIRR(amounts, years []float64) (float64, bool) {
	scale := 0.0
	for _, a := range amounts {
		scale += math.Abs(a)
	}
	tol := irrTolerance * math.Max(1, scale)

	r := irrSeed
	for i := 0; i < irrMaxIter; i++ {
		v := npv(amounts, years, r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			break
		}
		if math.Abs(v) < tol {
			if r < irrMinRate || r > irrMaxRate {
				return 0, false
			}
			return r, true
		}
		d := dnpv(amounts, years, r)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			break
		}
		next := r - v/d
		if math.IsNaN(next) || math.IsInf(next, 0) {
			break
		}
		r = next
	}
	return bisectIRR(amounts, years, tol)
}

func bisectIRR(amounts, years []float64, tol float64) (float64, bool) {
	lo, hi := irrMinRate, irrMaxRate
	fLo, fHi := npv(amounts, years, lo), npv(amounts, years, hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || math.IsInf(fLo, 0) || math.IsInf(fHi, 0) {
		return 0, false
	}
	if fLo*fHi > 0 {
		return 0, false
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fMid := npv(amounts, years, mid)
		if math.IsNaN(fMid) || math.IsInf(fMid, 0) {
			return 0, false
		}
		if math.Abs(fMid) < tol || (hi-lo)/2 < 1e-12 {
			return mid, true
		}
		if fMid*fLo < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return (lo + hi) / 2, true
}
