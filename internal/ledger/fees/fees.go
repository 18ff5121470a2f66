// Package fees implements the High-Water-Mark performance-fee engine (C5):
// the per-tranche excess-profit calculation, the deterministic preview with
// its confirm token, and the fee application that debits tranches and mints
// a Fund-Manager tranche.
//
// The per-tranche math is grounded the way a high-water-mark fee tracker in
// the wider retrieved pack computes it: profit above a floor, gated by a
// high-water-mark, paid as a fraction to the manager.
package fees

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/money"
)

// Params holds the configuration constants of §4.5.
type Params struct {
	FeeRate    decimal.Decimal
	HurdleRate decimal.Decimal
}

// DefaultParams returns the spec's default fee_rate=0.20, hurdle_rate=0.06.
func DefaultParams() Params {
	return Params{
		FeeRate:    decimal.NewFromFloat(0.20),
		HurdleRate: decimal.NewFromFloat(0.06),
	}
}

// TrancheFee is the computed result for one tranche (§4.5.1).
type TrancheFee struct {
	TrancheID    string
	Years        float64
	HurdlePrice  decimal.Decimal
	Threshold    decimal.Decimal
	ExcessPerUnit decimal.Decimal
	FeeAmount    decimal.Decimal
	FeeUnits     decimal.Decimal
}

// yearsBetween returns the calendar-day year fraction used for the hurdle
// compounding (§4.5.1 step 2).
func yearsBetween(entryDate, endDate time.Time) float64 {
	days := endDate.Sub(entryDate).Hours() / 24
	return days / 365.25
}

// ComputeTrancheFee applies §4.5.1 to a single tranche at the given
// end_date/total_nav. price must already equal money.PricePerUnit(totalNAV,
// totalUnits) for the fund as a whole.
func ComputeTrancheFee(t domain.Tranche, price decimal.Decimal, endDate time.Time, p Params) TrancheFee {
	years := yearsBetween(t.EntryDate, endDate)
	growth := math.Pow(1+mustFloat(p.HurdleRate), years)
	hurdlePrice := t.EntryNAV.Mul(decimal.NewFromFloat(growth))

	threshold := hurdlePrice
	if t.HWM.GreaterThan(threshold) {
		threshold = t.HWM
	}

	excess := price.Sub(threshold)
	if excess.Sign() < 0 {
		excess = decimal.Zero
	}

	feeAmount := excess.Mul(t.Units).Mul(p.FeeRate)
	feeUnits := decimal.Zero
	if price.Sign() > 0 {
		feeUnits = feeAmount.Div(price)
	}

	return TrancheFee{
		TrancheID:     t.TrancheID,
		Years:         years,
		HurdlePrice:   hurdlePrice,
		Threshold:     threshold,
		ExcessPerUnit: excess,
		FeeAmount:     feeAmount,
		FeeUnits:      feeUnits,
	}
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// InvestorFee aggregates the per-tranche fees owed by one investor.
type InvestorFee struct {
	InvestorID    int64
	TrancheFees   []TrancheFee
	FeeAmount     decimal.Decimal
	FeeUnits      decimal.Decimal
	UnitsBefore   decimal.Decimal
	UnitsAfter    decimal.Decimal
	Performance   decimal.Decimal // percent, derived (binary float acceptable per §9)
}

// Preview is the deterministic, read-only summary of §4.5.2.
type Preview struct {
	Period       string
	EndDate      time.Time
	TotalNAV     decimal.Decimal
	Price        decimal.Decimal
	Investors    []InvestorFee
	TotalFee     decimal.Decimal
	TotalFeeUnits decimal.Decimal
	ConfirmToken string
}

// ConfirmToken computes the opaque hash binding a preview to the snapshot it
// was computed from (§4.5.2, §9 GLOSSARY).
func ConfirmToken(endDate time.Time, totalNAV decimal.Decimal, snapshotVersion int64) string {
	raw := fmt.Sprintf("%d|%s|%d", endDate.UTC().UnixNano(), totalNAV.String(), snapshotVersion)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Compute builds the full preview across all tranches, grouped by investor.
// allTranches must contain every non-retired tranche in the fund.
func Compute(period string, endDate time.Time, totalNAV decimal.Decimal, allTranches []domain.Tranche, p Params) Preview {
	totalUnits := decimal.Zero
	for _, t := range allTranches {
		totalUnits = totalUnits.Add(t.Units)
	}
	price := money.PricePerUnit(totalNAV, totalUnits)

	byInvestor := map[int64][]domain.Tranche{}
	order := []int64{}
	for _, t := range allTranches {
		if _, ok := byInvestor[t.InvestorID]; !ok {
			order = append(order, t.InvestorID)
		}
		byInvestor[t.InvestorID] = append(byInvestor[t.InvestorID], t)
	}

	var investors []InvestorFee
	totalFee := decimal.Zero
	totalFeeUnits := decimal.Zero

	for _, investorID := range order {
		if investorID == domain.FundManagerInvestorID {
			continue // the Fund Manager does not pay itself a fee
		}
		tranches := byInvestor[investorID]
		unitsBefore := decimal.Zero
		for _, t := range tranches {
			unitsBefore = unitsBefore.Add(t.Units)
		}

		var tfs []TrancheFee
		feeAmount := decimal.Zero
		feeUnits := decimal.Zero
		for _, t := range tranches {
			tf := ComputeTrancheFee(t, price, endDate, p)
			tfs = append(tfs, tf)
			feeAmount = feeAmount.Add(tf.FeeAmount)
			feeUnits = feeUnits.Add(tf.FeeUnits)
		}

		unitsAfter := unitsBefore.Sub(feeUnits)
		performance := decimal.Zero
		if unitsBefore.Sign() > 0 {
			performance = feeAmount.Div(unitsBefore.Mul(price)).Mul(decimal.NewFromInt(100))
		}

		investors = append(investors, InvestorFee{
			InvestorID:  investorID,
			TrancheFees: tfs,
			FeeAmount:   feeAmount,
			FeeUnits:    feeUnits,
			UnitsBefore: unitsBefore,
			UnitsAfter:  unitsAfter,
			Performance: performance,
		})

		totalFee = totalFee.Add(feeAmount)
		totalFeeUnits = totalFeeUnits.Add(feeUnits)
	}

	return Preview{
		Period:        period,
		EndDate:       endDate,
		TotalNAV:      totalNAV,
		Price:         price,
		Investors:     investors,
		TotalFee:      totalFee,
		TotalFeeUnits: totalFeeUnits,
	}
}
