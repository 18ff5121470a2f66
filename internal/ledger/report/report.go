// Package report implements the reporting projection (C6): pure derived
// views over a store snapshot. Nothing here mutates state; every function
// takes a consistent snapshot so callers never observe a partial mutation,
// the way internal/mocks' read-only loaders never touch the live store.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/money"
)

// Snapshot groups the tables a report reads. The functions below take the
// individual slices rather than a Snapshot; passing slices taken from one
// store.Store.Snapshot() call keeps all derived values in agreement.
type Snapshot struct {
	Investors    []domain.Investor
	Tranches     []domain.Tranche
	Transactions []domain.Transaction
	FeeRecords   []domain.FeeRecord
}

// LatestNAV resolves the "current NAV" per spec §4.4.1's open-question
// answer: the nav of the latest transaction of ANY type by (date, id)
// descending, regardless of kind. If there are no transactions yet, the
// fund has no basis and the seed price's notion of NAV is undefined; callers
// fall back to the seed price on the next pricing operation (S5).
func LatestNAV(txns []domain.Transaction) (decimal.Decimal, bool) {
	var best domain.Transaction
	found := false
	for _, tx := range txns {
		if !found || tx.Date.After(best.Date) || (tx.Date.Equal(best.Date) && tx.ID > best.ID) {
			best = tx
			found = true
		}
	}
	if !found {
		return decimal.Zero, false
	}
	return best.NAV, true
}

// TotalUnits sums units across every tranche in the snapshot.
func TotalUnits(tranches []domain.Tranche) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range tranches {
		sum = sum.Add(t.Units)
	}
	return sum
}

// InvestorBalance returns an investor's current value at totalNAV:
// Σ(tranche.units * price_per_unit(totalNAV)) (§4.6).
func InvestorBalance(investorID int64, totalNAV decimal.Decimal, tranches []domain.Tranche) decimal.Decimal {
	totalUnits := TotalUnits(tranches)
	price := money.PricePerUnit(totalNAV, totalUnits)
	units := decimal.Zero
	for _, t := range tranches {
		if t.InvestorID == investorID {
			units = units.Add(t.Units)
		}
	}
	return units.Mul(price)
}

// LifetimePerformance is the §4.6 gross/net return breakdown for one
// investor.
type LifetimePerformance struct {
	InvestorID         int64
	CurrentValue       decimal.Decimal
	OriginalInvested    decimal.Decimal
	TotalWithdrawnCash decimal.Decimal
	TotalFeesPaid      decimal.Decimal
	Gross              decimal.Decimal
	Net                decimal.Decimal
	GrossReturn        float64
	NetReturn          float64
}

// ComputeLifetimePerformance computes §4.6's gross/net lifetime return for one
// investor: gross = current_value - original_invested + total_withdrawn;
// net = gross - total_fees_paid.
func ComputeLifetimePerformance(investorID int64, totalNAV decimal.Decimal, tranches []domain.Tranche, txns []domain.Transaction) LifetimePerformance {
	currentValue := InvestorBalance(investorID, totalNAV, tranches)

	originalInvested := decimal.Zero
	totalFeesPaid := decimal.Zero
	for _, t := range tranches {
		if t.InvestorID != investorID {
			continue
		}
		originalInvested = originalInvested.Add(t.OriginalInvestedValue)
		totalFeesPaid = totalFeesPaid.Add(t.CumulativeFeesPaid)
	}

	totalWithdrawn := decimal.Zero
	for _, tx := range txns {
		if tx.InvestorID != investorID {
			continue
		}
		if tx.Type == domain.TxWithdrawal || tx.Type == domain.TxFundManagerWithdraw {
			totalWithdrawn = totalWithdrawn.Add(tx.Amount)
		}
	}

	gross := currentValue.Sub(originalInvested).Add(totalWithdrawn)
	net := gross.Sub(totalFeesPaid)

	var grossReturn, netReturn float64
	if originalInvested.Sign() > 0 {
		grossReturn, _ = gross.Div(originalInvested).Float64()
		netReturn, _ = net.Div(originalInvested).Float64()
	}

	return LifetimePerformance{
		InvestorID:         investorID,
		CurrentValue:       currentValue,
		OriginalInvested:   originalInvested,
		TotalWithdrawnCash: totalWithdrawn,
		TotalFeesPaid:      totalFeesPaid,
		Gross:              gross,
		Net:                net,
		GrossReturn:        grossReturn,
		NetReturn:          netReturn,
	}
}

// DashboardKPIs is the §4.6 fund-wide summary.
type DashboardKPIs struct {
	TotalNAV            decimal.Decimal
	TotalUnits          decimal.Decimal
	InvestorCount       int
	TotalFeesPaid       decimal.Decimal
	FundManagerValue    decimal.Decimal
	GrossReturnSinceInception float64
}

// ComputeDashboardKPIs builds the §4.6 dashboard summary at totalNAV.
func ComputeDashboardKPIs(totalNAV decimal.Decimal, investors []domain.Investor, tranches []domain.Tranche) DashboardKPIs {
	totalUnits := TotalUnits(tranches)
	totalFees := decimal.Zero
	investorCount := 0
	var originalInvested decimal.Decimal
	for _, inv := range investors {
		if !inv.IsFundManager {
			investorCount++
		}
	}
	for _, t := range tranches {
		totalFees = totalFees.Add(t.CumulativeFeesPaid)
		if t.InvestorID != domain.FundManagerInvestorID {
			originalInvested = originalInvested.Add(t.OriginalInvestedValue)
		}
	}

	fmValue := InvestorBalance(domain.FundManagerInvestorID, totalNAV, tranches)

	var grossReturn float64
	if originalInvested.Sign() > 0 {
		price := money.PricePerUnit(totalNAV, totalUnits)
		currentNonFM := decimal.Zero
		for _, t := range tranches {
			if t.InvestorID != domain.FundManagerInvestorID {
				currentNonFM = currentNonFM.Add(t.Units.Mul(price))
			}
		}
		grossReturn, _ = currentNonFM.Sub(originalInvested).Div(originalInvested).Float64()
	}

	return DashboardKPIs{
		TotalNAV:                  totalNAV,
		TotalUnits:                totalUnits,
		InvestorCount:             investorCount,
		TotalFeesPaid:             totalFees,
		FundManagerValue:          fmValue,
		GrossReturnSinceInception: grossReturn,
	}
}

// NAVPoint is one entry of the §4.6 nav_history chronological sequence.
type NAVPoint struct {
	Date time.Time
	NAV  decimal.Decimal
	Type domain.TransactionType
}

// NAVHistory returns the chronological (date, nav, type) sequence from the
// transaction log (§4.6).
func NAVHistory(txns []domain.Transaction) []NAVPoint {
	out := make([]NAVPoint, 0, len(txns))
	for _, tx := range txns {
		out = append(out, NAVPoint{Date: tx.Date, NAV: tx.NAV, Type: tx.Type})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return false
	})
	return out
}
