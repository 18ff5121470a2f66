// Package tranche implements the per-tranche lifecycle operations of C3:
// deposit creation, FIFO withdrawal consumption, HWM ratchet, and fee debit.
// Every function here is pure: it takes a snapshot of the relevant tranches
// and returns the mutated copies plus the per-tranche deltas the transaction
// pipeline needs to persist for undo. None of these functions touch storage.
package tranche

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/ledger/domain"
	"fundledger/internal/ledger/money"
	"fundledger/internal/ledgererr"
)

// PriceBeforeDeposit returns the price the existing book supported just
// before a deposit of cash is folded into newTotalNAV (§4.3.1 step 2).
func PriceBeforeDeposit(preTotalUnits, newTotalNAV, cash decimal.Decimal) decimal.Decimal {
	return money.PricePerUnit(newTotalNAV.Sub(cash), preTotalUnits)
}

// NewDeposit builds the tranche created by a deposit and the units it mints.
func NewDeposit(investorID int64, trancheID string, cash, price decimal.Decimal, date time.Time) (domain.Tranche, decimal.Decimal) {
	minted := money.UnitsForCash(cash, price)
	t := domain.Tranche{
		InvestorID:            investorID,
		TrancheID:             trancheID,
		EntryDate:             date,
		EntryNAV:              price,
		OriginalEntryDate:     date,
		OriginalEntryNAV:      price,
		Units:                 minted,
		OriginalInvestedValue: cash,
		InvestedValue:         cash,
		HWM:                   price,
		CumulativeFeesPaid:    decimal.Zero,
	}
	return t, minted
}

// PreWithdrawalPrice returns the price in effect just before a withdrawal is
// applied (§4.3.2 step 1).
func PreWithdrawalPrice(preTotalNAV, preTotalUnits decimal.Decimal) decimal.Decimal {
	return money.PricePerUnit(preTotalNAV, preTotalUnits)
}

// WithdrawFIFO consumes investorTranches in ascending (original_entry_date,
// tranche_id) order to burn unitsToBurn units, proportionally reducing each
// tranche's invested_value and preserving original_invested_value verbatim.
// It returns the mutated tranches (same length and order as input; tranches
// retired to dust are zeroed out rather than removed — the caller deletes
// them from storage) and one delta per touched tranche.
func WithdrawFIFO(investorTranches []domain.Tranche, unitsToBurn, dustThreshold decimal.Decimal) ([]domain.Tranche, []domain.TrancheDelta, error) {
	sum := decimal.Zero
	for _, t := range investorTranches {
		sum = sum.Add(t.Units)
	}
	tolerance := dustThreshold.Mul(decimal.NewFromInt(int64(len(investorTranches) + 1)))
	if sum.Sub(unitsToBurn).LessThan(tolerance.Neg()) {
		return nil, nil, &ledgererr.InsufficientUnitsError{
			Requested: unitsToBurn.String(),
			Available: sum.String(),
		}
	}

	ordered := make([]int, len(investorTranches))
	for i := range ordered {
		ordered[i] = i
	}
	sort.Slice(ordered, func(a, b int) bool {
		ta, tb := investorTranches[ordered[a]], investorTranches[ordered[b]]
		if !ta.OriginalEntryDate.Equal(tb.OriginalEntryDate) {
			return ta.OriginalEntryDate.Before(tb.OriginalEntryDate)
		}
		return ta.TrancheID < tb.TrancheID
	})

	out := make([]domain.Tranche, len(investorTranches))
	copy(out, investorTranches)
	var deltas []domain.TrancheDelta
	remaining := unitsToBurn

	for _, idx := range ordered {
		if remaining.Sign() <= 0 {
			break
		}
		t := out[idx]
		consume := t.Units
		if remaining.LessThan(consume) {
			consume = remaining
		}
		if consume.Sign() <= 0 {
			continue
		}

		prior := t
		oldInvested := t.InvestedValue
		newUnits := t.Units.Sub(consume)

		d := domain.TrancheDelta{TrancheID: t.TrancheID, Prior: prior}

		if money.IsDust(newUnits) {
			d.Retired = true
			d.UnitsDelta = t.Units.Neg()
			d.InvestedValueDelta = oldInvested.Neg()
			t.Units = decimal.Zero
			t.InvestedValue = decimal.Zero
		} else {
			ratio := newUnits.Div(t.Units)
			newInvested := oldInvested.Mul(ratio)
			d.UnitsDelta = newUnits.Sub(t.Units)
			d.InvestedValueDelta = newInvested.Sub(oldInvested)
			t.Units = newUnits
			t.InvestedValue = newInvested
		}

		out[idx] = t
		deltas = append(deltas, d)
		remaining = remaining.Sub(consume)
	}

	return out, deltas, nil
}

// ApplyHWMRatchet raises hwm to currentPrice for every tranche where the
// current price exceeds the existing HWM (§4.3.4). HWM never decreases.
func ApplyHWMRatchet(tranches []domain.Tranche, currentPrice decimal.Decimal) ([]domain.Tranche, []domain.TrancheDelta) {
	out := make([]domain.Tranche, len(tranches))
	copy(out, tranches)
	var deltas []domain.TrancheDelta
	for i, t := range out {
		if currentPrice.GreaterThan(t.HWM) {
			deltas = append(deltas, domain.TrancheDelta{
				TrancheID:          t.TrancheID,
				Prior:              t,
				UnitsDelta:         decimal.Zero,
				InvestedValueDelta: decimal.Zero,
			})
			out[i].HWM = currentPrice
		}
	}
	return out, deltas
}

// ApplyFeeDebit debits feeUnits from a tranche and resets its basis to the
// fee-calculation price (§4.3.3).
func ApplyFeeDebit(t domain.Tranche, feeUnits, priceAtCalc decimal.Decimal) (domain.Tranche, domain.TrancheDelta) {
	d := domain.TrancheDelta{TrancheID: t.TrancheID, Prior: t}

	newUnits := t.Units.Sub(feeUnits)
	newInvested := newUnits.Mul(priceAtCalc)

	d.UnitsDelta = newUnits.Sub(t.Units)
	d.InvestedValueDelta = newInvested.Sub(t.InvestedValue)

	feeAmount := feeUnits.Mul(priceAtCalc)
	t.Units = newUnits
	t.EntryNAV = priceAtCalc
	t.HWM = priceAtCalc
	t.InvestedValue = newInvested
	t.CumulativeFeesPaid = t.CumulativeFeesPaid.Add(feeAmount)

	return t, d
}

// ReverseDelta returns the tranche state the delta's Prior snapshot records,
// as used by delete_transaction/undo_transaction.
func ReverseDelta(d domain.TrancheDelta) domain.Tranche {
	return d.Prior
}
