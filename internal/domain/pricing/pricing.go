package pricing

import (
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/shared/money"
)

// ServiceFeePercent is the platform's cut of the rental subtotal.
const ServiceFeePercent = 5

var (
	ErrNegativeRate    = fault.Validation("pricing: daily rate cannot be negative")
	ErrNegativeDeposit = fault.Validation("pricing: deposit cannot be negative")
	ErrCurrencyUnset   = fault.Validation("pricing: currency must be defined")
)

// Breakdown itemizes a rental quote. All amounts are snapshotted onto the
// rental at creation time and never recomputed from later listing edits.
type Breakdown struct {
	DailyRate   money.Money
	TotalDays   int
	Subtotal    money.Money
	Deposit     money.Money
	CleaningFee money.Money
	ServiceFee  money.Money
	Total       money.Money
}

type QuoteInput struct {
	DailyRate       money.Money
	Deposit         money.Money
	Range           dates.Range
	AddCleaning     bool
	BaseCleaningFee money.Money
}

// Quote prices a date range. Pure: no clock, no storage.
//
// total_days is inclusive of both boundary days; the service fee is 5% of
// the subtotal rounded half-up to the cent, rounded exactly once; the total
// is the exact cent sum of its components.
func Quote(in QuoteInput) (Breakdown, error) {
	if in.DailyRate.Currency == "" || in.Deposit.Currency == "" {
		return Breakdown{}, ErrCurrencyUnset
	}
	if in.DailyRate.IsNegative() {
		return Breakdown{}, ErrNegativeRate
	}
	if in.Deposit.IsNegative() {
		return Breakdown{}, ErrNegativeDeposit
	}
	if err := in.Range.Validate(); err != nil {
		return Breakdown{}, fault.Wrap(fault.KindValidation, "pricing: invalid date range", err)
	}

	days := in.Range.Days()
	subtotal := in.DailyRate.Multiply(int64(days))

	cleaning := money.Zero(in.DailyRate.Currency)
	if in.AddCleaning {
		cleaning = in.BaseCleaningFee
		if cleaning.Currency == "" {
			return Breakdown{}, ErrCurrencyUnset
		}
	}

	serviceFee := subtotal.Percent(ServiceFeePercent)

	total := subtotal
	for _, component := range []money.Money{in.Deposit, cleaning, serviceFee} {
		sum, err := total.Add(component)
		if err != nil {
			return Breakdown{}, fault.Wrap(fault.KindValidation, "pricing: mixed currencies", err)
		}
		total = sum
	}

	return Breakdown{
		DailyRate:   in.DailyRate,
		TotalDays:   days,
		Subtotal:    subtotal,
		Deposit:     in.Deposit,
		CleaningFee: cleaning,
		ServiceFee:  serviceFee,
		Total:       total,
	}, nil
}
