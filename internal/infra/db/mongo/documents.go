package mongo

import (
	"time"

	"kloset/internal/domain/pricing"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/money"
)

type moneyDocument struct {
	Cents    int64  `bson:"cents"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Cents: m.Cents, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Cents: d.Cents, Currency: d.Currency}
}

// rangeDocument stores the closed day range as UTC-midnight milliseconds so
// overlap queries stay plain integer comparisons.
type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newRangeDocument(r dates.Range) rangeDocument {
	return rangeDocument{Start: r.Start.Time().UnixMilli(), End: r.End.Time().UnixMilli()}
}

func (d rangeDocument) toRange() dates.Range {
	return dates.Range{Start: millisToDay(d.Start), End: millisToDay(d.End)}
}

func millisToDay(ms int64) dates.Day {
	return dates.DayOf(time.UnixMilli(ms))
}

type breakdownDocument struct {
	DailyRate   moneyDocument `bson:"daily_rate"`
	TotalDays   int           `bson:"total_days"`
	Subtotal    moneyDocument `bson:"subtotal"`
	Deposit     moneyDocument `bson:"deposit"`
	CleaningFee moneyDocument `bson:"cleaning_fee"`
	ServiceFee  moneyDocument `bson:"service_fee"`
	Total       moneyDocument `bson:"total"`
}

func newBreakdownDocument(b pricing.Breakdown) breakdownDocument {
	return breakdownDocument{
		DailyRate:   newMoneyDocument(b.DailyRate),
		TotalDays:   b.TotalDays,
		Subtotal:    newMoneyDocument(b.Subtotal),
		Deposit:     newMoneyDocument(b.Deposit),
		CleaningFee: newMoneyDocument(b.CleaningFee),
		ServiceFee:  newMoneyDocument(b.ServiceFee),
		Total:       newMoneyDocument(b.Total),
	}
}

func (d breakdownDocument) toBreakdown() pricing.Breakdown {
	return pricing.Breakdown{
		DailyRate:   d.DailyRate.toMoney(),
		TotalDays:   d.TotalDays,
		Subtotal:    d.Subtotal.toMoney(),
		Deposit:     d.Deposit.toMoney(),
		CleaningFee: d.CleaningFee.toMoney(),
		ServiceFee:  d.ServiceFee.toMoney(),
		Total:       d.Total.toMoney(),
	}
}
