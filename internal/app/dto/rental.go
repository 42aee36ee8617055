package dto

import (
	"time"

	domainpricing "kloset/internal/domain/pricing"
	domainrental "kloset/internal/domain/rental"
)

type CostBreakdown struct {
	DailyRate   MoneyDTO `json:"daily_rate"`
	TotalDays   int      `json:"total_days"`
	Subtotal    MoneyDTO `json:"subtotal"`
	Deposit     MoneyDTO `json:"deposit"`
	CleaningFee MoneyDTO `json:"cleaning_fee"`
	ServiceFee  MoneyDTO `json:"service_fee"`
	Total       MoneyDTO `json:"total"`
}

type RentalDetail struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`
	OwnerID   string `json:"owner_id"`
	RenterID  string `json:"renter_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	Cost CostBreakdown `json:"cost"`

	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	ContractReady bool   `json:"contract_ready"`

	Notes        string `json:"notes,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
	CancelledBy  string `json:"cancelled_by,omitempty"`

	PickedUpAt *time.Time `json:"picked_up_at,omitempty"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	IsLate     bool       `json:"is_late"`
	DaysLate   int        `json:"days_late,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RentalCollection struct {
	Items []RentalDetail `json:"items"`
}

func MapCostBreakdown(b domainpricing.Breakdown) CostBreakdown {
	return CostBreakdown{
		DailyRate:   MapMoney(b.DailyRate),
		TotalDays:   b.TotalDays,
		Subtotal:    MapMoney(b.Subtotal),
		Deposit:     MapMoney(b.Deposit),
		CleaningFee: MapMoney(b.CleaningFee),
		ServiceFee:  MapMoney(b.ServiceFee),
		Total:       MapMoney(b.Total),
	}
}

func MapRentalDetail(r *domainrental.Rental, now time.Time) RentalDetail {
	if r == nil {
		return RentalDetail{}
	}
	return RentalDetail{
		ID:            string(r.ID),
		ListingID:     string(r.ListingID),
		OwnerID:       string(r.Owner),
		RenterID:      string(r.Renter),
		StartDate:     r.Range.Start.String(),
		EndDate:       r.Range.End.String(),
		Cost:          MapCostBreakdown(r.Cost),
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		ContractReady: r.ContractKey != "",
		Notes:         r.Notes,
		CancelReason:  r.CancelReason,
		CancelledBy:   string(r.CancelledBy),
		PickedUpAt:    r.PickedUpAt,
		ReturnedAt:    r.ReturnedAt,
		IsLate:        r.IsLate(now),
		DaysLate:      r.DaysLate(now),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func MapRentalCollection(items []*domainrental.Rental, now time.Time) RentalCollection {
	out := RentalCollection{Items: make([]RentalDetail, 0, len(items))}
	for _, r := range items {
		out.Items = append(out.Items, MapRentalDetail(r, now))
	}
	return out
}
