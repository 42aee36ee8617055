package rentals

import (
	"context"
	"time"

	"kloset/internal/app/dto"
	"kloset/internal/app/handlers/support"
	"kloset/internal/app/policies"
	"kloset/internal/app/queries"
	"kloset/internal/app/uow"
	domainrental "kloset/internal/domain/rental"
	domainuser "kloset/internal/domain/user"
)

const (
	getRentalKey   = "rental.get"
	listRentalsKey = "rental.list"
	getContractKey = "rental.contract"
)

type GetRentalQuery struct {
	RentalID string
	ViewerID string
}

func (q GetRentalQuery) Key() string { return getRentalKey }

type GetRentalHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *GetRentalHandler) Handle(ctx context.Context, q GetRentalQuery) (*dto.RentalDetail, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	rental, err := unit.Rentals().ByID(ctx, domainrental.ID(q.RentalID))
	if err != nil {
		return nil, err
	}
	if !rental.Participant(domainuser.ID(q.ViewerID)) {
		return nil, domainrental.ErrNotParticipant
	}
	detail := dto.MapRentalDetail(rental, nowOrDefault(h.Now))
	return &detail, nil
}

type ListRentalsQuery struct {
	ViewerID string
	AsOwner  bool
	Statuses []string
	Limit    int
	Offset   int
}

func (q ListRentalsQuery) Key() string { return listRentalsKey }

type ListRentalsHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

func (h *ListRentalsHandler) Handle(ctx context.Context, q ListRentalsQuery) (*dto.RentalCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	statuses := make([]domainrental.Status, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, domainrental.Status(s))
	}
	items, err := unit.Rentals().ListFor(ctx, domainuser.ID(q.ViewerID), domainrental.ListParams{
		AsOwner:  q.AsOwner,
		Statuses: statuses,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, err
	}
	collection := dto.MapRentalCollection(items, nowOrDefault(h.Now))
	return &collection, nil
}

type GetContractQuery struct {
	RentalID string
	ViewerID string
}

func (q GetContractQuery) Key() string { return getContractKey }

type ContractDocument struct {
	Key  string `json:"key"`
	Body []byte `json:"body"`
}

type GetContractHandler struct {
	UoWFactory uow.UoWFactory
	Contracts  policies.ContractsPort
}

func (h *GetContractHandler) Handle(ctx context.Context, q GetContractQuery) (*ContractDocument, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	rental, err := unit.Rentals().ByID(ctx, domainrental.ID(q.RentalID))
	if err != nil {
		return nil, err
	}
	if !rental.Participant(domainuser.ID(q.ViewerID)) {
		return nil, domainrental.ErrNotParticipant
	}
	if rental.ContractKey == "" {
		return nil, domainrental.ErrNotFound
	}
	body, err := h.Contracts.Fetch(ctx, rental.ContractKey)
	if err != nil {
		return nil, err
	}
	return &ContractDocument{Key: rental.ContractKey, Body: body}, nil
}

var _ queries.Handler[GetRentalQuery, *dto.RentalDetail] = (*GetRentalHandler)(nil)
var _ queries.Handler[ListRentalsQuery, *dto.RentalCollection] = (*ListRentalsHandler)(nil)
var _ queries.Handler[GetContractQuery, *ContractDocument] = (*GetContractHandler)(nil)
