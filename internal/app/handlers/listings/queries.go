package listings

import (
	"context"

	"kloset/internal/app/dto"
	"kloset/internal/app/handlers/support"
	"kloset/internal/app/queries"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
	domainuser "kloset/internal/domain/user"
)

const (
	getListingKey     = "listing.get"
	searchCatalogKey  = "listing.search"
	pendingListingKey = "listing.moderation_queue"
	myListingsKey     = "listing.mine"
)

type GetListingQuery struct {
	ListingID string
	ViewerID  string
}

func (q GetListingQuery) Key() string { return getListingKey }

// GetListingHandler returns a listing and counts the view. Views by the
// owner or by anonymous crawlers hitting a hidden listing do not count.
type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (*dto.ListingDetail, error) {
	if h.UoWFactory == nil {
		return nil, ErrUnitOfWorkRequired
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = uow.ContextWithUnitOfWork(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	listing, err := unit.Listings().ByID(ctx, domainlisting.ID(q.ListingID))
	if err != nil {
		return nil, err
	}
	viewer := domainuser.ID(q.ViewerID)
	isOwner := viewer != "" && viewer == listing.Owner
	if !listing.Rentable() && !isOwner {
		return nil, domainlisting.ErrNotFound
	}
	if !isOwner && q.ViewerID != "" {
		listing.RecordView()
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return nil, err
		}
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	detail := dto.MapListingDetail(listing)
	return &detail, nil
}

type SearchCatalogQuery struct {
	Params domainlisting.SearchParams
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (*dto.CatalogPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	params := q.Params.Normalized()
	params.IncludeHidden = false
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return mapCatalogPage(result, params), nil
}

type ListPendingListingsQuery struct {
	ActorID string
	Limit   int
	Offset  int
}

func (q ListPendingListingsQuery) Key() string { return pendingListingKey }

// ListPendingListingsHandler serves the admin moderation queue.
type ListPendingListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListPendingListingsHandler) Handle(ctx context.Context, q ListPendingListingsQuery) (*dto.CatalogPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := requireAdmin(ctx, unit, q.ActorID); err != nil {
		return nil, err
	}
	params := domainlisting.SearchParams{
		Status:        domainlisting.StatusPending,
		Sort:          domainlisting.SortByNewest,
		Limit:         q.Limit,
		Offset:        q.Offset,
		IncludeHidden: true,
	}.Normalized()
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return mapCatalogPage(result, params), nil
}

type MyListingsQuery struct {
	OwnerID string
	Limit   int
	Offset  int
}

func (q MyListingsQuery) Key() string { return myListingsKey }

type MyListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MyListingsHandler) Handle(ctx context.Context, q MyListingsQuery) (*dto.CatalogPage, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	params := domainlisting.SearchParams{
		Owner:         q.OwnerID,
		Limit:         q.Limit,
		Offset:        q.Offset,
		IncludeHidden: true,
	}.Normalized()
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return nil, err
	}
	return mapCatalogPage(result, params), nil
}

func mapCatalogPage(result domainlisting.SearchResult, params domainlisting.SearchParams) *dto.CatalogPage {
	items := make([]dto.ListingSummary, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, dto.MapListingSummary(item))
	}
	return &dto.CatalogPage{
		Items:  items,
		Total:  result.Total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
}

var _ queries.Handler[GetListingQuery, *dto.ListingDetail] = (*GetListingHandler)(nil)
var _ queries.Handler[SearchCatalogQuery, *dto.CatalogPage] = (*SearchCatalogHandler)(nil)
var _ queries.Handler[ListPendingListingsQuery, *dto.CatalogPage] = (*ListPendingListingsHandler)(nil)
var _ queries.Handler[MyListingsQuery, *dto.CatalogPage] = (*MyListingsHandler)(nil)
