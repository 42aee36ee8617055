package listings

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"kloset/internal/app/outbox"
	"kloset/internal/app/policies"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/fault"
)

const (
	addPhotoKey    = "listing.photo.add"
	removePhotoKey = "listing.photo.remove"

	maxPhotoBytes = 10 << 20
)

type AddPhotoCommand struct {
	ListingID   string
	ActorID     string
	FileName    string
	ContentType string
	Data        []byte
}

func (c AddPhotoCommand) Key() string { return addPhotoKey }

type AddPhotoResult struct {
	URL string `json:"url"`
}

type RemovePhotoCommand struct {
	ListingID string
	ActorID   string
	URL       string
}

func (c RemovePhotoCommand) Key() string { return removePhotoKey }

type RemovePhotoResult struct {
	Removed bool `json:"removed"`
}

// PhotoHandler uploads listing photos to object storage and keeps the
// listing's image list in display order.
type PhotoHandler struct {
	UoWFactory uow.UoWFactory
	Uploads    policies.UploadsPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *PhotoHandler) HandleAdd(ctx context.Context, cmd AddPhotoCommand) (*AddPhotoResult, error) {
	if len(cmd.Data) == 0 {
		return nil, fault.Validation("listings: photo payload is empty")
	}
	if len(cmd.Data) > maxPhotoBytes {
		return nil, fault.Validation("listings: photo exceeds the size limit")
	}

	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	listing, err := ownedListing(ctx, unit, cmd.ListingID, cmd.ActorID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("listings/%s/%d%s", listing.ID, nowOrDefault(h.Now).UnixNano(), path.Ext(cmd.FileName))
	url, err := h.Uploads.Put(ctx, key, cmd.ContentType, bytes.NewReader(cmd.Data), int64(len(cmd.Data)))
	if err != nil {
		return nil, fault.Dependency("listings: photo upload failed", err)
	}

	listing.Images = append(listing.Images, domainlisting.Image{
		URL:          url,
		DisplayOrder: len(listing.Images),
	})
	listing.UpdatedAt = nowOrDefault(h.Now)
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &AddPhotoResult{URL: url}, nil
}

func (h *PhotoHandler) HandleRemove(ctx context.Context, cmd RemovePhotoCommand) (*RemovePhotoResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	listing, err := ownedListing(ctx, unit, cmd.ListingID, cmd.ActorID)
	if err != nil {
		return nil, err
	}

	kept := listing.Images[:0]
	removed := false
	for _, img := range listing.Images {
		if img.URL == cmd.URL {
			removed = true
			continue
		}
		kept = append(kept, img)
	}
	if !removed {
		return nil, fault.NotFound("listings: photo not found")
	}
	for i := range kept {
		kept[i].DisplayOrder = i
	}
	listing.Images = kept
	listing.UpdatedAt = nowOrDefault(h.Now)
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	// Best effort: orphaned objects are cleaned up out of band.
	_ = h.Uploads.Delete(ctx, cmd.URL)

	return &RemovePhotoResult{Removed: true}, nil
}
