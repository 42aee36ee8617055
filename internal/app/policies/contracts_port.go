package policies

import (
	"context"

	domainrental "kloset/internal/domain/rental"
)

// ContractsPort renders the rental agreement for an accepted rental and
// stores it, returning the storage key the rental keeps.
type ContractsPort interface {
	Render(ctx context.Context, rental *domainrental.Rental, ownerName, renterName, listingTitle string) (key string, err error)
	Fetch(ctx context.Context, key string) ([]byte, error)
}
