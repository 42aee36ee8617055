package policies

import (
	"context"

	domainuser "kloset/internal/domain/user"
)

// NotifierPort delivers out-of-band notifications (email, push). Failures
// are logged, never propagated into the command that triggered them.
type NotifierPort interface {
	Notify(ctx context.Context, to domainuser.ID, subject, body string) error
}
