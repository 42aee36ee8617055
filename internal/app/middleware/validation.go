package middleware

import (
	"context"

	"kloset/internal/app/commands"
	"kloset/internal/app/queries"
)

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// SelfValidatingMessage is implemented by commands and queries that can
// check their own shape before any transaction is opened.
type SelfValidatingMessage interface {
	Validate() error
}

// SelfValidator rejects self-validating messages that fail their own check.
// Messages without a Validate method pass through untouched.
type SelfValidator struct{}

func (SelfValidator) Validate(ctx context.Context, message any) error {
	if m, ok := message.(SelfValidatingMessage); ok {
		return m.Validate()
	}
	return nil
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
