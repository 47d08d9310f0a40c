// Package journal records every live order attempt.
package journal

import (
	"context"
	"errors"

	"tradebot/types"
)

type Journal interface {
	Record(ctx context.Context, event types.OrderEvent) error
	Close() error
}

type nop struct{}

// Nop discards every event.
func Nop() Journal { return nop{} }

func (nop) Record(context.Context, types.OrderEvent) error { return nil }
func (nop) Close() error                                   { return nil }

type multi []Journal

// Multi records each event to every journal, attempting all of them even
// when one fails.
func Multi(journals ...Journal) Journal {
	return multi(journals)
}

func (m multi) Record(ctx context.Context, event types.OrderEvent) error {
	var errs []error
	for _, j := range m {
		if err := j.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, j := range m {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
