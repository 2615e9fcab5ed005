// Package records defines the storage ports the spend engine and the services
// read and write records through.
package records

import (
	"context"
	"errors"

	"tally/internal/core"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateID is returned when a record is created with an ID that is
// already taken.
var ErrDuplicateID = errors.New("duplicate record id")

// Ports for outbound adapters.
type (
	SubscriptionLister interface {
		ListSubscriptions(ctx context.Context) ([]core.Subscription, error)
	}

	OneTimeItemLister interface {
		ListOneTimeItems(ctx context.Context) ([]core.OneTimeItem, error)
	}

	// SubscriptionWriter persists subscriptions. Create assigns an ID when
	// the given one is empty and returns the stored record.
	SubscriptionWriter interface {
		CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error)
		UpdateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error)
		DeleteSubscription(ctx context.Context, id string) error
		GetSubscription(ctx context.Context, id string) (core.Subscription, error)
	}

	OneTimeItemWriter interface {
		CreateOneTimeItem(ctx context.Context, o core.OneTimeItem) (core.OneTimeItem, error)
		UpdateOneTimeItem(ctx context.Context, o core.OneTimeItem) (core.OneTimeItem, error)
		DeleteOneTimeItem(ctx context.Context, id string) error
		GetOneTimeItem(ctx context.Context, id string) (core.OneTimeItem, error)
	}

	// Importer stores a batch of records atomically: either every record is
	// stored or none is. Records keep their IDs; empty ones are assigned.
	Importer interface {
		ImportRecords(ctx context.Context, subs []core.Subscription, items []core.OneTimeItem) error
	}

	// Store is the full read/write surface of a record backend.
	Store interface {
		SubscriptionLister
		OneTimeItemLister
		SubscriptionWriter
		OneTimeItemWriter
		Importer
	}
)
