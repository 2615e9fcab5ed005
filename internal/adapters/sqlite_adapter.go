package adapters

import (
	"context"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

// SQLiteAdapter serves reads straight from the repository and routes writes
// through RecordService, so every change made over HTTP or the CLI is
// validated and announced on the broker.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.RecordService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.RecordService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	return a.storage.ListSubscriptions(ctx)
}

func (a *SQLiteAdapter) ListOneTimeItems(ctx context.Context) ([]core.OneTimeItem, error) {
	return a.storage.ListOneTimeItems(ctx)
}

func (a *SQLiteAdapter) GetSubscription(ctx context.Context, id string) (core.Subscription, error) {
	return a.storage.GetSubscription(ctx, id)
}

func (a *SQLiteAdapter) GetOneTimeItem(ctx context.Context, id string) (core.OneTimeItem, error) {
	return a.storage.GetOneTimeItem(ctx, id)
}

func (a *SQLiteAdapter) CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	return a.service.CreateSubscription(ctx, s)
}

func (a *SQLiteAdapter) UpdateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	return a.service.UpdateSubscription(ctx, s)
}

func (a *SQLiteAdapter) DeleteSubscription(ctx context.Context, id string) error {
	return a.service.DeleteSubscription(ctx, id)
}

func (a *SQLiteAdapter) CreateOneTimeItem(ctx context.Context, o core.OneTimeItem) (core.OneTimeItem, error) {
	return a.service.CreateOneTimeItem(ctx, o)
}

func (a *SQLiteAdapter) UpdateOneTimeItem(ctx context.Context, o core.OneTimeItem) (core.OneTimeItem, error) {
	return a.service.UpdateOneTimeItem(ctx, o)
}

func (a *SQLiteAdapter) DeleteOneTimeItem(ctx context.Context, id string) error {
	return a.service.DeleteOneTimeItem(ctx, id)
}

// ImportRecords stores the batch atomically through RecordService.
func (a *SQLiteAdapter) ImportRecords(ctx context.Context, subs []core.Subscription, items []core.OneTimeItem) error {
	_, err := a.service.Import(ctx, subs, items)
	return err
}

// Ping implements backend.Pinger
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
