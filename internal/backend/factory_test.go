package backend

import (
	"context"
	"path/filepath"
	"testing"

	"tally/internal/config"
	"tally/internal/core"
	"tally/internal/spend"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", AMQPExchange: "tally.records"}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if bc.Type != SQLiteBackend || bc.SQLiteDBPath != "x.db" {
		t.Errorf("unexpected config %+v", bc)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"amqp without exchange", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db", AMQPURL: "amqp://localhost"}, true},
		{"unknown type", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(nil)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"memory", Config{Type: MemoryBackend}},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "tally.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := factory.CreateBackend(ctx, tt.cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			defer func() {
				if err := res.Close(); err != nil {
					t.Errorf("cleanup: %v", err)
				}
			}()
			if res.AMQP != nil {
				t.Error("AMQP client should be nil without a URL")
			}

			_, err = res.Backend.CreateOneTimeItem(ctx, core.OneTimeItem{
				Name:     "Chair",
				Category: core.CategoryShopping,
				Amount:   core.Money{Cents: 15000},
				Date:     core.NewDate(2024, 8, 1),
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			b, err := res.Spend.Aggregate(ctx, spend.Options{View: spend.ViewOverall, Window: spend.Window{Year: 2024}})
			if err != nil {
				t.Fatalf("aggregate: %v", err)
			}
			if b.Total.Cents != 15000 {
				t.Errorf("Total = %d, want 15000", b.Total.Cents)
			}
		})
	}
}
