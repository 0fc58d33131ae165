package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"

	"github.com/etchbroker/makelar-backend/pkg/db"
	"github.com/etchbroker/makelar-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_orders": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_tenant_number ON orders (tenant_id, order_number)",
			"CHECK (payment_type IS NULL OR payment_type IN ('dp_50', 'full_100'))",
			"DROP TABLE IF EXISTS orders",
		},
		"create_quotes": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_quotes_tenant_sequence ON quotes (tenant_id, sequence)",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_quotes_active_pair ON quotes (tenant_id, order_id, vendor_id)",
			"WHERE status IN ('open', 'sent', 'countered') AND deleted_at IS NULL",
			"DROP TABLE IF EXISTS quotes",
		},
		"create_payments": {
			"REFERENCES payment_transactions(id) ON DELETE CASCADE",
			"allocated_percentage NUMERIC(7,4) NOT NULL",
			"CHECK (amount > 0)",
			"DROP TABLE IF EXISTS payment_allocations",
		},
		"create_outbox": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"WHERE published_at IS NULL",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "orders.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Quote Notes!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_quote_notes.sql") {
		t.Fatalf("unexpected file name %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("ValidateDir on generated migration: %v", err)
	}
}

func TestSyncSQLiteCreatesTables(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.SyncSQLite(conn); err != nil {
		t.Fatalf("SyncSQLite: %v", err)
	}
	if err := migrate.SyncSQLite(conn); err != nil {
		t.Fatalf("SyncSQLite must be re-runnable: %v", err)
	}
	for _, table := range []string{"orders", "quotes", "payment_transactions", "payment_allocations", "outbox_events", "outbox_dlq"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("expected table %s", table)
		}
	}
	if !conn.Migrator().HasIndex("quotes", "ux_quotes_active_pair") {
		t.Error("expected active pair index")
	}
}
