// Package dbtest opens throwaway SQLite databases carrying the application
// schema for repository tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/pkg/db"
)

const schema = `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  customer_id TEXT,
  vendor_id TEXT,
  status TEXT NOT NULL DEFAULT 'new',
  payment_type TEXT,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  currency TEXT NOT NULL DEFAULT 'IDR',
  vendor_cost INTEGER NOT NULL DEFAULT 0,
  customer_price INTEGER NOT NULL DEFAULT 0,
  markup_amount INTEGER NOT NULL DEFAULT 0,
  markup_percentage NUMERIC NOT NULL DEFAULT 0,
  paid_amount INTEGER NOT NULL DEFAULT 0,
  items TEXT,
  status_history TEXT,
  active_sla TEXT,
  sla_history TEXT,
  metadata TEXT,
  tracking_number TEXT,
  estimated_delivery DATETIME,
  shipped_at DATETIME,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);
CREATE TABLE quotes (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  sequence INTEGER NOT NULL,
  order_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  product_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 1,
  specifications TEXT,
  currency TEXT NOT NULL DEFAULT 'IDR',
  initial_offer INTEGER NOT NULL,
  latest_offer INTEGER NOT NULL,
  round INTEGER NOT NULL DEFAULT 1,
  status TEXT NOT NULL DEFAULT 'draft',
  status_history TEXT,
  history TEXT,
  sent_at DATETIME,
  responded_at DATETIME,
  expires_at DATETIME,
  closed_at DATETIME,
  created_by TEXT,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);
CREATE UNIQUE INDEX ux_quotes_tenant_sequence ON quotes (tenant_id, sequence);
CREATE UNIQUE INDEX ux_quotes_active_pair ON quotes (tenant_id, order_id, vendor_id)
  WHERE status IN ('open', 'sent', 'countered') AND deleted_at IS NULL;
CREATE TABLE payment_transactions (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  direction TEXT NOT NULL,
  type TEXT NOT NULL,
  amount INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'IDR',
  method TEXT NOT NULL DEFAULT 'bank_transfer',
  reference TEXT,
  vendor_id TEXT,
  recorded_by TEXT,
  paid_at DATETIME NOT NULL,
  created_at DATETIME
);
CREATE TABLE payment_allocations (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  transaction_id TEXT NOT NULL REFERENCES payment_transactions(id),
  allocation_type TEXT NOT NULL,
  allocated_amount INTEGER NOT NULL,
  allocated_percentage NUMERIC NOT NULL,
  target_vendor_id TEXT,
  status TEXT NOT NULL DEFAULT 'allocated',
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);
CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  tenant_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME
);
`

// Open returns an isolated in-memory database with the schema applied. The
// pool is pinned to one connection so every statement sees the same memory
// database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := db.Open(sqlite.Open("file::memory:"))
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.Exec(schema).Error)
	return conn
}
