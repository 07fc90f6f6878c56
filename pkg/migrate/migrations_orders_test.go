package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mercatohq/mercato-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (qty > 0)",
		"status            TEXT NOT NULL DEFAULT 'created'",
		"payment_status    TEXT NOT NULL DEFAULT 'pending'",
		"idx_orders_delivered_at",
		"DROP TABLE IF EXISTS order_items",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDisputesMigrationKeepsOneOpenDisputePerOrder(t *testing.T) {
	content := readMigration(t, "*_create_disputes.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS disputes",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_disputes_open_order ON disputes (order_id) WHERE open",
		"DROP TABLE IF EXISTS disputes",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationGuardsInventory(t *testing.T) {
	content := readMigration(t, "*_create_products.sql")
	if !strings.Contains(content, "CHECK (quantity >= 0)") {
		t.Errorf("products.quantity must never go negative")
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}
