package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsDir = "../../migrations"

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesExist(t *testing.T) {
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_users_table.sql",
		"00002_create_refresh_tokens_table.sql",
		"00003_create_products_table.sql",
		"00004_create_orders_table.sql",
		"00005_create_order_items_table.sql",
		"00006_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		contentStr := readMigration(t, file.Name())

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"users":          "00001_create_users_table.sql",
		"refresh_tokens": "00002_create_refresh_tokens_table.sql",
		"products":       "00003_create_products_table.sql",
		"orders":         "00004_create_orders_table.sql",
		"order_items":    "00005_create_order_items_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		contentStr := readMigration(t, migrationFile)

		if !strings.Contains(contentStr, "CREATE TABLE IF NOT EXISTS "+tableName) {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}
		if !strings.Contains(contentStr, "DROP TABLE IF EXISTS "+tableName) {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsTableGuardsStock(t *testing.T) {
	contentStr := readMigration(t, "00003_create_products_table.sql")

	requiredColumns := []string{
		"id BIGSERIAL PRIMARY KEY",
		"name VARCHAR",
		"description TEXT",
		"price DECIMAL(10, 2)",
		"category VARCHAR",
		"image VARCHAR",
		"stock INTEGER",
		"rating DECIMAL(2, 1)",
	}
	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Products table missing required column definition: %s", column)
		}
	}

	if !strings.Contains(contentStr, "CHECK (stock >= 0)") {
		t.Error("Products table must reject negative stock")
	}
	for _, category := range []string{"Electronics", "Clothing", "Books", "Home & Kitchen", "Sports", "Toys", "Other"} {
		if !strings.Contains(contentStr, "'"+category+"'") {
			t.Errorf("Products category constraint missing value: %s", category)
		}
	}
}

func TestOrdersTableHasStatusConstraints(t *testing.T) {
	contentStr := readMigration(t, "00004_create_orders_table.sql")

	values := []string{
		"Processing", "Shipped", "Delivered", "Cancelled",
		"Pending", "Completed", "Failed",
		"Credit Card", "Debit Card", "UPI", "Net Banking", "Cash on Delivery",
	}
	for _, value := range values {
		if !strings.Contains(contentStr, "'"+value+"'") {
			t.Errorf("Orders table constraint missing value: %s", value)
		}
	}

	if !strings.Contains(contentStr, "REFERENCES users(id) ON DELETE CASCADE") {
		t.Error("Orders must cascade when their user is removed")
	}
}

func TestOrderItemsReferenceProductsWithRestrict(t *testing.T) {
	contentStr := readMigration(t, "00005_create_order_items_table.sql")

	if !strings.Contains(contentStr, "REFERENCES orders(id) ON DELETE CASCADE") {
		t.Error("Order items must be removed with their order")
	}
	if !strings.Contains(contentStr, "REFERENCES products(id) ON DELETE RESTRICT") {
		t.Error("Order items must block deletion of referenced products")
	}
	if !strings.Contains(contentStr, "CHECK (quantity >= 1)") {
		t.Error("Order items must have a positive quantity")
	}
}
