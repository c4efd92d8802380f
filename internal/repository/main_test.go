package repository

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	testDB      *sql.DB
	testConnStr string
)

func setupTestDB() (func(context.Context) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(context.Background(), "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testConnStr = connStr
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}
	testDB.SetMaxOpenConns(20)

	if err := database.RunMigrations(testDB, "../../migrations", zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}

	os.Exit(code)
}

// resetTables empties every table and restarts id sequences
func resetTables(t *testing.T) {
	t.Helper()
	if _, err := testDB.Exec(`TRUNCATE users, refresh_tokens, products, orders, order_items RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}
}

func createTestUser(t *testing.T, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:         "Test Shopper",
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuJ7sRDn5u6JpQ9vDq1sJt2xQ3u8zH1aW",
		Role:         domain.RoleUser,
	}
	if err := NewUserRepository(testDB).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createTestProduct(t *testing.T, name string, price string, stock int) *domain.Product {
	t.Helper()
	product := &domain.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Category:    domain.CategoryElectronics,
		Stock:       stock,
		Rating:      decimal.RequireFromString("4.5"),
	}
	if err := NewProductRepository(testDB).Create(context.Background(), product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return product
}

// stockOf reads a product's stock straight from the table
func stockOf(t *testing.T, productID int64) int {
	t.Helper()
	var stock int
	if err := testDB.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock of product %d: %v", productID, err)
	}
	return stock
}

func testAddress() domain.Address {
	return domain.Address{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
		Country: "USA",
	}
}
