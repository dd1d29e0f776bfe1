package repository

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"levelup-marketplace/internal/database"
	"levelup-marketplace/internal/domain"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "levelup_test"
		dbPwd  = "password"
		dbUser = "user"
	)

	ctx := context.Background()
	dbContainer, err := postgres.Run(
		ctx,
		"postgres:16",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(ctx, testDB, "../../migrations", zap.NewNop()); err != nil {
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

func seedUser(t *testing.T, role string) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := &domain.User{
		ID:                 uuid.New(),
		FullName:           "Seed " + role,
		Email:              uuid.NewString() + "@example.com",
		PasswordHash:       "$2a$10$abcdefghijklmnopqrstuv",
		Role:               role,
		VerificationStatus: domain.AccountVerificationNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := NewUserRepository(testDB).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedCategory(t *testing.T, name string) *domain.Category {
	t.Helper()
	now := time.Now().UTC()
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name + " " + uuid.NewString()[:8],
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := NewCategoryRepository(testDB).Create(context.Background(), category); err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return category
}

func seedListing(t *testing.T, seller *domain.User, categoryID *uuid.UUID, name string, lat, lng float64) *domain.Listing {
	t.Helper()
	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:         uuid.New(),
		Name:       name,
		Caption:    "caption of " + name,
		Address:    "Jl. Test",
		Latitude:   lat,
		Longitude:  lng,
		SellerID:   seller.ID,
		CategoryID: categoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := NewListingRepository(testDB).Create(context.Background(), listing); err != nil {
		t.Fatalf("failed to seed listing: %v", err)
	}
	return listing
}

func seedProduct(t *testing.T, listing *domain.Listing, name string, price float64) *domain.Product {
	t.Helper()
	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New(),
		ListingID:   listing.ID,
		Name:        name,
		Description: "description of " + name,
		Price:       price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := NewProductRepository(testDB).Create(context.Background(), product); err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return product
}
