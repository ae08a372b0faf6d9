package ratings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dvellmar/storeratings-backend/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	statements := []string{
		`DROP TABLE IF EXISTS ratings`,
		`DROP TABLE IF EXISTS stores`,
		`DROP TABLE IF EXISTS users`,
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			address TEXT,
			role TEXT NOT NULL DEFAULT 'user',
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE stores (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			address TEXT NOT NULL DEFAULT '',
			owner_id TEXT NOT NULL,
			average_rating NUMERIC NOT NULL DEFAULT 0,
			total_ratings INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE ratings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			store_id TEXT NOT NULL,
			value INTEGER NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (user_id, store_id)
		)`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error, "create schema")
	}
	return conn
}

func seedUserAndStore(t *testing.T, conn *gorm.DB) (uuid.UUID, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	storeID := uuid.New()
	require.NoError(t, conn.Exec(
		`INSERT INTO users (id, name, email) VALUES (?, ?, ?)`,
		userID, "Rater", userID.String()+"@example.com",
	).Error)
	require.NoError(t, conn.Exec(
		`INSERT INTO stores (id, name, email, owner_id) VALUES (?, ?, ?, ?)`,
		storeID, "Corner Deli", storeID.String()+"@example.com", uuid.New(),
	).Error)
	return userID, storeID
}

func insertRating(t *testing.T, repo Repository, userID, storeID uuid.UUID, value int) *models.Rating {
	t.Helper()
	rating := &models.Rating{ID: uuid.New(), UserID: userID, StoreID: storeID, Value: value}
	require.NoError(t, repo.Create(context.Background(), rating))
	return rating
}

func requireAggregate(t *testing.T, conn *gorm.DB, storeID uuid.UUID, wantAvg string, wantTotal int) {
	t.Helper()
	var store models.Store
	require.NoError(t, conn.First(&store, "id = ?", storeID).Error)
	assert.True(t, store.AverageRating.Equal(decimal.RequireFromString(wantAvg)),
		"expected average %s, got %s", wantAvg, store.AverageRating)
	assert.Equal(t, wantTotal, store.TotalRatings)
}

func TestRecomputeSingleRating(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	userID, storeID := seedUserAndStore(t, conn)

	insertRating(t, repo, userID, storeID, 5)
	_, _, err := repo.RecomputeStoreAggregate(context.Background(), storeID)
	require.NoError(t, err)
	requireAggregate(t, conn, storeID, "5", 1)
}

func TestRecomputeAveragesAndRounds(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	_, storeID := seedUserAndStore(t, conn)

	for _, value := range []int{1, 2, 2} {
		userID, _ := seedUserAndStore(t, conn)
		insertRating(t, repo, userID, storeID, value)
	}

	avg, total, err := repo.RecomputeStoreAggregate(context.Background(), storeID)
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.RequireFromString("1.67")), "expected 1.67, got %s", avg)
	assert.Equal(t, 3, total)
	requireAggregate(t, conn, storeID, "1.67", 3)
}

func TestRecomputeAfterUpdate(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	userID, storeID := seedUserAndStore(t, conn)
	otherID, _ := seedUserAndStore(t, conn)

	rating := insertRating(t, repo, userID, storeID, 2)
	insertRating(t, repo, otherID, storeID, 3)

	require.NoError(t, repo.UpdateValue(context.Background(), rating.ID, 5))
	_, _, err := repo.RecomputeStoreAggregate(context.Background(), storeID)
	require.NoError(t, err)
	requireAggregate(t, conn, storeID, "4", 2)
}

func TestRecomputeAfterDeleteToEmpty(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	userID, storeID := seedUserAndStore(t, conn)

	rating := insertRating(t, repo, userID, storeID, 4)
	_, _, err := repo.RecomputeStoreAggregate(context.Background(), storeID)
	require.NoError(t, err)
	requireAggregate(t, conn, storeID, "4", 1)

	require.NoError(t, repo.Delete(context.Background(), rating.ID))
	avg, total, err := repo.RecomputeStoreAggregate(context.Background(), storeID)
	require.NoError(t, err)
	assert.True(t, avg.IsZero())
	assert.Equal(t, 0, total)
	requireAggregate(t, conn, storeID, "0", 0)
}

func TestDuplicateRatingRejectedByIndex(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	userID, storeID := seedUserAndStore(t, conn)

	insertRating(t, repo, userID, storeID, 4)
	dup := &models.Rating{ID: uuid.New(), UserID: userID, StoreID: storeID, Value: 2}
	assert.Error(t, repo.Create(context.Background(), dup), "expected unique violation")
}

func TestListForStoreJoinsRaterName(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	userID, storeID := seedUserAndStore(t, conn)
	insertRating(t, repo, userID, storeID, 5)

	rows, total, err := repo.ListForStore(context.Background(), storeID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Rater", rows[0].UserName)
	assert.Equal(t, 5, rows[0].Value)
}
