package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dvellmar/storeratings-backend/pkg/config"
	"github.com/dvellmar/storeratings-backend/pkg/db"
	"github.com/dvellmar/storeratings-backend/pkg/db/models"
	"github.com/dvellmar/storeratings-backend/pkg/enums"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
)

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func openTestClient(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	statements := []string{
		`DROP TABLE IF EXISTS store_media`,
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
			owner_id TEXT NOT NULL UNIQUE,
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
		`CREATE TABLE store_media (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			file_url TEXT NOT NULL,
			file_name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			object_key TEXT NOT NULL UNIQUE,
			size_bytes INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range statements {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db.NewWithConn(conn), conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := openTestClient(t)
	svc, err := NewService(ServiceParams{DB: client, PasswordConfig: testPasswordCfg})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedUser(t *testing.T, conn *gorm.DB, role enums.Role) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := conn.Exec(
		`INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)`,
		id, "Seeded User", id.String()+"@example.com", role.String(),
	).Error
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedStore(t *testing.T, conn *gorm.DB, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := conn.Exec(
		`INSERT INTO stores (id, name, email, owner_id) VALUES (?, ?, ?, ?)`,
		id, "Seeded Store", id.String()+"@store.example.com", ownerID,
	).Error
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return id
}

func seedRating(t *testing.T, conn *gorm.DB, userID, storeID uuid.UUID, value int) {
	t.Helper()
	err := conn.Exec(
		`INSERT INTO ratings (id, user_id, store_id, value) VALUES (?, ?, ?, ?)`,
		uuid.New(), userID, storeID, value,
	).Error
	if err != nil {
		t.Fatalf("seed rating: %v", err)
	}
}

func seedMedia(t *testing.T, conn *gorm.DB, storeID uuid.UUID, objectKey string) {
	t.Helper()
	err := conn.Exec(
		`INSERT INTO store_media (id, store_id, file_url, file_name, file_type, object_key)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New(), storeID, "https://host/"+objectKey, "photo.jpg", "image", objectKey,
	).Error
	if err != nil {
		t.Fatalf("seed media: %v", err)
	}
}

func requireCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s (%s)", want, appErr.Code(), appErr.Message())
	}
}

func countRows(t *testing.T, conn *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	if err := conn.Table(table).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestCreateUserAnyRole(t *testing.T) {
	svc, conn := newTestService(t)

	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:     "Platform Admin",
		Email:    "Admin@Example.com",
		Password: "sufficiently-long-pass",
		Role:     "admin",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.Role != "admin" {
		t.Fatalf("expected admin role, got %s", created.Role)
	}
	if created.Email != "admin@example.com" {
		t.Fatalf("expected normalized email, got %s", created.Email)
	}

	var row models.User
	if err := conn.First(&row, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if row.PasswordHash == "" || row.PasswordHash == "sufficiently-long-pass" {
		t.Fatal("password was not hashed")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, conn := newTestService(t)
	existing := seedUser(t, conn, enums.RoleUser)

	var email string
	if err := conn.Table("users").Where("id = ?", existing).Pluck("email", &email).Error; err != nil {
		t.Fatalf("load email: %v", err)
	}

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Name:     "Copycat",
		Email:    email,
		Password: "sufficiently-long-pass",
		Role:     "user",
	})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestCreateStoreHappyPath(t *testing.T) {
	svc, conn := newTestService(t)
	ownerID := seedUser(t, conn, enums.RoleStoreOwner)

	resp, err := svc.CreateStore(context.Background(), CreateStoreRequest{
		Name:    "Fresh Mart",
		Email:   "fresh@mart.example.com",
		Address: "12 Market Street",
		OwnerID: ownerID,
	})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	if resp.Store.Name != "Fresh Mart" {
		t.Fatalf("unexpected store %+v", resp.Store)
	}
	if resp.Owner.ID != ownerID {
		t.Fatalf("expected owner %s, got %s", ownerID, resp.Owner.ID)
	}
	if resp.Store.TotalRatings != 0 {
		t.Fatalf("new store should start unrated, got %d", resp.Store.TotalRatings)
	}
}

func TestCreateStoreCheckOrdering(t *testing.T) {
	svc, conn := newTestService(t)
	ownerID := seedUser(t, conn, enums.RoleStoreOwner)
	storeID := seedStore(t, conn, ownerID)

	var storeEmail string
	if err := conn.Table("stores").Where("id = ?", storeID).Pluck("email", &storeEmail).Error; err != nil {
		t.Fatalf("load store email: %v", err)
	}

	// Duplicate store email wins even when the owner is also missing.
	_, err := svc.CreateStore(context.Background(), CreateStoreRequest{
		Name: "Clone", Email: storeEmail, Address: "1 Elsewhere", OwnerID: uuid.New(),
	})
	requireCode(t, err, pkgerrors.CodeConflict)

	// Missing owner.
	_, err = svc.CreateStore(context.Background(), CreateStoreRequest{
		Name: "Orphan", Email: "orphan@store.example.com", Address: "1 Elsewhere", OwnerID: uuid.New(),
	})
	requireCode(t, err, pkgerrors.CodeNotFound)

	// Owner holds the wrong role.
	plainID := seedUser(t, conn, enums.RoleUser)
	_, err = svc.CreateStore(context.Background(), CreateStoreRequest{
		Name: "Wrong Role", Email: "wrongrole@store.example.com", Address: "1 Elsewhere", OwnerID: plainID,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	// Owner already bound to a store.
	_, err = svc.CreateStore(context.Background(), CreateStoreRequest{
		Name: "Second Store", Email: "second@store.example.com", Address: "1 Elsewhere", OwnerID: ownerID,
	})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestUpdateUserPartialFields(t *testing.T) {
	svc, conn := newTestService(t)
	targetID := seedUser(t, conn, enums.RoleUser)

	name := "Renamed User"
	updated, err := svc.UpdateUser(context.Background(), targetID, UpdateUserRequest{Name: &name})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Name != "Renamed User" {
		t.Fatalf("expected renamed user, got %s", updated.Name)
	}

	var row models.User
	if err := conn.First(&row, "id = ?", targetID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if row.Name != "Renamed User" {
		t.Fatalf("rename not persisted, got %s", row.Name)
	}

	blank := "   "
	_, err = svc.UpdateUser(context.Background(), targetID, UpdateUserRequest{Name: &blank})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = svc.UpdateUser(context.Background(), uuid.New(), UpdateUserRequest{Name: &name})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateUserDuplicateEmail(t *testing.T) {
	svc, conn := newTestService(t)
	targetID := seedUser(t, conn, enums.RoleUser)
	otherID := seedUser(t, conn, enums.RoleUser)

	var otherEmail string
	if err := conn.Table("users").Where("id = ?", otherID).Pluck("email", &otherEmail).Error; err != nil {
		t.Fatalf("load email: %v", err)
	}

	_, err := svc.UpdateUser(context.Background(), targetID, UpdateUserRequest{Email: &otherEmail})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestChangeRoleGuards(t *testing.T) {
	svc, conn := newTestService(t)

	adminID := seedUser(t, conn, enums.RoleAdmin)
	_, err := svc.ChangeRole(context.Background(), adminID, ChangeRoleRequest{Role: "user"})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	userID := seedUser(t, conn, enums.RoleUser)
	_, err = svc.ChangeRole(context.Background(), userID, ChangeRoleRequest{Role: "user"})
	requireCode(t, err, pkgerrors.CodeConflict)

	ownerID := seedUser(t, conn, enums.RoleStoreOwner)
	seedStore(t, conn, ownerID)
	_, err = svc.ChangeRole(context.Background(), ownerID, ChangeRoleRequest{Role: "user"})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svc.ChangeRole(context.Background(), uuid.New(), ChangeRoleRequest{Role: "user"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.ChangeRole(context.Background(), userID, ChangeRoleRequest{Role: "superuser"})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestChangeRolePersists(t *testing.T) {
	svc, conn := newTestService(t)
	userID := seedUser(t, conn, enums.RoleUser)

	updated, err := svc.ChangeRole(context.Background(), userID, ChangeRoleRequest{Role: "store_owner"})
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if updated.Role != "store_owner" {
		t.Fatalf("expected store_owner, got %s", updated.Role)
	}

	var row models.User
	if err := conn.First(&row, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if row.Role != enums.RoleStoreOwner {
		t.Fatalf("role not persisted, got %s", row.Role)
	}
}

func TestDeleteUserCascadesOwner(t *testing.T) {
	svc, conn := newTestService(t)

	ownerID := seedUser(t, conn, enums.RoleStoreOwner)
	storeID := seedStore(t, conn, ownerID)
	seedMedia(t, conn, storeID, "stores/"+storeID.String()+"/a.jpg")
	seedMedia(t, conn, storeID, "stores/"+storeID.String()+"/b.jpg")

	raterID := seedUser(t, conn, enums.RoleUser)
	seedRating(t, conn, raterID, storeID, 4)
	seedRating(t, conn, ownerID, storeID, 5) // pathological but must still be swept

	result, err := svc.DeleteUser(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if !result.StoreDeleted {
		t.Fatal("expected store deleted")
	}
	if result.StoreMediaDeleted != 2 {
		t.Fatalf("expected 2 media rows deleted, got %d", result.StoreMediaDeleted)
	}
	if result.RatingsDeleted != 1 {
		t.Fatalf("expected 1 authored rating deleted, got %d", result.RatingsDeleted)
	}
	if result.DeletedUser == nil || result.DeletedUser.ID != ownerID {
		t.Fatalf("unexpected deleted user %+v", result.DeletedUser)
	}

	if n := countRows(t, conn, "stores"); n != 0 {
		t.Fatalf("expected no stores, got %d", n)
	}
	if n := countRows(t, conn, "ratings"); n != 0 {
		t.Fatalf("expected no ratings, got %d", n)
	}
	if n := countRows(t, conn, "store_media"); n != 0 {
		t.Fatalf("expected no media rows, got %d", n)
	}
	if n := countRows(t, conn, "users"); n != 1 {
		t.Fatalf("expected only the rater to remain, got %d users", n)
	}
}

func TestDeleteUserPlainUser(t *testing.T) {
	svc, conn := newTestService(t)

	ownerID := seedUser(t, conn, enums.RoleStoreOwner)
	storeID := seedStore(t, conn, ownerID)
	raterID := seedUser(t, conn, enums.RoleUser)
	seedRating(t, conn, raterID, storeID, 3)

	result, err := svc.DeleteUser(context.Background(), raterID)
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if result.StoreDeleted {
		t.Fatal("plain user deletion must not remove stores")
	}
	if result.RatingsDeleted != 1 {
		t.Fatalf("expected 1 rating deleted, got %d", result.RatingsDeleted)
	}

	if n := countRows(t, conn, "stores"); n != 1 {
		t.Fatalf("store should survive, got %d", n)
	}
}

func TestDeleteUserRejectsAdmin(t *testing.T) {
	svc, conn := newTestService(t)
	adminID := seedUser(t, conn, enums.RoleAdmin)

	_, err := svc.DeleteUser(context.Background(), adminID)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = svc.DeleteUser(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestDashboardCounts(t *testing.T) {
	svc, conn := newTestService(t)

	seedUser(t, conn, enums.RoleAdmin)
	ownerID := seedUser(t, conn, enums.RoleStoreOwner)
	raterID := seedUser(t, conn, enums.RoleUser)
	storeID := seedStore(t, conn, ownerID)
	seedRating(t, conn, raterID, storeID, 5)

	metrics, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if metrics.TotalUsers != 3 || metrics.TotalStores != 1 || metrics.TotalRatings != 1 {
		t.Fatalf("unexpected totals %+v", metrics)
	}
	if metrics.UsersByRole["admin"] != 1 || metrics.UsersByRole["store_owner"] != 1 || metrics.UsersByRole["user"] != 1 {
		t.Fatalf("unexpected role counts %+v", metrics.UsersByRole)
	}
}

func TestListUsersAttachesStores(t *testing.T) {
	svc, conn := newTestService(t)

	ownerID := seedUser(t, conn, enums.RoleStoreOwner)
	storeID := seedStore(t, conn, ownerID)
	seedUser(t, conn, enums.RoleUser)

	result, err := svc.ListUsers(context.Background(), ListUsersParams{Role: "store_owner"})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(result.Users) != 1 {
		t.Fatalf("expected one store_owner, got %d", len(result.Users))
	}
	entry := result.Users[0]
	if entry.User.ID != ownerID {
		t.Fatalf("expected owner %s, got %s", ownerID, entry.User.ID)
	}
	if entry.Store == nil || entry.Store.ID != storeID {
		t.Fatalf("expected attached store %s, got %+v", storeID, entry.Store)
	}
	if result.Meta.TotalCount != 1 {
		t.Fatalf("expected total 1, got %d", result.Meta.TotalCount)
	}

	_, err = svc.ListUsers(context.Background(), ListUsersParams{Role: "superuser"})
	requireCode(t, err, pkgerrors.CodeValidation)
}
