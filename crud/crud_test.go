package crud

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loopLife/domain"
)

// testDB opens a fresh in-memory database for one test. The shared cache
// plus a single connection keeps every gorm session on the same database,
// and the single connection also serializes the transactions the services
// open, the way the advisory locks do on postgres.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(domain.User{}, domain.Loop{}, domain.Comment{}, domain.Like{})
	if err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db
}

// testUser inserts a user and returns it.
func testUser(t *testing.T, db *gorm.DB, username, role string) *domain.User {
	t.Helper()
	user := domain.User{
		Username:     username,
		Name:         username,
		Email:        username + "@example.com",
		Role:         role,
		PasswordHash: "not-a-real-hash",
		RememberHash: "remember-" + username,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	return &user
}

// testLoop inserts a loop owned by the given user and returns it.
func testLoop(t *testing.T, db *gorm.DB, owner *domain.User, title string) *domain.Loop {
	t.Helper()
	loop := domain.Loop{
		UserID:   owner.ID,
		Title:    title,
		Genre:    "techno",
		Rating:   7,
		AudioURL: "https://soundcloud.com/" + title,
	}
	if err := db.Create(&loop).Error; err != nil {
		t.Fatalf("creating test loop %s: %v", title, err)
	}
	return &loop
}

// loopByID reloads a loop straight from the database.
func loopByID(t *testing.T, db *gorm.DB, id int) *domain.Loop {
	t.Helper()
	var loop domain.Loop
	if err := db.First(&loop, "id = ?", id).Error; err != nil {
		t.Fatalf("reloading loop %d: %v", id, err)
	}
	return &loop
}

var ctx = context.Background()
