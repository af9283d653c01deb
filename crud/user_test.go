package crud

import (
	"strings"
	"testing"

	"gorm.io/gorm"

	"loopLife/domain"
	"loopLife/errs"
)

func testUserService(db *gorm.DB) *UserService {
	return NewUserService(db, "test-pepper", "test-hmac-key")
}

// registerUser runs a user through the full creation pipeline.
func registerUser(t *testing.T, us *UserService, username, password string) *domain.User {
	t.Helper()
	user := &domain.User{
		Username: username,
		Name:     username,
		Email:    username + "@example.com",
		Password: password,
	}
	if err := us.Create(ctx, user); err != nil {
		t.Fatalf("registering %s: %v", username, err)
	}
	return user
}

func TestUserCreateDefaults(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)

	user := &domain.User{
		Username: "alice",
		Name:     "Alice",
		Email:    "  Alice@Example.COM ",
		Password: "secret-password",
		Role:     domain.RoleAdmin,
	}
	if err := us.Create(ctx, user); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if user.Password != "" {
		t.Error("raw password not cleared after hashing")
	}
	if user.PasswordHash == "" {
		t.Error("password hash not set")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized", user.Email)
	}
	if user.Avatar != DefaultAvatar {
		t.Errorf("avatar = %q, want default", user.Avatar)
	}
	// Registration never hands out the admin role.
	if user.Role != domain.RoleUser {
		t.Errorf("role = %q, want %q", user.Role, domain.RoleUser)
	}
	if user.IsVerified {
		t.Error("fresh account already verified")
	}
	if user.VerifyCode == "" {
		t.Error("verification code not set")
	}
	if user.RememberHash == "" {
		t.Error("remember hash not set")
	}
}

func TestUserCreateValidation(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)
	registerUser(t, us, "taken", "secret-password")

	tests := []struct {
		name     string
		user     domain.User
		wantCode string
	}{
		{"missing username", domain.User{Email: "a@example.com", Password: "secret-password"}, errs.EINVALID},
		{"username too long", domain.User{Username: strings.Repeat("x", UsernameMaxLength+1), Email: "a@example.com", Password: "secret-password"}, errs.EINVALID},
		{"username taken", domain.User{Username: "taken", Email: "a@example.com", Password: "secret-password"}, errs.ECONFLICT},
		{"missing password", domain.User{Username: "a", Email: "a@example.com"}, errs.EINVALID},
		{"password too short", domain.User{Username: "a", Email: "a@example.com", Password: "short"}, errs.EINVALID},
		{"missing email", domain.User{Username: "a", Password: "secret-password"}, errs.EINVALID},
		{"malformed email", domain.User{Username: "a", Email: "not-an-address", Password: "secret-password"}, errs.EINVALID},
		{"email taken", domain.User{Username: "a", Email: "taken@example.com", Password: "secret-password"}, errs.ECONFLICT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := tt.user
			err := us.Create(ctx, &user)
			if got := errs.ErrorCode(err); got != tt.wantCode {
				t.Errorf("got %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestUserAuthenticate(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)
	registerUser(t, us, "alice", "secret-password")

	found, err := us.Authenticate("alice@example.com", "secret-password")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if found.Username != "alice" {
		t.Errorf("username = %q, want alice", found.Username)
	}

	// Unknown address and wrong password are indistinguishable, so a login
	// failure cannot be used to probe which accounts exist.
	_, badPassword := us.Authenticate("alice@example.com", "wrong-password")
	_, badEmail := us.Authenticate("nobody@example.com", "secret-password")
	if errs.ErrorCode(badPassword) != errs.EINVALID {
		t.Errorf("wrong password: got %v, want invalid", badPassword)
	}
	if errs.ErrorCode(badEmail) != errs.EINVALID {
		t.Errorf("unknown email: got %v, want invalid", badEmail)
	}
	if errs.ErrorMessage(badPassword) != errs.ErrorMessage(badEmail) {
		t.Errorf("login failures differ: %q vs %q", errs.ErrorMessage(badPassword), errs.ErrorMessage(badEmail))
	}
}

func TestUserByRemember(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)
	user := registerUser(t, us, "alice", "secret-password")

	found, err := us.ByRemember(user.Remember)
	if err != nil {
		t.Fatalf("ByRemember failed: %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("found user %d, want %d", found.ID, user.ID)
	}

	if _, err := us.ByRemember("bogus-token"); errs.ErrorCode(err) != errs.ENOTFOUND {
		t.Errorf("bogus token: got %v, want not found", err)
	}
}

func TestUserUpdateProfile(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)
	alice := registerUser(t, us, "alice", "secret-password")
	bob := registerUser(t, us, "bob", "secret-password")
	admin := testUser(t, db, "carol", domain.RoleAdmin)

	bio := "making loops since 2019"
	upd := &domain.UserUpdate{Bio: &bio}

	if _, err := us.UpdateProfile(ctx, nil, alice.ID, upd); errs.ErrorCode(err) != errs.EUNAUTHENTICATED {
		t.Errorf("anonymous update: got %v, want unauthenticated", err)
	}
	if _, err := us.UpdateProfile(ctx, bob, alice.ID, upd); errs.ErrorCode(err) != errs.EUNAUTHORIZED {
		t.Errorf("stranger update: got %v, want unauthorized", err)
	}

	updated, err := us.UpdateProfile(ctx, alice, alice.ID, upd)
	if err != nil {
		t.Fatalf("self update failed: %v", err)
	}
	if updated.Bio != bio {
		t.Errorf("bio = %q, want %q", updated.Bio, bio)
	}
	if updated.Username != "alice" || updated.Email != "alice@example.com" {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	// Admins may edit anyone.
	name := "Alice A."
	if _, err := us.UpdateProfile(ctx, admin, alice.ID, &domain.UserUpdate{Name: &name}); err != nil {
		t.Errorf("admin update failed: %v", err)
	}

	// Renaming onto a taken username is a conflict.
	taken := "bob"
	if _, err := us.UpdateProfile(ctx, alice, alice.ID, &domain.UserUpdate{Username: &taken}); errs.ErrorCode(err) != errs.ECONFLICT {
		t.Errorf("username collision: got %v, want conflict", err)
	}

	blank := "  "
	if _, err := us.UpdateProfile(ctx, alice, alice.ID, &domain.UserUpdate{Username: &blank}); errs.ErrorCode(err) != errs.EINVALID {
		t.Errorf("blank username: got %v, want invalid", err)
	}
}

func TestUserVerify(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)
	user := registerUser(t, us, "alice", "secret-password")

	if err := us.Verify(ctx, user.Email, "wrong-code"); errs.ErrorCode(err) != errs.EINVALID {
		t.Errorf("wrong code: got %v, want invalid", err)
	}

	if err := us.Verify(ctx, user.Email, user.VerifyCode); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	reloaded, err := us.ByID(user.ID)
	if err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if !reloaded.IsVerified {
		t.Error("account not marked verified")
	}
	if reloaded.VerifyCode != "" {
		t.Error("verification code not cleared")
	}

	// The code is single use.
	if err := us.Verify(ctx, user.Email, user.VerifyCode); errs.ErrorCode(err) != errs.EINVALID {
		t.Errorf("code reuse: got %v, want invalid", err)
	}
}

func TestUserDeleteOwnership(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)
	alice := testUser(t, db, "alice", domain.RoleUser)
	bob := testUser(t, db, "bob", domain.RoleUser)
	admin := testUser(t, db, "carol", domain.RoleAdmin)

	if err := us.Delete(ctx, bob, alice.ID); errs.ErrorCode(err) != errs.EUNAUTHORIZED {
		t.Errorf("stranger delete: got %v, want unauthorized", err)
	}
	if err := us.Delete(ctx, alice, alice.ID); err != nil {
		t.Errorf("self delete failed: %v", err)
	}
	if err := us.Delete(ctx, admin, bob.ID); err != nil {
		t.Errorf("admin delete failed: %v", err)
	}
	if _, err := us.ByID(alice.ID); errs.ErrorCode(err) != errs.ENOTFOUND {
		t.Errorf("read after delete: got %v, want not found", err)
	}
}

func TestUserAllIsAdminOnly(t *testing.T) {
	db := testDB(t)
	us := testUserService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	admin := testUser(t, db, "carol", domain.RoleAdmin)

	if _, err := us.All(nil); errs.ErrorCode(err) != errs.EUNAUTHENTICATED {
		t.Errorf("anonymous list: got %v, want unauthenticated", err)
	}
	if _, err := us.All(user); errs.ErrorCode(err) != errs.EUNAUTHORIZED {
		t.Errorf("plain user list: got %v, want unauthorized", err)
	}
	users, err := us.All(admin)
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}
}
