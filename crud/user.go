package crud

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"loopLife/domain"
	"loopLife/errs"
	"loopLife/guard"
)

// DefaultAvatar is assigned to users who register without one.
const DefaultAvatar = "https://i.pinimg.com/736x/3f/94/70/3f9470b34a8e3f526dbdb022f9f19cf7.jpg"

// UsernameMaxLength is the maximum length of a username.
const UsernameMaxLength = 50

// UserService manages Users. It also contains the part of the authentication
// system that handles database interactions and token hashing. It's basically
// the "backend" of the auth system, with http/auth.go dealing with requests,
// middleware and cookies being the "frontend". It implements the
// domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
// Otherwise, it returns the error of the validation that has failed.
type userValidator struct {
	hmac       HMAC
	pepper     string
	emailRegex *regexp.Regexp
	userGorm
}

// userGorm runs CRUD operations on the database using incoming User data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type userGorm struct {
	db *gorm.DB
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB, pepper, hmacKey string) *UserService {
	return &UserService{
		userValidator{
			hmac:       newHMAC(hmacKey),
			pepper:     pepper,
			emailRegex: regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,16}$`),
			userGorm: userGorm{
				db: db,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService
// interface. If it does not, then this expression becomes invalid and won't compile.
var _ domain.UserService = &UserService{}

// Authenticate checks a submitted email address and password for existence
// and correctness. An unknown address and a wrong password produce the same
// response, a login failure must not reveal which accounts exist.
func (uv *userValidator) Authenticate(email, password string) (*domain.User, error) {
	found, err := uv.userGorm.ByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil, errs.Errorf(errs.EINVALID, "The email address or password is incorrect.")
		}
		return nil, err
	}

	// Append the pepper to the submitted password, hash it, and compare the
	// result to the password hash stored in the user's database record.
	err = bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password+uv.pepper))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, errs.Errorf(errs.EINVALID, "The email address or password is incorrect.")
		}
		return nil, err
	}
	return found, nil
}

// ByRemember hashes a user's raw remember token and passes it on to
// userGorm.ByRemember, which will look it up in the database.
func (uv *userValidator) ByRemember(token string) (*domain.User, error) {
	user := domain.User{
		Remember: token,
	}
	if err := runUserValFns(&user, uv.rememberHmac); err != nil {
		return nil, err
	}
	return uv.userGorm.ByRemember(user.RememberHash)
}

// Create runs validations needed for creating new User database records.
// It will create a remember token if none is provided.
func (uv *userValidator) Create(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.usernameRequired,
		uv.usernameMaxLength,
		uv.usernameIsAvail,
		uv.passwordRequired,
		uv.passwordMinLength,
		uv.passwordBcrypt,
		uv.passwordHashRequired,
		uv.rememberSetIfUnset,
		uv.rememberHmac,
		uv.rememberHashRequired,
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat,
		uv.emailIsAvail,
		uv.avatarDefault,
		uv.roleDefault,
		uv.verifyCodeSet)
	if err != nil {
		return err
	}
	return uv.userGorm.Create(ctx, user)
}

// Update runs validations needed for updating a User record in the database.
// It hashes a raw remember token if one is provided.
func (uv *userValidator) Update(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.passwordBcrypt,
		uv.passwordHashRequired,
		uv.rememberHmac,
		uv.rememberHashRequired,
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat)
	if err != nil {
		return err
	}
	return uv.userGorm.Update(ctx, user)
}

// UpdateProfile applies a partial profile update to the user with the given
// id. Only fields present in upd are modified. The actor must be the user
// themself or an admin.
func (uv *userValidator) UpdateProfile(ctx context.Context, actor *domain.User, id int, upd *domain.UserUpdate) (*domain.User, error) {
	user, err := uv.userGorm.ByID(id)
	if err != nil {
		return nil, err
	}
	if err := guard.Authorize(actor, user.ID, guard.ActionUpdate); err != nil {
		return nil, err
	}

	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if username == "" {
			return nil, errs.Errorf(errs.EINVALID, "The username must not be empty.")
		}
		if utf8.RuneCountInString(username) > UsernameMaxLength {
			return nil, errs.Errorf(errs.EINVALID, "The username max length is %d characters.", UsernameMaxLength)
		}
		user.Username = username
	}
	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, errs.Errorf(errs.EINVALID, "The name must not be empty.")
		}
		user.Name = *upd.Name
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}
	if upd.Avatar != nil {
		user.Avatar = *upd.Avatar
		if strings.TrimSpace(user.Avatar) == "" {
			user.Avatar = DefaultAvatar
		}
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}

	err = runUserValFns(user,
		uv.usernameIsAvail,
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat,
		uv.emailIsAvail)
	if err != nil {
		return nil, err
	}
	if err := uv.userGorm.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete deletes the user record with the given id. The actor must be the
// user themself or an admin.
func (uv *userValidator) Delete(ctx context.Context, actor *domain.User, id int) error {
	user, err := uv.userGorm.ByID(id)
	if err != nil {
		return err
	}
	if err := guard.Authorize(actor, user.ID, guard.ActionDelete); err != nil {
		return err
	}
	return uv.userGorm.Delete(ctx, id)
}

// All returns all registered users. Only admins may list users.
func (uv *userValidator) All(actor *domain.User) ([]domain.User, error) {
	if err := guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return uv.userGorm.All()
}

// Verify marks the account with the given email as verified if the
// submitted code matches the one that was mailed on registration.
func (uv *userValidator) Verify(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return errs.Errorf(errs.EINVALID, "Email and verification code are required.")
	}
	return uv.userGorm.Verify(ctx, strings.ToLower(strings.TrimSpace(email)), code)
}

// runUserValFns runs any number of functions of type userValFn on the passed
// in User object. If none of them returns an error, it returns nil.
// Otherwise, it returns the respective error.
func runUserValFns(user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

// A userValFn is any function that takes in a pointer to a domain.User object
// and returns an error.
type userValFn func(user *domain.User) error

// avatarDefault assigns the default avatar if none was provided.
func (uv *userValidator) avatarDefault(user *domain.User) error {
	if strings.TrimSpace(user.Avatar) == "" {
		user.Avatar = DefaultAvatar
	}
	return nil
}

// emailFormat makes sure that a provided email address matches a predefined
// regex pattern.
func (uv *userValidator) emailFormat(user *domain.User) error {
	if user.Email == "" {
		return nil
	}
	if !uv.emailRegex.MatchString(user.Email) {
		return errs.Errorf(errs.EINVALID, "The email address is invalid.")
	}
	return nil
}

// emailIsAvail makes sure that a provided email address is not yet taken.
func (uv *userValidator) emailIsAvail(user *domain.User) error {
	existing, err := uv.userGorm.ByEmail(user.Email)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			// Address is not taken.
			return nil
		}
		return err
	}
	if user.ID != existing.ID {
		return errs.Errorf(errs.ECONFLICT, "This email address is already taken.")
	}
	return nil
}

// emailNormalize converts the email to all lowercase and trims its whitespaces.
func (uv *userValidator) emailNormalize(user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	user.Email = strings.TrimSpace(user.Email)
	return nil
}

// emailRequired makes sure that the email is not the empty string.
func (uv *userValidator) emailRequired(user *domain.User) error {
	if user.Email == "" {
		return errs.Errorf(errs.EINVALID, "The email address is required.")
	}
	return nil
}

// passwordBcrypt hashes a user's password with a predefined pepper and
// bcrypts it, if the Password field is not the empty string.
func (uv *userValidator) passwordBcrypt(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	pwBytes := []byte(user.Password + uv.pepper)
	hashedBytes, err := bcrypt.GenerateFromPassword(pwBytes, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedBytes)
	user.Password = ""
	return nil
}

// passwordHashRequired makes sure that the password hash is not empty.
func (uv *userValidator) passwordHashRequired(user *domain.User) error {
	if user.PasswordHash == "" {
		return errs.Errorf(errs.EINTERNAL, "password hash is required")
	}
	return nil
}

// passwordMinLength makes sure that a provided password has at least
// 8 characters.
func (uv *userValidator) passwordMinLength(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	if utf8.RuneCountInString(user.Password) < 8 {
		return errs.Errorf(errs.EINVALID, "The password must be at least 8 characters long.")
	}
	return nil
}

// passwordRequired makes sure that the password is not the empty string.
func (uv *userValidator) passwordRequired(user *domain.User) error {
	if user.Password == "" {
		return errs.Errorf(errs.EINVALID, "The password is required.")
	}
	return nil
}

// rememberHashRequired makes sure that the remember token hash is not empty.
func (uv *userValidator) rememberHashRequired(user *domain.User) error {
	if user.RememberHash == "" {
		return errs.Errorf(errs.EINTERNAL, "remember hash is required")
	}
	return nil
}

// rememberHmac hashes a user's raw remember token, if it is not empty.
func (uv *userValidator) rememberHmac(user *domain.User) error {
	if user.Remember == "" {
		return nil
	}
	user.RememberHash = uv.hmac.Hash(user.Remember)
	return nil
}

// rememberSetIfUnset generates a remember token if none is set.
func (uv *userValidator) rememberSetIfUnset(user *domain.User) error {
	if user.Remember != "" {
		return nil
	}
	token, err := MakeRememberToken()
	if err != nil {
		return err
	}
	user.Remember = token
	return nil
}

// roleDefault assigns the user role. Admins are only ever promoted directly
// in the database, never through registration.
func (uv *userValidator) roleDefault(user *domain.User) error {
	user.Role = domain.RoleUser
	return nil
}

// verifyCodeSet assigns a fresh verification code to the new account.
// The code is mailed after registration and cleared on verification.
func (uv *userValidator) verifyCodeSet(user *domain.User) error {
	user.VerifyCode = uuid.NewString()
	user.IsVerified = false
	return nil
}

// usernameIsAvail makes sure that a provided username is not yet taken.
func (uv *userValidator) usernameIsAvail(user *domain.User) error {
	existing, err := uv.userGorm.ByUsername(user.Username)
	if err != nil {
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil
		}
		return err
	}
	if user.ID != existing.ID {
		return errs.Errorf(errs.ECONFLICT, "This username is already taken.")
	}
	return nil
}

// usernameMaxLength makes sure that the username does not exceed the
// maximum length.
func (uv *userValidator) usernameMaxLength(user *domain.User) error {
	if utf8.RuneCountInString(user.Username) > UsernameMaxLength {
		return errs.Errorf(errs.EINVALID, "The username max length is %d characters.", UsernameMaxLength)
	}
	return nil
}

// usernameRequired makes sure that the username is not the empty string.
func (uv *userValidator) usernameRequired(user *domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return errs.Errorf(errs.EINVALID, "The username is required.")
	}
	return nil
}

// ByID retrieves a single User by ID.
func (ug *userGorm) ByID(id int) (*domain.User, error) {
	var user domain.User
	err := ug.db.First(&user, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
		}
		return nil, err
	}
	return &user, nil
}

// ByEmail retrieves a single User by email address.
func (ug *userGorm) ByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := ug.db.First(&user, "email = ?", email).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Errorf(errs.ENOTFOUND, "The email address does not exist in our database.")
		}
		return nil, err
	}
	return &user, nil
}

// ByUsername retrieves a single User by username.
func (ug *userGorm) ByUsername(username string) (*domain.User, error) {
	var user domain.User
	err := ug.db.First(&user, "username = ?", username).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Errorf(errs.ENOTFOUND, "The username does not exist in our database.")
		}
		return nil, err
	}
	return &user, nil
}

// ByRemember retrieves a single User by remember token hash.
func (ug *userGorm) ByRemember(rememberHash string) (*domain.User, error) {
	var user domain.User
	err := ug.db.First(&user, "remember_hash = ?", rememberHash).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Errorf(errs.ENOTFOUND, "The remember token is not valid.")
		}
		return nil, err
	}
	return &user, nil
}

// All retrieves all users.
func (ug *userGorm) All() ([]domain.User, error) {
	var users []domain.User
	if err := ug.db.Order("created_at desc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Create stores the data from the User object in a new database record.
func (ug *userGorm) Create(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Create(user).Error
	if err == gorm.ErrDuplicatedKey {
		return errs.Errorf(errs.ECONFLICT, "This username or email address is already taken.")
	}
	return err
}

// Update saves the User object over its existing database record.
func (ug *userGorm) Update(ctx context.Context, user *domain.User) error {
	return ug.db.WithContext(ctx).Save(user).Error
}

// Save saves the User object, translating unique key collisions.
func (ug *userGorm) Save(ctx context.Context, user *domain.User) error {
	err := ug.db.WithContext(ctx).Save(user).Error
	if err == gorm.ErrDuplicatedKey {
		return errs.Errorf(errs.ECONFLICT, "This username or email address is already taken.")
	}
	return err
}

// Delete permanently deletes the user record with the given id.
func (ug *userGorm) Delete(ctx context.Context, id int) error {
	return ug.db.WithContext(ctx).Delete(&domain.User{}, id).Error
}

// Verify flips the verified flag of the matching account and clears the
// code. A zero row count means email or code were wrong.
func (ug *userGorm) Verify(ctx context.Context, email, code string) error {
	res := ug.db.WithContext(ctx).Model(&domain.User{}).
		Where("email = ? AND verify_code = ? AND is_verified = ?", email, code, false).
		Updates(map[string]interface{}{"is_verified": true, "verify_code": ""})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.EINVALID, "The verification code or email address is incorrect.")
	}
	return nil
}
