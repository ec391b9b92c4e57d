// Package auth implements account credentials, session tokens, and
// verification codes for the care API service.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rainycape/memcache"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/golog"
	"github.com/mzansicare/backend/libs/validate"
	"github.com/mzansicare/backend/libs/worker"
)

const (
	bcryptCost = 10

	authTokenSize     = 32
	authTokenDuration = 30 * 24 * time.Hour

	verificationCodeDigits   = 6
	verificationCodeDuration = 10 * time.Minute

	passwordResetTokenSize     = 24
	passwordResetTokenDuration = time.Hour

	purposeVerifyAccount = "verify_account"
	purposePasswordReset = "password_reset"
)

// ErrBadCredentials is returned when an email or password does not match.
var ErrBadCredentials = errors.New("auth: bad credentials")

// ErrBadToken is returned when a session token is missing, expired, or unknown.
var ErrBadToken = errors.New("auth: invalid token")

// ErrBadCode is returned when a verification code or reset token does not match.
var ErrBadCode = errors.New("auth: invalid code")

// PasswordStrength buckets a password into the strength meter shown at signup.
type PasswordStrength string

const (
	PasswordWeak   PasswordStrength = "weak"
	PasswordMedium PasswordStrength = "medium"
	PasswordStrong PasswordStrength = "strong"
)

// MemcacheClient is the subset of the memcached client used to cache
// verification codes.
type MemcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// Service implements account authentication backed by the DAL with an
// optional memcached fast path for verification codes.
type Service struct {
	dal dal.DAL
	mc  MemcacheClient
	clk clock.Clock
}

// New returns an auth service. mc may be nil in which case verification
// codes are only checked against the database.
func New(dl dal.DAL, mc MemcacheClient, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{dal: dl, mc: mc, clk: clk}
}

// SignUp creates an account with a hashed password and returns it with a
// fresh session token.
func (s *Service) SignUp(ctx context.Context, email, password, firstName, lastName string) (*models.Account, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !validate.Email(email) {
		return nil, "", errors.New("auth: invalid email")
	}
	if CheckPasswordStrength(password) == PasswordWeak {
		return nil, "", errors.New("auth: password too weak")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", errors.Trace(err)
	}

	account := &models.Account{
		Email:     email,
		Password:  hashed,
		FirstName: validate.SanitizeName(firstName),
		LastName:  validate.SanitizeName(lastName),
		Status:    models.AccountStatusActive,
	}
	if _, err := s.dal.CreateAccount(ctx, account); err != nil {
		return nil, "", errors.Trace(err)
	}

	token, err := s.createAuthToken(ctx, account.ID)
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	return account, token, nil
}

// Login verifies the email and password and returns the account with a new
// session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	account, err := s.dal.AccountForEmail(ctx, email)
	if errors.Cause(err) == dal.ErrNotFound {
		// Burn the same work as a real comparison so the timing doesn't
		// reveal whether the email exists.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$000000000000000000000uGyUvPmY4dOcOYq8OurM8sfhXCNJyq4e"), []byte(password))
		return nil, "", errors.Trace(ErrBadCredentials)
	} else if err != nil {
		return nil, "", errors.Trace(err)
	}
	if account.Status != models.AccountStatusActive {
		return nil, "", errors.Trace(ErrBadCredentials)
	}
	if err := bcrypt.CompareHashAndPassword(account.Password, []byte(password)); err != nil {
		return nil, "", errors.Trace(ErrBadCredentials)
	}

	token, err := s.createAuthToken(ctx, account.ID)
	if err != nil {
		return nil, "", errors.Trace(err)
	}
	return account, token, nil
}

// Logout deletes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	_, err := s.dal.DeleteAuthToken(ctx, token)
	return errors.Trace(err)
}

// Authenticate resolves a session token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, errors.Trace(ErrBadToken)
	}
	authToken, err := s.dal.AuthToken(ctx, token, s.clk.Now())
	if errors.Cause(err) == dal.ErrNotFound {
		return nil, errors.Trace(ErrBadToken)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	account, err := s.dal.Account(ctx, authToken.AccountID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return account, nil
}

func (s *Service) createAuthToken(ctx context.Context, accountID models.AccountID) (string, error) {
	token, err := generateToken(authTokenSize)
	if err != nil {
		return "", errors.Trace(err)
	}
	if err := s.dal.InsertAuthToken(ctx, &models.AuthToken{
		Token:     []byte(token),
		AccountID: accountID,
		Expires:   s.clk.Now().Add(authTokenDuration),
	}); err != nil {
		return "", errors.Trace(err)
	}
	return token, nil
}

// SendVerificationCode generates a 6 digit code for the account and stages it
// in memcached and the database. The code is returned so the caller can hand
// it to the delivery channel.
func (s *Service) SendVerificationCode(ctx context.Context, accountID models.AccountID) (string, error) {
	code, err := generateDigits(verificationCodeDigits)
	if err != nil {
		return "", errors.Trace(err)
	}

	if err := s.dal.Transact(ctx, func(ctx context.Context, dl dal.DAL) error {
		if _, err := dl.DeleteTempTokens(ctx, purposeVerifyAccount, accountID); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(dl.InsertTempToken(ctx, &models.TempToken{
			Purpose:   purposeVerifyAccount,
			Token:     code,
			AccountID: accountID,
			Expires:   s.clk.Now().Add(verificationCodeDuration),
		}))
	}); err != nil {
		return "", errors.Trace(err)
	}

	if s.mc != nil {
		// Cache write failures are tolerated since the database holds the code.
		if err := s.mc.Set(&memcache.Item{
			Key:        verificationCodeKey(accountID),
			Value:      []byte(code),
			Expiration: int32(verificationCodeDuration / time.Second),
		}); err != nil {
			golog.Context("account_id", accountID).Warningf("Failed to cache verification code: %s", err)
		}
	}
	return code, nil
}

// VerifyCode checks the code against the cache first and falls back to the
// database. A matching code is consumed.
func (s *Service) VerifyCode(ctx context.Context, accountID models.AccountID, code string) error {
	if s.mc != nil {
		if item, err := s.mc.Get(verificationCodeKey(accountID)); err == nil && string(item.Value) == code {
			s.mc.Delete(verificationCodeKey(accountID))
			_, err := s.dal.DeleteTempTokens(ctx, purposeVerifyAccount, accountID)
			return errors.Trace(err)
		}
	}
	tok, err := s.dal.TempToken(ctx, purposeVerifyAccount, code, s.clk.Now())
	if errors.Cause(err) == dal.ErrNotFound {
		return errors.Trace(ErrBadCode)
	} else if err != nil {
		return errors.Trace(err)
	}
	if tok.AccountID.Val != accountID.Val {
		return errors.Trace(ErrBadCode)
	}
	_, err = s.dal.DeleteTempTokens(ctx, purposeVerifyAccount, accountID)
	return errors.Trace(err)
}

// StartPasswordReset creates a reset token for the account with the provided
// email. To avoid account enumeration it reports success even when the email
// is unknown, returning an empty token.
func (s *Service) StartPasswordReset(ctx context.Context, email string) (string, error) {
	account, err := s.dal.AccountForEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Cause(err) == dal.ErrNotFound {
		return "", nil
	} else if err != nil {
		return "", errors.Trace(err)
	}

	token, err := generateToken(passwordResetTokenSize)
	if err != nil {
		return "", errors.Trace(err)
	}
	if err := s.dal.Transact(ctx, func(ctx context.Context, dl dal.DAL) error {
		if _, err := dl.DeleteTempTokens(ctx, purposePasswordReset, account.ID); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(dl.InsertTempToken(ctx, &models.TempToken{
			Purpose:   purposePasswordReset,
			Token:     token,
			AccountID: account.ID,
			Expires:   s.clk.Now().Add(passwordResetTokenDuration),
		}))
	}); err != nil {
		return "", errors.Trace(err)
	}
	return token, nil
}

// CompletePasswordReset sets a new password for the account that owns the
// reset token and revokes all of its sessions.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	if CheckPasswordStrength(newPassword) == PasswordWeak {
		return errors.New("auth: password too weak")
	}
	tok, err := s.dal.TempToken(ctx, purposePasswordReset, token, s.clk.Now())
	if errors.Cause(err) == dal.ErrNotFound {
		return errors.Trace(ErrBadCode)
	} else if err != nil {
		return errors.Trace(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.dal.Transact(ctx, func(ctx context.Context, dl dal.DAL) error {
		if _, err := dl.UpdateAccountPassword(ctx, tok.AccountID, hashed); err != nil {
			return errors.Trace(err)
		}
		if _, err := dl.DeleteTempTokens(ctx, purposePasswordReset, tok.AccountID); err != nil {
			return errors.Trace(err)
		}
		_, err := dl.DeleteAuthTokens(ctx, tok.AccountID)
		return errors.Trace(err)
	}))
}

// CleanupExpiredTokens removes session and temp tokens past their expiry.
func (s *Service) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.dal.DeleteExpiredTokens(ctx, s.clk.Now())
	return n, errors.Trace(err)
}

// CleanupWorker returns a repeating worker that purges expired tokens.
func (s *Service) CleanupWorker(interval time.Duration) worker.Worker {
	return worker.NewRepeat(interval, func() {
		n, err := s.CleanupExpiredTokens(context.Background())
		if err != nil {
			golog.Errorf("Failed to clean up expired tokens: %s", err)
		} else if n != 0 {
			golog.Debugf("Removed %d expired tokens", n)
		}
	})
}

// CheckPasswordStrength buckets a password for the signup strength meter.
// Anything under 6 characters is weak regardless of composition.
func CheckPasswordStrength(password string) PasswordStrength {
	if len(password) < 6 {
		return PasswordWeak
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	classes := 0
	for _, c := range []bool{lower, upper, digit, symbol} {
		if c {
			classes++
		}
	}
	switch {
	case len(password) >= 10 && classes >= 3:
		return PasswordStrong
	case len(password) >= 8 && classes >= 2, classes >= 3:
		return PasswordMedium
	}
	return PasswordWeak
}

func verificationCodeKey(accountID models.AccountID) string {
	return fmt.Sprintf("vcode:%s", accountID)
}

func generateToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Trace(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func generateDigits(n int) (string, error) {
	max := big.NewInt(10)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Trace(err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}
