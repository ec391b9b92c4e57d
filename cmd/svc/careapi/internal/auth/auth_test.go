package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rainycape/memcache"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzansicare/backend/cmd/svc/careapi/internal/dal"
	dalmock "github.com/mzansicare/backend/cmd/svc/careapi/internal/dal/mock"
	"github.com/mzansicare/backend/cmd/svc/careapi/internal/models"
	"github.com/mzansicare/backend/libs/clock"
	"github.com/mzansicare/backend/libs/errors"
	"github.com/mzansicare/backend/libs/test"
	"github.com/mzansicare/backend/libs/testhelpers/mock"
)

func TestCheckPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		expected PasswordStrength
	}{
		{"", PasswordWeak},
		{"abc", PasswordWeak},
		{"abcdef", PasswordWeak},
		{"abcdefghijkl", PasswordWeak},
		{"abcdef12", PasswordMedium},
		{"Abc12x", PasswordMedium},
		{"Abcdef12!x", PasswordStrong},
		{"longPassword99", PasswordStrong},
	}
	for _, c := range cases {
		test.Equals(t, c.expected, CheckPasswordStrength(c.password))
	}
}

func TestSignUpRejectsWeakPassword(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	svc := New(dl, nil, clock.NewManaged(time.Unix(1e9, 0)))
	_, _, err := svc.SignUp(context.Background(), "thandi@example.com", "short", "Thandi", "Nkosi")
	test.Assert(t, err != nil, "expected weak password to be rejected")
}

func TestSignUpRejectsBadEmail(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	svc := New(dl, nil, clock.NewManaged(time.Unix(1e9, 0)))
	_, _, err := svc.SignUp(context.Background(), "not-an-email", "longPassword99", "Thandi", "Nkosi")
	test.Assert(t, err != nil, "expected invalid email to be rejected")
}

func TestLoginUnknownEmail(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	dl.Expect(mock.NewExpectation(dl.AccountForEmail, "nobody@example.com").WithReturns(
		(*models.Account)(nil), errors.Trace(dal.ErrNotFound)))

	svc := New(dl, nil, clock.NewManaged(time.Unix(1e9, 0)))
	_, _, err := svc.Login(context.Background(), "Nobody@Example.com", "whatever")
	test.Equals(t, ErrBadCredentials, errors.Cause(err))
}

func TestLoginWrongPassword(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	accountID, err := models.ParseAccountID("acct_000000000016I")
	test.OK(t, err)
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctPassword1"), bcryptCost)
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.AccountForEmail, "sipho@example.com").WithReturns(
		&models.Account{
			ID:       accountID,
			Email:    "sipho@example.com",
			Password: hashed,
			Status:   models.AccountStatusActive,
		}, nil))

	svc := New(dl, nil, clock.NewManaged(time.Unix(1e9, 0)))
	_, _, err = svc.Login(context.Background(), "sipho@example.com", "wrongPassword1")
	test.Equals(t, ErrBadCredentials, errors.Cause(err))
}

func TestLoginSuspendedAccount(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	accountID, err := models.ParseAccountID("acct_000000000016I")
	test.OK(t, err)
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctPassword1"), bcryptCost)
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.AccountForEmail, "sipho@example.com").WithReturns(
		&models.Account{
			ID:       accountID,
			Email:    "sipho@example.com",
			Password: hashed,
			Status:   models.AccountStatusSuspended,
		}, nil))

	svc := New(dl, nil, clock.NewManaged(time.Unix(1e9, 0)))
	_, _, err = svc.Login(context.Background(), "sipho@example.com", "correctPassword1")
	test.Equals(t, ErrBadCredentials, errors.Cause(err))
}

func TestAuthenticate(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	accountID, err := models.ParseAccountID("acct_000000000016I")
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.AuthToken, "tok123", clk.Now()).WithReturns(
		&models.AuthToken{
			Token:     []byte("tok123"),
			AccountID: accountID,
			Expires:   clk.Now().Add(time.Hour),
		}, nil))
	dl.Expect(mock.NewExpectation(dl.Account, accountID).WithReturns(
		&models.Account{ID: accountID, Email: "sipho@example.com"}, nil))

	svc := New(dl, nil, clk)
	account, err := svc.Authenticate(context.Background(), "tok123")
	test.OK(t, err)
	test.Equals(t, accountID, account.ID)
}

func TestAuthenticateBadToken(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	dl.Expect(mock.NewExpectation(dl.AuthToken, "expired", clk.Now()).WithReturns(
		(*models.AuthToken)(nil), errors.Trace(dal.ErrNotFound)))

	svc := New(dl, nil, clk)
	_, err := svc.Authenticate(context.Background(), "expired")
	test.Equals(t, ErrBadToken, errors.Cause(err))

	_, err = svc.Authenticate(context.Background(), "")
	test.Equals(t, ErrBadToken, errors.Cause(err))
}

type memcacheFake struct {
	items map[string]*memcache.Item
}

func newMemcacheFake() *memcacheFake {
	return &memcacheFake{items: make(map[string]*memcache.Item)}
}

func (m *memcacheFake) Get(key string) (*memcache.Item, error) {
	item, ok := m.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (m *memcacheFake) Set(item *memcache.Item) error {
	m.items[item.Key] = item
	return nil
}

func (m *memcacheFake) Delete(key string) error {
	delete(m.items, key)
	return nil
}

func TestVerifyCodeCachedPath(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	accountID, err := models.ParseAccountID("acct_000000000016I")
	test.OK(t, err)

	mc := newMemcacheFake()
	test.OK(t, mc.Set(&memcache.Item{Key: verificationCodeKey(accountID), Value: []byte("123456")}))

	// The cached match still consumes the database copy.
	dl.Expect(mock.NewExpectation(dl.DeleteTempTokens, purposeVerifyAccount, accountID).WithReturns(int64(1), nil))

	svc := New(dl, mc, clock.NewManaged(time.Unix(1e9, 0)))
	test.OK(t, svc.VerifyCode(context.Background(), accountID, "123456"))
	test.Equals(t, 0, len(mc.items))
}

func TestVerifyCodeDatabaseFallback(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	accountID, err := models.ParseAccountID("acct_000000000016I")
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.TempToken, purposeVerifyAccount, "654321", clk.Now()).WithReturns(
		&models.TempToken{
			Purpose:   purposeVerifyAccount,
			Token:     "654321",
			AccountID: accountID,
			Expires:   clk.Now().Add(verificationCodeDuration),
		}, nil))
	dl.Expect(mock.NewExpectation(dl.DeleteTempTokens, purposeVerifyAccount, accountID).WithReturns(int64(1), nil))

	svc := New(dl, newMemcacheFake(), clk)
	test.OK(t, svc.VerifyCode(context.Background(), accountID, "654321"))
}

func TestVerifyCodeBadCode(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	accountID, err := models.ParseAccountID("acct_000000000016I")
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.TempToken, purposeVerifyAccount, "000000", clk.Now()).WithReturns(
		(*models.TempToken)(nil), errors.Trace(dal.ErrNotFound)))

	svc := New(dl, nil, clk)
	test.Equals(t, ErrBadCode, errors.Cause(svc.VerifyCode(context.Background(), accountID, "000000")))
}

func TestVerifyCodeWrongAccount(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	accountID, err := models.ParseAccountID("acct_000000000016I")
	test.OK(t, err)
	otherID, err := models.ParseAccountID("acct_000000000029D")
	test.OK(t, err)

	dl.Expect(mock.NewExpectation(dl.TempToken, purposeVerifyAccount, "123456", clk.Now()).WithReturns(
		&models.TempToken{
			Purpose:   purposeVerifyAccount,
			Token:     "123456",
			AccountID: otherID,
			Expires:   clk.Now().Add(verificationCodeDuration),
		}, nil))

	svc := New(dl, nil, clk)
	test.Equals(t, ErrBadCode, errors.Cause(svc.VerifyCode(context.Background(), accountID, "123456")))
}

func TestStartPasswordResetUnknownEmail(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	dl.Expect(mock.NewExpectation(dl.AccountForEmail, "nobody@example.com").WithReturns(
		(*models.Account)(nil), errors.Trace(dal.ErrNotFound)))

	svc := New(dl, nil, clock.NewManaged(time.Unix(1e9, 0)))
	token, err := svc.StartPasswordReset(context.Background(), "nobody@example.com")
	test.OK(t, err)
	test.Equals(t, "", token)
}

func TestCompletePasswordResetBadToken(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	dl.Expect(mock.NewExpectation(dl.TempToken, purposePasswordReset, "badtoken", clk.Now()).WithReturns(
		(*models.TempToken)(nil), errors.Trace(dal.ErrNotFound)))

	svc := New(dl, nil, clk)
	test.Equals(t, ErrBadCode, errors.Cause(svc.CompletePasswordReset(context.Background(), "badtoken", "longPassword99")))
}

func TestCompletePasswordResetWeakPassword(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	svc := New(dl, nil, clock.NewManaged(time.Unix(1e9, 0)))
	err := svc.CompletePasswordReset(context.Background(), "sometoken", "weak")
	test.Assert(t, err != nil, "expected weak password to be rejected")
}

func TestCleanupExpiredTokens(t *testing.T) {
	dl := dalmock.New(t)
	defer dl.Finish()

	clk := clock.NewManaged(time.Unix(1e9, 0))
	dl.Expect(mock.NewExpectation(dl.DeleteExpiredTokens, clk.Now()).WithReturns(int64(3), nil))

	svc := New(dl, nil, clk)
	n, err := svc.CleanupExpiredTokens(context.Background())
	test.OK(t, err)
	test.Equals(t, int64(3), n)
}
