package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/watchlist-backend/pkg/auth"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db/dbtest"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/mailer"
	"github.com/angelmondragon/watchlist-backend/pkg/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "watchlist-api",
	ExpirationMinutes: 60,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentCode struct {
	to      string
	code    string
	purpose mailer.Purpose
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *captureMailer) SendCode(_ context.Context, to, code string, purpose mailer.Purpose, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{to: to, code: code, purpose: purpose})
	return m.err
}

func (m *captureMailer) last(t *testing.T, to string, purpose mailer.Purpose) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].to == to && m.sent[i].purpose == purpose {
			return m.sent[i].code
		}
	}
	t.Fatalf("no %s code sent to %s", purpose, to)
	return ""
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	svc    Service
	clock  *fakeClock
	mail   *captureMailer
	output *syncBuffer
}

func newHarness(t *testing.T, devMode bool) *harness {
	t.Helper()
	h := &harness{
		clock:  &fakeClock{now: time.Now().UTC().Truncate(time.Second)},
		mail:   &captureMailer{},
		output: &syncBuffer{},
	}
	svc, err := NewService(ServiceParams{
		DB:             dbtest.Open(t),
		Mailer:         h.mail,
		Logger:         logger.New(logger.Options{ServiceName: "auth-test", Output: h.output}),
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{BcryptCost: bcrypt.MinCost},
		DevMode:        devMode,
		Now:            h.clock.Now,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "message: %s", typed.Message())
	return typed
}

func (h *harness) registerVerified(t *testing.T, email, password string) int64 {
	t.Helper()
	ctx := context.Background()
	resp, err := h.svc.Register(ctx, RegisterRequest{Email: email, Password: password})
	require.NoError(t, err)
	code := h.mail.last(t, email, mailer.PurposeRegistration)
	_, err = h.svc.VerifyEmail(ctx, VerifyCodeRequest{Email: email, Code: code})
	require.NoError(t, err)
	return resp.UserID
}

func wrongCode(code string) string {
	if code == "999999" {
		return "100000"
	}
	return "999999"
}

func TestRegisterVerifyLoginEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	reg, err := h.svc.Register(ctx, RegisterRequest{Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotZero(t, reg.UserID)

	code := h.mail.last(t, "a@x.com", mailer.PurposeRegistration)
	require.True(t, otp.WellFormed(code))

	_, err = h.svc.VerifyEmail(ctx, VerifyCodeRequest{Email: "a@x.com", Code: wrongCode(code)})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	verified, err := h.svc.VerifyEmail(ctx, VerifyCodeRequest{Email: "a@x.com", Code: code})
	require.NoError(t, err)
	assert.True(t, verified.Verified)

	login, err := h.svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.True(t, login.LoginCodeSent)

	loginCode := h.mail.last(t, "a@x.com", mailer.PurposeLogin)
	out, err := h.svc.VerifyLogin(ctx, VerifyCodeRequest{Email: "a@x.com", Code: loginCode})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", out.TokenType)
	assert.Equal(t, reg.UserID, out.User.ID)

	claims, err := pkgAuth.ParseAccessToken(testJWT, out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleUser, claims.Role)
	assert.Equal(t, "a@x.com", claims.Email)
	sub, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, sub)

	_, err = h.svc.VerifyLogin(ctx, VerifyCodeRequest{Email: "a@x.com", Code: loginCode})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestTokenMintedAtServiceClockParses(t *testing.T) {
	h := newHarness(t, false)
	issued := h.clock.Now()

	token, err := pkgAuth.MintAccessToken(testJWT, issued, pkgAuth.AccessTokenPayload{UserID: 7, Email: "a@x.com", Role: enums.RoleUser})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.True(t, claims.IssuedAt.Time.Equal(issued))
	assert.True(t, claims.ExpiresAt.Time.After(time.Now()))
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	_, err := h.svc.Register(ctx, RegisterRequest{Email: "dup@x.com", Password: "password1"})
	require.NoError(t, err)
	_, err = h.svc.Register(ctx, RegisterRequest{Email: "dup@x.com", Password: "password2"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestConcurrentRegistrationHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.Register(ctx, RegisterRequest{Email: "race@x.com", Password: "password1"})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		requireCode(t, err, pkgerrors.CodeConflict)
	}
	assert.Equal(t, 1, successes)
}

func TestVerifyEmailRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	_, err := h.svc.VerifyEmail(ctx, VerifyCodeRequest{Email: "ghost@x.com", Code: "123456"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = h.svc.Register(ctx, RegisterRequest{Email: "late@x.com", Password: "password1"})
	require.NoError(t, err)
	code := h.mail.last(t, "late@x.com", mailer.PurposeRegistration)

	h.clock.Advance(otp.RegistrationTTL)
	_, err = h.svc.VerifyEmail(ctx, VerifyCodeRequest{Email: "late@x.com", Code: code})
	typed := requireCode(t, err, pkgerrors.CodeUnauthorized)
	assert.Contains(t, typed.Message(), "expired")
	assert.NotContains(t, typed.Message(), "invalid")

	h.registerVerified(t, "done@x.com", "password1")
	_, err = h.svc.VerifyEmail(ctx, VerifyCodeRequest{Email: "done@x.com", Code: "123456"})
	typed = requireCode(t, err, pkgerrors.CodeBadRequest)
	assert.Equal(t, "email already verified", typed.Message())
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	h.registerVerified(t, "ok@x.com", "password1")
	_, err := h.svc.Register(ctx, RegisterRequest{Email: "pending@x.com", Password: "password1"})
	require.NoError(t, err)

	cases := []LoginRequest{
		{Email: "nobody@x.com", Password: "password1"},
		{Email: "pending@x.com", Password: "password1"},
		{Email: "ok@x.com", Password: "wrong-password"},
	}
	for _, req := range cases {
		_, err := h.svc.Login(ctx, req)
		typed := requireCode(t, err, pkgerrors.CodeUnauthorized)
		assert.Equal(t, invalidCredentialsMessage, typed.Message())
	}
}

func TestVerifyLoginExpiredCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	h.registerVerified(t, "c@x.com", "password1")

	_, err := h.svc.Login(ctx, LoginRequest{Email: "c@x.com", Password: "password1"})
	require.NoError(t, err)
	code := h.mail.last(t, "c@x.com", mailer.PurposeLogin)

	h.clock.Advance(10*time.Minute + time.Second)
	_, err = h.svc.VerifyLogin(ctx, VerifyCodeRequest{Email: "c@x.com", Code: code})
	typed := requireCode(t, err, pkgerrors.CodeUnauthorized)
	assert.Contains(t, typed.Message(), "expired")

	_, err = h.svc.VerifyLogin(ctx, VerifyCodeRequest{Email: "c@x.com", Code: wrongCode(code)})
	typed = requireCode(t, err, pkgerrors.CodeUnauthorized)
	assert.Contains(t, typed.Message(), "invalid")
}

func TestSecondLoginOverwritesPendingCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	h.registerVerified(t, "twice@x.com", "password1")

	_, err := h.svc.Login(ctx, LoginRequest{Email: "twice@x.com", Password: "password1"})
	require.NoError(t, err)
	first := h.mail.last(t, "twice@x.com", mailer.PurposeLogin)

	var second string
	for {
		_, err = h.svc.Login(ctx, LoginRequest{Email: "twice@x.com", Password: "password1"})
		require.NoError(t, err)
		second = h.mail.last(t, "twice@x.com", mailer.PurposeLogin)
		if second != first {
			break
		}
	}

	_, err = h.svc.VerifyLogin(ctx, VerifyCodeRequest{Email: "twice@x.com", Code: first})
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = h.svc.VerifyLogin(ctx, VerifyCodeRequest{Email: "twice@x.com", Code: second})
	require.NoError(t, err)
}

func TestMailFailureKeepsCodeUsable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.mail.err = errors.New("smtp down")

	_, err := h.svc.Register(ctx, RegisterRequest{Email: "m@x.com", Password: "password1"})
	require.NoError(t, err)

	code := h.mail.last(t, "m@x.com", mailer.PurposeRegistration)
	logs := h.output.String()
	assert.Contains(t, logs, "auth.mail.failed")
	assert.Contains(t, logs, "auth.mail.dev_code")
	assert.Contains(t, logs, code)

	_, err = h.svc.VerifyEmail(ctx, VerifyCodeRequest{Email: "m@x.com", Code: code})
	require.NoError(t, err)
}

func TestMailFailureOutsideDevDoesNotLogCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	h.mail.err = errors.New("smtp down")

	_, err := h.svc.Register(ctx, RegisterRequest{Email: "p@x.com", Password: "password1"})
	require.NoError(t, err)

	logs := h.output.String()
	assert.Contains(t, logs, "auth.mail.failed")
	assert.NotContains(t, logs, "auth.mail.dev_code")
}

func TestCreateAdminBootstrapsOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	resp, err := h.svc.CreateAdmin(ctx, CreateAdminRequest{Email: "root@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, resp.User.Role)
	assert.True(t, resp.User.EmailVerified)
	assert.Contains(t, resp.Permissions, enums.PermissionManageUsers)

	_, err = h.svc.CreateAdmin(ctx, CreateAdminRequest{Email: "other@x.com", Password: "password1"})
	requireCode(t, err, pkgerrors.CodeConflict)

	_, err = h.svc.Login(ctx, LoginRequest{Email: "root@x.com", Password: "password1"})
	require.NoError(t, err, "bootstrap admin skips email verification")
}

func TestCreateAdminRejectsRegisteredEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	_, err := h.svc.Register(ctx, RegisterRequest{Email: "taken@x.com", Password: "password1"})
	require.NoError(t, err)

	_, err = h.svc.CreateAdmin(ctx, CreateAdminRequest{Email: "taken@x.com", Password: "password1"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestConcurrentBootstrapHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := "admin" + string(rune('a'+i)) + "@x.com"
			_, errs[i] = h.svc.CreateAdmin(ctx, CreateAdminRequest{Email: email, Password: "password1"})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		requireCode(t, err, pkgerrors.CodeConflict)
	}
	assert.Equal(t, 1, successes)
}

func TestMeAndValidateUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)
	id := h.registerVerified(t, "me@x.com", "password1")

	me, err := h.svc.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "me@x.com", me.User.Email)
	assert.ElementsMatch(t, []enums.Permission{
		enums.PermissionReadOwnMovies,
		enums.PermissionWriteOwnMovies,
		enums.PermissionDeleteOwnMovies,
	}, me.Permissions)
	assert.True(t, strings.HasPrefix(me.RoleDescription, "Standard user"))

	_, err = h.svc.ValidateUser(ctx, id+1000)
	requireCode(t, err, pkgerrors.CodeUnauthorized)

	pending, err := h.svc.Register(ctx, RegisterRequest{Email: "pending@x.com", Password: "password1"})
	require.NoError(t, err)
	_, err = h.svc.ValidateUser(ctx, pending.UserID)
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
