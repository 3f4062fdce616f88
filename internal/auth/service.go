package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/watchlist-backend/internal/users"
	pkgAuth "github.com/angelmondragon/watchlist-backend/pkg/auth"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/mailer"
	"github.com/angelmondragon/watchlist-backend/pkg/metrics"
	"github.com/angelmondragon/watchlist-backend/pkg/otp"
	"github.com/angelmondragon/watchlist-backend/pkg/rbac"
	"github.com/angelmondragon/watchlist-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller and the access guard.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	VerifyEmail(ctx context.Context, req VerifyCodeRequest) (*VerifyEmailResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	VerifyLogin(ctx context.Context, req VerifyCodeRequest) (*VerifyLoginResponse, error)
	CreateAdmin(ctx context.Context, req CreateAdminRequest) (*CreateAdminResponse, error)
	Me(ctx context.Context, userID int64) (*MeResponse, error)
	ValidateUser(ctx context.Context, userID int64) (*models.User, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	SetLoginCode(ctx context.Context, id int64, code string, expiresAt time.Time) error
	ConsumeVerificationCode(ctx context.Context, id int64, code string) (bool, error)
	ConsumeLoginCode(ctx context.Context, id int64, code string) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	DB             *db.Client
	UserRepo       userRepository
	Mailer         mailer.Sender
	Logger         *logger.Logger
	Metrics        *metrics.AuthFlowMetrics
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	// DevMode writes undelivered one-time codes to the log.
	DevMode bool
	Now     func() time.Time
}

type service struct {
	db          *db.Client
	users       userRepository
	mailer      mailer.Sender
	logg        *logger.Logger
	metrics     *metrics.AuthFlowMetrics
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	devMode     bool
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	repo := params.UserRepo
	if repo == nil {
		repo = users.NewRepository(params.DB.DB())
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		users:       repo,
		mailer:      params.Mailer,
		logg:        params.Logger,
		metrics:     params.Metrics,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		devMode:     params.DevMode,
		now:         func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (resp *LoginResponse, err error) {
	defer s.track(metrics.FlowLogin, s.now(), &err)

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	code, err := otp.Generate(s.now(), otp.LoginTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate login code")
	}
	if err := s.users.SetLoginCode(ctx, user.ID, code.Value, code.ExpiresAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store login code")
	}

	s.dispatchCode(ctx, user.Email, code, mailer.PurposeLogin, otp.LoginTTL)

	return &LoginResponse{
		Message:       "login code sent to your email",
		LoginCodeSent: true,
	}, nil
}

func (s *service) VerifyLogin(ctx context.Context, req VerifyCodeRequest) (resp *VerifyLoginResponse, err error) {
	defer s.track(metrics.FlowVerifyLogin, s.now(), &err)

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid login code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	now := s.now()
	if err := otp.Verify(user.LoginCode, user.LoginCodeExpiry, req.Code, now); err != nil {
		return nil, codeError(err, "login code")
	}
	consumed, err := s.users.ConsumeLoginCode(ctx, user.ID, *user.LoginCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear login code")
	}
	if !consumed {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid login code")
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &VerifyLoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtCfg.TTL().Seconds()),
		User:        users.SummaryFromModel(user),
	}, nil
}

func (s *service) Me(ctx context.Context, userID int64) (*MeResponse, error) {
	user, err := s.ValidateUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &MeResponse{
		User:            users.FromModel(user),
		Permissions:     rbac.PermissionsFor(user.Role),
		RoleDescription: rbac.Describe(user.Role),
		Timestamp:       s.now(),
	}, nil
}

// ValidateUser resolves a token subject to a live, verified account.
func (s *service) ValidateUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "email not verified")
	}
	if !user.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	return user, nil
}

// dispatchCode sends a one-time code. Delivery failures never undo the stored
// code; in dev mode the code is logged so it can still be used.
func (s *service) dispatchCode(ctx context.Context, email string, code otp.Code, purpose mailer.Purpose, ttl time.Duration) {
	err := s.mailer.SendCode(ctx, email, code.Value, purpose, ttl)
	if err == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"email":   email,
		"purpose": string(purpose),
		"error":   err.Error(),
	})
	s.logg.Warn(logCtx, "auth.mail.failed")
	if s.devMode {
		s.logg.Info(s.logg.WithField(logCtx, "code", code.Value), "auth.mail.dev_code")
	}
}

func (s *service) track(flow string, start time.Time, errp *error) {
	s.metrics.ObserveDuration(flow, s.now().Sub(start))
	if *errp != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(*errp); typed != nil {
			code = typed.Code()
		}
		s.metrics.IncFailure(flow, string(code))
		return
	}
	s.metrics.IncSuccess(flow)
}

// codeError maps one-time code failures. An expired code is reported as
// expired, never as invalid.
func codeError(err error, what string) error {
	if err == otp.ErrExpiredCode {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, what+" has expired")
	}
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid "+what)
}

// normalizeEmail trims surrounding whitespace; the address is otherwise
// stored and matched as given.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func adminPermissions() []enums.Permission {
	return rbac.PermissionsFor(enums.RoleAdmin)
}
