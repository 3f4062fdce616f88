package auth

import (
	"context"

	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/mailer"
	"github.com/angelmondragon/watchlist-backend/pkg/metrics"
	"github.com/angelmondragon/watchlist-backend/pkg/otp"
	"github.com/angelmondragon/watchlist-backend/pkg/security"
)

const emailTakenMessage = "email already registered"

func (s *service) Register(ctx context.Context, req RegisterRequest) (resp *RegisterResponse, err error) {
	defer s.track(metrics.FlowRegister, s.now(), &err)

	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	code, err := otp.Generate(s.now(), otp.RegistrationTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}

	// The existence check above is advisory; the unique index decides races.
	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:                  email,
		PasswordHash:           passwordHash,
		Role:                   enums.RoleUser,
		VerificationCode:       &code.Value,
		VerificationCodeExpiry: &code.ExpiresAt,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	s.dispatchCode(ctx, email, code, mailer.PurposeRegistration, otp.RegistrationTTL)

	return &RegisterResponse{
		Message: "registration successful, check your email for the verification code",
		UserID:  user.ID,
	}, nil
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyCodeRequest) (resp *VerifyEmailResponse, err error) {
	defer s.track(metrics.FlowVerifyEmail, s.now(), &err)

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid verification code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if user.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "email already verified")
	}

	if err := otp.Verify(user.VerificationCode, user.VerificationCodeExpiry, req.Code, s.now()); err != nil {
		return nil, codeError(err, "verification code")
	}
	consumed, err := s.users.ConsumeVerificationCode(ctx, user.ID, *user.VerificationCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark email verified")
	}
	if !consumed {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid verification code")
	}

	return &VerifyEmailResponse{
		Message:  "email verified successfully",
		Verified: true,
	}, nil
}
