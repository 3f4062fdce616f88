package auth

import (
	"context"

	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/metrics"
	"github.com/angelmondragon/watchlist-backend/pkg/security"
	"gorm.io/gorm"
)

// bootstrapLockKey serializes first-admin creation across API instances.
const bootstrapLockKey int64 = 0x77617463686c7374

// CreateAdmin mints the first administrator. Once any ADMIN exists the path is
// closed for good.
func (s *service) CreateAdmin(ctx context.Context, req CreateAdminRequest) (resp *CreateAdminResponse, err error) {
	defer s.track(metrics.FlowCreateAdmin, s.now(), &err)

	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := db.LockTx(tx, bootstrapLockKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire bootstrap lock")
		}
		userRepo := users.NewRepository(tx)

		admins, err := userRepo.CountByRole(ctx, enums.RoleAdmin)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count administrators")
		}
		if admins > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "an administrator already exists")
		}

		user, err := CreateVerifiedAdmin(ctx, userRepo, email, passwordHash)
		if err != nil {
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateAdminResponse{
		Message:     "administrator created",
		User:        users.FromModel(created),
		Permissions: adminPermissions(),
	}, nil
}

// AdminCreator is the slice of the users repository needed to create an admin.
type AdminCreator interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// CreateVerifiedAdmin inserts an ADMIN whose email is already verified. It is
// shared by the bootstrap flow and the admin-only creation endpoint.
func CreateVerifiedAdmin(ctx context.Context, repo AdminCreator, email, passwordHash string) (*models.User, error) {
	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
	} else if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	user, err := repo.Create(ctx, users.CreateUserDTO{
		Email:         email,
		PasswordHash:  passwordHash,
		Role:          enums.RoleAdmin,
		EmailVerified: true,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, emailTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create admin")
	}
	return user, nil
}
