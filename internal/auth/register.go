package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thecolognehub/colognehub-backend/internal/users"
	"github.com/thecolognehub/colognehub-backend/pkg/config"
	"github.com/thecolognehub/colognehub-backend/pkg/db"
	"github.com/thecolognehub/colognehub-backend/pkg/db/models"
	"github.com/thecolognehub/colognehub-backend/pkg/enums"
	pkgerrors "github.com/thecolognehub/colognehub-backend/pkg/errors"
	"github.com/thecolognehub/colognehub-backend/pkg/outbox"
	"github.com/thecolognehub/colognehub-backend/pkg/security"
)

const verificationCodeLength = 6

// RegisterService handles account creation and email verification.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) error
	VerifyEmail(ctx context.Context, req VerifyEmailRequest) error
	ResendCode(ctx context.Context, req ResendCodeRequest) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	Outbox         outboxEmitter
	CodeSender     CodeSender
	PasswordConfig config.PasswordConfig
	MailConfig     config.MailConfig
}

type registerService struct {
	db          *db.Client
	outbox      outboxEmitter
	sender      CodeSender
	passwordCfg config.PasswordConfig
	mailCfg     config.MailConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.CodeSender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "code sender required")
	}
	return &registerService{
		db:          params.DB,
		outbox:      params.Outbox,
		sender:      params.CodeSender,
		passwordCfg: params.PasswordConfig,
		mailCfg:     params.MailConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(req.Password) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	code, err := security.GenerateVerificationCode(verificationCodeLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	expiresAt := time.Now().UTC().Add(s.mailCfg.CodeTTL)

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}

		user := &models.User{
			ID:               uuid.New(),
			Email:            email,
			PasswordHash:     passwordHash,
			FirstName:        strings.TrimSpace(req.FirstName),
			LastName:         strings.TrimSpace(req.LastName),
			Phone:            req.Phone,
			Role:             enums.UserRoleCustomer,
			IsActive:         true,
			EmailVerified:    false,
			VerificationCode: &code,
			VerificationExp:  &expiresAt,
		}
		created, err = userRepo.Create(ctx, user)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   created.ID,
			Data: map[string]any{
				"user_id": created.ID,
				"email":   created.Email,
			},
			Version: 1,
		})
	})
	if err != nil {
		return err
	}

	// Delivery failures do not roll back the account; the user can ask for a
	// resend.
	if err := s.sender.SendVerificationCode(ctx, email, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification code")
	}
	return nil
}

func (s *registerService) VerifyEmail(ctx context.Context, req VerifyEmailRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email and code are required")
	}

	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		user, err := userRepo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}
		if user.EmailVerified {
			return nil
		}
		if user.VerificationCode == nil || user.VerificationExp == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no verification pending")
		}
		if time.Now().UTC().After(*user.VerificationExp) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "verification code expired")
		}
		if *user.VerificationCode != code {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
		}

		if err := userRepo.MarkVerified(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark verified")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserVerified,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: map[string]any{
				"user_id": user.ID,
				"email":   user.Email,
			},
			Version: 1,
		})
	})
}

func (s *registerService) ResendCode(ctx context.Context, req ResendCodeRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	code, err := security.GenerateVerificationCode(verificationCodeLength)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	expiresAt := time.Now().UTC().Add(s.mailCfg.CodeTTL)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		user, err := userRepo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}
		if user.EmailVerified {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "email already verified")
		}
		if err := userRepo.SetVerificationCode(ctx, user.ID, code, expiresAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store verification code")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.sender.SendVerificationCode(ctx, email, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification code")
	}
	return nil
}
