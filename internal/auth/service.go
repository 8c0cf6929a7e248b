package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tsiki-shop/storefront-backend/internal/users"
	pkgauth "github.com/tsiki-shop/storefront-backend/pkg/auth"
	"github.com/tsiki-shop/storefront-backend/pkg/config"
	"github.com/tsiki-shop/storefront-backend/pkg/db"
	"github.com/tsiki-shop/storefront-backend/pkg/db/models"
	"github.com/tsiki-shop/storefront-backend/pkg/enums"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
	"github.com/tsiki-shop/storefront-backend/pkg/metrics"
	"github.com/tsiki-shop/storefront-backend/pkg/security"
	"github.com/tsiki-shop/storefront-backend/pkg/validation"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	duplicateEmailMessage     = "email already registered"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Session, error)
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	ResolveSession(ctx context.Context, token string) (*Principal, error)
}

type userRepository interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	WithTx(tx *gorm.DB) *users.Repository
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo userRepository
	// Tx scopes the registration email check and insert to one transaction.
	// Without it both statements run on the repository's own handle.
	Tx             transactor
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Metrics        *metrics.AuthMetrics
	Logger         *logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type service struct {
	users       userRepository
	tx          transactor
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	decoyHash   string
	metrics     *metrics.AuthMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the credential and session issuer.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository is required")
	}
	if params.JWTConfig.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "jwt secret is required")
	}
	decoy, err := security.DecoyHash(params.PasswordConfig)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build decoy hash")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		users:       params.UserRepo,
		tx:          params.Tx,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		decoyHash:   decoy,
		metrics:     params.Metrics,
		logg:        logg,
		now:         now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	req = normalizeRegister(req)
	if err := validation.Struct(&req); err != nil {
		s.metrics.IncOutcome("register", "invalid")
		return nil, err
	}

	started := time.Now()
	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	s.metrics.ObserveHash("hash", time.Since(started))
	if err != nil {
		s.metrics.IncOutcome("register", "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.inTx(ctx, func(repo userRepository) error {
		if _, err := repo.FindByEmail(ctx, req.Email); err == nil {
			return pkgerrors.New(pkgerrors.CodeDuplicateEmail, duplicateEmailMessage)
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		created, err := repo.Create(ctx, users.CreateUserDTO{
			Email:        req.Email,
			PasswordHash: passwordHash,
			Name:         req.Name,
			FirstName:    req.FirstName,
			Phone:        req.Phone,
			Country:      req.Country,
			NationalID:   req.NationalID,
			Address:      req.Address,
			Role:         enums.UserRoleCustomer,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeDuplicateEmail, err, duplicateEmailMessage)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		user = created
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeDuplicateEmail) {
			s.metrics.IncOutcome("register", "duplicate")
		} else {
			s.metrics.IncOutcome("register", "error")
		}
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register transaction")
		}
		return nil, err
	}

	session, err := s.issue(user)
	if err != nil {
		s.metrics.IncOutcome("register", "error")
		return nil, err
	}
	s.metrics.IncOutcome("register", "success")
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return session, nil
}

func (s *service) inTx(ctx context.Context, fn func(repo userRepository) error) error {
	if s.tx == nil {
		return fn(s.users)
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(s.users.WithTx(tx))
	})
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidCredentials) {
			s.metrics.IncOutcome("login", "invalid_credentials")
		} else {
			s.metrics.IncOutcome("login", "error")
		}
		return nil, err
	}

	session, err := s.issue(user)
	if err != nil {
		s.metrics.IncOutcome("login", "error")
		return nil, err
	}
	s.metrics.IncOutcome("login", "success")
	return session, nil
}

func (s *service) ResolveSession(ctx context.Context, token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, "authentication required")
	}

	claims, err := pkgauth.ParseSessionToken(s.jwtCfg, token, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidToken, err, "invalid or expired session")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidToken, err, "invalid or expired session")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session user")
	}

	role := user.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}
	return &Principal{User: users.PublicFromModel(user), Role: role}, nil
}

// authenticate runs exactly one password verification whether or not the
// email exists, and returns the same error for either failure.
func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	var user *models.User
	if email != "" {
		found, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			user = found
		case !db.IsNotFound(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
		}
	}

	encoded := s.decoyHash
	if user != nil {
		encoded = user.PasswordHash
	}

	started := time.Now()
	valid, err := security.VerifyPassword(password, encoded)
	s.metrics.ObserveHash("verify", time.Since(started))
	if err != nil && !errors.Is(err, security.ErrInvalidHash) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if user == nil || !valid || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCredentials, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) issue(user *models.User) (*Session, error) {
	now := s.now().UTC()
	token, err := pkgauth.MintSessionToken(s.jwtCfg, now, pkgauth.SessionPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &Session{
		Token:     token,
		ExpiresAt: now.Add(s.jwtCfg.TTL()),
		User:      users.PublicFromModel(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRegister(req RegisterRequest) RegisterRequest {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Country = strings.TrimSpace(req.Country)
	req.NationalID = strings.TrimSpace(req.NationalID)
	req.Address = strings.TrimSpace(req.Address)
	req.FirstName = trimOptional(req.FirstName)
	req.Phone = trimOptional(req.Phone)
	return req
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
