package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/minesafe-compliance/internal/data/repos"
	types "github.com/yungbote/minesafe-compliance/internal/domain"
	"github.com/yungbote/minesafe-compliance/internal/platform/apierr"
	"github.com/yungbote/minesafe-compliance/internal/platform/ctxutil"
	"github.com/yungbote/minesafe-compliance/internal/platform/dbctx"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

const minPasswordLength = 6

var errInvalidCredentials = errors.New("Invalid email or password")

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      *types.UserSummary `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// ParseToken validates an access token and returns the caller it names.
	ParseToken(tokenString string) (*ctxutil.RequestData, error)
	IssueToken(u *types.User) (string, time.Time, error)
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	log       *logger.Logger
	users     repos.UserRepo
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewAuthService(log *logger.Logger, users repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if log == nil {
		log = logger.Nop()
	}
	if accessTTL <= 0 {
		accessTTL = 12 * time.Hour
	}
	return &authService{
		log:       log.With("service", "AuthService"),
		users:     users,
		secret:    []byte(jwtSecretKey),
		accessTTL: accessTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := types.Role(strings.TrimSpace(in.Role))
	if role == "" {
		role = types.RoleWorker
	}
	switch {
	case name == "":
		return nil, apierr.Validation("A name is required to register")
	case email == "" || !strings.Contains(email, "@"):
		return nil, apierr.Validation("A valid email is required to register")
	case len(in.Password) < minPasswordLength:
		return nil, apierr.Validation("Password must be at least %d characters", minPasswordLength)
	case !role.Valid():
		return nil, apierr.Validation("Unknown role %q", role)
	}

	dbc := dbctx.Background(ctx)
	exists, err := s.users.EmailExists(dbc, email)
	if err != nil {
		return nil, fmt.Errorf("Failed to check user email: %w", err)
	}
	if exists {
		return nil, apierr.Conflict("Email is already in use")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Failed to hash password: %w", err)
	}
	created, err := s.users.Create(dbc, []*types.User{{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     role,
	}})
	if err != nil {
		return nil, fmt.Errorf("Failed to create user: %w", err)
	}
	u := created[0]
	s.log.Info("User registered", "user_id", u.ID, "role", u.Role)
	return s.result(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apierr.Validation("Email and password are required")
	}
	u, err := s.users.GetByEmail(dbctx.Background(ctx), email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierr.Unauthorized(errInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("Error retrieving user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, apierr.Unauthorized(errInvalidCredentials)
	}
	return s.result(u)
}

func (s *authService) result(u *types.User) (*AuthResult, error) {
	tok, exp, err := s.IssueToken(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok, ExpiresAt: exp, User: u.Summary()}, nil
}

func (s *authService) IssueToken(u *types.User) (string, time.Time, error) {
	if u == nil || u.ID == uuid.Nil {
		return "", time.Time{}, fmt.Errorf("user required")
	}
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := accessClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return tok, exp, nil
}

func (s *authService) ParseToken(tokenString string) (*ctxutil.RequestData, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, apierr.Unauthorized(fmt.Errorf("missing token"))
	}
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, apierr.Unauthorized(fmt.Errorf("invalid token: %w", err))
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.Unauthorized(fmt.Errorf("invalid token subject"))
	}
	return &ctxutil.RequestData{UserID: id, Role: claims.Role}, nil
}
