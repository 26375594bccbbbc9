package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"savdo/backend/internal/domain"
	"savdo/backend/internal/store"
)

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
}

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username, passwordHash string) error
}

type saleCustomClaims struct {
	jwtlib.RegisteredClaims
	Role    string `json:"role"`
	StoreID int64  `json:"store_id"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}

	// Legacy plain-text passwords are upgraded to bcrypt on first login.
	stored := user.Password
	if !isPasswordHash(stored) {
		if stored != req.Password {
			return domain.LoginResponse{}, errors.New("invalid credentials")
		}
		if hashed, err := hashPassword(stored); err == nil {
			_ = a.users.UpdateUserPassword(ctx, username, hashed)
		}
	} else if !verifyPassword(stored, req.Password) {
		return domain.LoginResponse{}, errors.New("invalid credentials")
	}
	if !user.Active {
		return domain.LoginResponse{}, errors.New("account is inactive")
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(*user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        user.Role,
		StoreID:     user.StoreID,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &saleCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	userID, err := strconv.ParseInt(claims.ID, 10, 64)
	if err != nil || userID < 1 {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{
		UserID:   userID,
		Username: sub,
		Role:     claims.Role,
		StoreID:  claims.StoreID,
	}, nil
}

func (a *AuthManager) sign(user domain.UserAccount, expiresAt time.Time) (string, error) {
	claims := saleCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.Username,
			ID:        strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "savdo",
		},
		Role:    user.Role,
		StoreID: user.StoreID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// CreateSeller registers a seller account bound to a store.
func (a *AuthManager) CreateSeller(ctx context.Context, req domain.SellerCreateRequest) (domain.SellerUser, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 4 {
		return domain.SellerUser{}, fmt.Errorf("username must be at least 4 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return domain.SellerUser{}, fmt.Errorf("username must not contain spaces")
	}
	if strings.TrimSpace(req.Password) == "" || len(req.Password) < 6 {
		return domain.SellerUser{}, fmt.Errorf("password must be at least 6 characters")
	}
	if req.StoreID < 1 {
		return domain.SellerUser{}, fmt.Errorf("store is required")
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.SellerUser{}, fmt.Errorf("failed to hash password")
	}

	created, err := a.users.CreateUser(ctx, domain.UserAccount{
		Username: username,
		Password: passwordHash,
		Role:     domain.RoleSeller,
		StoreID:  req.StoreID,
		Active:   true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.SellerUser{}, fmt.Errorf("username already exists")
		}
		return domain.SellerUser{}, err
	}

	return domain.SellerUser{
		ID:        created.ID,
		Username:  created.Username,
		Role:      created.Role,
		StoreID:   created.StoreID,
		Active:    created.Active,
		CreatedAt: created.CreatedAt,
	}, nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
