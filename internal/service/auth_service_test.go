package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"counto/internal/domain"
	"counto/internal/dto"
	"counto/internal/models"
	"counto/internal/service"
	"counto/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memUsers struct {
	byID map[uuid.UUID]*models.User
}

func (m *memUsers) Create(ctx context.Context, u *models.User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return &domain.ErrConflict{Message: "user exists"}
		}
	}
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: email}
}

func (m *memUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, &domain.ErrNotFound{Resource: "user", ID: id.String()}
}

func newAuthService() *service.AuthService {
	jwt := auth.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	return service.NewAuthService(&memUsers{byID: map[uuid.UUID]*models.User{}}, jwt, zap.NewNop())
}

func TestAuth_RegisterLoginRefresh(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()

	reg, err := svc.Register(ctx, &dto.RegisterRequest{Username: "asha", Email: "Asha@Example.com", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.TokenType != "Bearer" || reg.ExpiresIn != 3600 || reg.User.Email != "asha@example.com" {
		t.Errorf("register resp = %+v", reg)
	}

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "asha@example.com", Password: "s3cret!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Error("login returned a different user")
	}

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("no access token")
	}

	if _, err := svc.RefreshToken(ctx, login.AccessToken); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("refresh with access token err = %v", err)
	}
}

func TestAuth_Failures(t *testing.T) {
	svc := newAuthService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, &dto.RegisterRequest{Username: "asha", Email: "asha@example.com", Password: "s3cret!"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Register(ctx, &dto.RegisterRequest{Username: "other", Email: "asha@example.com", Password: "s3cret!"}); !errors.Is(err, service.ErrUserExists) {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "asha@example.com", Password: "wrong"}); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("bad password err = %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v", err)
	}

	var v *domain.ErrValidation
	if _, err := svc.Register(ctx, &dto.RegisterRequest{Username: "x", Email: "x@example.com", Password: "123"}); !errors.As(err, &v) || v.Field != "password" {
		t.Errorf("short password err = %v", err)
	}
}
