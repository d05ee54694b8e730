package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cwrk-planet/meet-service/internal/domain"
	"github.com/cwrk-planet/meet-service/internal/security"
	"github.com/cwrk-planet/meet-service/pkg/errs"
)

// AuthService определяет, от чьего имени пришёл запрос.
//
// Без SessionJWT учётные данные это непрозрачный токен доступа, который ищется по SHA-256
// в users.access_token_hash. С SessionJWT это HS256 JWT, sub которого id пользователя.
type AuthService struct {
	users UserStore
	jwt   *security.SessionJWT
}

func NewAuthService(users UserStore, sessions *security.SessionJWT) *AuthService {
	return &AuthService{users: users, jwt: sessions}
}

// ResolveCaller errs.ErrUnauthorized для пустых, неизвестных и невалидных данных.
func (s *AuthService) ResolveCaller(ctx context.Context, credential string) (domain.User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.User{}, fmt.Errorf("%w: no session", errs.ErrUnauthorized)
	}

	var (
		u   domain.User
		err error
	)
	if s.jwt != nil {
		u, err = s.resolveJWT(ctx, credential)
	} else {
		u, err = s.users.ByTokenHash(ctx, security.TokenHash(credential))
	}
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			return domain.User{}, err
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, fmt.Errorf("%w: unknown session", errs.ErrUnauthorized)
		}
		return domain.User{}, upstream("users.lookup", err)
	}

	return u, nil
}

func (s *AuthService) resolveJWT(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.jwt.ParseAndValidate(token)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}

	return s.users.ByID(ctx, id)
}

type SeedUser struct {
	ID        int64
	Name      string
	AvatarURL string
	Token     string
}

// Seed заводит пользователей из конфига; повторный запуск только обновляет их.
func (s *AuthService) Seed(ctx context.Context, seeds []SeedUser) ([]domain.User, error) {
	out := make([]domain.User, 0, len(seeds))
	for _, su := range seeds {
		u, err := s.users.Upsert(ctx,
			domain.User{ID: su.ID, Username: su.Name, AvatarURL: su.AvatarURL},
			security.TokenHash(su.Token))
		if err != nil {
			return nil, upstream("users.Upsert", err)
		}
		out = append(out, u)
	}

	return out, nil
}
