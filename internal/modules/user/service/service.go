package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/alumninetwork/internal/entity"
	search "anoa.com/alumninetwork/internal/modules/search/service"
	"anoa.com/alumninetwork/internal/modules/user/dto"
	"anoa.com/alumninetwork/internal/modules/user/repository"
	"anoa.com/alumninetwork/pkg/apperror"
	"anoa.com/alumninetwork/pkg/password"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"gorm.io/gorm"
)

// Scope selects which login endpoint is being used.
type Scope string

const (
	ScopeUser  Scope = "user"
	ScopeStaff Scope = "staff"
	ScopeAdmin Scope = "admin"
)

func (s Scope) allows(role string) bool {
	switch s {
	case ScopeAdmin:
		return role == entity.RoleAdmin
	case ScopeStaff:
		return role == entity.RoleStaff || role == entity.RoleAdmin
	default:
		return true
	}
}

const searchLimit = 20

type AuthService interface {
	Login(ctx context.Context, input dto.LoginInput, scope Scope, meta dto.LoginMeta) (*dto.AuthResponse, error)
	LoginHistory(ctx context.Context, userID uuid.UUID) ([]entity.LoginLog, error)
	GetProfile(ctx context.Context, username string) (*entity.User, error)
	SearchUsers(ctx context.Context, query string) ([]dto.UserSummary, error)
}

type Options struct {
	Secret   string
	TokenTTL time.Duration
	Now      func() time.Time
}

type authService struct {
	repo     repository.UserRepository
	logs     repository.LoginLogRepository
	hasher   password.Hasher
	index    search.UserIndex
	secret   string
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(repo repository.UserRepository, logs repository.LoginLogRepository, hasher password.Hasher, index search.UserIndex, opts Options) AuthService {
	if opts.Secret == "" {
		opts.Secret = "change-me"
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &authService{
		repo:     repo,
		logs:     logs,
		hasher:   hasher,
		index:    index,
		secret:   opts.Secret,
		tokenTTL: opts.TokenTTL,
		now:      opts.Now,
	}
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput, scope Scope, meta dto.LoginMeta) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	var loginErr error
	switch {
	case !s.hasher.Verify(input.Password, user.PasswordHash):
		loginErr = fmt.Errorf("%w: invalid credentials", apperror.ErrUnauthorized)
	case !user.IsActive:
		loginErr = fmt.Errorf("%w: account is disabled", apperror.ErrForbidden)
	case !scope.allows(user.Role.Name):
		loginErr = fmt.Errorf("%w: %s cannot login here", apperror.ErrForbidden, user.Role.Name)
	}

	if err := s.audit(ctx, user.ID, scope, meta, loginErr == nil); err != nil {
		return nil, err
	}
	if loginErr != nil {
		return nil, loginErr
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return s.buildAuthResponse(user)
}

func (s *authService) audit(ctx context.Context, userID uuid.UUID, scope Scope, meta dto.LoginMeta, ok bool) error {
	entry := &entity.LoginLog{
		UserID:     userID,
		Timestamp:  s.now(),
		Successful: ok,
		Scope:      string(scope),
	}
	if meta.IP != "" {
		entry.IPAddress = &meta.IP
	}
	browser, version, device := parseUserAgent(meta.UserAgent)
	entry.Browser, entry.BrowserVersion, entry.Device = &browser, &version, &device

	if err := s.logs.Create(ctx, entry); err != nil {
		return fmt.Errorf("write login log: %w", err)
	}
	return nil
}

func parseUserAgent(raw string) (browser, version, device string) {
	if raw == "" {
		return "Other", "", "Unknown"
	}
	ua := useragent.New(raw)
	browser, version = ua.Browser()
	device = ua.Platform()
	if device == "" {
		device = "Unknown"
	}
	if ua.Bot() {
		device = "Bot"
	}
	return browser, version, device
}

func (s *authService) LoginHistory(ctx context.Context, userID uuid.UUID) ([]entity.LoginLog, error) {
	return s.logs.ListByUser(ctx, userID)
}

func (s *authService) GetProfile(ctx context.Context, username string) (*entity.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %q", apperror.ErrNotFound, username)
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) SearchUsers(ctx context.Context, query string) ([]dto.UserSummary, error) {
	query = strings.TrimSpace(query)
	results := []dto.UserSummary{}
	if query == "" {
		return results, nil
	}

	users, err := s.searchIndex(ctx, query)
	if err != nil {
		log.Printf("user index search failed, falling back to database: %v", err)
		users = nil
	}
	if users == nil {
		users, err = s.repo.Search(ctx, query, searchLimit)
		if err != nil {
			return nil, err
		}
	}

	for _, u := range users {
		results = append(results, dto.NewUserSummary(u))
	}
	return results, nil
}

// searchIndex returns nil users when no index is configured.
func (s *authService) searchIndex(ctx context.Context, query string) ([]*entity.User, error) {
	if s.index == nil {
		return nil, nil
	}
	usernames, err := s.index.SearchUsers(query, searchLimit)
	if err != nil {
		return nil, err
	}

	found, err := s.repo.FindByUsernames(ctx, usernames)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*entity.User, len(found))
	for _, u := range found {
		byName[u.Username] = u
	}

	ordered := make([]*entity.User, 0, len(usernames))
	for _, name := range usernames {
		if u, ok := byName[name]; ok {
			ordered = append(ordered, u)
		}
	}
	return ordered, nil
}

func (s *authService) buildAuthResponse(user *entity.User) (*dto.AuthResponse, error) {
	token, expiresAt, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) generateToken(user *entity.User) (string, int64, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expiresAt.Unix(), nil
}
