package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"micro-crm/backend/users-service/models"
	"micro-crm/backend/users-service/repository"
	userutils "micro-crm/backend/users-service/utils"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"
)

var (
	ErrValidation = errors.New("validation failed")

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, page utils.PageRequest) ([]models.User, int64, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID string) error
}

type TokenIssuer interface {
	GenerateToken(userID, email string) (string, error)
}

type UserService struct {
	users     UserStore
	tokens    TokenIssuer
	blackList userutils.PasswordBlacklist
	now       func() time.Time
}

func NewUserService(users UserStore, tokens TokenIssuer, blackList userutils.PasswordBlacklist) *UserService {
	return &UserService{users: users, tokens: tokens, blackList: blackList, now: time.Now}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ParsePageRequest reads the paging parameters of the user list.
func ParsePageRequest(query url.Values) (utils.PageRequest, error) {
	page, err := utils.ParsePageRequest(query, func(field string) bool {
		_, ok := repository.SortField(field)
		return ok
	})
	if err != nil {
		return page, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return page, nil
}

// Register creates an active account and signs a token for it.
func (s *UserService) Register(ctx context.Context, req models.CreateUserRequest) (*models.LoginResponse, error) {
	req.Active = nil
	user, err := s.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: User %s registered", user.ID.Hex())
	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, userutils.NormalizeEmail(req.Email))
	if errors.Is(err, models.ErrUserNotFound) {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Unknown email")
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !userutils.CheckPassword(user.PasswordHash, req.Password) {
		logging.Logger.Warnf("Event ID: LOGIN_FAILED, Description: Wrong password for user %s", user.ID.Hex())
		return nil, models.ErrInvalidCredentials
	}
	if !user.Active {
		logging.Logger.Warnf("Event ID: LOGIN_DISABLED, Description: Disabled user %s tried to log in", user.ID.Hex())
		return nil, models.ErrUserDisabled
	}
	logging.Logger.Infof("Event ID: LOGIN_SUCCESS, Description: User %s logged in", user.ID.Hex())
	return s.issue(user)
}

// Me returns the account behind a verified token subject.
func (s *UserService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, models.ErrUserDisabled
	}
	return user, nil
}

func (s *UserService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := userutils.NormalizeEmail(req.Email)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := userutils.ValidatePassword(req.Password); err != nil {
		return nil, validationError("%v", err)
	}
	if s.blackList.Contains(req.Password) {
		return nil, validationError("password is too common")
	}
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hashed, err := userutils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, page utils.PageRequest) (utils.Page[models.User], error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return utils.Page[models.User]{}, err
	}
	return utils.NewPage(users, total, page), nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) UpdateUser(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if req.Email != nil {
		email := userutils.NormalizeEmail(*req.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, userID); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: USER_UPDATED, Description: User %s updated", userID)
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: USER_DELETED, Description: User %s deleted", userID)
	return nil
}

func (s *UserService) issue(user *models.User) (*models.LoginResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{AccessToken: token, TokenType: "bearer", User: *user}, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email, exceptID string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID.Hex() == exceptID {
		return nil
	}
	return models.ErrEmailExists
}

func validateName(name string) error {
	if name == "" {
		return validationError("name is required")
	}
	if len([]rune(name)) > models.MaxUserName {
		return validationError("name must be at most %d characters", models.MaxUserName)
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > models.MaxUserEmail || !emailPattern.MatchString(email) {
		return validationError("a valid email is required")
	}
	return nil
}
