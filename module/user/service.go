package user

import (
	"context"
	"strings"
	"time"

	"PShare/module/user/model"
	"PShare/tools/errs"
	"PShare/tools/ids"
	"PShare/tools/security"

	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = errs.NewCodeError(errs.BadRequest, "Invalid credentials")

// RegisterParams are the fields accepted at sign up.
type RegisterParams struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginParams identify the device a session is opened from.
type LoginParams struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResult is a verified user with a fresh session token.
type LoginResult struct {
	User     *model.User
	Token    string
	ExpireAt time.Time
}

type Service struct {
	store Store
	jwt   security.Options
	cost  int
	now   func() time.Time
}

func NewService(store Store, jwt security.Options) *Service {
	return &Service{store: store, jwt: jwt, cost: bcrypt.DefaultCost, now: time.Now}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *Service) Register(ctx context.Context, in RegisterParams) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, errs.ErrConflict.WrapMsg("User already exists")
	} else if !errs.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, errs.WrapMsg(err, "hash password")
	}
	u := &model.User{
		Username:     strings.TrimSpace(in.Username),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks the password and opens a session. Unknown email and wrong password look the same.
func (s *Service) Login(ctx context.Context, in LoginParams) (*LoginResult, error) {
	u, err := s.store.FindByEmail(ctx, normalizeEmail(in.Email))
	if errs.Is(err, errs.ErrNotFound) {
		return nil, errInvalidCredentials.Wrap()
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, errInvalidCredentials.Wrap()
	}

	now := s.now().UTC()
	opts := s.jwt
	opts.Now = s.now
	token, exp, err := security.Generate(opts, u.GetUserID())
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchLogin(ctx, u.GetUserID(), now); err != nil {
		return nil, err
	}
	u.LastLogin = &now
	if err := s.store.RecordSession(ctx, &model.UserSession{
		SessionID: ids.GenerateString(),
		UserID:    u.GetUserID(),
		IP:        in.IP,
		UserAgent: in.UserAgent,
		LoginTime: now,
		ExpireAt:  exp,
		Status:    model.SessionActive,
	}); err != nil {
		return nil, err
	}
	return &LoginResult{User: u, Token: token, ExpireAt: exp}, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.store.CloseSessions(ctx, userID, s.now().UTC())
}

func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.store.FindByID(ctx, userID)
}

func (s *Service) List(ctx context.Context, excludeID string) ([]*model.User, error) {
	return s.store.List(ctx, excludeID)
}
