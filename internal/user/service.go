package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gatherly/internal/logging"
	"gatherly/internal/shared/apperr"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrExists           = fmt.Errorf("user exists: %w", apperr.ErrConflict)
	ErrWrongCredentials = errors.New("wrong credentials")
)

const (
	minPasswordLen = 4
	minNameLen     = 2
	maxNameLen     = 50
)

type TokenIssuer interface {
	Issue(uid string) (string, error)
}

type PostCounter interface {
	CountByUser(ctx context.Context, uid string) (int64, error)
}

type ImageStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(u string) (string, bool)
}

type Picture struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

type Service interface {
	Register(ctx context.Context, in RegisterReq) (*TokenResp, error)
	Login(ctx context.Context, in LoginReq) (*TokenResp, error)
	Profile(ctx context.Context, uid string) (*Profile, error)
	SetPicture(ctx context.Context, uid string, pic Picture) (*Profile, error)
	DeletePicture(ctx context.Context, uid string) (*Profile, error)
}

type service struct {
	repo   Repository
	tokens TokenIssuer
	posts  PostCounter
	images ImageStore
	log    *zap.Logger
	now    func() time.Time
}

func NewService(r Repository, tokens TokenIssuer, posts PostCounter, images ImageStore, log *zap.Logger) Service {
	log = logging.OrNop(log)
	return &service{repo: r, tokens: tokens, posts: posts, images: images, log: log, now: time.Now}
}

func (s *service) Register(ctx context.Context, in RegisterReq) (*TokenResp, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	switch {
	case !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: email is invalid", apperr.ErrInvalidInput)
	case name == "":
		return nil, fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	case utf8.RuneCountInString(name) < minNameLen || utf8.RuneCountInString(name) > maxNameLen:
		return nil, fmt.Errorf("%w: name must have %d to %d characters", apperr.ErrInvalidInput, minNameLen, maxNameLen)
	case len(in.Password) < minPasswordLen:
		return nil, fmt.Errorf("%w: password must have at least %d characters", apperr.ErrInvalidInput, minPasswordLen)
	}
	if _, err := s.repo.ByEmail(ctx, email); err == nil {
		return nil, ErrExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{Email: email, PassHash: string(hash), Name: name}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.token(u.ID)
}

func (s *service) Login(ctx context.Context, in LoginReq) (*TokenResp, error) {
	u, err := s.repo.ByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PassHash), []byte(in.Password)) != nil {
		return nil, ErrWrongCredentials
	}
	return s.token(u.ID)
}

func (s *service) token(uid string) (*TokenResp, error) {
	tok, err := s.tokens.Issue(uid)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &TokenResp{Token: tok, UserID: uid}, nil
}

func (s *service) Profile(ctx context.Context, uid string) (*Profile, error) {
	u, err := s.repo.ByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	n, err := s.posts.CountByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	return &Profile{ID: u.ID, Name: u.Name, ProfilePicture: u.ProfilePicture, PostCount: n}, nil
}

// SetPicture uploads a new profile picture and drops the previous one.
func (s *service) SetPicture(ctx context.Context, uid string, pic Picture) (*Profile, error) {
	u, err := s.repo.ByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(pic.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("profile-%s-%d%s", uid, s.now().UnixNano(), ext)
	if err := s.images.Put(ctx, key, pic.ContentType, pic.Body, pic.Size); err != nil {
		return nil, fmt.Errorf("upload picture: %w", err)
	}
	if err := s.repo.SetPicture(ctx, uid, s.images.PublicURL(key)); err != nil {
		_ = s.images.Remove(ctx, key)
		return nil, err
	}
	s.dropImage(ctx, u.ProfilePicture)
	return s.Profile(ctx, uid)
}

func (s *service) DeletePicture(ctx context.Context, uid string) (*Profile, error) {
	u, err := s.repo.ByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u.ProfilePicture == "" {
		return nil, fmt.Errorf("profile picture %w", apperr.ErrNotFound)
	}
	if err := s.repo.SetPicture(ctx, uid, ""); err != nil {
		return nil, err
	}
	s.dropImage(ctx, u.ProfilePicture)
	return s.Profile(ctx, uid)
}

func (s *service) dropImage(ctx context.Context, url string) {
	key, ok := s.images.KeyFromURL(url)
	if !ok {
		return
	}
	if err := s.images.Remove(ctx, key); err != nil {
		s.log.Warn("remove profile picture", zap.String("key", key), zap.Error(err))
	}
}
