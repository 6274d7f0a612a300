package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/utils"
)

// AuthService 注册、登录、令牌与第三方登录
type AuthService struct {
	base
	jwt        *utils.JWTService
	bcryptCost int
}

// GoogleProfile is the subset of the Google userinfo response we use.
type GoogleProfile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Verified   bool   `json:"verified_email"`
}

// Signup 注册新用户
func (s *AuthService) Signup(ctx context.Context, req models.UserSignupRequest) (*models.User, error) {
	f := fieldErrors{}
	user := &models.User{
		FirstName:    normalizeName(f, "firstName", "First name", req.FirstName),
		LastName:     normalizeName(f, "lastName", "Last name", req.LastName),
		Email:        normalizeEmail(f, req.Email),
		MobileNumber: normalizeMobile(f, req.MobileNumber, true),
		Address:      checkLength(f, "address", "Address", req.Address, false, maxAddressLen),
		Role:         models.RoleUser,
		CreatedAt:    s.now(),
	}
	if req.Password == "" {
		f.add("password", "Password is required")
	} else if len(req.Password) < minPasswordLen {
		f.add("password", "Password should be at least 6 characters long")
	} else if len(req.Password) > maxPasswordBytes {
		f.add("password", "Password must be at most 72 bytes long")
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	user.Password = string(hash)

	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperrors.Conflict("Email or mobile number already registered")
		}
		return nil, storeError(err, "User")
	}
	s.log.WithField("user_id", user.ID).Info("👤 User registered")
	return user, nil
}

// Login 校验邮箱和密码并签发令牌
func (s *AuthService) Login(ctx context.Context, req models.UserLoginRequest) (*models.UserLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperrors.Validation("Email and password are required")
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.Unauthenticated("Invalid email or password")
		}
		return nil, storeError(err, "User")
	}
	if user.Password == "" {
		// OAuth-only account
		return nil, apperrors.Unauthenticated("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthenticated("Invalid email or password")
	}
	return s.IssueTokens(user)
}

// IssueTokens 为用户签发访问令牌与刷新令牌
func (s *AuthService) IssueTokens(user *models.User) (*models.UserLoginResponse, error) {
	access, refresh, expiresAt, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &models.UserLoginResponse{
		User:         *user,
		Token:        access,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresAt - s.now().Unix(),
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The user must still exist.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.UserLoginResponse, error) {
	if refreshToken == "" {
		return nil, apperrors.Validation("refresh_token is required")
	}
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUnauthenticated, "Invalid refresh token", err)
	}
	user, err := s.db.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.Unauthenticated("Invalid refresh token")
		}
		return nil, storeError(err, "User")
	}
	return s.IssueTokens(user)
}

// Authenticate resolves an access token to the stored user.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, apperrors.Wrap(apperrors.KindUnauthenticated, "Token expired", err)
		}
		return nil, apperrors.Wrap(apperrors.KindUnauthenticated, "Invalid token", err)
	}
	user, err := s.db.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.Unauthenticated("User no longer exists")
		}
		return nil, storeError(err, "User")
	}
	return user, nil
}

// CurrentUser 返回用户以及其创建和参与的想法
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "User")
	}
	if user.CreatedIdeas, err = s.db.ListCreatedIdeaIDs(ctx, userID); err != nil {
		return nil, storeError(err, "User")
	}
	if user.Collaborations, err = s.db.ListCollaborationIdeaIDs(ctx, userID); err != nil {
		return nil, storeError(err, "User")
	}
	return user, nil
}

// FindOrCreateGoogleUser matches by Google id, then links an existing account
// by email, and otherwise creates an OAuth-only user. Linking and creating both
// require Google to have verified the email.
func (s *AuthService) FindOrCreateGoogleUser(ctx context.Context, p GoogleProfile) (*models.User, error) {
	if p.ID == "" || p.Email == "" {
		return nil, apperrors.Validation("Google profile is missing id or email")
	}

	user, err := s.db.GetUserByGoogleID(ctx, p.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, storeError(err, "User")
	}

	if !p.Verified {
		s.log.WithField("google_id", p.ID).Warn("⚠️ Refused Google profile with unverified email")
		return nil, apperrors.Forbidden("Google account email is not verified")
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	user, err = s.db.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		user.GoogleID = p.ID
		if err := s.db.UpdateUser(ctx, user); err != nil {
			return nil, storeError(err, "User")
		}
		s.log.WithField("user_id", user.ID).Info("🔗 Linked Google account to existing user")
		return user, nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, storeError(err, "User")
	}

	user = &models.User{
		FirstName: oauthName(p.GivenName, email),
		LastName:  oauthName(p.FamilyName, "user"),
		Email:     email,
		GoogleID:  p.ID,
		Role:      models.RoleUser,
		CreatedAt: s.now(),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, "User")
	}
	s.log.WithField("user_id", user.ID).Info("👤 User created from Google profile")
	return user, nil
}

// oauthName fits a provider-supplied name into the 2..20 rune limits.
func oauthName(name, fallback string) string {
	v := strings.ToLower(strings.TrimSpace(name))
	if runeLen(v) < minNameLen {
		v = strings.ToLower(strings.SplitN(fallback, "@", 2)[0])
	}
	if runeLen(v) < minNameLen {
		v = "user"
	}
	if r := []rune(v); len(r) > maxNameLen {
		v = string(r[:maxNameLen])
	}
	return v
}
