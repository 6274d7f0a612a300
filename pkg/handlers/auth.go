package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/logging"
	"idea-incubator-backend/pkg/middleware"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/services"
	"idea-incubator-backend/pkg/utils"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateCookie  = "oauth_state"
	oauthPKCECookie   = "oauth_verifier"
	oauthCookiePath   = "/auth/google"
)

var authLog = logging.Component("auth")

// AuthHandler 认证处理器
type AuthHandler struct {
	config      *config.Config
	auth        *services.AuthService
	oauth       *oauth2.Config
	userInfoURL string
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, auth *services.AuthService) *AuthHandler {
	h := &AuthHandler{
		config:      cfg,
		auth:        auth,
		userInfoURL: googleUserInfoURL,
	}
	if cfg.GoogleOAuthEnabled() {
		h.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURI,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		}
	}
	return h
}

// Signup 用户注册
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.UserSignupRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	authLog.WithField("user_id", user.ID).Info("✅ User signed up")
	utils.WriteCreatedResponse(w, map[string]interface{}{
		"message": "User registered successfully",
		"user":    user,
	})
}

// Login 用户登录，同时写入 HttpOnly 的 jwt cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.UserLoginRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	h.setSessionCookie(w, resp.AccessToken, resp.ExpiresIn)
	utils.WriteSuccessResponse(w, resp)
}

// Logout 清除会话cookie。令牌本身无状态，客户端丢弃即可
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -1)
	utils.WriteSuccessResponse(w, map[string]string{"message": "Logged out successfully"})
}

// RefreshToken 刷新令牌
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshTokenRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		utils.WriteBadRequestResponse(w, "refresh_token is required")
		return
	}

	resp, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	h.setSessionCookie(w, resp.AccessToken, resp.ExpiresIn)
	utils.WriteSuccessResponse(w, resp)
}

// GetCurrent 返回当前登录用户（含创建的想法与协作）
func (h *AuthHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), actor.ID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, user)
}

// GoogleLogin 跳转到 Google 授权页
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		utils.WriteErrorResponseWithCode(w, http.StatusNotImplemented, "NOT_IMPLEMENTED",
			"Google OAuth is not configured", nil)
		return
	}

	// state 防 CSRF，verifier 用于 PKCE，两者都只放在短期 HttpOnly cookie 里
	state, verifier := oauth2.GenerateVerifier(), oauth2.GenerateVerifier()
	h.setOAuthCookie(w, oauthStateCookie, state, 10*time.Minute)
	h.setOAuthCookie(w, oauthPKCECookie, verifier, 10*time.Minute)

	http.Redirect(w, r, h.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), http.StatusFound)
}

func (h *AuthHandler) setOAuthCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if value == "" {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     oauthCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

// GoogleCallback 处理 Google 回调：换取令牌、读取资料、登录或注册，然后重定向回前端
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.redirectOAuthError(w, r, "google oauth not configured")
		return
	}

	query := r.URL.Query()
	if e := query.Get("error"); e != "" {
		h.redirectOAuthError(w, r, "provider returned "+e)
		return
	}
	code := query.Get("code")
	if code == "" {
		h.redirectOAuthError(w, r, "missing authorization code")
		return
	}
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		h.redirectOAuthError(w, r, "state mismatch")
		return
	}
	verifierCookie, err := r.Cookie(oauthPKCECookie)
	if err != nil || verifierCookie.Value == "" {
		h.redirectOAuthError(w, r, "missing pkce verifier")
		return
	}
	h.setOAuthCookie(w, oauthStateCookie, "", 0)
	h.setOAuthCookie(w, oauthPKCECookie, "", 0)

	profile, err := h.fetchGoogleProfile(r.Context(), code, verifierCookie.Value)
	if err != nil {
		h.redirectOAuthError(w, r, err.Error())
		return
	}

	user, err := h.auth.FindOrCreateGoogleUser(r.Context(), *profile)
	if err != nil {
		h.redirectOAuthError(w, r, err.Error())
		return
	}
	tokens, err := h.auth.IssueTokens(user)
	if err != nil {
		h.redirectOAuthError(w, r, err.Error())
		return
	}

	h.setSessionCookie(w, tokens.AccessToken, tokens.ExpiresIn)
	authLog.WithField("user_id", user.ID).Info("✅ Google login succeeded")
	http.Redirect(w, r, h.frontendLoginURL(url.Values{"token": {tokens.AccessToken}}), http.StatusFound)
}

// fetchGoogleProfile 用授权码换取令牌并读取 userinfo
func (h *AuthHandler) fetchGoogleProfile(ctx context.Context, code, verifier string) (*services.GoogleProfile, error) {
	token, err := h.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}

	var profile services.GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &profile, nil
}

func (h *AuthHandler) redirectOAuthError(w http.ResponseWriter, r *http.Request, reason string) {
	authLog.WithField("reason", reason).Warn("⚠️ Google login failed")
	http.Redirect(w, r, h.frontendLoginURL(url.Values{"error": {"google_auth_failed"}}), http.StatusFound)
}

func (h *AuthHandler) frontendLoginURL(params url.Values) string {
	return strings.TrimRight(h.config.FrontendURL, "/") + "/login?" + params.Encode()
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, maxAge int64) {
	sameSite := http.SameSiteLaxMode
	if h.secureCookies() {
		// 前后端分域部署时浏览器只在 None+Secure 下携带 cookie
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: sameSite,
	})
}

func (h *AuthHandler) secureCookies() bool {
	return h.config.IsProduction()
}
