// Package services holds the transport-independent operations of the idea
// incubator. Every operation takes the acting user explicitly and returns
// apperrors kinds that the HTTP layer maps to status codes.
package services

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/logging"
	"idea-incubator-backend/pkg/realtime"
	"idea-incubator-backend/pkg/utils"
)

// DefaultStartupWindow 每个用户在该时间窗口内只能创建一个创业项目
const DefaultStartupWindow = 7 * 24 * time.Hour

// Options 服务层配置
type Options struct {
	JWT           *utils.JWTService
	StartupWindow time.Duration
	BcryptCost    int
	Now           func() time.Time
}

// OptionsFromConfig 从应用配置构建服务层选项
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		JWT:           utils.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		StartupWindow: cfg.StartupCreationWindow,
	}
}

// Services bundles every service over one store and one notifier.
type Services struct {
	Auth           *AuthService
	Ideas          *IdeaService
	Collaborations *CollaborationService
	Startups       *StartupService
	Notifications  *NotificationService
}

type base struct {
	db       database.DatabaseInterface
	notifier realtime.Notifier
	now      func() time.Time
	log      *logrus.Entry
}

// New 创建所有服务
func New(db database.DatabaseInterface, notifier realtime.Notifier, opts Options) *Services {
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.StartupWindow <= 0 {
		opts.StartupWindow = DefaultStartupWindow
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.JWT == nil {
		opts.JWT = utils.NewJWTService("", 0, 0)
	}

	mk := func(component string) base {
		return base{db: db, notifier: notifier, now: opts.Now, log: logging.Component(component)}
	}

	notifications := &NotificationService{base: mk("notifications")}
	ideas := &IdeaService{base: mk("ideas"), notifications: notifications}
	return &Services{
		Auth:           &AuthService{base: mk("auth"), jwt: opts.JWT, bcryptCost: opts.BcryptCost},
		Ideas:          ideas,
		Collaborations: &CollaborationService{base: mk("collaborations"), notifications: notifications},
		Startups: &StartupService{
			base:          mk("startups"),
			notifications: notifications,
			ideas:         ideas,
			window:        opts.StartupWindow,
		},
		Notifications: notifications,
	}
}

// storeError 把存储层哨兵错误转换为领域错误
func storeError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return apperrors.NotFound(entity)
	case errors.Is(err, database.ErrDuplicate):
		return apperrors.Wrap(apperrors.KindConflict, entity+" already exists", err)
	case errors.Is(err, database.ErrVersionConflict):
		return apperrors.Wrap(apperrors.KindConflict, entity+" was modified concurrently, reload and retry", err)
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Internal(err)
}
