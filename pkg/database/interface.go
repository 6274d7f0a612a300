package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"idea-incubator-backend/pkg/logging"
	"idea-incubator-backend/pkg/models"
)

var logger = logging.Component("database")

// 存储层哨兵错误，由服务层转换为领域错误
var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrVersionConflict = errors.New("version conflict")
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	// ListCreatedIdeaIDs returns ids of ideas the user created.
	ListCreatedIdeaIDs(ctx context.Context, userID string) ([]string, error)
	// ListCollaborationIdeaIDs returns ids of ideas the user collaborates on but did not create.
	ListCollaborationIdeaIDs(ctx context.Context, userID string) ([]string, error)

	// 想法
	// CreateIdea persists the idea with its creator as the first collaborator.
	CreateIdea(ctx context.Context, idea *models.Idea) error
	GetIdea(ctx context.Context, id string) (*models.Idea, error)
	ListIdeas(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, error)
	// UpdateIdea writes title, description, tags and status if idea.Version matches
	// the stored version, then increments idea.Version. Mismatch → ErrVersionConflict.
	UpdateIdea(ctx context.Context, idea *models.Idea) error
	DeleteIdea(ctx context.Context, id string) error
	// AddIdeaCollaborator is idempotent; it reports whether the set changed.
	AddIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error)
	RemoveIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error)
	AddIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error)
	RemoveIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error)

	// 协作请求
	// CreateCollaboration fails with ErrDuplicate when the user already holds an
	// active (pending or accepted) request for the idea.
	CreateCollaboration(ctx context.Context, c *models.Collaboration) error
	GetCollaboration(ctx context.Context, id string) (*models.Collaboration, error)
	ListCollaborationsByIdea(ctx context.Context, ideaID string) ([]models.Collaboration, error)
	ListCollaborationsByUser(ctx context.Context, userID string) ([]models.Collaboration, error)
	// SetCollaborationStatus moves the request from `from` to `to` atomically.
	// If the stored status is no longer `from` it returns ErrVersionConflict.
	SetCollaborationStatus(ctx context.Context, id string, from, to models.CollaborationStatus) error
	// AcceptCollaboration marks a pending request accepted and adds the requester to
	// the idea's collaborators in one atomic step.
	AcceptCollaboration(ctx context.Context, id string) error

	// 创业项目
	CreateStartup(ctx context.Context, s *models.Startup) error
	GetStartup(ctx context.Context, id string) (*models.Startup, error)
	ListStartupsByCreator(ctx context.Context, creatorID string) ([]models.Startup, error)
	CountStartupsByCreatorSince(ctx context.Context, creatorID string, since time.Time) (int, error)
	// UpdateStartup replaces name, description, idea link, team, funding and status
	// under the same version rule as UpdateIdea. Tasks are written separately.
	UpdateStartup(ctx context.Context, s *models.Startup) error
	AddStartupTask(ctx context.Context, startupID string, task *models.Task) error
	UpdateStartupTask(ctx context.Context, startupID string, task *models.Task) error
	// ListOverdueTasks returns unfinished tasks due before `before` that have not been reminded.
	ListOverdueTasks(ctx context.Context, before time.Time) ([]models.DueTask, error)
	MarkTaskReminded(ctx context.Context, startupID, taskID string, at time.Time) error

	// 通知
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	// ListNotifications returns the user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error

	// 健康检查
	HealthCheck(ctx context.Context) error

	// 关闭连接
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
	UseLocalDB    bool
	LocalDataDir  string
	Debug         bool
}

// NewDatabase 根据配置选择数据库实现：PostgreSQL > MongoDB > 本地内存
func NewDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	switch {
	case config.PostgresDSN != "":
		logger.Info("🗄️  Using PostgreSQL database")
		db, err := NewPostgresDatabase(ctx, config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.MongoURI != "":
		logger.Info("🍃 Using MongoDB database")
		db, err := NewMongoDatabase(ctx, config.MongoURI, config.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.UseLocalDB:
		logger.Info("🧰 Using local in-memory database")
		db, err := NewLocalDatabase(config.LocalDataDir)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	return nil, fmt.Errorf("no valid database configuration found: set POSTGRES_DSN, MONGO_URI or USE_LOCAL_DB=true")
}
