package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	handler "idea-incubator-backend/api"
	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/logging"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/services"
)

// seedFile 种子数据文件格式
type seedFile struct {
	Users []struct {
		FirstName    string `yaml:"firstName"`
		LastName     string `yaml:"lastName"`
		Email        string `yaml:"email"`
		MobileNumber string `yaml:"mobileNumber"`
		Password     string `yaml:"password"`
		Address      string `yaml:"address"`
	} `yaml:"users"`
	Ideas []struct {
		Owner       string            `yaml:"owner"` // 创建者邮箱
		Title       string            `yaml:"title"`
		Description string            `yaml:"description"`
		Tags        []string          `yaml:"tags"`
		Status      models.IdeaStatus `yaml:"status"`
	} `yaml:"ideas"`
}

func main() {
	var (
		dsn      string
		down     bool
		seedPath string
	)
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (default: POSTGRES_DSN)")
	flag.BoolVar(&down, "down", false, "roll back all migrations instead of applying them")
	flag.StringVar(&seedPath, "seed", "", "YAML file with users and ideas to create")
	flag.Parse()

	log := logging.Component("setup")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to load configuration")
	}
	if dsn != "" {
		cfg.PostgresDSN = dsn
		cfg.UseLocalDB = false
	}
	logging.Configure(logging.Options{Level: cfg.LogLevel})

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, handler.DatabaseConfig(cfg))
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to connect to database")
	}
	defer db.Close()
	log.Info("✅ Database connection successful")

	if pg, ok := db.(*database.PostgresDatabase); ok {
		if down {
			if err := database.MigrateDown(pg.DB()); err != nil {
				log.WithError(err).Fatal("❌ Failed to roll back migrations")
			}
			log.Info("✅ Migrations rolled back")
			return
		}
		log.Info("📄 Applying migrations...")
		if err := database.RunMigrations(pg.DB()); err != nil {
			log.WithError(err).Fatal("❌ Failed to apply migrations")
		}
		log.Info("✅ Migrations applied")
	} else if down {
		log.Fatal("❌ -down only applies to PostgreSQL")
	}

	if seedPath == "" {
		log.Info("🎉 Database setup completed!")
		return
	}

	seed, err := readSeed(seedPath)
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to load seed file")
	}
	users, ideas, err := applySeed(ctx, db, services.New(db, nil, services.OptionsFromConfig(cfg)), seed)
	if err != nil {
		log.WithError(err).Fatal("❌ Seeding failed")
	}
	log.WithField("users", users).WithField("ideas", ideas).Info("🌱 Seed data created")
}

// readSeed 读取并解析 YAML 种子文件
func readSeed(path string) (seedFile, error) {
	var seed seedFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("parse %s: %w", path, err)
	}
	return seed, nil
}

// applySeed 创建种子用户与想法。已存在的用户会被复用，所以脚本可以重复执行
func applySeed(ctx context.Context, db database.DatabaseInterface, svc *services.Services, seed seedFile) (int, int, error) {
	byEmail := map[string]*models.User{}
	created := 0
	for _, u := range seed.Users {
		user, err := svc.Auth.Signup(ctx, models.UserSignupRequest{
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Email:        u.Email,
			MobileNumber: u.MobileNumber,
			Password:     u.Password,
			Address:      u.Address,
		})
		switch {
		case err == nil:
			created++
		case apperrors.KindOf(err) == apperrors.KindConflict:
			if user, err = db.GetUserByEmail(ctx, u.Email); err != nil {
				return created, 0, fmt.Errorf("load existing user %s: %w", u.Email, err)
			}
		default:
			return created, 0, fmt.Errorf("user %s: %w", u.Email, err)
		}
		byEmail[user.Email] = user
	}

	ideas := 0
	for _, i := range seed.Ideas {
		owner, ok := byEmail[strings.ToLower(strings.TrimSpace(i.Owner))]
		if !ok {
			return created, ideas, errors.New("idea " + i.Title + " references unknown owner " + i.Owner)
		}
		if _, err := svc.Ideas.Create(ctx, owner, models.CreateIdeaRequest{
			Title:       i.Title,
			Description: i.Description,
			Tags:        i.Tags,
			Status:      i.Status,
		}); err != nil {
			return created, ideas, fmt.Errorf("idea %s: %w", i.Title, err)
		}
		ideas++
	}
	return created, ideas, nil
}
