package database

import (
	"context"
	"sync"
	"time"
)

// DatabasePool 数据库连接池，在无服务器环境的多次调用之间复用连接
type DatabasePool struct {
	instance DatabaseInterface
	config   DatabaseConfig
	mu       sync.RWMutex
	lastUsed time.Time
}

var (
	globalPool *DatabasePool
	poolMutex  sync.Mutex

	// newDatabase is swapped in tests.
	newDatabase = NewDatabase
)

const connectionMaxAge = 30 * time.Minute

// GetDatabase 获取数据库连接（单例模式 + 连接池）
func GetDatabase(ctx context.Context, config DatabaseConfig) (DatabaseInterface, error) {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool != nil && !shouldRecreateConnection(ctx, globalPool, config) {
		globalPool.mu.Lock()
		globalPool.lastUsed = time.Now()
		globalPool.mu.Unlock()
		logger.Debug("♻️  Reusing existing database connection")
		return globalPool.instance, nil
	}

	logger.Info("🔄 Creating new database connection pool")
	if globalPool != nil && globalPool.instance != nil {
		_ = globalPool.instance.Close()
		globalPool = nil
	}

	instance, err := newDatabase(ctx, config)
	if err != nil {
		return nil, err
	}
	globalPool = &DatabasePool{
		instance: instance,
		config:   config,
		lastUsed: time.Now(),
	}
	return instance, nil
}

// shouldRecreateConnection 判断是否需要重新创建连接
func shouldRecreateConnection(ctx context.Context, pool *DatabasePool, newConfig DatabaseConfig) bool {
	if pool == nil || pool.instance == nil {
		return true
	}

	if !configEquals(pool.config, newConfig) {
		logger.Info("🔄 Database configuration changed, recreating connection")
		return true
	}

	pool.mu.RLock()
	expired := time.Since(pool.lastUsed) > connectionMaxAge
	pool.mu.RUnlock()
	if expired {
		logger.Info("⏰ Database connection expired, recreating")
		return true
	}

	if err := pool.instance.HealthCheck(ctx); err != nil {
		logger.WithError(err).Warn("❌ Database health check failed, recreating")
		return true
	}
	return false
}

// configEquals 比较两个数据库配置是否相等
func configEquals(a, b DatabaseConfig) bool {
	return a.UseLocalDB == b.UseLocalDB &&
		a.LocalDataDir == b.LocalDataDir &&
		a.PostgresDSN == b.PostgresDSN &&
		a.MongoURI == b.MongoURI &&
		a.MongoDatabase == b.MongoDatabase
}

// GetConnectionStats 获取连接池统计信息
func GetConnectionStats() map[string]interface{} {
	poolMutex.Lock()
	defer poolMutex.Unlock()

	if globalPool == nil {
		return map[string]interface{}{
			"status":    "no_connection",
			"last_used": nil,
		}
	}

	globalPool.mu.RLock()
	lastUsed := globalPool.lastUsed
	globalPool.mu.RUnlock()

	return map[string]interface{}{
		"status":    "connected",
		"last_used": lastUsed.Format(time.RFC3339),
		"age":       time.Since(lastUsed).String(),
		"config": map[string]interface{}{
			"use_local_db": globalPool.config.UseLocalDB,
			"has_postgres": globalPool.config.PostgresDSN != "",
			"has_mongo":    globalPool.config.MongoURI != "",
		},
	}
}

// resetPool drops the cached instance without closing it. Tests only.
func resetPool() {
	poolMutex.Lock()
	defer poolMutex.Unlock()
	globalPool = nil
}
