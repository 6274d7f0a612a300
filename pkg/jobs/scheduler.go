// Package jobs runs periodic background work for the long-running server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"idea-incubator-backend/pkg/metrics"
)

// Func 一次任务执行
type Func func(ctx context.Context) error

// Scheduler 基于 cron 的任务调度器。同一任务上一轮未结束时跳过本轮
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	log     *logrus.Entry
}

// NewScheduler 创建调度器，timeout 限制单次执行时长（<=0 时不限制）
func NewScheduler(timeout time.Duration) *Scheduler {
	adapter := cronLogger{jobLog}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
		log:     jobLog,
	}
}

// Add 注册任务，spec 支持标准 cron 表达式和 @every/@hourly 等描述符
func (s *Scheduler) Add(name, spec string, fn Func) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.WithField("job", name).WithField("spec", spec).Info("⏰ Job scheduled")
	return nil
}

// Len 已注册的任务数量
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start 在后台开始调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束，ctx 到期后放弃等待
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(name string, fn Func) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	metrics.RecordJobRun(name, err == nil)

	entry := s.log.WithField("job", name).WithField("duration", time.Since(start).String())
	if err != nil {
		entry.WithError(err).Error("❌ Job failed")
		return
	}
	entry.Debug("✅ Job finished")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
