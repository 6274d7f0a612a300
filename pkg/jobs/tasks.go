package jobs

import (
	"context"

	"idea-incubator-backend/pkg/logging"
)

var jobLog = logging.Component("jobs")

// Job names, also used as the metrics label.
const (
	JobTaskReminders  = "task_reminders"
	JobLimiterCleanup = "rate_limiter_cleanup"
)

// ReminderSender 发送到期任务提醒
type ReminderSender interface {
	SendDueReminders(ctx context.Context) (int, error)
}

// Cleaner 清理过期的内存状态
type Cleaner interface {
	Cleanup() int
}

// Reminders 通知逾期未完成任务的负责人，每个任务只提醒一次
func Reminders(sender ReminderSender) Func {
	return func(ctx context.Context) error {
		n, err := sender.SendDueReminders(ctx)
		if n > 0 {
			jobLog.WithField("sent", n).Info("🔔 Task reminders sent")
		}
		return err
	}
}

// Cleanup 清理长时间空闲的限流器
func Cleanup(c Cleaner) Func {
	return func(ctx context.Context) error {
		if removed := c.Cleanup(); removed > 0 {
			jobLog.WithField("removed", removed).Debug("🧹 Idle rate limiters removed")
		}
		return nil
	}
}
