package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/metrics"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/policy"
	"idea-incubator-backend/pkg/realtime"
)

// StartupService 创业项目：团队、任务、融资与状态
type StartupService struct {
	base
	notifications *NotificationService
	ideas         *IdeaService
	window        time.Duration
}

// Create 创建创业项目。创建者成为持股 100% 的创始人。
func (s *StartupService) Create(ctx context.Context, actor *models.User, req models.CreateStartupRequest) (*models.Startup, error) {
	if actor == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	f := fieldErrors{}
	name := checkLength(f, "name", "Name", req.Name, true, maxStartupNameLen)
	desc := checkLength(f, "description", "Description", req.Description, true, maxStartupDescLen)
	if desc != "" && runeLen(desc) < minStartupDescLen {
		f.add("description", "Description must be at least 100 characters")
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	if req.IdeaID != "" {
		idea, err := s.db.GetIdea(ctx, req.IdeaID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, storeError(err, "Idea")
		}
		if err != nil || idea.CreatorID != actor.ID {
			return nil, apperrors.Validation("Invalid or unauthorized idea")
		}
	}
	if req.CollaborationID != "" {
		c, err := s.db.GetCollaboration(ctx, req.CollaborationID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, storeError(err, "Collaboration")
		}
		if err != nil || c.UserID != actor.ID {
			return nil, apperrors.Validation("Invalid or unauthorized collaboration")
		}
	}

	now := s.now()
	recent, err := s.db.CountStartupsByCreatorSince(ctx, actor.ID, now.Add(-s.window))
	if err != nil {
		return nil, storeError(err, "Startup")
	}
	if recent >= 1 {
		return nil, apperrors.RateLimited("You can only create one startup per week").
			WithDetails(map[string]string{"window": s.window.String()})
	}

	startup := &models.Startup{
		Name:            name,
		Description:     desc,
		IdeaID:          req.IdeaID,
		CollaborationID: req.CollaborationID,
		CreatorID:       actor.ID,
		Team:            []models.TeamMember{{UserID: actor.ID, Role: models.TeamRoleFounder, Equity: 100}},
		Tasks:           []models.Task{},
		Status:          models.StartupPlanning,
		CreatedAt:       now,
	}
	if err := s.db.CreateStartup(ctx, startup); err != nil {
		return nil, storeError(err, "Startup")
	}

	metrics.RecordDomainEvent("startup_created")
	s.notifier.Broadcast(realtime.EventNewStartup, map[string]string{
		"startupId": startup.ID,
		"name":      startup.Name,
		"creator":   actor.ID,
	})
	return startup, nil
}

// Get 获取创业项目
func (s *StartupService) Get(ctx context.Context, id string) (*models.Startup, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("startupId is required")
	}
	startup, err := s.db.GetStartup(ctx, id)
	if err != nil {
		return nil, storeError(err, "Startup")
	}
	return startup, nil
}

// ListMine 列出当前用户创建的项目
func (s *StartupService) ListMine(ctx context.Context, actor *models.User) ([]models.Startup, error) {
	if actor == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	list, err := s.db.ListStartupsByCreator(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, "Startup")
	}
	return list, nil
}

// managed loads a startup the actor must own.
func (s *StartupService) managed(ctx context.Context, actor *models.User, id string) (*models.Startup, error) {
	startup, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionStartupManage, policy.Subject{Startup: startup}); err != nil {
		return nil, err
	}
	return startup, nil
}

// Invite adds a team member. The invitee's equity is taken from the founder's
// share so the team total never exceeds 100.
func (s *StartupService) Invite(ctx context.Context, actor *models.User, req models.InviteRequest) ([]models.TeamMember, error) {
	startup, err := s.managed(ctx, actor, req.StartupID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.UserID) == "" {
		return nil, apperrors.Validation("userId is required")
	}
	if _, err := s.db.GetUserByID(ctx, req.UserID); err != nil {
		return nil, storeError(err, "User")
	}
	if _, exists := startup.Member(req.UserID); exists {
		return nil, apperrors.Validation("User is already a team member")
	}

	role := req.Role
	if role == "" {
		role = models.TeamRoleCollaborator
	}
	if !role.Valid() || role == models.TeamRoleFounder {
		return nil, apperrors.Validation("invalid team role %q", role)
	}
	if req.Equity < 0 || req.Equity > 100 {
		return nil, apperrors.Validation("Equity must be between 0 and 100")
	}

	founder, ok := startup.Member(startup.CreatorID)
	if !ok || founder.Equity < req.Equity || startup.TotalEquity()+req.Equity-founder.Equity > 100 {
		return nil, apperrors.Validation("Total equity cannot exceed 100%%")
	}
	founder.Equity -= req.Equity
	startup.Team = append(startup.Team, models.TeamMember{UserID: req.UserID, Role: role, Equity: req.Equity})

	if err := s.db.UpdateStartup(ctx, startup); err != nil {
		return nil, storeError(err, "Startup")
	}

	s.notifier.Broadcast(realtime.EventCollaboratorInvited, map[string]string{
		"startupId": startup.ID,
		"userId":    req.UserID,
		"name":      startup.Name,
	})
	s.notifications.notifyQuietly(ctx, req.UserID, models.NotifyStartupInvite,
		fmt.Sprintf("You were added to %s as %s", startup.Name, role), startup.ID)
	return startup.Team, nil
}

// CreateIdea creates an idea owned by the actor and links it to the startup.
func (s *StartupService) CreateIdea(ctx context.Context, actor *models.User, req models.StartupIdeaRequest) (*models.Idea, error) {
	startup, err := s.managed(ctx, actor, req.StartupID)
	if err != nil {
		return nil, err
	}
	if startup.IdeaID != "" {
		return nil, apperrors.Validation("Startup already linked to an idea")
	}

	idea, err := s.ideas.build(actor, models.CreateIdeaRequest{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.CreateIdea(ctx, idea); err != nil {
		return nil, storeError(err, "Idea")
	}

	startup.IdeaID = idea.ID
	if err := s.db.UpdateStartup(ctx, startup); err != nil {
		// 回滚刚创建的想法，避免悬空
		if delErr := s.db.DeleteIdea(ctx, idea.ID); delErr != nil {
			s.log.WithError(delErr).WithField("idea_id", idea.ID).Error("❌ Failed to remove orphaned idea")
		}
		return nil, storeError(err, "Startup")
	}

	metrics.RecordDomainEvent("idea_created")
	s.notifier.Broadcast(realtime.EventNewIdea, map[string]string{
		"ideaId":    idea.ID,
		"startupId": startup.ID,
		"title":     idea.Title,
	})
	return idea, nil
}

// AddTask 添加任务，指派人必须是团队成员
func (s *StartupService) AddTask(ctx context.Context, actor *models.User, req models.AddTaskRequest) (*models.Task, error) {
	startup, err := s.managed(ctx, actor, req.StartupID)
	if err != nil {
		return nil, err
	}
	f := fieldErrors{}
	title := checkLength(f, "title", "Title", req.Title, true, maxTitleLen)
	if err := f.err(); err != nil {
		return nil, err
	}
	if req.AssigneeID != "" {
		if _, ok := startup.Member(req.AssigneeID); !ok {
			return nil, apperrors.Validation("Assignee must be a team member")
		}
	}

	task := &models.Task{
		Title:      title,
		AssigneeID: req.AssigneeID,
		DueDate:    req.DueDate,
		Status:     models.TaskPending,
		CreatedAt:  s.now(),
	}
	if err := s.db.AddStartupTask(ctx, startup.ID, task); err != nil {
		return nil, storeError(err, "Startup")
	}

	s.notifier.Broadcast(realtime.EventNewTask, map[string]interface{}{"startupId": startup.ID, "task": task})
	if task.AssigneeID != "" && task.AssigneeID != actor.ID {
		s.notifications.notifyQuietly(ctx, task.AssigneeID, models.NotifyTaskAssigned,
			fmt.Sprintf("You were assigned %q in %s", task.Title, startup.Name), startup.ID)
	}
	return task, nil
}

// UpdateTask moves a task along pending → in-progress → completed. The
// startup creator and the assignee may do this.
func (s *StartupService) UpdateTask(ctx context.Context, actor *models.User, taskID string, req models.UpdateTaskRequest) (*models.Task, error) {
	startup, err := s.Get(ctx, req.StartupID)
	if err != nil {
		return nil, err
	}
	task, ok := startup.Task(taskID)
	if !ok {
		return nil, apperrors.NotFound("Task")
	}
	if err := policy.Authorize(actor, policy.ActionTaskUpdate, policy.Subject{Startup: startup, Task: task}); err != nil {
		return nil, err
	}
	if err := policy.ValidateTaskTransition(task.Status, req.Status); err != nil {
		return nil, err
	}

	task.Status = req.Status
	if err := s.db.UpdateStartupTask(ctx, startup.ID, task); err != nil {
		return nil, storeError(err, "Task")
	}
	s.notifier.Broadcast(realtime.EventTaskUpdated, map[string]interface{}{"startupId": startup.ID, "task": task})
	return task, nil
}

// UpdateFunding sets goal and/or raised; nil keeps the current value.
func (s *StartupService) UpdateFunding(ctx context.Context, actor *models.User, req models.FundingRequest) (*models.Funding, error) {
	startup, err := s.managed(ctx, actor, req.StartupID)
	if err != nil {
		return nil, err
	}
	f := fieldErrors{}
	if req.Goal != nil {
		if *req.Goal < 0 {
			f.add("goal", "Funding goal cannot be negative")
		}
		startup.Funding.Goal = *req.Goal
	}
	if req.Raised != nil {
		if *req.Raised < 0 {
			f.add("raised", "Raised amount cannot be negative")
		}
		startup.Funding.Raised = *req.Raised
	}
	if err := f.err(); err != nil {
		return nil, err
	}

	if err := s.db.UpdateStartup(ctx, startup); err != nil {
		return nil, storeError(err, "Startup")
	}
	s.notifier.Broadcast(realtime.EventFundingUpdated, map[string]interface{}{"startupId": startup.ID, "funding": startup.Funding})
	return &startup.Funding, nil
}

// UpdateStatus 修改项目状态
func (s *StartupService) UpdateStatus(ctx context.Context, actor *models.User, id string, to models.StartupStatus) (*models.Startup, error) {
	startup, err := s.managed(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := policy.ValidateStartupTransition(startup.Status, to); err != nil {
		return nil, err
	}
	startup.Status = to
	if err := s.db.UpdateStartup(ctx, startup); err != nil {
		return nil, storeError(err, "Startup")
	}
	s.notifier.Broadcast(realtime.EventStartupStatusUpdate, map[string]interface{}{"startupId": startup.ID, "status": to})
	return startup, nil
}

// Analytics 汇总项目数据。关联想法时以想法的点赞与协作请求为准。
func (s *StartupService) Analytics(ctx context.Context, id string) (*models.StartupAnalytics, error) {
	startup, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	a := &models.StartupAnalytics{
		ActiveCollaborators: len(startup.Team),
		TotalTasks:          len(startup.Tasks),
	}
	for _, t := range startup.Tasks {
		if t.Status == models.TaskCompleted {
			a.TasksCompleted++
		}
	}
	if startup.Funding.Goal > 0 {
		a.FundingProgress = startup.Funding.Raised / startup.Funding.Goal * 100
	}

	if startup.IdeaID == "" {
		return a, nil
	}
	idea, err := s.db.GetIdea(ctx, startup.IdeaID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return a, nil
	case err != nil:
		return nil, storeError(err, "Idea")
	}
	collabs, err := s.db.ListCollaborationsByIdea(ctx, idea.ID)
	if err != nil {
		return nil, storeError(err, "Collaboration")
	}
	a.Upvotes = len(idea.Upvotes)
	a.Contributions = len(collabs)
	a.ActiveCollaborators = 0
	for _, c := range collabs {
		if c.Status == models.CollaborationAccepted {
			a.ActiveCollaborators++
		}
	}
	return a, nil
}

// SendDueReminders notifies assignees of overdue unfinished tasks exactly once.
// It returns the number of reminders sent.
func (s *StartupService) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.db.ListOverdueTasks(ctx, now)
	if err != nil {
		return 0, storeError(err, "Task")
	}
	sent := 0
	for _, d := range due {
		target := d.Task.AssigneeID
		if target == "" {
			startup, err := s.db.GetStartup(ctx, d.StartupID)
			if err != nil {
				s.log.WithError(err).WithField("startup_id", d.StartupID).Warn("⚠️  Skipping reminder, startup unavailable")
				continue
			}
			target = startup.CreatorID
		}
		if _, err := s.notifications.Notify(ctx, target, models.NotifyTaskDue,
			fmt.Sprintf("Task %q in %s is overdue", d.Task.Title, d.StartupName), d.StartupID); err != nil {
			return sent, err
		}
		if err := s.db.MarkTaskReminded(ctx, d.StartupID, d.Task.ID, now); err != nil {
			return sent, storeError(err, "Task")
		}
		sent++
	}
	return sent, nil
}
