package models

import "time"

// StartupStatus 创业项目状态
type StartupStatus string

const (
	StartupPlanning StartupStatus = "planning"
	StartupActive   StartupStatus = "active"
	StartupLaunched StartupStatus = "launched"
	StartupClosed   StartupStatus = "closed"
)

// TeamRole 团队角色
type TeamRole string

const (
	TeamRoleFounder      TeamRole = "founder"      // 创始人
	TeamRoleCollaborator TeamRole = "collaborator" // 协作者
	TeamRoleAdvisor      TeamRole = "advisor"      // 顾问
)

// Valid reports whether r is a known team role.
func (r TeamRole) Valid() bool {
	switch r {
	case TeamRoleFounder, TeamRoleCollaborator, TeamRoleAdvisor:
		return true
	}
	return false
}

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

// TeamMember is one (user, role, equity) entry of a startup team
type TeamMember struct {
	UserID string   `json:"user_id" db:"user_id" bson:"user_id"`
	Role   TeamRole `json:"role" db:"role" bson:"role"`
	Equity float64  `json:"equity" db:"equity" bson:"equity"`
}

// Task is a unit of startup work
type Task struct {
	ID         string     `json:"id" db:"id" bson:"_id"`
	StartupID  string     `json:"startup_id" db:"startup_id" bson:"-"`
	Title      string     `json:"title" db:"title" bson:"title"`
	AssigneeID string     `json:"assignee_id,omitempty" db:"assignee_id" bson:"assignee_id,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty" db:"due_date" bson:"due_date,omitempty"`
	Status     TaskStatus `json:"status" db:"status" bson:"status"`
	RemindedAt *time.Time `json:"-" db:"reminded_at" bson:"reminded_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at" bson:"created_at"`
}

// Funding tracks the money side of a startup
type Funding struct {
	Goal   float64 `json:"goal" bson:"goal"`
	Raised float64 `json:"raised" bson:"raised"`
}

// Startup is formed from an idea or collaboration and tracks team, tasks and funding
type Startup struct {
	ID              string        `json:"id" db:"id" bson:"_id"`
	Name            string        `json:"name" db:"name" bson:"name"`
	Description     string        `json:"description" db:"description" bson:"description"`
	IdeaID          string        `json:"idea_id,omitempty" db:"idea_id" bson:"idea_id,omitempty"`
	CollaborationID string        `json:"collaboration_id,omitempty" db:"collaboration_id" bson:"collaboration_id,omitempty"`
	CreatorID       string        `json:"creator_id" db:"creator_id" bson:"creator_id"`
	Team            []TeamMember  `json:"team" db:"-" bson:"team"`
	Tasks           []Task        `json:"tasks" db:"-" bson:"tasks"`
	Funding         Funding       `json:"funding" db:"-" bson:"funding"`
	Status          StartupStatus `json:"status" db:"status" bson:"status"`
	Version         int           `json:"version" db:"version" bson:"version"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Member returns the team entry for userID, if any.
func (s *Startup) Member(userID string) (*TeamMember, bool) {
	for i := range s.Team {
		if s.Team[i].UserID == userID {
			return &s.Team[i], true
		}
	}
	return nil, false
}

// TotalEquity sums equity across the team.
func (s *Startup) TotalEquity() float64 {
	var total float64
	for _, m := range s.Team {
		total += m.Equity
	}
	return total
}

// Task returns the task with the given id, if any.
func (s *Startup) Task(taskID string) (*Task, bool) {
	for i := range s.Tasks {
		if s.Tasks[i].ID == taskID {
			return &s.Tasks[i], true
		}
	}
	return nil, false
}

// StartupAnalytics GET /api/startup/analytics
type StartupAnalytics struct {
	Upvotes             int     `json:"upvotes"`
	ActiveCollaborators int     `json:"activeCollaborators"`
	Contributions       int     `json:"contributions"`
	TasksCompleted      int     `json:"tasksCompleted"`
	TotalTasks          int     `json:"totalTasks"`
	FundingProgress     float64 `json:"fundingProgress"`
}

// DueTask is an overdue task together with the startup it belongs to.
type DueTask struct {
	Task        Task
	StartupID   string
	StartupName string
}

// CreateStartupRequest POST /api/startup/create
type CreateStartupRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	IdeaID          string `json:"ideaId,omitempty"`
	CollaborationID string `json:"collaborationId,omitempty"`
}

// InviteRequest POST /api/startup/invite
type InviteRequest struct {
	StartupID string   `json:"startupId"`
	UserID    string   `json:"userId"`
	Role      TeamRole `json:"role,omitempty"`
	Equity    float64  `json:"equity"`
}

// StartupIdeaRequest POST /api/startup/create-idea
type StartupIdeaRequest struct {
	StartupID   string     `json:"startupId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Status      IdeaStatus `json:"status,omitempty"`
}

// AddTaskRequest POST /api/startup/add-task
type AddTaskRequest struct {
	StartupID  string     `json:"startupId"`
	Title      string     `json:"title"`
	AssigneeID string     `json:"assignee,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
}

// UpdateTaskRequest PATCH /api/startup/task/{taskId}
type UpdateTaskRequest struct {
	StartupID string     `json:"startupId"`
	Status    TaskStatus `json:"status"`
}

// FundingRequest POST /api/startup/update-funding; nil keeps the current value
type FundingRequest struct {
	StartupID string   `json:"startupId"`
	Goal      *float64 `json:"goal,omitempty"`
	Raised    *float64 `json:"raised,omitempty"`
}
