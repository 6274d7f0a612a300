package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"idea-incubator-backend/pkg/models"
)

// LocalDatabase 本地内存数据库实现，可选地把快照写入 dataDir
type LocalDatabase struct {
	mu      sync.RWMutex
	dataDir string
	state   localState
}

type localState struct {
	Users          map[string]*models.User          `json:"users"`
	Ideas          map[string]*models.Idea          `json:"ideas"`
	Collaborations map[string]*models.Collaboration `json:"collaborations"`
	Startups       map[string]*models.Startup       `json:"startups"`
	Notifications  map[string]*models.Notification  `json:"notifications"`
}

const localStateFile = "state.json"

// NewLocalDatabase 创建本地数据库实例。dataDir 为空时仅保存在内存中。
func NewLocalDatabase(dataDir string) (*LocalDatabase, error) {
	db := &LocalDatabase{
		dataDir: dataDir,
		state: localState{
			Users:          map[string]*models.User{},
			Ideas:          map[string]*models.Idea{},
			Collaborations: map[string]*models.Collaboration{},
			Startups:       map[string]*models.Startup{},
			Notifications:  map[string]*models.Notification{},
		},
	}
	if dataDir == "" {
		return db, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.WithError(err).Warn("⚠️  Failed to create data directory, keeping data in memory only")
		db.dataDir = ""
		return db, nil
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, localStateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return db, nil
		}
		return nil, fmt.Errorf("failed to read local state: %w", err)
	}
	if err := json.Unmarshal(raw, &db.state); err != nil {
		return nil, fmt.Errorf("failed to decode local state: %w", err)
	}
	return db, nil
}

// persist 写入快照，调用方需持有写锁
func (db *LocalDatabase) persist() error {
	if db.dataDir == "" {
		return nil
	}
	raw, err := json.MarshalIndent(db.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode local state: %w", err)
	}
	tmp := filepath.Join(db.dataDir, localStateFile+".tmp")
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("failed to write local state: %w", err)
	}
	return os.Rename(tmp, filepath.Join(db.dataDir, localStateFile))
}

func newID() string {
	return uuid.New().String()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.CreatedIdeas = nil
	c.Collaborations = nil
	return &c
}

func cloneIdea(i *models.Idea) *models.Idea {
	c := *i
	c.Tags = cloneStrings(i.Tags)
	c.Collaborators = cloneStrings(i.Collaborators)
	c.Upvotes = cloneStrings(i.Upvotes)
	return &c
}

func cloneStartup(s *models.Startup) *models.Startup {
	c := *s
	c.Team = append([]models.TeamMember{}, s.Team...)
	c.Tasks = append([]models.Task{}, s.Tasks...)
	return &c
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// CreateUser 创建用户
func (db *LocalDatabase) CreateUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.state.Users {
		if u.Email == user.Email ||
			(user.MobileNumber != "" && u.MobileNumber == user.MobileNumber) ||
			(user.GoogleID != "" && u.GoogleID == user.GoogleID) {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = newID()
	}
	stamp(&user.CreatedAt)
	user.UpdatedAt = user.CreatedAt
	db.state.Users[user.ID] = cloneUser(user)
	return db.persist()
}

// GetUserByID 根据ID获取用户
func (db *LocalDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.state.Users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *LocalDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.findUser(func(u *models.User) bool { return u.Email == email })
}

func (db *LocalDatabase) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return db.findUser(func(u *models.User) bool { return u.GoogleID == googleID })
}

func (db *LocalDatabase) findUser(match func(*models.User) bool) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, u := range db.state.Users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrNotFound
}

// UpdateUser 更新用户
func (db *LocalDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.state.Users[user.ID]; !ok {
		return ErrNotFound
	}
	for id, u := range db.state.Users {
		if id == user.ID {
			continue
		}
		if u.Email == user.Email || (user.GoogleID != "" && u.GoogleID == user.GoogleID) {
			return ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now().UTC()
	db.state.Users[user.ID] = cloneUser(user)
	return db.persist()
}

func (db *LocalDatabase) ListCreatedIdeaIDs(ctx context.Context, userID string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ids := []string{}
	for _, idea := range db.sortedIdeas() {
		if idea.CreatorID == userID {
			ids = append(ids, idea.ID)
		}
	}
	return ids, nil
}

func (db *LocalDatabase) ListCollaborationIdeaIDs(ctx context.Context, userID string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ids := []string{}
	for _, idea := range db.sortedIdeas() {
		if idea.CreatorID != userID && idea.HasCollaborator(userID) {
			ids = append(ids, idea.ID)
		}
	}
	return ids, nil
}

// sortedIdeas 按创建时间倒序，调用方需持有锁
func (db *LocalDatabase) sortedIdeas() []*models.Idea {
	ideas := make([]*models.Idea, 0, len(db.state.Ideas))
	for _, idea := range db.state.Ideas {
		ideas = append(ideas, idea)
	}
	sort.Slice(ideas, func(i, j int) bool {
		if ideas[i].CreatedAt.Equal(ideas[j].CreatedAt) {
			return ideas[i].ID > ideas[j].ID
		}
		return ideas[i].CreatedAt.After(ideas[j].CreatedAt)
	})
	return ideas
}

// CreateIdea 创建想法
func (db *LocalDatabase) CreateIdea(ctx context.Context, idea *models.Idea) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if idea.ID == "" {
		idea.ID = newID()
	}
	if _, exists := db.state.Ideas[idea.ID]; exists {
		return ErrDuplicate
	}
	if !idea.HasCollaborator(idea.CreatorID) {
		idea.Collaborators = append([]string{idea.CreatorID}, idea.Collaborators...)
	}
	if idea.Upvotes == nil {
		idea.Upvotes = []string{}
	}
	stamp(&idea.CreatedAt)
	idea.UpdatedAt = idea.CreatedAt
	idea.Version = 1
	db.state.Ideas[idea.ID] = cloneIdea(idea)
	return db.persist()
}

func (db *LocalDatabase) GetIdea(ctx context.Context, id string) (*models.Idea, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	idea, ok := db.state.Ideas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneIdea(idea), nil
}

func (db *LocalDatabase) ListIdeas(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Idea{}
	for _, idea := range db.sortedIdeas() {
		if filter.Status != "" && idea.Status != filter.Status {
			continue
		}
		if filter.CreatorID != "" && idea.CreatorID != filter.CreatorID {
			continue
		}
		if filter.Tag != "" && !hasTag(idea.Tags, filter.Tag) {
			continue
		}
		out = append(out, *cloneIdea(idea))
	}
	return out, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UpdateIdea 乐观锁更新
func (db *LocalDatabase) UpdateIdea(ctx context.Context, idea *models.Idea) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	stored, ok := db.state.Ideas[idea.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != idea.Version {
		return ErrVersionConflict
	}
	stored.Title = idea.Title
	stored.Description = idea.Description
	stored.Tags = cloneStrings(idea.Tags)
	stored.Status = idea.Status
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	idea.Version = stored.Version
	idea.UpdatedAt = stored.UpdatedAt
	return db.persist()
}

func (db *LocalDatabase) DeleteIdea(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.state.Ideas[id]; !ok {
		return ErrNotFound
	}
	delete(db.state.Ideas, id)
	for cid, c := range db.state.Collaborations {
		if c.IdeaID == id {
			delete(db.state.Collaborations, cid)
		}
	}
	for _, s := range db.state.Startups {
		if s.IdeaID == id {
			s.IdeaID = ""
		}
	}
	return db.persist()
}

// mutateIdeaSet 对想法上的某个集合做幂等的添加或移除
func (db *LocalDatabase) mutateIdeaSet(ideaID string, pick func(*models.Idea) *[]string, userID string, add bool) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	idea, ok := db.state.Ideas[ideaID]
	if !ok {
		return false, ErrNotFound
	}
	set := pick(idea)
	changed := false
	if add {
		*set, changed = addUnique(*set, userID)
	} else {
		*set, changed = removeValue(*set, userID)
	}
	if !changed {
		return false, nil
	}
	idea.UpdatedAt = time.Now().UTC()
	return true, db.persist()
}

func addUnique(set []string, v string) ([]string, bool) {
	for _, s := range set {
		if s == v {
			return set, false
		}
	}
	return append(set, v), true
}

func removeValue(set []string, v string) ([]string, bool) {
	for i, s := range set {
		if s == v {
			return append(set[:i:i], set[i+1:]...), true
		}
	}
	return set, false
}

func collaboratorsOf(i *models.Idea) *[]string { return &i.Collaborators }
func upvotesOf(i *models.Idea) *[]string       { return &i.Upvotes }

func (db *LocalDatabase) AddIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error) {
	return db.mutateIdeaSet(ideaID, collaboratorsOf, userID, true)
}

func (db *LocalDatabase) RemoveIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error) {
	return db.mutateIdeaSet(ideaID, collaboratorsOf, userID, false)
}

func (db *LocalDatabase) AddIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error) {
	return db.mutateIdeaSet(ideaID, upvotesOf, userID, true)
}

func (db *LocalDatabase) RemoveIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error) {
	return db.mutateIdeaSet(ideaID, upvotesOf, userID, false)
}

// CreateCollaboration 创建协作请求，同一 (idea, user) 只允许一个活跃请求
func (db *LocalDatabase) CreateCollaboration(ctx context.Context, c *models.Collaboration) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.state.Ideas[c.IdeaID]; !ok {
		return ErrNotFound
	}
	for _, existing := range db.state.Collaborations {
		if existing.IdeaID == c.IdeaID && existing.UserID == c.UserID && existing.Status.Active() {
			return ErrDuplicate
		}
	}
	if c.ID == "" {
		c.ID = newID()
	}
	stamp(&c.CreatedAt)
	c.UpdatedAt = c.CreatedAt
	stored := *c
	db.state.Collaborations[c.ID] = &stored
	return db.persist()
}

func (db *LocalDatabase) GetCollaboration(ctx context.Context, id string) (*models.Collaboration, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.state.Collaborations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (db *LocalDatabase) listCollaborations(match func(*models.Collaboration) bool) []models.Collaboration {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Collaboration{}
	for _, c := range db.state.Collaborations {
		if match(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (db *LocalDatabase) ListCollaborationsByIdea(ctx context.Context, ideaID string) ([]models.Collaboration, error) {
	return db.listCollaborations(func(c *models.Collaboration) bool { return c.IdeaID == ideaID }), nil
}

func (db *LocalDatabase) ListCollaborationsByUser(ctx context.Context, userID string) ([]models.Collaboration, error) {
	return db.listCollaborations(func(c *models.Collaboration) bool { return c.UserID == userID }), nil
}

// SetCollaborationStatus 比较并交换状态
func (db *LocalDatabase) SetCollaborationStatus(ctx context.Context, id string, from, to models.CollaborationStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.state.Collaborations[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != from {
		return ErrVersionConflict
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	return db.persist()
}

func (db *LocalDatabase) AcceptCollaboration(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	c, ok := db.state.Collaborations[id]
	if !ok {
		return ErrNotFound
	}
	if c.Status != models.CollaborationPending {
		return ErrVersionConflict
	}
	idea, ok := db.state.Ideas[c.IdeaID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	c.Status = models.CollaborationAccepted
	c.UpdatedAt = now
	if list, changed := addUnique(idea.Collaborators, c.UserID); changed {
		idea.Collaborators = list
		idea.UpdatedAt = now
	}
	return db.persist()
}

// CreateStartup 创建创业项目
func (db *LocalDatabase) CreateStartup(ctx context.Context, s *models.Startup) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == "" {
		s.ID = newID()
	}
	for i := range s.Tasks {
		s.Tasks[i].StartupID = s.ID
	}
	stamp(&s.CreatedAt)
	s.UpdatedAt = s.CreatedAt
	s.Version = 1
	db.state.Startups[s.ID] = cloneStartup(s)
	return db.persist()
}

func (db *LocalDatabase) GetStartup(ctx context.Context, id string) (*models.Startup, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.state.Startups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStartup(s), nil
}

func (db *LocalDatabase) ListStartupsByCreator(ctx context.Context, creatorID string) ([]models.Startup, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Startup{}
	for _, s := range db.state.Startups {
		if s.CreatorID == creatorID {
			out = append(out, *cloneStartup(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (db *LocalDatabase) CountStartupsByCreatorSince(ctx context.Context, creatorID string, since time.Time) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n := 0
	for _, s := range db.state.Startups {
		if s.CreatorID == creatorID && !s.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (db *LocalDatabase) UpdateStartup(ctx context.Context, s *models.Startup) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	stored, ok := db.state.Startups[s.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != s.Version {
		return ErrVersionConflict
	}
	stored.Name = s.Name
	stored.Description = s.Description
	stored.IdeaID = s.IdeaID
	stored.Team = append([]models.TeamMember{}, s.Team...)
	stored.Funding = s.Funding
	stored.Status = s.Status
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	s.Version = stored.Version
	s.UpdatedAt = stored.UpdatedAt
	return db.persist()
}

func (db *LocalDatabase) AddStartupTask(ctx context.Context, startupID string, task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.state.Startups[startupID]
	if !ok {
		return ErrNotFound
	}
	if task.ID == "" {
		task.ID = newID()
	}
	task.StartupID = startupID
	stamp(&task.CreatedAt)
	s.Tasks = append(s.Tasks, *task)
	s.UpdatedAt = time.Now().UTC()
	return db.persist()
}

func (db *LocalDatabase) UpdateStartupTask(ctx context.Context, startupID string, task *models.Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.state.Startups[startupID]
	if !ok {
		return ErrNotFound
	}
	existing, ok := s.Task(task.ID)
	if !ok {
		return ErrNotFound
	}
	existing.Title = task.Title
	existing.AssigneeID = task.AssigneeID
	existing.DueDate = task.DueDate
	existing.Status = task.Status
	s.UpdatedAt = time.Now().UTC()
	return db.persist()
}

func (db *LocalDatabase) ListOverdueTasks(ctx context.Context, before time.Time) ([]models.DueTask, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.DueTask{}
	for _, s := range db.state.Startups {
		for _, t := range s.Tasks {
			if t.DueDate == nil || t.RemindedAt != nil || t.Status == models.TaskCompleted {
				continue
			}
			if t.DueDate.Before(before) {
				out = append(out, models.DueTask{Task: t, StartupID: s.ID, StartupName: s.Name})
			}
		}
	}
	return out, nil
}

func (db *LocalDatabase) MarkTaskReminded(ctx context.Context, startupID, taskID string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	s, ok := db.state.Startups[startupID]
	if !ok {
		return ErrNotFound
	}
	t, ok := s.Task(taskID)
	if !ok {
		return ErrNotFound
	}
	t.RemindedAt = &at
	return db.persist()
}

// CreateNotification 创建通知
func (db *LocalDatabase) CreateNotification(ctx context.Context, n *models.Notification) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if n.ID == "" {
		n.ID = newID()
	}
	stamp(&n.CreatedAt)
	stored := *n
	db.state.Notifications[n.ID] = &stored
	return db.persist()
}

func (db *LocalDatabase) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	n, ok := db.state.Notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *n
	return &out, nil
}

func (db *LocalDatabase) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := []models.Notification{}
	for _, n := range db.state.Notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (db *LocalDatabase) MarkNotificationRead(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	n, ok := db.state.Notifications[id]
	if !ok {
		return ErrNotFound
	}
	n.Read = true
	return db.persist()
}

func (db *LocalDatabase) DeleteNotification(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.state.Notifications[id]; !ok {
		return ErrNotFound
	}
	delete(db.state.Notifications, id)
	return db.persist()
}

// HealthCheck 本地数据库总是健康
func (db *LocalDatabase) HealthCheck(ctx context.Context) error {
	return nil
}

// Close 关闭数据库连接
func (db *LocalDatabase) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.persist()
}
