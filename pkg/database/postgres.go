package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"idea-incubator-backend/pkg/models"
)

// PostgresDatabase PostgreSQL数据库实现
type PostgresDatabase struct {
	db *sqlx.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	dsn = strings.TrimSpace(dsn)
	strategies := []string{
		addConnectionParams(dsn, "connect_timeout=10"),
		dsn, // 最后尝试原始DSN
	}

	var lastErr error
	for i, strategy := range strategies {
		db, err := sqlx.ConnectContext(ctx, "postgres", strategy)
		if err != nil {
			logger.WithError(err).Warnf("❌ Connection strategy %d failed", i+1)
			lastErr = err
			continue
		}

		// 设置连接池参数，适合无服务器环境
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)

		logger.Infof("✅ PostgreSQL connection established with strategy %d", i+1)
		return &PostgresDatabase{db: db}, nil
	}
	return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", lastErr)
}

// NewPostgresDatabaseFromDB wraps an existing connection.
func NewPostgresDatabaseFromDB(db *sqlx.DB) *PostgresDatabase {
	return &PostgresDatabase{db: db}
}

// DB exposes the underlying connection for migrations.
func (p *PostgresDatabase) DB() *sql.DB {
	return p.db.DB
}

// addConnectionParams 添加连接参数到DSN
func addConnectionParams(dsn, params string) string {
	if params == "" || strings.HasPrefix(dsn, "host=") {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + params
}

// mapPgError 把驱动错误映射为存储层哨兵错误
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		}
	}
	return err
}

// withTx 在事务中执行 fn，出错时回滚
func (p *PostgresDatabase) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ---- users ----

const userColumns = `id, first_name, last_name, COALESCE(mobile_number, '') AS mobile_number, email,
	password_hash, COALESCE(google_id, '') AS google_id, address, role, created_at, updated_at`

// CreateUser 创建用户
func (p *PostgresDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	query := `
		INSERT INTO users (id, first_name, last_name, mobile_number, email, password_hash, google_id, address, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`
	err := p.db.QueryRowxContext(ctx, query,
		user.ID, user.FirstName, user.LastName, nullable(user.MobileNumber), user.Email,
		user.Password, nullable(user.GoogleID), user.Address, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (p *PostgresDatabase) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if err := p.db.GetContext(ctx, &u, query, arg); err != nil {
		return nil, mapPgError(err)
	}
	return &u, nil
}

// GetUserByID 根据ID获取用户
func (p *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, "id = $1", id)
}

// GetUserByEmail 根据邮箱获取用户
func (p *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUser(ctx, "email = $1", email)
}

func (p *PostgresDatabase) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return p.getUser(ctx, "google_id = $1", googleID)
}

// UpdateUser 更新用户
func (p *PostgresDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, mobile_number = $3, email = $4, password_hash = $5,
		    google_id = $6, address = $7, role = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at`
	err := p.db.QueryRowxContext(ctx, query,
		user.FirstName, user.LastName, nullable(user.MobileNumber), user.Email, user.Password,
		nullable(user.GoogleID), user.Address, user.Role, user.ID,
	).Scan(&user.UpdatedAt)
	return mapPgError(err)
}

func (p *PostgresDatabase) ListCreatedIdeaIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := p.db.SelectContext(ctx, &ids,
		`SELECT id FROM ideas WHERE creator_id = $1 ORDER BY created_at DESC`, userID)
	return ids, mapPgError(err)
}

func (p *PostgresDatabase) ListCollaborationIdeaIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := p.db.SelectContext(ctx, &ids, `
		SELECT c.idea_id FROM idea_collaborators c
		JOIN ideas i ON i.id = c.idea_id
		WHERE c.user_id = $1 AND i.creator_id <> $1
		ORDER BY c.added_at DESC`, userID)
	return ids, mapPgError(err)
}

// ---- ideas ----

type ideaRow struct {
	models.Idea
	TagList          pq.StringArray `db:"tags"`
	CollaboratorList pq.StringArray `db:"collaborators"`
	UpvoteList       pq.StringArray `db:"upvotes"`
}

func (r *ideaRow) toModel() models.Idea {
	idea := r.Idea
	idea.Tags = append([]string{}, r.TagList...)
	idea.Collaborators = append([]string{}, r.CollaboratorList...)
	idea.Upvotes = append([]string{}, r.UpvoteList...)
	return idea
}

const ideaSelect = `
	SELECT i.id, i.title, i.description, i.tags, i.status, i.creator_id, i.version, i.created_at, i.updated_at,
	       COALESCE((SELECT array_agg(c.user_id ORDER BY c.added_at) FROM idea_collaborators c WHERE c.idea_id = i.id), '{}') AS collaborators,
	       COALESCE((SELECT array_agg(u.user_id ORDER BY u.created_at) FROM idea_upvotes u WHERE u.idea_id = i.id), '{}') AS upvotes
	FROM ideas i`

// CreateIdea 创建想法并把创建者加入协作者
func (p *PostgresDatabase) CreateIdea(ctx context.Context, idea *models.Idea) error {
	if idea.ID == "" {
		idea.ID = newID()
	}
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO ideas (id, title, description, tags, status, creator_id, version)
			VALUES ($1, $2, $3, $4, $5, $6, 1)
			RETURNING version, created_at, updated_at`,
			idea.ID, idea.Title, idea.Description, pq.Array(idea.Tags), idea.Status, idea.CreatorID,
		).Scan(&idea.Version, &idea.CreatedAt, &idea.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO idea_collaborators (idea_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			idea.ID, idea.CreatorID); err != nil {
			return mapPgError(err)
		}
		idea.Collaborators = []string{idea.CreatorID}
		if idea.Upvotes == nil {
			idea.Upvotes = []string{}
		}
		return nil
	})
}

func (p *PostgresDatabase) GetIdea(ctx context.Context, id string) (*models.Idea, error) {
	var row ideaRow
	if err := p.db.GetContext(ctx, &row, ideaSelect+` WHERE i.id = $1`, id); err != nil {
		return nil, mapPgError(err)
	}
	idea := row.toModel()
	return &idea, nil
}

func (p *PostgresDatabase) ListIdeas(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("i.status = $%d", len(args)))
	}
	if filter.CreatorID != "" {
		args = append(args, filter.CreatorID)
		conds = append(conds, fmt.Sprintf("i.creator_id = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conds = append(conds, fmt.Sprintf("$%d = ANY(i.tags)", len(args)))
	}
	query := ideaSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY i.created_at DESC"

	var rows []ideaRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapPgError(err)
	}
	ideas := make([]models.Idea, 0, len(rows))
	for i := range rows {
		ideas = append(ideas, rows[i].toModel())
	}
	return ideas, nil
}

// UpdateIdea 乐观锁更新
func (p *PostgresDatabase) UpdateIdea(ctx context.Context, idea *models.Idea) error {
	err := p.db.QueryRowxContext(ctx, `
		UPDATE ideas
		SET title = $1, description = $2, tags = $3, status = $4, version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at`,
		idea.Title, idea.Description, pq.Array(idea.Tags), idea.Status, idea.ID, idea.Version,
	).Scan(&idea.Version, &idea.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p.missingOrConflict(ctx, "ideas", idea.ID)
	}
	return mapPgError(err)
}

// missingOrConflict 区分记录不存在与版本冲突
func (p *PostgresDatabase) missingOrConflict(ctx context.Context, table, id string) error {
	var exists bool
	if err := p.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, id); err != nil {
		return mapPgError(err)
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func (p *PostgresDatabase) DeleteIdea(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDatabase) ideaExists(ctx context.Context, ideaID string) error {
	var exists bool
	if err := p.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM ideas WHERE id = $1)`, ideaID); err != nil {
		return mapPgError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDatabase) execChanged(ctx context.Context, ideaID, query string, args ...interface{}) (bool, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, mapPgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, p.ideaExists(ctx, ideaID)
	}
	return true, nil
}

func (p *PostgresDatabase) AddIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error) {
	return p.execChanged(ctx, ideaID,
		`INSERT INTO idea_collaborators (idea_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, ideaID, userID)
}

func (p *PostgresDatabase) RemoveIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error) {
	return p.execChanged(ctx, ideaID,
		`DELETE FROM idea_collaborators WHERE idea_id = $1 AND user_id = $2`, ideaID, userID)
}

func (p *PostgresDatabase) AddIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error) {
	return p.execChanged(ctx, ideaID,
		`INSERT INTO idea_upvotes (idea_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, ideaID, userID)
}

func (p *PostgresDatabase) RemoveIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error) {
	return p.execChanged(ctx, ideaID,
		`DELETE FROM idea_upvotes WHERE idea_id = $1 AND user_id = $2`, ideaID, userID)
}

// ---- collaborations ----

const collaborationColumns = `id, idea_id, user_id, role, message, status, created_at, updated_at`

// CreateCollaboration 唯一索引 collaborations_active_uniq 保证同一用户只有一个活跃请求
func (p *PostgresDatabase) CreateCollaboration(ctx context.Context, c *models.Collaboration) error {
	if c.ID == "" {
		c.ID = newID()
	}
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO collaborations (id, idea_id, user_id, role, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.IdeaID, c.UserID, c.Role, c.Message, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapPgError(err)
}

func (p *PostgresDatabase) GetCollaboration(ctx context.Context, id string) (*models.Collaboration, error) {
	var c models.Collaboration
	if err := p.db.GetContext(ctx, &c, `SELECT `+collaborationColumns+` FROM collaborations WHERE id = $1`, id); err != nil {
		return nil, mapPgError(err)
	}
	return &c, nil
}

func (p *PostgresDatabase) ListCollaborationsByIdea(ctx context.Context, ideaID string) ([]models.Collaboration, error) {
	out := []models.Collaboration{}
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+collaborationColumns+` FROM collaborations WHERE idea_id = $1 ORDER BY created_at DESC`, ideaID)
	return out, mapPgError(err)
}

func (p *PostgresDatabase) ListCollaborationsByUser(ctx context.Context, userID string) ([]models.Collaboration, error) {
	out := []models.Collaboration{}
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+collaborationColumns+` FROM collaborations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return out, mapPgError(err)
}

// SetCollaborationStatus 比较并交换状态
func (p *PostgresDatabase) SetCollaborationStatus(ctx context.Context, id string, from, to models.CollaborationStatus) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE collaborations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return mapPgError(err)
	}
	if err := requireAffected(res); err != nil {
		return p.missingOrConflict(ctx, "collaborations", id)
	}
	return nil
}

// AcceptCollaboration 在同一事务中接受请求并加入协作者
func (p *PostgresDatabase) AcceptCollaboration(ctx context.Context, id string) error {
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		var ideaID, userID string
		err := tx.QueryRowxContext(ctx, `
			UPDATE collaborations SET status = 'accepted', updated_at = NOW()
			WHERE id = $1 AND status = 'pending'
			RETURNING idea_id, user_id`, id).Scan(&ideaID, &userID)
		if err != nil {
			return mapPgError(err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO idea_collaborators (idea_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, ideaID, userID)
		if err != nil {
			return mapPgError(err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE ideas SET updated_at = NOW() WHERE id = $1`, ideaID)
		return mapPgError(err)
	})
	if errors.Is(err, ErrNotFound) {
		return p.missingOrConflict(ctx, "collaborations", id)
	}
	return err
}

// ---- startups ----

type startupRow struct {
	models.Startup
	FundingGoal   float64 `db:"funding_goal"`
	FundingRaised float64 `db:"funding_raised"`
}

const startupColumns = `id, name, description, COALESCE(idea_id, '') AS idea_id,
	COALESCE(collaboration_id, '') AS collaboration_id, creator_id, funding_goal, funding_raised,
	status, version, created_at, updated_at`

const taskColumns = `id, startup_id, title, COALESCE(assignee_id, '') AS assignee_id, due_date, status,
	reminded_at, created_at`

func insertTeam(ctx context.Context, tx *sqlx.Tx, startupID string, team []models.TeamMember) error {
	for i, m := range team {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO startup_team (startup_id, user_id, role, equity, position) VALUES ($1, $2, $3, $4, $5)`,
			startupID, m.UserID, m.Role, m.Equity, i)
		if err != nil {
			return mapPgError(err)
		}
	}
	return nil
}

// CreateStartup 创建创业项目及初始团队
func (p *PostgresDatabase) CreateStartup(ctx context.Context, s *models.Startup) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return p.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO startups (id, name, description, idea_id, collaboration_id, creator_id,
			                      funding_goal, funding_raised, status, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
			RETURNING version, created_at, updated_at`,
			s.ID, s.Name, s.Description, nullable(s.IdeaID), nullable(s.CollaborationID), s.CreatorID,
			s.Funding.Goal, s.Funding.Raised, s.Status,
		).Scan(&s.Version, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}
		if s.Tasks == nil {
			s.Tasks = []models.Task{}
		}
		return insertTeam(ctx, tx, s.ID, s.Team)
	})
}

func (p *PostgresDatabase) loadStartupChildren(ctx context.Context, s *models.Startup) error {
	s.Team = []models.TeamMember{}
	if err := p.db.SelectContext(ctx, &s.Team,
		`SELECT user_id, role, equity FROM startup_team WHERE startup_id = $1 ORDER BY position`, s.ID); err != nil {
		return mapPgError(err)
	}
	s.Tasks = []models.Task{}
	if err := p.db.SelectContext(ctx, &s.Tasks,
		`SELECT `+taskColumns+` FROM startup_tasks WHERE startup_id = $1 ORDER BY created_at`, s.ID); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *startupRow) toModel() models.Startup {
	s := r.Startup
	s.Funding = models.Funding{Goal: r.FundingGoal, Raised: r.FundingRaised}
	return s
}

func (p *PostgresDatabase) GetStartup(ctx context.Context, id string) (*models.Startup, error) {
	var row startupRow
	if err := p.db.GetContext(ctx, &row, `SELECT `+startupColumns+` FROM startups WHERE id = $1`, id); err != nil {
		return nil, mapPgError(err)
	}
	s := row.toModel()
	if err := p.loadStartupChildren(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *PostgresDatabase) ListStartupsByCreator(ctx context.Context, creatorID string) ([]models.Startup, error) {
	var rows []startupRow
	if err := p.db.SelectContext(ctx, &rows,
		`SELECT `+startupColumns+` FROM startups WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID); err != nil {
		return nil, mapPgError(err)
	}
	out := make([]models.Startup, 0, len(rows))
	for i := range rows {
		s := rows[i].toModel()
		if err := p.loadStartupChildren(ctx, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *PostgresDatabase) CountStartupsByCreatorSince(ctx context.Context, creatorID string, since time.Time) (int, error) {
	var n int
	err := p.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM startups WHERE creator_id = $1 AND created_at >= $2`, creatorID, since)
	return n, mapPgError(err)
}

// UpdateStartup 乐观锁更新，并整体替换团队
func (p *PostgresDatabase) UpdateStartup(ctx context.Context, s *models.Startup) error {
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, `
			UPDATE startups
			SET name = $1, description = $2, idea_id = $3, funding_goal = $4, funding_raised = $5,
			    status = $6, version = version + 1, updated_at = NOW()
			WHERE id = $7 AND version = $8
			RETURNING version, updated_at`,
			s.Name, s.Description, nullable(s.IdeaID), s.Funding.Goal, s.Funding.Raised, s.Status, s.ID, s.Version,
		).Scan(&s.Version, &s.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM startup_team WHERE startup_id = $1`, s.ID); err != nil {
			return mapPgError(err)
		}
		return insertTeam(ctx, tx, s.ID, s.Team)
	})
	if errors.Is(err, ErrNotFound) {
		return p.missingOrConflict(ctx, "startups", s.ID)
	}
	return err
}

func (p *PostgresDatabase) AddStartupTask(ctx context.Context, startupID string, task *models.Task) error {
	if task.ID == "" {
		task.ID = newID()
	}
	task.StartupID = startupID
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO startup_tasks (id, startup_id, title, assignee_id, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		task.ID, startupID, task.Title, nullable(task.AssigneeID), task.DueDate, task.Status,
	).Scan(&task.CreatedAt)
	return mapPgError(err)
}

func (p *PostgresDatabase) UpdateStartupTask(ctx context.Context, startupID string, task *models.Task) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE startup_tasks SET title = $1, assignee_id = $2, due_date = $3, status = $4
		WHERE id = $5 AND startup_id = $6`,
		task.Title, nullable(task.AssigneeID), task.DueDate, task.Status, task.ID, startupID)
	if err != nil {
		return mapPgError(err)
	}
	return requireAffected(res)
}

func (p *PostgresDatabase) ListOverdueTasks(ctx context.Context, before time.Time) ([]models.DueTask, error) {
	var rows []struct {
		models.Task
		StartupName string `db:"startup_name"`
	}
	err := p.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.startup_id, t.title, COALESCE(t.assignee_id, '') AS assignee_id, t.due_date, t.status,
		       t.reminded_at, t.created_at, s.name AS startup_name
		FROM startup_tasks t
		JOIN startups s ON s.id = t.startup_id
		WHERE t.due_date < $1 AND t.status <> 'completed' AND t.reminded_at IS NULL
		ORDER BY t.due_date`, before)
	if err != nil {
		return nil, mapPgError(err)
	}
	out := make([]models.DueTask, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.DueTask{Task: r.Task, StartupID: r.StartupID, StartupName: r.StartupName})
	}
	return out, nil
}

func (p *PostgresDatabase) MarkTaskReminded(ctx context.Context, startupID, taskID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE startup_tasks SET reminded_at = $1 WHERE id = $2 AND startup_id = $3`, at, taskID, startupID)
	if err != nil {
		return mapPgError(err)
	}
	return requireAffected(res)
}

// ---- notifications ----

const notificationColumns = `id, user_id, type, message, COALESCE(reference_id, '') AS reference_id, read, created_at`

// CreateNotification 创建通知
func (p *PostgresDatabase) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message, reference_id, read)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		n.ID, n.UserID, n.Type, n.Message, nullable(n.ReferenceID), n.Read,
	).Scan(&n.CreatedAt)
	return mapPgError(err)
}

func (p *PostgresDatabase) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := p.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		return nil, mapPgError(err)
	}
	return &n, nil
}

func (p *PostgresDatabase) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	out := []models.Notification{}
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	return out, mapPgError(err)
}

func (p *PostgresDatabase) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	return requireAffected(res)
}

func (p *PostgresDatabase) DeleteNotification(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	return requireAffected(res)
}

// HealthCheck 健康检查
func (p *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close 关闭数据库连接
func (p *PostgresDatabase) Close() error {
	return p.db.Close()
}
