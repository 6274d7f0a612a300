package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"idea-incubator-backend/pkg/models"
)

// MongoDatabase MongoDB 文档存储实现：标签、协作者、点赞、团队与任务都内嵌在父文档中
type MongoDatabase struct {
	client *mongo.Client
	db     *mongo.Database
}

const (
	colUsers          = "users"
	colIdeas          = "ideas"
	colCollaborations = "collaborations"
	colStartups       = "startups"
	colNotifications  = "notifications"
)

// collaborationDoc 额外存储 active 字段以支持部分唯一索引
type collaborationDoc struct {
	models.Collaboration `bson:",inline"`
	Active               bool `bson:"active"`
}

// NewMongoDatabase 连接 MongoDB 并确保索引存在
func NewMongoDatabase(ctx context.Context, uri, database string) (*MongoDatabase, error) {
	if database == "" {
		database = "idea_incubator"
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetMaxPoolSize(10))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m := &MongoDatabase{client: client, db: client.Database(database)}
	if err := m.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.WithField("database", database).Info("✅ MongoDB connection established")
	return m, nil
}

func (m *MongoDatabase) ensureIndexes(ctx context.Context) error {
	hasString := func(field string) bson.D {
		return bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}}}}
	}
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "mobile_number", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(hasString("mobile_number"))},
			{Keys: bson.D{{Key: "google_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(hasString("google_id"))},
		},
		colIdeas: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "creator_id", Value: 1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
		},
		colCollaborations: {
			{
				Keys: bson.D{{Key: "idea_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		colStartups: {
			{Keys: bson.D{{Key: "creator_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for col, idx := range indexes {
		if _, err := m.db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", col, err)
		}
	}
	return nil
}

func mapMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func (m *MongoDatabase) col(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func (m *MongoDatabase) exists(ctx context.Context, col, id string) (bool, error) {
	n, err := m.col(col).CountDocuments(ctx, byID(id), options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// missingOrConflict 区分记录不存在与版本冲突
func (m *MongoDatabase) missingOrConflict(ctx context.Context, col, id string) error {
	ok, err := m.exists(ctx, col, id)
	if err != nil {
		return err
	}
	if ok {
		return ErrVersionConflict
	}
	return ErrNotFound
}

func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ---- users ----

// CreateUser 创建用户
func (m *MongoDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.CreatedAt = mongoNow()
	user.UpdatedAt = user.CreatedAt
	_, err := m.col(colUsers).InsertOne(ctx, user)
	return mapMongoError(err)
}

func (m *MongoDatabase) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	var u models.User
	if err := m.col(colUsers).FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mapMongoError(err)
	}
	return &u, nil
}

// GetUserByID 根据ID获取用户
func (m *MongoDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return m.findUser(ctx, byID(id))
}

// GetUserByEmail 根据邮箱获取用户
func (m *MongoDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (m *MongoDatabase) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return m.findUser(ctx, bson.D{{Key: "google_id", Value: googleID}})
}

// UpdateUser 更新用户
func (m *MongoDatabase) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = mongoNow()
	res, err := m.col(colUsers).ReplaceOne(ctx, byID(user.ID), user)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoDatabase) ideaIDs(ctx context.Context, filter bson.D) ([]string, error) {
	cur, err := m.col(colIdeas).Find(ctx, filter,
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}).SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapMongoError(err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (m *MongoDatabase) ListCreatedIdeaIDs(ctx context.Context, userID string) ([]string, error) {
	return m.ideaIDs(ctx, bson.D{{Key: "creator_id", Value: userID}})
}

func (m *MongoDatabase) ListCollaborationIdeaIDs(ctx context.Context, userID string) ([]string, error) {
	return m.ideaIDs(ctx, bson.D{
		{Key: "collaborators", Value: userID},
		{Key: "creator_id", Value: bson.D{{Key: "$ne", Value: userID}}},
	})
}

// ---- ideas ----

func normalizeIdea(i *models.Idea) {
	if i.Tags == nil {
		i.Tags = []string{}
	}
	if i.Collaborators == nil {
		i.Collaborators = []string{}
	}
	if i.Upvotes == nil {
		i.Upvotes = []string{}
	}
}

// CreateIdea 创建想法
func (m *MongoDatabase) CreateIdea(ctx context.Context, idea *models.Idea) error {
	if idea.ID == "" {
		idea.ID = newID()
	}
	if !idea.HasCollaborator(idea.CreatorID) {
		idea.Collaborators = append([]string{idea.CreatorID}, idea.Collaborators...)
	}
	normalizeIdea(idea)
	idea.Version = 1
	idea.CreatedAt = mongoNow()
	idea.UpdatedAt = idea.CreatedAt
	_, err := m.col(colIdeas).InsertOne(ctx, idea)
	return mapMongoError(err)
}

func (m *MongoDatabase) GetIdea(ctx context.Context, id string) (*models.Idea, error) {
	var idea models.Idea
	if err := m.col(colIdeas).FindOne(ctx, byID(id)).Decode(&idea); err != nil {
		return nil, mapMongoError(err)
	}
	normalizeIdea(&idea)
	return &idea, nil
}

func (m *MongoDatabase) ListIdeas(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, error) {
	q := bson.D{}
	if filter.Status != "" {
		q = append(q, bson.E{Key: "status", Value: filter.Status})
	}
	if filter.CreatorID != "" {
		q = append(q, bson.E{Key: "creator_id", Value: filter.CreatorID})
	}
	if filter.Tag != "" {
		q = append(q, bson.E{Key: "tags", Value: filter.Tag})
	}
	cur, err := m.col(colIdeas).Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapMongoError(err)
	}
	ideas := []models.Idea{}
	if err := cur.All(ctx, &ideas); err != nil {
		return nil, err
	}
	for i := range ideas {
		normalizeIdea(&ideas[i])
	}
	return ideas, nil
}

// UpdateIdea 乐观锁更新
func (m *MongoDatabase) UpdateIdea(ctx context.Context, idea *models.Idea) error {
	updatedAt := mongoNow()
	res, err := m.col(colIdeas).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: idea.ID}, {Key: "version", Value: idea.Version}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "title", Value: idea.Title},
				{Key: "description", Value: idea.Description},
				{Key: "tags", Value: idea.Tags},
				{Key: "status", Value: idea.Status},
				{Key: "updated_at", Value: updatedAt},
			}},
			{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return m.missingOrConflict(ctx, colIdeas, idea.ID)
	}
	idea.Version++
	idea.UpdatedAt = updatedAt
	return nil
}

func (m *MongoDatabase) DeleteIdea(ctx context.Context, id string) error {
	res, err := m.col(colIdeas).DeleteOne(ctx, byID(id))
	if err != nil {
		return mapMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if _, err := m.col(colCollaborations).DeleteMany(ctx, bson.D{{Key: "idea_id", Value: id}}); err != nil {
		return mapMongoError(err)
	}
	_, err = m.col(colStartups).UpdateMany(ctx,
		bson.D{{Key: "idea_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "idea_id", Value: ""}}}})
	return mapMongoError(err)
}

func (m *MongoDatabase) AddIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error) {
	return m.guardedSetUpdate(ctx, ideaID, "$addToSet", "collaborators", userID)
}

func (m *MongoDatabase) RemoveIdeaCollaborator(ctx context.Context, ideaID, userID string) (bool, error) {
	return m.guardedSetUpdate(ctx, ideaID, "$pull", "collaborators", userID)
}

func (m *MongoDatabase) AddIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error) {
	return m.guardedSetUpdate(ctx, ideaID, "$addToSet", "upvotes", userID)
}

func (m *MongoDatabase) RemoveIdeaUpvote(ctx context.Context, ideaID, userID string) (bool, error) {
	return m.guardedSetUpdate(ctx, ideaID, "$pull", "upvotes", userID)
}

// guardedSetUpdate matches only documents where the update would change the set,
// so MatchedCount tells whether membership changed.
func (m *MongoDatabase) guardedSetUpdate(ctx context.Context, ideaID, op, field, userID string) (bool, error) {
	guard := bson.D{{Key: "$ne", Value: userID}} // not yet a member
	if op == "$pull" {
		guard = bson.D{{Key: "$eq", Value: userID}}
	}
	res, err := m.col(colIdeas).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: ideaID}, {Key: field, Value: guard}},
		bson.D{
			{Key: op, Value: bson.D{{Key: field, Value: userID}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: mongoNow()}}},
		})
	if err != nil {
		return false, mapMongoError(err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	ok, err := m.exists(ctx, colIdeas, ideaID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotFound
	}
	return false, nil
}

// ---- collaborations ----

// CreateCollaboration 部分唯一索引保证同一用户只有一个活跃请求
func (m *MongoDatabase) CreateCollaboration(ctx context.Context, c *models.Collaboration) error {
	ok, err := m.exists(ctx, colIdeas, c.IdeaID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = mongoNow()
	c.UpdatedAt = c.CreatedAt
	_, err = m.col(colCollaborations).InsertOne(ctx, collaborationDoc{Collaboration: *c, Active: c.Status.Active()})
	return mapMongoError(err)
}

func (m *MongoDatabase) GetCollaboration(ctx context.Context, id string) (*models.Collaboration, error) {
	var doc collaborationDoc
	if err := m.col(colCollaborations).FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		return nil, mapMongoError(err)
	}
	return &doc.Collaboration, nil
}

func (m *MongoDatabase) listCollaborations(ctx context.Context, filter bson.D) ([]models.Collaboration, error) {
	cur, err := m.col(colCollaborations).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapMongoError(err)
	}
	var docs []collaborationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Collaboration, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Collaboration)
	}
	return out, nil
}

func (m *MongoDatabase) ListCollaborationsByIdea(ctx context.Context, ideaID string) ([]models.Collaboration, error) {
	return m.listCollaborations(ctx, bson.D{{Key: "idea_id", Value: ideaID}})
}

func (m *MongoDatabase) ListCollaborationsByUser(ctx context.Context, userID string) ([]models.Collaboration, error) {
	return m.listCollaborations(ctx, bson.D{{Key: "user_id", Value: userID}})
}

// SetCollaborationStatus 比较并交换状态
func (m *MongoDatabase) SetCollaborationStatus(ctx context.Context, id string, from, to models.CollaborationStatus) error {
	res, err := m.col(colCollaborations).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}, {Key: "status", Value: from}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: to},
			{Key: "active", Value: to.Active()},
			{Key: "updated_at", Value: mongoNow()},
		}}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return m.missingOrConflict(ctx, colCollaborations, id)
	}
	return nil
}

// AcceptCollaboration 在事务中完成状态比较交换与 $addToSet。
// 单机部署不支持事务时退回顺序执行；此时服务层会在重复批准时补加协作者
func (m *MongoDatabase) AcceptCollaboration(ctx context.Context, id string) error {
	sess, err := m.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, m.acceptCollaboration(sc, id)
	})
	if transactionsUnsupported(err) {
		return m.acceptCollaboration(ctx, id)
	}
	return err
}

func (m *MongoDatabase) acceptCollaboration(ctx context.Context, id string) error {
	c, err := m.GetCollaboration(ctx, id)
	if err != nil {
		return err
	}
	if err := m.SetCollaborationStatus(ctx, id, models.CollaborationPending, models.CollaborationAccepted); err != nil {
		return err
	}
	_, err = m.AddIdeaCollaborator(ctx, c.IdeaID, c.UserID)
	return err
}

// transactionsUnsupported 识别单机 mongod 的 IllegalOperation (20)
func transactionsUnsupported(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(20)
}

// ---- startups ----

func fillStartup(s *models.Startup) {
	if s.Team == nil {
		s.Team = []models.TeamMember{}
	}
	if s.Tasks == nil {
		s.Tasks = []models.Task{}
	}
	for i := range s.Tasks {
		s.Tasks[i].StartupID = s.ID
	}
}

// CreateStartup 创建创业项目
func (m *MongoDatabase) CreateStartup(ctx context.Context, s *models.Startup) error {
	if s.ID == "" {
		s.ID = newID()
	}
	fillStartup(s)
	s.Version = 1
	s.CreatedAt = mongoNow()
	s.UpdatedAt = s.CreatedAt
	_, err := m.col(colStartups).InsertOne(ctx, s)
	return mapMongoError(err)
}

func (m *MongoDatabase) GetStartup(ctx context.Context, id string) (*models.Startup, error) {
	var s models.Startup
	if err := m.col(colStartups).FindOne(ctx, byID(id)).Decode(&s); err != nil {
		return nil, mapMongoError(err)
	}
	fillStartup(&s)
	return &s, nil
}

func (m *MongoDatabase) ListStartupsByCreator(ctx context.Context, creatorID string) ([]models.Startup, error) {
	cur, err := m.col(colStartups).Find(ctx, bson.D{{Key: "creator_id", Value: creatorID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapMongoError(err)
	}
	out := []models.Startup{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		fillStartup(&out[i])
	}
	return out, nil
}

func (m *MongoDatabase) CountStartupsByCreatorSince(ctx context.Context, creatorID string, since time.Time) (int, error) {
	n, err := m.col(colStartups).CountDocuments(ctx, bson.D{
		{Key: "creator_id", Value: creatorID},
		{Key: "created_at", Value: bson.D{{Key: "$gte", Value: since}}},
	})
	return int(n), mapMongoError(err)
}

// UpdateStartup 乐观锁更新
func (m *MongoDatabase) UpdateStartup(ctx context.Context, s *models.Startup) error {
	updatedAt := mongoNow()
	res, err := m.col(colStartups).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: s.ID}, {Key: "version", Value: s.Version}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "name", Value: s.Name},
				{Key: "description", Value: s.Description},
				{Key: "idea_id", Value: s.IdeaID},
				{Key: "team", Value: s.Team},
				{Key: "funding", Value: s.Funding},
				{Key: "status", Value: s.Status},
				{Key: "updated_at", Value: updatedAt},
			}},
			{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return m.missingOrConflict(ctx, colStartups, s.ID)
	}
	s.Version++
	s.UpdatedAt = updatedAt
	return nil
}

func (m *MongoDatabase) AddStartupTask(ctx context.Context, startupID string, task *models.Task) error {
	if task.ID == "" {
		task.ID = newID()
	}
	task.StartupID = startupID
	task.CreatedAt = mongoNow()
	res, err := m.col(colStartups).UpdateOne(ctx, byID(startupID), bson.D{
		{Key: "$push", Value: bson.D{{Key: "tasks", Value: task}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: mongoNow()}}},
	})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoDatabase) UpdateStartupTask(ctx context.Context, startupID string, task *models.Task) error {
	res, err := m.col(colStartups).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: startupID}, {Key: "tasks._id", Value: task.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "tasks.$.title", Value: task.Title},
			{Key: "tasks.$.assignee_id", Value: task.AssigneeID},
			{Key: "tasks.$.due_date", Value: task.DueDate},
			{Key: "tasks.$.status", Value: task.Status},
			{Key: "updated_at", Value: mongoNow()},
		}}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoDatabase) ListOverdueTasks(ctx context.Context, before time.Time) ([]models.DueTask, error) {
	cur, err := m.col(colStartups).Find(ctx, bson.D{{Key: "tasks", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
		{Key: "due_date", Value: bson.D{{Key: "$lt", Value: before}}},
		{Key: "status", Value: bson.D{{Key: "$ne", Value: models.TaskCompleted}}},
		{Key: "reminded_at", Value: bson.D{{Key: "$exists", Value: false}}},
	}}}}})
	if err != nil {
		return nil, mapMongoError(err)
	}
	var startups []models.Startup
	if err := cur.All(ctx, &startups); err != nil {
		return nil, err
	}
	out := []models.DueTask{}
	for _, s := range startups {
		for _, t := range s.Tasks {
			if t.DueDate == nil || t.RemindedAt != nil || t.Status == models.TaskCompleted || !t.DueDate.Before(before) {
				continue
			}
			t.StartupID = s.ID
			out = append(out, models.DueTask{Task: t, StartupID: s.ID, StartupName: s.Name})
		}
	}
	return out, nil
}

func (m *MongoDatabase) MarkTaskReminded(ctx context.Context, startupID, taskID string, at time.Time) error {
	res, err := m.col(colStartups).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: startupID}, {Key: "tasks._id", Value: taskID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "tasks.$.reminded_at", Value: at}}}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- notifications ----

// CreateNotification 创建通知
func (m *MongoDatabase) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	n.CreatedAt = mongoNow()
	_, err := m.col(colNotifications).InsertOne(ctx, n)
	return mapMongoError(err)
}

func (m *MongoDatabase) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := m.col(colNotifications).FindOne(ctx, byID(id)).Decode(&n); err != nil {
		return nil, mapMongoError(err)
	}
	return &n, nil
}

func (m *MongoDatabase) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	cur, err := m.col(colNotifications).Find(ctx, bson.D{{Key: "user_id", Value: userID}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, mapMongoError(err)
	}
	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoDatabase) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := m.col(colNotifications).UpdateOne(ctx, byID(id),
		bson.D{{Key: "$set", Value: bson.D{{Key: "read", Value: true}}}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoDatabase) DeleteNotification(ctx context.Context, id string) error {
	res, err := m.col(colNotifications).DeleteOne(ctx, byID(id))
	if err != nil {
		return mapMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// HealthCheck 健康检查
func (m *MongoDatabase) HealthCheck(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close 关闭数据库连接
func (m *MongoDatabase) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
