// Package mongostore persists users and todos in MongoDB collections.
// Todos reference their owner by id only; owners are joined with $lookup.
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/store"
	"github.com/taskboard/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	todosCollection = "todos"
	connectTimeout  = 10 * time.Second
)

// Open connects to MongoDB, pings it and ensures indexes exist.
func Open(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	database := client.Database(cfg.Database)
	if err := EnsureIndexes(connectCtx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, database, nil
}

// EnsureIndexes creates the unique email index and the todo ordering indexes.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	_, err := database.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = database.Collection(todosCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	})
	return err
}

var creationOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func translateError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	return err
}

// UserRepository handles persistence for users.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(database *mongo.Database) *UserRepository {
	return &UserRepository{coll: database.Collection(usersCollection)}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}
	update := bson.M{"$set": bson.M{
		"name":          user.Name,
		"email":         user.Email,
		"phone":         user.Phone,
		"role":          user.Role,
		"password_hash": user.PasswordHash,
		"updated_at":    user.UpdatedAt,
	}}
	result, err := r.coll.UpdateByID(ctx, user.ID, update)
	if err != nil {
		return types.User{}, translateError(err)
	}
	if result.MatchedCount == 0 {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(creationOrder).SetSkip(int64(offset)).SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	users := make([]types.User, 0, limit)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// TodoRepository handles persistence for todos.
type TodoRepository struct {
	coll *mongo.Collection
}

func NewTodoRepository(database *mongo.Database) *TodoRepository {
	return &TodoRepository{coll: database.Collection(todosCollection)}
}

func (r *TodoRepository) Get(ctx context.Context, id string) (types.Todo, error) {
	var todo types.Todo
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&todo); err != nil {
		return types.Todo{}, translateError(err)
	}
	return todo, nil
}

func (r *TodoRepository) Create(ctx context.Context, todo types.Todo) (types.Todo, error) {
	if todo.CreatedAt.IsZero() {
		todo.CreatedAt = time.Now()
	}
	todo.UpdatedAt = todo.CreatedAt
	if _, err := r.coll.InsertOne(ctx, todo); err != nil {
		return types.Todo{}, translateError(err)
	}
	return todo, nil
}

// Update overwrites the mutable fields. The owner is never rewritten.
func (r *TodoRepository) Update(ctx context.Context, todo types.Todo) (types.Todo, error) {
	if todo.UpdatedAt.IsZero() {
		todo.UpdatedAt = time.Now()
	}
	update := bson.M{"$set": bson.M{
		"title":       todo.Title,
		"description": todo.Description,
		"completed":   todo.Completed,
		"updated_at":  todo.UpdatedAt,
	}}
	result, err := r.coll.UpdateByID(ctx, todo.ID, update)
	if err != nil {
		return types.Todo{}, translateError(err)
	}
	if result.MatchedCount == 0 {
		return types.Todo{}, store.ErrNotFound
	}
	return todo, nil
}

func (r *TodoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *TodoRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.Todo, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": ownerID}, options.Find().SetSort(creationOrder))
	if err != nil {
		return nil, err
	}
	todos := make([]types.Todo, 0)
	if err := cursor.All(ctx, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

type todoWithOwnerDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Completed   bool      `bson:"completed"`
	UserID      string    `bson:"user_id"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
	Owner       []struct {
		Name  string `bson:"name"`
		Email string `bson:"email"`
	} `bson:"owner"`
}

func (r *TodoRepository) ListWithOwners(ctx context.Context, offset, limit int) ([]types.TodoWithOwner, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: creationOrder}},
		{{Key: "$skip", Value: int64(offset)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: usersCollection},
			{Key: "localField", Value: "user_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, err
	}
	var docs []todoWithOwnerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	todos := make([]types.TodoWithOwner, 0, len(docs))
	for _, doc := range docs {
		todo := types.TodoWithOwner{
			ID:          doc.ID,
			Title:       doc.Title,
			Description: doc.Description,
			Completed:   doc.Completed,
			User:        types.TodoOwner{ID: doc.UserID},
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
		}
		if len(doc.Owner) > 0 {
			todo.User.Name = doc.Owner[0].Name
			todo.User.Email = doc.Owner[0].Email
		}
		todos = append(todos, todo)
	}
	return todos, int(total), nil
}

// Counts aggregates todos owned by ownerID, or every todo when ownerID is empty.
func (r *TodoRepository) Counts(ctx context.Context, ownerID string, since time.Time) (types.TodoCounts, error) {
	filter := bson.M{}
	if ownerID != "" {
		filter["user_id"] = ownerID
	}

	var counts types.TodoCounts
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return types.TodoCounts{}, err
	}
	counts.Total = int(total)

	completedFilter := bson.M{"completed": true}
	recentFilter := bson.M{"created_at": bson.M{"$gte": since}}
	if ownerID != "" {
		completedFilter["user_id"] = ownerID
		recentFilter["user_id"] = ownerID
	}

	completed, err := r.coll.CountDocuments(ctx, completedFilter)
	if err != nil {
		return types.TodoCounts{}, err
	}
	counts.Completed = int(completed)

	recent, err := r.coll.CountDocuments(ctx, recentFilter)
	if err != nil {
		return types.TodoCounts{}, err
	}
	counts.CreatedSince = int(recent)
	return counts, nil
}
