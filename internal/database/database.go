// internal/database/database.go
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"devoverflow/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type MongoDB struct {
	Client      *mongo.Client
	Tags        *mongo.Collection
	TagLinks    *mongo.Collection
	Questions   *mongo.Collection
	Answers     *mongo.Collection
	Votes       *mongo.Collection
	Users       *mongo.Collection
	Accounts    *mongo.Collection
	Collections *mongo.Collection

	logger *slog.Logger
}

var _ Store = (*MongoDB)(nil)

func NewMongoDB(ctx context.Context, uri, dbName string, logger *slog.Logger) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", dbName)

	db := client.Database(dbName)
	return &MongoDB{
		Client:      client,
		Tags:        db.Collection("tags"),
		TagLinks:    db.Collection("tag_questions"),
		Questions:   db.Collection("questions"),
		Answers:     db.Collection("answers"),
		Votes:       db.Collection("votes"),
		Users:       db.Collection("users"),
		Accounts:    db.Collection("accounts"),
		Collections: db.Collection("collections"),
		logger:      logger,
	}, nil
}

// WithTransaction runs fn in a snapshot transaction. It deliberately does not
// use Session.WithTransaction, which re-runs the callback on transient errors.
func (m *MongoDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, u Unit) error) error {
	sess, err := m.Client.StartSession()
	if err != nil {
		return classify(err, "session")
	}
	defer sess.EndSession(context.Background())

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(txnOpts); err != nil {
		return classify(err, "transaction")
	}

	sessCtx := mongo.NewSessionContext(ctx, sess)
	unit := &mongoUnit{db: m, mu: &sync.Mutex{}}

	if err := fn(sessCtx, unit); err != nil {
		// Abort on a fresh context so a cancelled request still releases its locks.
		abortCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if abortErr := sess.AbortTransaction(abortCtx); abortErr != nil {
			m.logger.Warn("transaction abort failed", utils.ErrAttr(abortErr))
		}
		return err
	}

	if err := sess.CommitTransaction(sessCtx); err != nil {
		return classify(err, "transaction")
	}
	return nil
}

func (m *MongoDB) Snapshot() Unit {
	return &mongoUnit{db: m}
}

// EnsureIndexes creates the unique keys the engine relies on for correctness.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	specs := map[*mongo.Collection][]mongo.IndexModel{
		m.Tags: {
			{Keys: bson.D{{Key: "nameKey", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "usageCount", Value: -1}}},
		},
		m.TagLinks: {
			{Keys: bson.D{{Key: "tagId", Value: 1}, {Key: "questionId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "questionId", Value: 1}}},
		},
		m.Questions: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
			{Keys: bson.D{{Key: "authorId", Value: 1}}},
		},
		m.Answers: {
			{Keys: bson.D{{Key: "questionId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		m.Votes: {
			{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "targetId", Value: 1}, {Key: "targetType", Value: 1}}, Options: unique},
		},
		m.Users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		},
		m.Accounts: {
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "providerAccountId", Value: 1}}, Options: unique},
		},
		m.Collections: {
			{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "questionId", Value: 1}}, Options: unique},
		},
	}

	for coll, idx := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// mongoUnit hands out repositories bound to one session context. A driver
// session is not safe for concurrent use, so operations inside a transaction
// are serialized through mu.
type mongoUnit struct {
	db *MongoDB
	mu *sync.Mutex
}

func (u *mongoUnit) lock() func() {
	if u.mu == nil {
		return func() {}
	}
	u.mu.Lock()
	return u.mu.Unlock
}

func (u *mongoUnit) Tags() TagRepository               { return &tagRepository{u} }
func (u *mongoUnit) Links() LinkRepository             { return &linkRepository{u} }
func (u *mongoUnit) Questions() QuestionRepository     { return &questionRepository{u} }
func (u *mongoUnit) Answers() AnswerRepository         { return &answerRepository{u} }
func (u *mongoUnit) Votes() VoteRepository             { return &voteRepository{u} }
func (u *mongoUnit) Users() UserRepository             { return &userRepository{u} }
func (u *mongoUnit) Accounts() AccountRepository       { return &accountRepository{u} }
func (u *mongoUnit) Collections() CollectionRepository { return &collectionRepository{u} }

// classify maps driver errors onto the application error taxonomy.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return utils.NewNotFoundError(what)
	}
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewConflictError(what+" already exists", err)
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError") {
		return utils.NewConflictError("concurrent write conflict on "+what, err)
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		return utils.NewTransientError("database unavailable", err)
	}
	return utils.NewAppError(utils.ErrInternal, "database error", err)
}
