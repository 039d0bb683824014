// Package memstore is an in-process implementation of database.Store.
// Transactions are serializable: one runs at a time against a private copy of
// the data, which replaces the live copy only on commit. It backs DB_TYPE=memory
// and the unit tests, and supports fault injection per write operation.
package memstore

import (
	"context"
	"strings"
	"sync"

	"devoverflow/internal/database"
	"devoverflow/internal/models"
	"devoverflow/internal/utils"

	"github.com/google/uuid"
)

// Write operations that can be made to fail with FailOn.
const (
	OpTagUpsert        = "tags.upsert"
	OpTagIncrement     = "tags.increment"
	OpTagDelete        = "tags.delete"
	OpLinkInsert       = "links.insert"
	OpLinkDelete       = "links.delete"
	OpQuestionInsert   = "questions.insert"
	OpQuestionUpdate   = "questions.update"
	OpQuestionPushTags = "questions.pushTags"
	OpQuestionCounters = "questions.counters"
	OpAnswerInsert     = "answers.insert"
	OpVotesAdjust      = "votable.adjust"
	OpVoteInsert       = "votes.insert"
	OpVoteUpdate       = "votes.update"
	OpVoteDelete       = "votes.delete"
	OpUserInsert       = "users.insert"
	OpAccountInsert    = "accounts.insert"
	OpCollectionInsert = "collections.insert"
	OpCollectionDelete = "collections.delete"
)

type linkKey struct {
	tagID, questionID uuid.UUID
}

type voteKey struct {
	authorID, targetID uuid.UUID
	targetType         models.TargetType
}

type accountKey struct {
	provider, providerAccountID string
}

type collectionKey struct {
	authorID, questionID uuid.UUID
}

type state struct {
	tags        map[uuid.UUID]*models.Tag
	tagKeys     map[string]uuid.UUID
	links       map[linkKey]*models.TagQuestion
	questions   map[uuid.UUID]*models.Question
	answers     map[uuid.UUID]*models.Answer
	votes       map[uuid.UUID]*models.Vote
	voteKeys    map[voteKey]uuid.UUID
	users       map[uuid.UUID]*models.User
	emails      map[string]uuid.UUID
	usernames   map[string]uuid.UUID
	accounts    map[accountKey]*models.Account
	collections map[collectionKey]*models.Collection
}

func newState() *state {
	return &state{
		tags:        make(map[uuid.UUID]*models.Tag),
		tagKeys:     make(map[string]uuid.UUID),
		links:       make(map[linkKey]*models.TagQuestion),
		questions:   make(map[uuid.UUID]*models.Question),
		answers:     make(map[uuid.UUID]*models.Answer),
		votes:       make(map[uuid.UUID]*models.Vote),
		voteKeys:    make(map[voteKey]uuid.UUID),
		users:       make(map[uuid.UUID]*models.User),
		emails:      make(map[string]uuid.UUID),
		usernames:   make(map[string]uuid.UUID),
		accounts:    make(map[accountKey]*models.Account),
		collections: make(map[collectionKey]*models.Collection),
	}
}

func cloneMap[K comparable, V any](src map[K]V, clone func(V) V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = clone(v)
	}
	return dst
}

func same[V any](v V) V { return v }

func (s *state) clone() *state {
	return &state{
		tags:      cloneMap(s.tags, (*models.Tag).Clone),
		tagKeys:   cloneMap(s.tagKeys, same[uuid.UUID]),
		links:     cloneMap(s.links, func(l *models.TagQuestion) *models.TagQuestion { c := *l; return &c }),
		questions: cloneMap(s.questions, (*models.Question).Clone),
		answers:   cloneMap(s.answers, (*models.Answer).Clone),
		votes:     cloneMap(s.votes, (*models.Vote).Clone),
		voteKeys:  cloneMap(s.voteKeys, same[uuid.UUID]),
		users:     cloneMap(s.users, (*models.User).Clone),
		emails:    cloneMap(s.emails, same[uuid.UUID]),
		usernames: cloneMap(s.usernames, same[uuid.UUID]),
		accounts:  cloneMap(s.accounts, func(a *models.Account) *models.Account { c := *a; return &c }),
		collections: cloneMap(s.collections, func(c *models.Collection) *models.Collection {
			cc := *c
			return &cc
		}),
	}
}

// Store is safe for concurrent use.
type Store struct {
	txMu    sync.Mutex   // held for the whole of a transaction or live write
	mu      sync.RWMutex // guards current
	current *state

	faultMu sync.Mutex
	faults  map[string]error
}

var _ database.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		current: newState(),
		faults:  make(map[string]error),
	}
}

// FailOn makes every later call of the write operation op return err.
func (s *Store) FailOn(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// ClearFaults removes all injected failures.
func (s *Store) ClearFaults() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = make(map[string]error)
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, u database.Unit) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return utils.NewTransientError("transaction not started", err)
	}

	s.mu.RLock()
	working := s.current.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &unit{store: s, st: working, mu: &sync.Mutex{}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return utils.NewTransientError("transaction not committed", err)
	}

	s.mu.Lock()
	s.current = working
	s.mu.Unlock()
	return nil
}

func (s *Store) Snapshot() database.Unit {
	return &unit{store: s}
}

func (s *Store) EnsureIndexes(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

// unit operates on a transaction's private state, or on the live state when
// st is nil.
type unit struct {
	store *Store
	st    *state
	mu    *sync.Mutex
}

func (u *unit) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return utils.NewTransientError("store unavailable", err)
	}
	if u.st != nil {
		u.mu.Lock()
		defer u.mu.Unlock()
		return fn(u.st)
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	return fn(u.store.current)
}

// write runs fn after checking for an injected failure. Every fn validates
// before it mutates, so a failed single write leaves no trace even outside a
// transaction.
func (u *unit) write(ctx context.Context, op string, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return utils.NewTransientError("store unavailable", err)
	}
	if err := u.store.fault(op); err != nil {
		return err
	}
	if u.st != nil {
		u.mu.Lock()
		defer u.mu.Unlock()
		return fn(u.st)
	}
	u.store.txMu.Lock()
	defer u.store.txMu.Unlock()
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	return fn(u.store.current)
}

func (u *unit) Tags() database.TagRepository               { return &tagRepo{u} }
func (u *unit) Links() database.LinkRepository             { return &linkRepo{u} }
func (u *unit) Questions() database.QuestionRepository     { return &questionRepo{u} }
func (u *unit) Answers() database.AnswerRepository         { return &answerRepo{u} }
func (u *unit) Votes() database.VoteRepository             { return &voteRepo{u} }
func (u *unit) Users() database.UserRepository             { return &userRepo{u} }
func (u *unit) Accounts() database.AccountRepository       { return &accountRepo{u} }
func (u *unit) Collections() database.CollectionRepository { return &collectionRepo{u} }

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
