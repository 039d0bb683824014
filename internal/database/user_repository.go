// internal/database/user_repository.go
package database

import (
	"context"
	"strings"
	"time"

	"devoverflow/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"` // Lower-cased, unique
	HashedPassword string    `bson:"hashedPassword,omitempty"`
	Image          string    `bson:"image,omitempty"`
	Reputation     int       `bson:"reputation"`
	CreatedAt      time.Time `bson:"createdAt"`
}

// AccountDocument links a user to an identity provider login
type AccountDocument struct {
	ID                string    `bson:"_id"`
	UserID            string    `bson:"userId"`
	Provider          string    `bson:"provider"`
	ProviderAccountID string    `bson:"providerAccountId"`
	CreatedAt         time.Time `bson:"createdAt"`
}

func userDocumentToModel(doc *UserDocument) (*models.User, error) {
	id, err := parseID(doc.ID, "user")
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:             id,
		Name:           doc.Name,
		Username:       doc.Username,
		Email:          doc.Email,
		HashedPassword: doc.HashedPassword,
		Image:          doc.Image,
		Reputation:     doc.Reputation,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

type userRepository struct {
	u *mongoUnit
}

func (r *userRepository) Insert(ctx context.Context, user *models.User) error {
	defer r.u.lock()()

	_, err := r.u.db.Users.InsertOne(ctx, UserDocument{
		ID:             user.ID.String(),
		Name:           user.Name,
		Username:       user.Username,
		Email:          strings.ToLower(user.Email),
		HashedPassword: user.HashedPassword,
		Image:          user.Image,
		Reputation:     user.Reputation,
		CreatedAt:      user.CreatedAt,
	})
	return classify(err, "user")
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer r.u.lock()()

	var doc UserDocument
	if err := r.u.db.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, classify(err, "user")
	}
	return userDocumentToModel(&doc)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.u.lock()()

	var doc UserDocument
	err := r.u.db.Users.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&doc)
	if err != nil {
		return nil, classify(err, "user")
	}
	return userDocumentToModel(&doc)
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	defer r.u.lock()()

	n, err := r.u.db.Users.CountDocuments(ctx, bson.M{})
	return int(n), classify(err, "user")
}

type accountRepository struct {
	u *mongoUnit
}

func (r *accountRepository) Find(ctx context.Context, provider, providerAccountID string) (*models.Account, error) {
	defer r.u.lock()()

	var doc AccountDocument
	err := r.u.db.Accounts.FindOne(ctx, bson.M{
		"provider":          provider,
		"providerAccountId": providerAccountID,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "account")
	}

	id, err := parseID(doc.ID, "account")
	if err != nil {
		return nil, err
	}
	userID, err := parseID(doc.UserID, "user")
	if err != nil {
		return nil, err
	}
	return &models.Account{
		ID:                id,
		UserID:            userID,
		Provider:          doc.Provider,
		ProviderAccountID: doc.ProviderAccountID,
		CreatedAt:         doc.CreatedAt,
	}, nil
}

func (r *accountRepository) Insert(ctx context.Context, a *models.Account) error {
	defer r.u.lock()()

	_, err := r.u.db.Accounts.InsertOne(ctx, AccountDocument{
		ID:                a.ID.String(),
		UserID:            a.UserID.String(),
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		CreatedAt:         a.CreatedAt,
	})
	return classify(err, "account")
}
