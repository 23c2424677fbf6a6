package storage

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/army-battle/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB backend.
type MongoConfig struct {
	URI      string // e.g. mongodb://localhost:27017
	Database string // e.g. army_battle
}

// MongoStore holds a client shared by the army and user repositories.
// Collections are named armies and users.
type MongoStore struct {
	client     *mongo.Client
	armies     *mongo.Collection
	users      *mongo.Collection
	ctxTimeout time.Duration
}

type mongoArmy struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty"`
	Owner     string                 `bson:"owner"`
	Size      model.Size             `bson:"size"`
	Entities  []model.EntityDocument `bson:"entities"`
	CreatedAt time.Time              `bson:"created_at"`
	UpdatedAt time.Time              `bson:"updated_at"`
}

type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	PasswordHash string             `bson:"password_hash"`
	IsAdmin      bool               `bson:"is_admin"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// NewMongoStore establishes connection and ensures indexes.
func NewMongoStore(cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "army_battle"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, wrap("connect mongo", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, wrap("ping mongo", err)
	}

	db := client.Database(cfg.Database)
	store := &MongoStore{
		client:     client,
		armies:     db.Collection("armies"),
		users:      db.Collection("users"),
		ctxTimeout: 5 * time.Second,
	}
	if err := store.ensureIndexes(); err != nil {
		return nil, wrap("mongo indexes", err)
	}
	return store, nil
}

func (m *MongoStore) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.ctxTimeout)
	defer cancel()
	emailIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	}
	if _, err := m.users.Indexes().CreateOne(ctx, emailIdx); err != nil {
		return err
	}
	ownerIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner", Value: 1}},
		Options: options.Index().SetName("owner"),
	}
	_, err := m.armies.Indexes().CreateOne(ctx, ownerIdx)
	return err
}

// Armies returns the army repository view of the store.
func (m *MongoStore) Armies() *MongoArmyRepo { return &MongoArmyRepo{store: m} }

// Users returns the user repository view of the store.
func (m *MongoStore) Users() *MongoUserRepo { return &MongoUserRepo{store: m} }

// Close terminates connection.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.ctxTimeout)
}

// MongoArmyRepo implements ArmyRepository on MongoDB.
type MongoArmyRepo struct {
	store *MongoStore
}

func (r *MongoArmyRepo) Insert(ctx context.Context, doc model.ArmyDocument) (model.ArmyDocument, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	rec := mongoArmy{
		Owner:     doc.Owner,
		Size:      doc.Size,
		Entities:  nonNilEntities(doc.Entities),
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := r.store.armies.InsertOne(ctx, rec)
	if err != nil {
		return model.ArmyDocument{}, wrap("insert army", err)
	}
	rec.ID = res.InsertedID.(primitive.ObjectID)
	return rec.toModel(), nil
}

func (r *MongoArmyRepo) FindByID(ctx context.Context, id string) (model.ArmyDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.ArmyDocument{}, ErrArmyNotFound
	}

	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	var rec mongoArmy
	err = r.store.armies.FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ArmyDocument{}, ErrArmyNotFound
	}
	if err != nil {
		return model.ArmyDocument{}, wrap("find army", err)
	}
	return rec.toModel(), nil
}

func (r *MongoArmyRepo) FindByOwner(ctx context.Context, owner string) ([]model.ArmyDocument, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	cur, err := r.store.armies.Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, wrap("find armies", err)
	}
	var recs []mongoArmy
	if err := cur.All(ctx, &recs); err != nil {
		return nil, wrap("decode armies", err)
	}

	result := make([]model.ArmyDocument, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.toModel())
	}
	return result, nil
}

func (r *MongoArmyRepo) Update(ctx context.Context, doc model.ArmyDocument) error {
	oid, err := primitive.ObjectIDFromHex(doc.ID)
	if err != nil {
		return ErrArmyNotFound
	}

	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	res, err := r.store.armies.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"size":       doc.Size,
		"entities":   nonNilEntities(doc.Entities),
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return wrap("update army", err)
	}
	if res.MatchedCount == 0 {
		return ErrArmyNotFound
	}
	return nil
}

func (r *MongoArmyRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrArmyNotFound
	}

	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	res, err := r.store.armies.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return wrap("delete army", err)
	}
	if res.DeletedCount == 0 {
		return ErrArmyNotFound
	}
	return nil
}

func (a mongoArmy) toModel() model.ArmyDocument {
	return model.ArmyDocument{
		ID:        a.ID.Hex(),
		Owner:     a.Owner,
		Size:      a.Size,
		Entities:  nonNilEntities(a.Entities),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// MongoUserRepo implements UserRepository on MongoDB.
type MongoUserRepo struct {
	store *MongoStore
}

func (r *MongoUserRepo) Create(ctx context.Context, user model.UserDocument) (model.UserDocument, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	rec := mongoUser{
		Email:        model.NormalizeEmail(user.Email),
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err := r.store.users.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return model.UserDocument{}, ErrUserExists
	}
	if err != nil {
		return model.UserDocument{}, wrap("insert user", err)
	}
	rec.ID = res.InsertedID.(primitive.ObjectID)
	return rec.toModel(), nil
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (model.UserDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.UserDocument{}, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (model.UserDocument, error) {
	return r.findOne(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (model.UserDocument, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	var rec mongoUser
	err := r.store.users.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.UserDocument{}, ErrUserNotFound
	}
	if err != nil {
		return model.UserDocument{}, wrap("find user", err)
	}
	return rec.toModel(), nil
}

func (r *MongoUserRepo) List(ctx context.Context) ([]model.UserDocument, error) {
	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	cur, err := r.store.users.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, wrap("list users", err)
	}
	var recs []mongoUser
	if err := cur.All(ctx, &recs); err != nil {
		return nil, wrap("decode users", err)
	}

	result := make([]model.UserDocument, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.toModel())
	}
	return result, nil
}

func (r *MongoUserRepo) Update(ctx context.Context, user model.UserDocument) error {
	oid, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return ErrUserNotFound
	}

	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	res, err := r.store.users.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"email":         model.NormalizeEmail(user.Email),
		"name":          user.Name,
		"password_hash": user.PasswordHash,
		"is_admin":      user.IsAdmin,
		"updated_at":    time.Now().UTC(),
	}})
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	if err != nil {
		return wrap("update user", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoUserRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}

	ctx, cancel := r.store.withTimeout(ctx)
	defer cancel()

	res, err := r.store.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return wrap("delete user", err)
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u mongoUser) toModel() model.UserDocument {
	return model.UserDocument{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func nonNilEntities(entities []model.EntityDocument) []model.EntityDocument {
	if entities == nil {
		return []model.EntityDocument{}
	}
	return entities
}
