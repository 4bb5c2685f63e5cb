package expertRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"glowbook/models"
	"glowbook/utils"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrNotFound indicates the expert id resolves to nothing.
var ErrNotFound = errors.New("expert not found")

const cacheTTL = 5 * time.Minute

// ExpertRepository reads expert profiles. The booking core never writes them.
type ExpertRepository interface {
	GetByID(ctx context.Context, id string) (*models.Expert, error)
}

// MongoExpertRepo implements ExpertRepository with a Redis read-through
// cache in front of the experts collection.
type MongoExpertRepo struct {
	coll  *mongo.Collection
	cache *redis.Client
}

// NewMongoExpertRepo constructs an expert repository over the given database.
// cache may be nil; reads then go straight to Mongo.
func NewMongoExpertRepo(db *mongo.Database, cache *redis.Client) *MongoExpertRepo {
	return &MongoExpertRepo{coll: db.Collection("experts"), cache: cache}
}

func cacheKey(id string) string {
	return "expert:" + id
}

// GetByID retrieves an expert, preferring the cache. Cache failures are
// logged and fall through to Mongo.
func (repo *MongoExpertRepo) GetByID(ctx context.Context, id string) (*models.Expert, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logger := utils.GetLogger()

	if repo.cache != nil {
		if data, err := repo.cache.Get(ctx, cacheKey(id)).Result(); err == nil {
			var expert models.Expert
			if jsonErr := json.Unmarshal([]byte(data), &expert); jsonErr == nil {
				return &expert, nil
			}
			logger.Warn("discarding corrupt expert cache entry", zap.String("expertID", id))
		}
	}

	var expert models.Expert
	if err := repo.coll.FindOne(ctx, bson.M{"id": id}).Decode(&expert); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching expert with id %s: %w", id, err)
	}

	if repo.cache != nil {
		if data, err := json.Marshal(&expert); err == nil {
			if err := repo.cache.Set(ctx, cacheKey(id), data, cacheTTL).Err(); err != nil {
				logger.Warn("failed to cache expert", zap.String("expertID", id), zap.Error(err))
			}
		}
	}
	return &expert, nil
}
