package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/litergames/litergames-backend/internal/apperror"
	"github.com/litergames/litergames-backend/internal/entity"
)

const avatarURLFormat = "https://api.dicebear.com/7.x/avataaars/svg?seed=%s"

type UserRepository interface {
	GetOrCreate(ctx context.Context, username string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

type dbUser struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) UserRepository {
	return &dbUser{
		client: client,
	}
}

// GetOrCreate returns the user registered under a username, creating a guest
// account with a generated avatar on first login. Usernames are matched
// case-insensitively.
func (that *dbUser) GetOrCreate(ctx context.Context, username string) (*entity.User, error) {
	nameKey := "user:name:" + strings.ToLower(username)

	response, err := that.client.Get(ctx, nameKey).Result()
	if err == nil {
		var existingUser entity.User
		if err = json.Unmarshal([]byte(response), &existingUser); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user: %w", err)
		}
		return &existingUser, nil
	}

	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}

	user := &entity.User{
		ID:       uuid.NewString(),
		Username: username,
		Avatar:   fmt.Sprintf(avatarURLFormat, username),
	}

	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user: %w", err)
	}

	pipe := that.client.TxPipeline()
	pipe.Set(ctx, nameKey, userJSON, 0)
	pipe.Set(ctx, "user:id:"+user.ID, userJSON, 0)
	if _, err = pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to set user: %w", err)
	}

	return user, nil
}

// GetByID looks a user up by its stable ID.
func (that *dbUser) GetByID(ctx context.Context, id string) (*entity.User, error) {
	response, err := that.client.Get(ctx, "user:id:"+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	var existingUser entity.User
	if err = json.Unmarshal([]byte(response), &existingUser); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &existingUser, nil
}
