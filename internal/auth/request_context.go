package auth

import (
	"context"

	models "infinite-experiment/plp/internal/models/gorm"
)

type contextKey string

var (
	userClaimsKey contextKey = "user_claims"
	actorKey      contextKey = "actor"
	requestIDKey  contextKey = "request_id"
)

func SetUserClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, userClaimsKey, claims)
}

func GetUserClaims(ctx context.Context) *UserClaims {
	if claims, ok := ctx.Value(userClaimsKey).(*UserClaims); ok {
		return claims
	}
	return nil
}

// SetActor stores the resolved acting user.
func SetActor(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, actorKey, user)
}

func GetActor(ctx context.Context) *models.User {
	if user, ok := ctx.Value(actorKey).(*models.User); ok {
		return user
	}
	return nil
}

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
