package contextkeys

import (
	"context"

	"github.com/vkart/vkart-bot/types"
)

type contextKey string

const (
	userKey         contextKey = "user"
	updateKindKey   contextKey = "update_kind"
	callbackDataKey contextKey = "callback_data"
)

type UpdateKind string

const (
	UpdateKindCommand     UpdateKind = "command"
	UpdateKindText        UpdateKind = "text"
	UpdateKindClickButton UpdateKind = "click_button"
	UpdateKindUnknown     UpdateKind = "unknown"
)

func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func GetUser(ctx context.Context) (*types.User, bool) {
	user, ok := ctx.Value(userKey).(*types.User)
	return user, ok && user != nil
}

func WithUpdateKind(ctx context.Context, kind UpdateKind) context.Context {
	return context.WithValue(ctx, updateKindKey, kind)
}

func GetUpdateKind(ctx context.Context) (UpdateKind, bool) {
	kind, ok := ctx.Value(updateKindKey).(UpdateKind)
	return kind, ok
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	data, ok := ctx.Value(callbackDataKey).(string)
	return data, ok
}
