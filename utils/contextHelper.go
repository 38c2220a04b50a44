package utils

import "context"

type contextKey string

const (
	ContextKeyToken         contextKey = "token"
	ContextKeyUserId        contextKey = "user_id"
	ContextKeyUserName      contextKey = "user_name"
	ContextKeyDeviceId      contextKey = "device_id"
	ContextKeyCorrelationId contextKey = "correlation_id"
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyToken).(string)
	return v, ok
}

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ContextKeyUserId).(int)
	return v, ok
}

func GetUserNameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyUserName).(string)
	return v, ok
}

func GetDeviceIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyDeviceId).(string)
	return v, ok
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyCorrelationId).(string)
	return v, ok
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextKeyToken, token)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return context.WithValue(ctx, ContextKeyUserId, userId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return context.WithValue(ctx, ContextKeyUserName, userName)
}

func SetDeviceIdInContext(ctx context.Context, deviceId string) context.Context {
	return context.WithValue(ctx, ContextKeyDeviceId, deviceId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}
