package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/salesfacts_backend/appctx"
)

var (
	ContextKeyTenantId      = appctx.ContextKeyTenantId
	ContextKeyResellerId    = appctx.ContextKeyResellerId
	ContextKeyUploadId      = appctx.ContextKeyUploadId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyWorkerId      = appctx.ContextKeyWorkerId

	ContextKeyIsAdmin         = appctx.ContextKeyIsAdmin
	ContextKeySkipTenantScope = appctx.ContextKeySkipTenantScope
)

func GetTenantIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyTenantId)
}

func GetResellerIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyResellerId)
}

func GetUploadIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUploadId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetWorkerIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyWorkerId)
}

func SetTenantIdInContext(ctx context.Context, tenantId string) context.Context {
	return appctx.Set(ctx, ContextKeyTenantId, tenantId)
}

func SetResellerIdInContext(ctx context.Context, resellerId int) context.Context {
	return appctx.Set(ctx, ContextKeyResellerId, resellerId)
}

func SetUploadIdInContext(ctx context.Context, uploadId int) context.Context {
	return appctx.Set(ctx, ContextKeyUploadId, uploadId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetWorkerIdInContext(ctx context.Context, workerId string) context.Context {
	return appctx.Set(ctx, ContextKeyWorkerId, workerId)
}

func GetIsAdminFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeyIsAdmin)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}

func GetSkipTenantScopeFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeySkipTenantScope)
}

func SetSkipTenantScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipTenantScope, skip)
}
