package grpc

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"

	"github.com/dmitrijs2005/medlogbook/internal/common"
	"github.com/dmitrijs2005/medlogbook/internal/server/auth"
	"github.com/dmitrijs2005/medlogbook/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const actorKey ctxKey = "actor"

// publicMethods skip authentication.
var publicMethods = map[string]bool{
	FullMethod(MethodPing): true,
}

var (
	studentOnly  = []models.Role{models.RoleStudent}
	reviewerOnly = []models.Role{models.RoleFaculty, models.RoleHOD}
)

// methodRoles lists the roles allowed to call a method. Methods not listed
// are open to every authenticated actor; the services still apply ownership
// and scope checks.
var methodRoles = map[string][]models.Role{
	FullMethod(MethodCreateEntry):        studentOnly,
	FullMethod(MethodEditEntry):          studentOnly,
	FullMethod(MethodDeleteEntry):        studentOnly,
	FullMethod(MethodSubmitEntry):        studentOnly,
	FullMethod(MethodPresignUpload):      studentOnly,
	FullMethod(MethodSignEntry):          reviewerOnly,
	FullMethod(MethodRejectEntry):        reviewerOnly,
	FullMethod(MethodBulkSign):           reviewerOnly,
	FullMethod(MethodListForReview):      reviewerOnly,
	FullMethod(MethodBulkSignCandidates): reviewerOnly,
	FullMethod(MethodGetAutoReview):      reviewerOnly,
	FullMethod(MethodSetAutoReview):      reviewerOnly,
	FullMethod(MethodSignaturesBySigner): reviewerOnly,
}

func roleAllowed(method string, role models.Role) bool {
	allowed, ok := methodRoles[method]
	if !ok {
		return true
	}
	return slices.Contains(allowed, role)
}

// WithActor stores the authenticated actor in ctx.
func WithActor(ctx context.Context, a *models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor placed by the interceptor, if any.
func ActorFromContext(ctx context.Context) (*models.Actor, bool) {
	a, ok := ctx.Value(actorKey).(*models.Actor)
	return a, ok && a != nil
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	actorID, err := auth.GetActorIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	actor, err := s.actors.Get(ctx, actorID)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorUnauthorized):
		return nil, status.Error(codes.Unauthenticated, "unknown actor")
	case errors.Is(err, common.ErrForbidden):
		return nil, status.Error(codes.PermissionDenied, "actor is banned")
	default:
		s.logger.Error(ctx, "actor lookup failed", "actor_id", actorID, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	if !roleAllowed(info.FullMethod, actor.Role) {
		return nil, status.Error(codes.PermissionDenied, "role not allowed")
	}

	return handler(WithActor(ctx, actor), req)
}

// recoveryInterceptor turns a handler panic into codes.Internal.
func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "handler panic", "method", info.FullMethod, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
