package testutil

import (
	"context"
	"time"

	id "carelink/pkg/domain"
	"carelink/pkg/requestcontext"
)

// AuthedContext builds a context carrying the identity the auth middleware
// would have set. Useful for service tests that skip the HTTP chain.
func AuthedContext(userID id.UserID, orgID id.OrgID, role string) context.Context {
	ctx := context.Background()
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithOrgID(ctx, orgID)
	ctx = requestcontext.WithRole(ctx, role)
	return ctx
}

// ContextAt pins the request-scoped clock so assertions on timestamps are
// exact instead of approximate.
func ContextAt(ctx context.Context, at time.Time) context.Context {
	return requestcontext.WithTime(ctx, at)
}
