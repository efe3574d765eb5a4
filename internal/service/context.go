package service

import "context"

type ownerKey struct{}

// WithOwner attaches the id of the account whose rows a request may touch
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFromContext returns the owner id set by WithOwner
func OwnerFromContext(ctx context.Context) string {
	ownerID, _ := ctx.Value(ownerKey{}).(string)
	return ownerID
}
