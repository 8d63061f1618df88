// Package authz defines the authorization collaborator the router depends
// on. The real auth surface is explicitly out of scope (spec §2's
// out-of-scope collaborators list); this package only carries the interface
// and a permissive default so the router can be exercised without it.
package authz

import "context"

// Authorizer decides whether subscriberID may issue commands against
// channelID. A real implementation lives behind an external auth service.
type Authorizer interface {
	Allow(ctx context.Context, subscriberID, channelID string) bool
}

// AllowAll is the default Authorizer: every request is authorized. Used
// when no external auth collaborator is wired, and in tests.
type AllowAll struct{}

func (AllowAll) Allow(context.Context, string, string) bool { return true }
