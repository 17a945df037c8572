// Package httpkit provides HTTP utilities including caller identity abstraction.
package httpkit

import (
	"context"

	"medtour_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Actor types recorded on audit events.
const (
	ActorSystem      = "system"
	ActorCoordinator = "coordinator"
	ActorPatient     = "patient"
)

// Identity is the caller as asserted by the upstream access layer.
// Enforcement happens upstream; the engine only uses it to attribute events.
type Identity interface {
	// ActorID returns the caller's identifier, empty for anonymous callers.
	ActorID() string
	// ActorType returns one of ActorSystem, ActorCoordinator or ActorPatient.
	ActorType() string
	// IsAuthenticated returns true when a verified token was presented.
	IsAuthenticated() bool
}

type identity struct {
	actorID       string
	actorType     string
	authenticated bool
}

func (i *identity) ActorID() string       { return i.actorID }
func (i *identity) ActorType() string     { return i.actorType }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an anonymous identity if the request carried no verified token.
func GetIdentity(c *gin.Context) Identity {
	actorID := c.GetString(ContextActorIDKey)
	if actorID == "" {
		return &identity{}
	}
	return &identity{
		actorID:       actorID,
		actorType:     c.GetString(ContextActorTypeKey),
		authenticated: true,
	}
}

// ContextWithIdentity copies the caller identity into a request context for logging.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	if id == nil || !id.IsAuthenticated() {
		return ctx
	}
	return context.WithValue(ctx, logger.ActorIDKey, id.ActorID())
}

// NormalizeActorType maps a role claim or free-form actor label onto a known actor type.
func NormalizeActorType(value string) string {
	switch value {
	case ActorSystem, "service", "cron":
		return ActorSystem
	case ActorPatient:
		return ActorPatient
	default:
		return ActorCoordinator
	}
}
