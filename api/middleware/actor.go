package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mercatohq/mercato-backend/pkg/enums"
	"github.com/mercatohq/mercato-backend/pkg/logger"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

type contextKey string

const ctxActor contextKey = "actor"

// Actor identifies who is asking for a lifecycle change. The gateway in
// front of this service authenticates and stamps the headers; this
// middleware only parses them.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// WithActor injects the actor into the context. Exposed for tests.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the parsed actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ctxActor).(Actor)
	return actor, ok
}

// ActorContext parses the actor headers when present. Handlers that
// require an actor reject requests where parsing found nothing.
func ActorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawRole := strings.TrimSpace(r.Header.Get(actorRoleHeader))
			if rawRole == "" {
				next.ServeHTTP(w, r)
				return
			}

			role, err := enums.ParseActorRole(rawRole)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			actor := Actor{Role: role}
			if rawID := strings.TrimSpace(r.Header.Get(actorIDHeader)); rawID != "" {
				if id, err := uuid.Parse(rawID); err == nil {
					actor.ID = id
				}
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActorRole(ctx, string(role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
