package auditctx

import "context"

// Actor captures request metadata about the player that initiated an operation.
type Actor struct {
	PlayerID  string
	Name      string
	IPAddress string
	UserAgent string
}

type actorContextKey struct{}

// WithActor injects actor metadata into ctx so service layers can attach it to audit entries.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// Metadata renders the request fields of actor as audit metadata. It returns nil when
// nothing is known about the request.
func (a Actor) Metadata() map[string]any {
	meta := map[string]any{}
	if a.IPAddress != "" {
		meta["ip_address"] = a.IPAddress
	}
	if a.UserAgent != "" {
		meta["user_agent"] = a.UserAgent
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
