package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Resolver turns an incoming request into a caller identity. A nil *User
// is the anonymous identity: resolution never fails a request, it only
// degrades to anonymous. Whether anonymous is acceptable is decided by
// the authorization gate, not here.
type Resolver struct {
	store  *Store
	signer *Signer
	logger *zap.Logger
}

func NewResolver(store *Store, signer *Signer, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, signer: signer, logger: logger}
}

// Resolve extracts a bearer token from the Authorization header,
// verifies it, and resolves its subject to a user record. Any failure
// along the way (auth disabled, header missing or not Bearer, bad
// signature, expired token, unknown subject) yields anonymous.
func (rv *Resolver) Resolve(r *http.Request) *User {
	ctx := r.Context()

	enabled, err := rv.store.Enabled(ctx)
	if err != nil {
		rv.logger.Warn("identity resolution degraded to anonymous", zap.Error(err))
		return nil
	}
	if !enabled {
		return nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil
	}

	username, err := rv.signer.Verify(strings.TrimSpace(parts[1]))
	if err != nil {
		rv.logger.Debug("token rejected", zap.Error(err))
		return nil
	}

	u, err := rv.store.Lookup(ctx, username)
	if err != nil {
		rv.logger.Debug("token subject not found", zap.String("subject", username))
		return nil
	}
	return u
}
