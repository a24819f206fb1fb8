package session

import (
	"context"

	"github.com/go-blog-auth/internal/domain"
)

// Identity record keys inside the session attribute map. No other package
// reads or writes these; all access goes through Login/Logout/Identity so the
// attribute schema stays in one place.
const (
	attrUserID          = "id"
	attrName            = "name"
	attrEmail           = "email"
	attrIsEmailVerified = "is_email_verified"
)

// unexported, collision-proof context key
type stateContextKeyType struct{}

var stateKey = stateContextKeyType{}

// WithState installs the per-request session state; called by the middleware
// before the downstream handler chain runs.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, stateKey, st)
}

// FromContext extracts the per-request session state.
func FromContext(ctx context.Context) (*State, bool) {
	st, ok := ctx.Value(stateKey).(*State)
	return st, ok
}

// Login overwrites the session attributes with the identity record. The next
// middleware exit phase sees the session as modified and persists it under a
// fresh or existing session id.
func Login(ctx context.Context, identity domain.Identity) {
	st, ok := FromContext(ctx)
	if !ok {
		return
	}
	st.Clear()
	st.Set(attrUserID, identity.UserID)
	st.Set(attrName, identity.Name)
	st.Set(attrEmail, identity.Email)
	st.Set(attrIsEmailVerified, identity.IsEmailVerified)
}

// Logout clears all session attributes. The middleware exit phase then
// deletes the store key and the cookie. Calling Logout on an already-empty
// session leaves it empty.
func Logout(ctx context.Context) {
	st, ok := FromContext(ctx)
	if !ok {
		return
	}
	st.Clear()
}

// Identity decodes the identity record from the session, if one is present.
// A record that no longer matches the expected shape reports not-present, so
// stale or hand-edited session data degrades to logged-out.
func Identity(ctx context.Context) (*domain.Identity, bool) {
	st, ok := FromContext(ctx)
	if !ok || st.Empty() {
		return nil, false
	}

	id, ok := intAttr(st, attrUserID)
	if !ok {
		return nil, false
	}
	name, ok := stringAttr(st, attrName)
	if !ok {
		return nil, false
	}
	email, ok := stringAttr(st, attrEmail)
	if !ok {
		return nil, false
	}
	verified, ok := boolAttr(st, attrIsEmailVerified)
	if !ok {
		return nil, false
	}

	return &domain.Identity{
		UserID:          id,
		Name:            name,
		Email:           email,
		IsEmailVerified: verified,
	}, true
}

// RequireIdentity returns the caller's identity or ErrUnauthorized.
func RequireIdentity(ctx context.Context) (*domain.Identity, error) {
	identity, ok := Identity(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return identity, nil
}

// intAttr tolerates both the int written by Login during the same request and
// the float64 produced when the session round-trips through JSON.
func intAttr(st *State, key string) (int, bool) {
	v, ok := st.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}

func stringAttr(st *State, key string) (string, bool) {
	v, ok := st.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func boolAttr(st *State, key string) (bool, bool) {
	v, ok := st.Get(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
