package identity

import "sort"

// Identity represents the acting principal: an optional user id plus the
// set of permission tokens granted to it. An Identity is immutable after
// construction and is built once per inbound operation context.
type Identity struct {
	id     string
	tokens map[string]struct{}
}

// New builds an Identity. An empty id means an anonymous principal.
func New(id string, tokens ...string) *Identity {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return &Identity{id: id, tokens: set}
}

// Anonymous returns an Identity with no id and no tokens.
func Anonymous() *Identity {
	return New("")
}

// RequiredID returns the principal id, or an UnauthenticatedError when the
// Identity carries none.
func (u *Identity) RequiredID() (string, error) {
	if u == nil || u.id == "" {
		return "", &UnauthenticatedError{Message: "identity required"}
	}
	return u.id, nil
}

// OptionalID returns the principal id, or "" when absent. Never fails.
func (u *Identity) OptionalID() string {
	if u == nil {
		return ""
	}
	return u.id
}

// Tokens returns the granted tokens, sorted.
func (u *Identity) Tokens() []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, len(u.tokens))
	for t := range u.tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasAny reports whether the principal holds at least one of the requested
// tokens. An empty request is always permitted.
func (u *Identity) HasAny(requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	for _, t := range requested {
		if _, ok := u.tokens[t]; ok {
			return true
		}
	}
	return false
}

// CheckAny fails with an AccessDeniedError when HasAny is false.
func (u *Identity) CheckAny(requested []string) error {
	if !u.HasAny(requested) {
		return &AccessDeniedError{Granted: u.Tokens(), Requested: requested}
	}
	return nil
}

// HasAll reports whether the principal holds every requested token. An
// empty request is always permitted.
func (u *Identity) HasAll(requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	if u == nil {
		return false
	}
	for _, t := range requested {
		if _, ok := u.tokens[t]; !ok {
			return false
		}
	}
	return true
}

// CheckAll fails with an AccessDeniedError when HasAll is false.
func (u *Identity) CheckAll(requested []string) error {
	if !u.HasAll(requested) {
		return &AccessDeniedError{Granted: u.Tokens(), Requested: requested}
	}
	return nil
}
