package source

import "fmt"

// ACL holds the permission tokens required per operation verb. Default
// tokens are required on every gated operation in addition to the verb's
// own tokens. A Source without an ACL performs no permission checks.
type ACL struct {
	Default []string
	Verbs   map[string][]string
}

// TokensFor returns the full token set required for a verb.
func (a *ACL) TokensFor(verb string) []string {
	if a == nil {
		return nil
	}
	tokens := make([]string, 0, len(a.Default)+len(a.Verbs[verb]))
	tokens = append(tokens, a.Default...)
	tokens = append(tokens, a.Verbs[verb]...)
	return tokens
}

// read-gated and write-gated verbs, matching the Source operation set.
var readVerbs = []string{"query", "count", "get", "find"}
var writeVerbs = []string{"create", "patch", "import", "remove"}

// DefaultACL builds the conventional token rules for a source name:
// "{name}.{verb}" per operation, plus broad "{name}.read" on read
// operations and "{name}.write" on mutating operations. Either the
// narrow or the broad token satisfies the gate.
func DefaultACL(name string) *ACL {
	verbs := make(map[string][]string, len(readVerbs)+len(writeVerbs))
	for _, verb := range readVerbs {
		verbs[verb] = []string{
			fmt.Sprintf("%s.%s", name, verb),
			fmt.Sprintf("%s.read", name),
		}
	}
	for _, verb := range writeVerbs {
		verbs[verb] = []string{
			fmt.Sprintf("%s.%s", name, verb),
			fmt.Sprintf("%s.write", name),
		}
	}
	return &ACL{Verbs: verbs}
}
