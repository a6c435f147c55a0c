// Package roles defines the operational role lattice. Every workflow
// operation is gated through Satisfies; the functions here are total and
// side-effect-free.
package roles

// Role is a closed enum. String comparison against raw input happens only in
// Parse; the rest of the codebase works with the typed constants.
type Role string

const (
	Admin       Role = "admin"
	HeadManager Role = "head-manager"
	Manager     Role = "manager"
	Staff       Role = "staff"

	// Legacy roles kept for records created before the workflow existed.
	// They are outside the lattice: they subsume nothing and nothing
	// subsumes them.
	Editor Role = "editor"
	Viewer Role = "viewer"
)

// subsumes holds direct edges only; Accessible computes the transitive
// closure so a deeper hierarchy never needs this table rewritten.
var subsumes = map[Role][]Role{
	Admin:       {HeadManager},
	HeadManager: {Manager},
	Manager:     {Staff},
	Staff:       {},
	Editor:      {},
	Viewer:      {},
}

// closure is memoized at init; the hierarchy is static.
var closure = func() map[Role][]Role {
	out := make(map[Role][]Role, len(subsumes))
	for r := range subsumes {
		visited := make(map[Role]bool)
		var order []Role
		var walk func(Role)
		walk = func(cur Role) {
			if visited[cur] {
				return
			}
			visited[cur] = true
			order = append(order, cur)
			for _, next := range subsumes[cur] {
				walk(next)
			}
		}
		walk(r)
		out[r] = order
	}
	return out
}()

// Accessible returns the role plus every role it transitively subsumes.
// Unknown roles yield only themselves.
func Accessible(r Role) []Role {
	if set, ok := closure[r]; ok {
		return append([]Role(nil), set...)
	}
	return []Role{r}
}

// Satisfies reports whether an actor holding actorRole may act as required.
func Satisfies(actorRole, required Role) bool {
	for _, r := range Accessible(actorRole) {
		if r == required {
			return true
		}
	}
	return false
}

// Valid reports whether r is one of the known roles.
func Valid(r Role) bool {
	_, ok := subsumes[r]
	return ok
}

// Parse converts raw input into a Role, reporting whether it is known.
func Parse(s string) (Role, bool) {
	r := Role(s)
	return r, Valid(r)
}
