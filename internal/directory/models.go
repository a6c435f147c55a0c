// Package directory exposes the identity and venue lookups the ban workflow
// consumes. It owns no decision logic; creating and mutating these records
// belongs to other services.
package directory

import "github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"

// Actor is the workflow view of a user: role plus operational scope. An
// actor optionally belongs to exactly one place, which determines their
// city.
type Actor struct {
	ID       string
	UserName string
	Role     roles.Role
	PlaceID  string // empty when the actor has no assigned place
}

// Person is the identity a ban applies to.
type Person struct {
	ID         string
	Name       string
	LastName   string
	Nickname   string
	Gender     string
	ProfileURL []string
}

// DisplayName joins the name fields for sorting and search.
func (p Person) DisplayName() string {
	out := p.Name
	if p.LastName != "" {
		out += " " + p.LastName
	}
	if p.Nickname != "" {
		out += " " + p.Nickname
	}
	return out
}

// Place is a venue. City is the visibility-scoping unit.
type Place struct {
	ID    string
	Name  string
	City  string
	Email string
}
