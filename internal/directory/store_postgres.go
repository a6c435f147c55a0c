package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/matiasgallardo196/multiPlatformVenue-back/internal/roles"
	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/platform/sentinel"
)

// Postgres reads actor/person/place rows owned by the account and venue CRUD
// services. This store never writes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Actor(ctx context.Context, id string) (*Actor, error) {
	var a Actor
	var placeID sql.NullString
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_name, role, place_id FROM users WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserName, &role, &placeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find actor: %w", err)
	}
	a.Role = roles.Role(role)
	a.PlaceID = placeID.String
	return &a, nil
}

func (s *Postgres) Person(ctx context.Context, id string) (*Person, error) {
	var p Person
	var name, lastName, nickname, gender sql.NullString
	var urls pq.StringArray
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, last_name, nickname, gender, profile_url
		   FROM persons WHERE id = $1`, id,
	).Scan(&p.ID, &name, &lastName, &nickname, &gender, &urls)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find person: %w", err)
	}
	p.Name = name.String
	p.LastName = lastName.String
	p.Nickname = nickname.String
	p.Gender = gender.String
	p.ProfileURL = urls
	return &p, nil
}

func (s *Postgres) Place(ctx context.Context, id string) (*Place, error) {
	places, err := s.Places(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return places[0], nil
}

func (s *Postgres) Places(ctx context.Context, ids []string) ([]*Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, city, email FROM places WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("find places: %w", err)
	}
	defer rows.Close()

	var out []*Place
	for rows.Next() {
		var p Place
		var name, city, email sql.NullString
		if err := rows.Scan(&p.ID, &name, &city, &email); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		p.Name = name.String
		p.City = city.String
		p.Email = email.String
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Postgres) CountPersons(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM persons`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return n, nil
}

func (s *Postgres) CountPlaces(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM places`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count places: %w", err)
	}
	return n, nil
}
