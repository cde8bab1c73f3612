package itinerary

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles itineraries persistence.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Create inserts it and fills in its ID and CreatedAt.
func (s *Store) Create(ctx context.Context, it *Itinerary) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO itineraries (uid, budget, travel_style, interests, duration, location_preferences, itinerary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, created_at
	`, it.UID, it.Preferences.Budget, it.Preferences.TravelStyle, it.Preferences.Interests,
		it.Preferences.Duration, it.Preferences.LocationPreferences, it.Text,
	).Scan(&it.ID, &it.CreatedAt)
}

// ListByUser returns the newest itineraries of uid first.
func (s *Store) ListByUser(ctx context.Context, uid string, limit int) ([]Itinerary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, uid, budget, travel_style, interests, duration, location_preferences, itinerary, created_at
		FROM itineraries
		WHERE uid = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, uid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Itinerary
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Get returns one itinerary owned by uid.
func (s *Store) Get(ctx context.Context, uid, id string) (Itinerary, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id::text, uid, budget, travel_style, interests, duration, location_preferences, itinerary, created_at
		FROM itineraries
		WHERE uid = $1 AND id::text = $2
	`, uid, id)
	it, err := scanItinerary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Itinerary{}, ErrNotFound
	}
	return it, err
}

func scanItinerary(row pgx.Row) (Itinerary, error) {
	var it Itinerary
	err := row.Scan(&it.ID, &it.UID,
		&it.Preferences.Budget, &it.Preferences.TravelStyle, &it.Preferences.Interests,
		&it.Preferences.Duration, &it.Preferences.LocationPreferences,
		&it.Text, &it.CreatedAt)
	return it, err
}
