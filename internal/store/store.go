// Package store persists users and their travel records.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/errorsx"
)

var ErrNotFound = errors.New("not found")

// DateLayout is the format of every date column (start_date, visit_date, valid_until, ...).
const DateLayout = "2006-01-02"

// DestinationKey is the normalized form destinations are matched on.
// It folds case with Unicode rules, so "ZÜRICH" and "zürich" agree.
func DestinationKey(destination string) string {
	return strings.ToLower(strings.TrimSpace(destination))
}

// Store is the entity gateway used by tool handlers. Create methods fill in
// the generated ID and CreatedAt of the record and return the ID. Lists are
// ordered by ID.
type Store interface {
	FindOrCreateUser(ctx context.Context, name, email string) (User, bool, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UpdatePreferences(ctx context.Context, userID int64, preferences string) error

	CreateItinerary(ctx context.Context, it *Itinerary) (int64, error)
	CreateVisitedPlace(ctx context.Context, p *VisitedPlace) (int64, error)
	CreateSavedTip(ctx context.Context, tip *SavedTip) (int64, error)
	CreateSafetyAlert(ctx context.Context, alert *SafetyAlert) (int64, error)

	ListItineraries(ctx context.Context, userID int64) ([]Itinerary, error)
	ListVisitedPlaces(ctx context.Context, userID int64) ([]VisitedPlace, error)
	ListSavedTips(ctx context.Context, userID int64) ([]SavedTip, error)

	// ActiveSafetyAlerts matches destination case-insensitively and skips
	// alerts whose valid_until is before asOf's date.
	ActiveSafetyAlerts(ctx context.Context, destination string, asOf time.Time) ([]SafetyAlert, error)

	Close() error
}

// Open connects the backend selected by cfg.Driver and creates the schema.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, errorsx.Wrap(fmt.Errorf("unsupported store driver %q", cfg.Driver), errorsx.ReasonConfig)
	}
}

// LoadUserHistory reads the user and every record they own.
func LoadUserHistory(ctx context.Context, s Store, userID int64) (UserHistory, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return UserHistory{}, err
	}
	its, err := s.ListItineraries(ctx, userID)
	if err != nil {
		return UserHistory{}, err
	}
	places, err := s.ListVisitedPlaces(ctx, userID)
	if err != nil {
		return UserHistory{}, err
	}
	tips, err := s.ListSavedTips(ctx, userID)
	if err != nil {
		return UserHistory{}, err
	}
	return UserHistory{
		User:          user,
		Itineraries:   nonNil(its),
		VisitedPlaces: nonNil(places),
		SavedTips:     nonNil(tips),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func storeErr(op string, err error) error {
	return errorsx.Wrap(fmt.Errorf("%s: %w", op, err), errorsx.ReasonStore)
}
