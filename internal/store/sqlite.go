package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/travelbot/internal/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		preferences TEXT,
		created_at DATETIME
	);`,
	`CREATE TABLE IF NOT EXISTS itineraries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		destination TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		days INTEGER,
		activities TEXT,
		budget REAL,
		created_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users (id)
	);`,
	`CREATE TABLE IF NOT EXISTS visited_places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		place_name TEXT NOT NULL,
		country TEXT,
		visit_date TEXT,
		rating INTEGER,
		notes TEXT,
		created_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users (id)
	);`,
	`CREATE TABLE IF NOT EXISTS saved_trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		destination TEXT,
		tip_category TEXT,
		tip_content TEXT,
		source TEXT,
		created_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users (id)
	);`,
	`CREATE TABLE IF NOT EXISTS safety_alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		destination TEXT NOT NULL,
		destination_key TEXT NOT NULL,
		alert_type TEXT,
		severity TEXT,
		description TEXT,
		valid_until TEXT,
		created_at DATETIME
	);`,
	`CREATE INDEX IF NOT EXISTS idx_safety_alerts_destination_key ON safety_alerts (destination_key);`,
}

// SQLite is the default Store, backed by a single database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, storeErr("sqlite open", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, storeErr("sqlite schema", err)
		}
	}
	logger.L.Info("sqlite store initialized", "path", path)
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) FindOrCreateUser(ctx context.Context, name, email string) (User, bool, error) {
	const op = "SQLite.FindOrCreateUser"

	u, err := s.userWhere(ctx, "email = ?", email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, false, storeErr(op, err)
	}

	u = User{Name: name, Email: email, CreatedAt: s.now().UTC()}
	res, err := s.db.ExecContext(ctx, `INSERT INTO users (name, email, created_at) VALUES (?,?,?);`,
		u.Name, u.Email, formatTimestamp(u.CreatedAt))
	if err != nil {
		return User{}, false, storeErr(op, err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return User{}, false, storeErr(op, err)
	}
	return u, true, nil
}

func (s *SQLite) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := s.userWhere(ctx, "id = ?", id)
	if err != nil {
		return User{}, storeErr("SQLite.GetUser", err)
	}
	return u, nil
}

func (s *SQLite) userWhere(ctx context.Context, cond string, arg any) (User, error) {
	var (
		u       User
		prefs   sql.NullString
		created any
	)
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, preferences, created_at FROM users WHERE `+cond+`;`, arg)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &prefs, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Preferences = stringPtr(prefs)
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

func (s *SQLite) UpdatePreferences(ctx context.Context, userID int64, preferences string) error {
	const op = "SQLite.UpdatePreferences"
	res, err := s.db.ExecContext(ctx, `UPDATE users SET preferences = ? WHERE id = ?;`, preferences, userID)
	if err != nil {
		return storeErr(op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storeErr(op, ErrNotFound)
	}
	return nil
}

func (s *SQLite) CreateItinerary(ctx context.Context, it *Itinerary) (int64, error) {
	it.CreatedAt = s.now().UTC()
	id, err := s.insert(ctx, `INSERT INTO itineraries (user_id, destination, start_date, end_date, days, activities, budget, created_at) VALUES (?,?,?,?,?,?,?,?);`,
		it.UserID, it.Destination, it.StartDate, it.EndDate, it.Days, it.Activities, it.Budget, formatTimestamp(it.CreatedAt))
	if err != nil {
		return 0, storeErr("SQLite.CreateItinerary", err)
	}
	it.ID = id
	return id, nil
}

func (s *SQLite) CreateVisitedPlace(ctx context.Context, p *VisitedPlace) (int64, error) {
	p.CreatedAt = s.now().UTC()
	id, err := s.insert(ctx, `INSERT INTO visited_places (user_id, place_name, country, visit_date, rating, notes, created_at) VALUES (?,?,?,?,?,?,?);`,
		p.UserID, p.PlaceName, p.Country, p.VisitDate, p.Rating, p.Notes, formatTimestamp(p.CreatedAt))
	if err != nil {
		return 0, storeErr("SQLite.CreateVisitedPlace", err)
	}
	p.ID = id
	return id, nil
}

func (s *SQLite) CreateSavedTip(ctx context.Context, tip *SavedTip) (int64, error) {
	tip.CreatedAt = s.now().UTC()
	id, err := s.insert(ctx, `INSERT INTO saved_trips (user_id, destination, tip_category, tip_content, source, created_at) VALUES (?,?,?,?,?,?);`,
		tip.UserID, tip.Destination, tip.Category, tip.Content, tip.Source, formatTimestamp(tip.CreatedAt))
	if err != nil {
		return 0, storeErr("SQLite.CreateSavedTip", err)
	}
	tip.ID = id
	return id, nil
}

func (s *SQLite) CreateSafetyAlert(ctx context.Context, a *SafetyAlert) (int64, error) {
	a.CreatedAt = s.now().UTC()
	a.DestKey = DestinationKey(a.Destination)
	id, err := s.insert(ctx, `INSERT INTO safety_alerts (destination, destination_key, alert_type, severity, description, valid_until, created_at) VALUES (?,?,?,?,?,?,?);`,
		a.Destination, a.DestKey, a.AlertType, a.Severity, a.Description, a.ValidUntil, formatTimestamp(a.CreatedAt))
	if err != nil {
		return 0, storeErr("SQLite.CreateSafetyAlert", err)
	}
	a.ID = id
	return id, nil
}

func (s *SQLite) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLite) ListItineraries(ctx context.Context, userID int64) ([]Itinerary, error) {
	const op = "SQLite.ListItineraries"
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, destination, start_date, end_date, days, activities, budget, created_at FROM itineraries WHERE user_id = ? ORDER BY id ASC;`, userID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var out []Itinerary
	for rows.Next() {
		var (
			it         Itinerary
			start, end sql.NullString
			days       sql.NullInt64
			activities sql.NullString
			budget     sql.NullFloat64
			created    any
		)
		if err := rows.Scan(&it.ID, &it.UserID, &it.Destination, &start, &end, &days, &activities, &budget, &created); err != nil {
			return nil, storeErr(op, err)
		}
		it.StartDate, it.EndDate = start.String, end.String
		it.Days = intPtr(days)
		it.Activities = stringPtr(activities)
		if budget.Valid {
			b := budget.Float64
			it.Budget = &b
		}
		it.CreatedAt = parseTimestamp(created)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func (s *SQLite) ListVisitedPlaces(ctx context.Context, userID int64) ([]VisitedPlace, error) {
	const op = "SQLite.ListVisitedPlaces"
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, place_name, country, visit_date, rating, notes, created_at FROM visited_places WHERE user_id = ? ORDER BY id ASC;`, userID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var out []VisitedPlace
	for rows.Next() {
		var (
			p                       VisitedPlace
			country, visited, notes sql.NullString
			rating                  sql.NullInt64
			created                 any
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.PlaceName, &country, &visited, &rating, &notes, &created); err != nil {
			return nil, storeErr(op, err)
		}
		p.Country = country.String
		p.VisitDate = stringPtr(visited)
		p.Rating = intPtr(rating)
		p.Notes = stringPtr(notes)
		p.CreatedAt = parseTimestamp(created)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func (s *SQLite) ListSavedTips(ctx context.Context, userID int64) ([]SavedTip, error) {
	const op = "SQLite.ListSavedTips"
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, destination, tip_category, tip_content, source, created_at FROM saved_trips WHERE user_id = ? ORDER BY id ASC;`, userID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var out []SavedTip
	for rows.Next() {
		var (
			tip                                   SavedTip
			destination, category, content, source sql.NullString
			created                               any
		)
		if err := rows.Scan(&tip.ID, &tip.UserID, &destination, &category, &content, &source, &created); err != nil {
			return nil, storeErr(op, err)
		}
		tip.Destination = destination.String
		tip.Category = stringPtr(category)
		tip.Content = content.String
		tip.Source = stringPtr(source)
		tip.CreatedAt = parseTimestamp(created)
		out = append(out, tip)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func (s *SQLite) ActiveSafetyAlerts(ctx context.Context, destination string, asOf time.Time) ([]SafetyAlert, error) {
	const op = "SQLite.ActiveSafetyAlerts"
	rows, err := s.db.QueryContext(ctx, `SELECT id, destination, destination_key, alert_type, severity, description, valid_until, created_at FROM safety_alerts
		WHERE destination_key = ? AND (valid_until IS NULL OR valid_until = '' OR valid_until >= ?)
		ORDER BY id ASC;`, DestinationKey(destination), asOf.Format(DateLayout))
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var out []SafetyAlert
	for rows.Next() {
		var (
			a                                    SafetyAlert
			alertType, severity, desc, validUntil sql.NullString
			created                              any
		)
		if err := rows.Scan(&a.ID, &a.Destination, &a.DestKey, &alertType, &severity, &desc, &validUntil, &created); err != nil {
			return nil, storeErr(op, err)
		}
		a.AlertType, a.Severity, a.Description = alertType.String, severity.String, desc.String
		a.ValidUntil = stringPtr(validUntil)
		a.CreatedAt = parseTimestamp(created)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return out, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp accepts whatever the driver hands back for a DATETIME column:
// a parsed time.Time or the stored text.
func parseTimestamp(v any) time.Time {
	var s string
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

var _ Store = (*SQLite)(nil)
