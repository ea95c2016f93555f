package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/comigor/travelbot/internal/logger"
)

// Postgres is the Store used for shared deployments.
type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, storeErr("postgres open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, storeErr("postgres open", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.WithContext(ctx).AutoMigrate(&User{}, &Itinerary{}, &VisitedPlace{}, &SavedTip{}, &SafetyAlert{}); err != nil {
		sqlDB.Close()
		return nil, storeErr("postgres migrate", err)
	}
	logger.L.Info("postgres store initialized")
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *Postgres) FindOrCreateUser(ctx context.Context, name, email string) (User, bool, error) {
	const op = "Postgres.FindOrCreateUser"

	var u User
	err := p.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, false, storeErr(op, err)
	}

	u = User{Name: name, Email: email, CreatedAt: time.Now().UTC()}
	if err := p.db.WithContext(ctx).Create(&u).Error; err != nil {
		return User{}, false, storeErr(op, err)
	}
	return u, true, nil
}

func (p *Postgres) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	if err := p.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = ErrNotFound
		}
		return User{}, storeErr("Postgres.GetUser", err)
	}
	return u, nil
}

func (p *Postgres) UpdatePreferences(ctx context.Context, userID int64, preferences string) error {
	const op = "Postgres.UpdatePreferences"
	res := p.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("preferences", preferences)
	if res.Error != nil {
		return storeErr(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return storeErr(op, ErrNotFound)
	}
	return nil
}

func (p *Postgres) CreateItinerary(ctx context.Context, it *Itinerary) (int64, error) {
	it.CreatedAt = time.Now().UTC()
	if err := p.db.WithContext(ctx).Create(it).Error; err != nil {
		return 0, storeErr("Postgres.CreateItinerary", err)
	}
	return it.ID, nil
}

func (p *Postgres) CreateVisitedPlace(ctx context.Context, vp *VisitedPlace) (int64, error) {
	vp.CreatedAt = time.Now().UTC()
	if err := p.db.WithContext(ctx).Create(vp).Error; err != nil {
		return 0, storeErr("Postgres.CreateVisitedPlace", err)
	}
	return vp.ID, nil
}

func (p *Postgres) CreateSavedTip(ctx context.Context, tip *SavedTip) (int64, error) {
	tip.CreatedAt = time.Now().UTC()
	if err := p.db.WithContext(ctx).Create(tip).Error; err != nil {
		return 0, storeErr("Postgres.CreateSavedTip", err)
	}
	return tip.ID, nil
}

func (p *Postgres) CreateSafetyAlert(ctx context.Context, a *SafetyAlert) (int64, error) {
	a.CreatedAt = time.Now().UTC()
	a.DestKey = DestinationKey(a.Destination)
	if err := p.db.WithContext(ctx).Create(a).Error; err != nil {
		return 0, storeErr("Postgres.CreateSafetyAlert", err)
	}
	return a.ID, nil
}

func (p *Postgres) ListItineraries(ctx context.Context, userID int64) ([]Itinerary, error) {
	var out []Itinerary
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, storeErr("Postgres.ListItineraries", err)
	}
	return out, nil
}

func (p *Postgres) ListVisitedPlaces(ctx context.Context, userID int64) ([]VisitedPlace, error) {
	var out []VisitedPlace
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, storeErr("Postgres.ListVisitedPlaces", err)
	}
	return out, nil
}

func (p *Postgres) ListSavedTips(ctx context.Context, userID int64) ([]SavedTip, error) {
	var out []SavedTip
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, storeErr("Postgres.ListSavedTips", err)
	}
	return out, nil
}

func (p *Postgres) ActiveSafetyAlerts(ctx context.Context, destination string, asOf time.Time) ([]SafetyAlert, error) {
	var out []SafetyAlert
	err := p.db.WithContext(ctx).
		Where("destination_key = ?", DestinationKey(destination)).
		Where("valid_until IS NULL OR valid_until = '' OR valid_until >= ?", asOf.Format(DateLayout)).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("Postgres.ActiveSafetyAlerts", err)
	}
	return out, nil
}

var _ Store = (*Postgres)(nil)
