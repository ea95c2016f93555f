package store

import "time"

type User struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Email       string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Preferences *string   `gorm:"column:preferences" json:"preferences,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

type Itinerary struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	Destination string    `gorm:"column:destination;not null" json:"destination"`
	StartDate   string    `gorm:"column:start_date" json:"start_date"`
	EndDate     string    `gorm:"column:end_date" json:"end_date"`
	Days        *int      `gorm:"column:days" json:"days,omitempty"`
	Activities  *string   `gorm:"column:activities" json:"activities,omitempty"`
	Budget      *float64  `gorm:"column:budget" json:"budget,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Itinerary) TableName() string { return "itineraries" }

type VisitedPlace struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	PlaceName string    `gorm:"column:place_name;not null" json:"place_name"`
	Country   string    `gorm:"column:country" json:"country"`
	VisitDate *string   `gorm:"column:visit_date" json:"visit_date,omitempty"`
	Rating    *int      `gorm:"column:rating" json:"rating,omitempty"`
	Notes     *string   `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (VisitedPlace) TableName() string { return "visited_places" }

// SavedTip is a travel tip the user asked to keep. The table keeps its
// historical name.
type SavedTip struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	Destination string    `gorm:"column:destination" json:"destination"`
	Category    *string   `gorm:"column:tip_category" json:"tip_category,omitempty"`
	Content     string    `gorm:"column:tip_content" json:"tip_content"`
	Source      *string   `gorm:"column:source" json:"source,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (SavedTip) TableName() string { return "saved_trips" }

// SafetyAlert is not owned by a user. ValidUntil is a YYYY-MM-DD date; nil
// means the alert does not expire.
type SafetyAlert struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id" yaml:"-"`
	Destination string    `gorm:"column:destination;not null" json:"destination" yaml:"destination"`
	DestKey     string    `gorm:"column:destination_key;index" json:"-" yaml:"-"`
	AlertType   string    `gorm:"column:alert_type" json:"alert_type" yaml:"alert_type"`
	Severity    string    `gorm:"column:severity" json:"severity" yaml:"severity"`
	Description string    `gorm:"column:description" json:"description" yaml:"description"`
	ValidUntil  *string   `gorm:"column:valid_until" json:"valid_until,omitempty" yaml:"valid_until"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at" yaml:"-"`
}

func (SafetyAlert) TableName() string { return "safety_alerts" }

// UserHistory is the aggregated travel history of one user.
type UserHistory struct {
	User          User           `json:"user"`
	Itineraries   []Itinerary    `json:"itineraries"`
	VisitedPlaces []VisitedPlace `json:"visited_places"`
	SavedTips     []SavedTip     `json:"saved_tips"`
}
