package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comigor/travelbot/internal/knowledge"
	"github.com/comigor/travelbot/internal/store"
)

// Tool names advertised to the model.
const (
	CreateItinerary   = "createItinerary"
	GetLocalTips      = "getLocalTips"
	GetSafetyInfo     = "getSafetyInfo"
	AddVisitedPlace   = "addVisitedPlace"
	GetUserHistory    = "getUserHistory"
	SaveTip           = "saveTip"
	UpdatePreferences = "updatePreferences"
)

type CreateItineraryArgs struct {
	Destination string   `json:"destination" validate:"required" desc:"The destination for the itinerary"`
	StartDate   string   `json:"start_date" validate:"required,datetime=2006-01-02" desc:"The start date of the trip in YYYY-MM-DD format"`
	EndDate     string   `json:"end_date" validate:"required,datetime=2006-01-02" desc:"The end date of the trip in YYYY-MM-DD format"`
	Days        *int     `json:"days" validate:"omitempty,min=1" desc:"Number of days for the trip"`
	Activities  *string  `json:"activities" desc:"Activities planned for the trip, separated by commas"`
	Budget      *float64 `json:"budget" validate:"omitempty,min=0" desc:"The budget for the trip in INR"`
}

func (a CreateItineraryArgs) Validate() error {
	// same layout on both sides, so lexical order is date order
	if a.EndDate < a.StartDate {
		return errors.New(`field "end_date" must not be before "start_date"`)
	}
	return nil
}

type LocalTipsArgs struct {
	Destination string `json:"destination" validate:"required" desc:"Destination to get tips for"`
	Category    string `json:"category" desc:"Category of tips to retrieve (e.g., local customs, budget tips, safety tips)"`
}

type SafetyInfoArgs struct {
	Destination string `json:"destination" validate:"required" desc:"Destination to get safety information for"`
}

type VisitedPlaceArgs struct {
	PlaceName string  `json:"placeName" validate:"required" desc:"Name of the place visited"`
	Country   string  `json:"country" validate:"required" desc:"Country where the place is located"`
	VisitDate *string `json:"visitDate" validate:"omitempty,datetime=2006-01-02" desc:"Date of visit in YYYY-MM-DD format"`
	Rating    *int    `json:"rating" validate:"omitempty,min=1,max=5" desc:"Rating given to the place (1-5)"`
	Notes     *string `json:"notes" desc:"Any additional notes about the visit"`
}

type SaveTipArgs struct {
	Destination string  `json:"destination" validate:"required" desc:"Destination the tip applies to"`
	Content     string  `json:"tip_content" validate:"required" desc:"The tip to save"`
	Category    *string `json:"tip_category" desc:"Category of the tip (e.g., food, transport, safety)"`
	Source      *string `json:"source" desc:"Where the tip came from"`
}

type PreferencesArgs struct {
	Preferences string `json:"preferences" validate:"required" desc:"The user's travel preferences, free text"`
}

// Confirmation is returned by tools that write a record.
type Confirmation struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      int64  `json:"id,omitempty"`
}

type TipsResult struct {
	Destination string   `json:"destination"`
	Category    string   `json:"category,omitempty"`
	Tips        []string `json:"tips"`
}

type SafetyResult struct {
	Destination string              `json:"destination"`
	Alerts      []store.SafetyAlert `json:"alerts"`
	// Tips are general safety tips from the knowledge base.
	Tips []string `json:"tips,omitempty"`
}

// TravelTools builds the travel assistant tool set. now supplies the date
// used to skip expired safety alerts.
func TravelTools(st store.Store, kb *knowledge.Base, now func() time.Time) []Tool {
	if now == nil {
		now = time.Now
	}
	return []Tool{
		New(CreateItinerary, "Create a personalized travel itinerary and save it to the database",
			func(ctx context.Context, scope Scope, a CreateItineraryArgs) (any, error) {
				it := &store.Itinerary{
					UserID:      scope.UserID,
					Destination: strings.TrimSpace(a.Destination),
					StartDate:   a.StartDate,
					EndDate:     a.EndDate,
					Days:        a.Days,
					Activities:  a.Activities,
					Budget:      a.Budget,
				}
				id, err := st.CreateItinerary(ctx, it)
				if err != nil {
					return nil, err
				}
				return Confirmation{
					Status:  "success",
					Message: fmt.Sprintf("Itinerary for %s from %s to %s created", it.Destination, a.StartDate, a.EndDate),
					ID:      id,
				}, nil
			}),

		New(GetLocalTips, "Get local tips and recommendations for a destination",
			func(_ context.Context, _ Scope, a LocalTipsArgs) (any, error) {
				tips := kb.Lookup(a.Destination, a.Category)
				if len(tips) == 0 {
					if a.Category != "" {
						return fmt.Sprintf("No %s tips found for %s.", a.Category, a.Destination), nil
					}
					return fmt.Sprintf("No tips found for %s.", a.Destination), nil
				}
				return TipsResult{Destination: a.Destination, Category: a.Category, Tips: tips}, nil
			}),

		New(GetSafetyInfo, "Get safety information and alerts for a destination",
			func(ctx context.Context, _ Scope, a SafetyInfoArgs) (any, error) {
				alerts, err := st.ActiveSafetyAlerts(ctx, a.Destination, now())
				if err != nil {
					return nil, err
				}
				if len(alerts) == 0 {
					return fmt.Sprintf("No active safety alerts for %s.", a.Destination), nil
				}
				return SafetyResult{
					Destination: a.Destination,
					Alerts:      alerts,
					Tips:        kb.Lookup(a.Destination, "safety"),
				}, nil
			}),

		New(AddVisitedPlace, "Record a place the user has visited",
			func(ctx context.Context, scope Scope, a VisitedPlaceArgs) (any, error) {
				p := &store.VisitedPlace{
					UserID:    scope.UserID,
					PlaceName: strings.TrimSpace(a.PlaceName),
					Country:   strings.TrimSpace(a.Country),
					VisitDate: a.VisitDate,
					Rating:    a.Rating,
					Notes:     a.Notes,
				}
				id, err := st.CreateVisitedPlace(ctx, p)
				if err != nil {
					return nil, err
				}
				return Confirmation{Status: "success", Message: fmt.Sprintf("Recorded visit to %s, %s", p.PlaceName, p.Country), ID: id}, nil
			}),

		New(GetUserHistory, "Get user's travel history and preferences",
			func(ctx context.Context, scope Scope, _ struct{}) (any, error) {
				return store.LoadUserHistory(ctx, st, scope.UserID)
			}),

		New(SaveTip, "Save a useful travel tip for future reference",
			func(ctx context.Context, scope Scope, a SaveTipArgs) (any, error) {
				tip := &store.SavedTip{
					UserID:      scope.UserID,
					Destination: strings.TrimSpace(a.Destination),
					Content:     a.Content,
					Category:    a.Category,
					Source:      a.Source,
				}
				id, err := st.CreateSavedTip(ctx, tip)
				if err != nil {
					return nil, err
				}
				return Confirmation{Status: "success", Message: fmt.Sprintf("Tip for %s saved", tip.Destination), ID: id}, nil
			}),

		New(UpdatePreferences, "Update the user's travel preferences",
			func(ctx context.Context, scope Scope, a PreferencesArgs) (any, error) {
				if err := st.UpdatePreferences(ctx, scope.UserID, a.Preferences); err != nil {
					return nil, err
				}
				return Confirmation{Status: "success", Message: "Preferences updated"}, nil
			}),
	}
}
