package tools

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comigor/travelbot/internal/config"
	"github.com/comigor/travelbot/internal/history"
	"github.com/comigor/travelbot/internal/knowledge"
	"github.com/comigor/travelbot/internal/store"
)

var fixedNow = func() time.Time { return time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC) }

type travelFixture struct {
	store      *store.SQLite
	dispatcher *Dispatcher
	scope      Scope
}

func newTravelFixture(t *testing.T, st store.Store) *travelFixture {
	t.Helper()
	ctx := context.Background()
	sqlite, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "travel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	if st == nil {
		st = sqlite
	}

	user, _, err := sqlite.FindOrCreateUser(ctx, "Asha", "asha@example.com")
	require.NoError(t, err)

	kb, err := knowledge.Load()
	require.NoError(t, err)
	reg, err := NewRegistry(TravelTools(st, kb, fixedNow)...)
	require.NoError(t, err)

	return &travelFixture{
		store:      sqlite,
		dispatcher: NewDispatcher(reg, config.AgentConfig{ToolTimeout: time.Second}),
		scope:      Scope{UserID: user.ID, SessionID: "test"},
	}
}

func (f *travelFixture) call(t *testing.T, name, args string) Result {
	t.Helper()
	return f.dispatcher.Dispatch(context.Background(), f.scope, history.ToolCall{ID: "call_" + name, Name: name, Arguments: args})
}

func TestTravelTools_Catalogue(t *testing.T) {
	kb, err := knowledge.Load()
	require.NoError(t, err)
	reg, err := NewRegistry(TravelTools(nil, kb, nil)...)
	require.NoError(t, err)

	var names []string
	for _, d := range reg.Definitions() {
		names = append(names, d.Function.Name)
	}
	require.Equal(t, []string{CreateItinerary, GetLocalTips, GetSafetyInfo, AddVisitedPlace, GetUserHistory, SaveTip, UpdatePreferences}, names)
}

func TestCreateItinerary(t *testing.T) {
	f := newTravelFixture(t, nil)

	res := f.call(t, CreateItinerary, `{"destination":"Goa","start_date":"2024-01-10","end_date":"2024-01-12","days":3}`)
	require.NoError(t, res.Err)
	var conf Confirmation
	require.NoError(t, json.Unmarshal([]byte(res.Content()), &conf))
	require.Equal(t, "success", conf.Status)
	require.NotZero(t, conf.ID)

	its, err := f.store.ListItineraries(context.Background(), f.scope.UserID)
	require.NoError(t, err)
	require.Len(t, its, 1)
	require.Equal(t, "Goa", its[0].Destination)
	require.Equal(t, "2024-01-10", its[0].StartDate)
	require.Equal(t, 3, *its[0].Days)
}

func TestCreateItinerary_InvalidArgsDoNotWrite(t *testing.T) {
	f := newTravelFixture(t, nil)

	res := f.call(t, CreateItinerary, `{"destination":"Goa","start_date":"2024-01-10"}`)
	require.Error(t, res.Err)
	require.Contains(t, res.Content(), `"end_date"`)

	res = f.call(t, CreateItinerary, `{"destination":"Goa","start_date":"2024-01-10","end_date":"2024-01-12","budget":"cheap"}`)
	require.Error(t, res.Err)
	require.Contains(t, res.Content(), `"budget"`)

	its, err := f.store.ListItineraries(context.Background(), f.scope.UserID)
	require.NoError(t, err)
	require.Empty(t, its)
}

func TestGetLocalTips(t *testing.T) {
	f := newTravelFixture(t, nil)

	res := f.call(t, GetLocalTips, `{"destination":"Goa","category":"local customs"}`)
	require.NoError(t, res.Err)
	var tips TipsResult
	require.NoError(t, json.Unmarshal([]byte(res.Content()), &tips))
	require.Contains(t, tips.Tips, "Remove shoes when entering homes and temples")

	res = f.call(t, GetLocalTips, `{"destination":"Nairobi","category":"customs"}`)
	require.NoError(t, res.Err)
	require.Equal(t, "No customs tips found for Nairobi.", res.Content())
}

func TestGetSafetyInfo(t *testing.T) {
	f := newTravelFixture(t, nil)
	ctx := context.Background()

	res := f.call(t, GetSafetyInfo, `{"destination":"Goa"}`)
	require.NoError(t, res.Err)
	require.Equal(t, "No active safety alerts for Goa.", res.Content())

	expired := "2023-12-31"
	_, err := f.store.CreateSafetyAlert(ctx, &store.SafetyAlert{Destination: "Goa", AlertType: "weather", Severity: "low", Description: "Old storm", ValidUntil: &expired})
	require.NoError(t, err)
	_, err = f.store.CreateSafetyAlert(ctx, &store.SafetyAlert{Destination: "GOA", AlertType: "crime", Severity: "medium", Description: "Pickpockets at night markets"})
	require.NoError(t, err)

	res = f.call(t, GetSafetyInfo, `{"destination":"goa"}`)
	require.NoError(t, res.Err)
	var out SafetyResult
	require.NoError(t, json.Unmarshal([]byte(res.Content()), &out))
	require.Len(t, out.Alerts, 1)
	require.Equal(t, "Pickpockets at night markets", out.Alerts[0].Description)
	require.NotEmpty(t, out.Tips)
}

func TestGetUserHistory_Idempotent(t *testing.T) {
	f := newTravelFixture(t, nil)

	require.NoError(t, f.call(t, AddVisitedPlace, `{"placeName":"Baga Beach","country":"India","rating":5}`).Err)
	require.NoError(t, f.call(t, SaveTip, `{"destination":"Goa","tip_content":"Rent a scooter"}`).Err)
	require.NoError(t, f.call(t, UpdatePreferences, `{"preferences":"beaches"}`).Err)

	first := f.call(t, GetUserHistory, ``)
	second := f.call(t, GetUserHistory, `{}`)
	require.NoError(t, first.Err)
	require.Equal(t, first.Content(), second.Content())

	var h store.UserHistory
	require.NoError(t, json.Unmarshal([]byte(first.Content()), &h))
	require.Equal(t, "Asha", h.User.Name)
	require.Equal(t, "beaches", *h.User.Preferences)
	require.Empty(t, h.Itineraries)
	require.Len(t, h.VisitedPlaces, 1)
	require.Len(t, h.SavedTips, 1)
}

type failingStore struct {
	store.Store
}

func (failingStore) CreateVisitedPlace(context.Context, *store.VisitedPlace) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestAddVisitedPlace_StoreFailure(t *testing.T) {
	f := newTravelFixture(t, failingStore{})

	res := f.call(t, AddVisitedPlace, `{"placeName":"Baga Beach","country":"India"}`)
	require.Equal(t, "Error: database is locked", res.Content())
}
