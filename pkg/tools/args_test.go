package tools

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comigor/travelbot/internal/errorsx"
)

func TestSchemaFor_CreateItinerary(t *testing.T) {
	s := SchemaFor[CreateItineraryArgs]()
	require.Equal(t, "object", s.Type)
	require.Equal(t, []string{"destination", "start_date", "end_date"}, s.Required)
	require.Len(t, s.Properties, 6)
	require.Equal(t, "string", s.Properties["destination"].Type)
	require.Equal(t, "integer", s.Properties["days"].Type)
	require.Equal(t, "number", s.Properties["budget"].Type)
	require.Equal(t, "The budget for the trip in INR", s.Properties["budget"].Description)
}

func TestSchemaFor_EmptyStruct(t *testing.T) {
	s := SchemaFor[struct{}]()
	require.NotNil(t, s.Properties)
	require.Empty(t, s.Properties)
	require.Nil(t, s.Required)
}

func TestDecodeArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "valid", raw: `{"placeName":"Baga Beach","country":"India","rating":4}`},
		{name: "json string payload", raw: `"{\"placeName\":\"Baga Beach\",\"country\":\"India\"}"`},
		{name: "malformed", raw: `{"placeName":`, wantErr: "malformed JSON"},
		{name: "wrong kind", raw: `{"placeName":"Baga","country":"India","rating":"five"}`, wantErr: `field "rating" must be integer, got string`},
		{name: "missing required", raw: `{"placeName":"Baga"}`, wantErr: `missing required field "country"`},
		{name: "empty payload", raw: ``, wantErr: `missing required field "placeName"`},
		{name: "rating out of range", raw: `{"placeName":"Baga","country":"India","rating":9}`, wantErr: `field "rating" must be at most 5`},
		{name: "bad date", raw: `{"placeName":"Baga","country":"India","visitDate":"10/01/2024"}`, wantErr: `field "visitDate" must be a date`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := DecodeArgs[VisitedPlaceArgs](tt.raw)
			if tt.wantErr == "" {
				require.NoError(t, err)
				require.Equal(t, "Baga Beach", args.PlaceName)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
			require.True(t, errorsx.HasReason(err, errorsx.ReasonValidation))
		})
	}
}

func TestDecodeArgs_CrossFieldValidation(t *testing.T) {
	_, err := DecodeArgs[CreateItineraryArgs](`{"destination":"Goa","start_date":"2024-01-12","end_date":"2024-01-10"}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "end_date")

	args, err := DecodeArgs[CreateItineraryArgs](`{"destination":"Goa","start_date":"2024-01-10","end_date":"2024-01-12","days":3}`)
	require.NoError(t, err)
	require.Equal(t, 3, *args.Days)
	require.Nil(t, args.Budget)
}
