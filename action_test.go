package apiservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectAction(t *testing.T) {
	noop := func(*WeatherAPIService) {}
	one := func(*WeatherAPIService, string) {}
	two := func(*WeatherAPIService, string, string) {}

	tests := []struct {
		name       string
		ops        []*Operation
		verb       string
		params     []Param
		path       string
		wantAction string
		wantValues Values
		wantCode   ErrorCode
	}{
		{
			name:       "single match skips the count check",
			ops:        []*Operation{Op("Forecast", two, "city", "days").Route("forecast/{city}")},
			path:       "/api/v1/weather/forecast/paris",
			wantAction: "Forecast",
			wantValues: Values{{Key: "city", Value: "paris"}},
		},
		{
			name: "count picks the one-parameter operation",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}"),
				Op("Forecast", two, "city", "days").Route("forecast/{city}"),
			},
			path:       "/api/v1/weather/forecast/paris",
			wantAction: "Today",
			wantValues: Values{{Key: "city", Value: "paris"}},
		},
		{
			name: "explicit parameters count",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}"),
				Op("Forecast", two, "city", "days").Route("forecast/{city}"),
			},
			params:     []Param{{Key: "days", Value: "3"}},
			path:       "/api/v1/weather/forecast/paris",
			wantAction: "Forecast",
		},
		{
			name: "no count matches",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}"),
				Op("Forecast", two, "city", "days").Route("forecast/{city}"),
			},
			params:   []Param{{Key: "days", Value: "3"}, {Key: "format", Value: "json"}},
			path:     "/api/v1/weather/forecast/paris",
			wantCode: CodeServiceActionNotFound,
		},
		{
			name: "two Any operations are ambiguous",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}").QueryParamEqual(Any),
				Op("Forecast", two, "city", "days").Route("forecast/{city}").QueryParamEqual(Any),
			},
			path:     "/api/v1/weather/forecast/paris",
			wantCode: CodeActionAlreadyDeclared,
		},
		{
			name: "Any survives next to an exact match",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}"),
				Op("Forecast", two, "city", "days").Route("forecast/{city}").QueryParamEqual(Any),
			},
			path:     "/api/v1/weather/forecast/paris",
			wantCode: CodeActionAlreadyDeclared,
		},
		{
			name: "Any is kept when no count matches",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}"),
				Op("Forecast", two, "city", "days").Route("forecast/{city}").QueryParamEqual(Any),
			},
			params:     []Param{{Key: "days", Value: "3"}, {Key: "format", Value: "json"}},
			path:       "/api/v1/weather/forecast/paris",
			wantAction: "Forecast",
		},
		{
			name:     "no route matches",
			ops:      []*Operation{Op("Today", one, "city").Route("forecast/{city}")},
			path:     "/api/v1/weather/history/paris",
			wantCode: CodeServiceActionNotFound,
		},
		{
			name:     "no operations",
			path:     "/api/v1/weather/forecast/paris",
			wantCode: CodeServiceActionNotFound,
		},
		{
			name:       "default route is the lower-cased name",
			ops:        []*Operation{Op("Ping", noop)},
			path:       "/api/v1/weather/ping",
			wantAction: "Ping",
			wantValues: Values{},
		},
		{
			name:       "default route ignores case",
			ops:        []*Operation{Op("Ping", noop)},
			path:       "/api/v1/weather/Ping",
			wantAction: "Ping",
			wantValues: Values{},
		},
		{
			name:       "empty route answers at the service root",
			ops:        []*Operation{Op("Index", noop).Route(""), Op("Ping", noop)},
			path:       "/api/v1/weather/",
			wantAction: "Index",
			wantValues: Values{},
		},
		{
			name:       "empty route leaves sub-routes alone",
			ops:        []*Operation{Op("Index", noop).Route(""), Op("Ping", noop)},
			path:       "/api/v1/weather/ping",
			wantAction: "Ping",
		},
		{
			name:       "prefix",
			ops:        []*Operation{Op("Today", one, "city").Prefix("daily/").Route("{city}")},
			path:       "/api/v1/weather/daily/paris",
			wantAction: "Today",
		},
		{
			name: "verb filters candidates",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}").Verb("POST"),
				Op("Forecast", two, "city", "days").Route("forecast/{city}").Verb("get"),
			},
			path:       "/api/v1/weather/forecast/paris",
			wantAction: "Forecast",
		},
		{
			name: "descriptor verb ignores case",
			ops: []*Operation{
				Op("Today", one, "city").Route("forecast/{city}").Verb("POST"),
			},
			verb:       "post",
			path:       "/api/v1/weather/forecast/paris",
			wantAction: "Today",
		},
		{
			name:     "verb mismatch",
			ops:      []*Operation{Op("Today", one, "city").Route("forecast/{city}").Verb("DELETE")},
			path:     "/api/v1/weather/forecast/paris",
			wantCode: CodeServiceActionNotFound,
		},
		{
			name: "constraints tell routes apart",
			ops: []*Operation{
				Op("ByID", one, "key").Route("{key}").Constraints("key", "[0-9]+"),
				Op("ByName", one, "key").Route("{key}").Constraints("key", "[a-z]+"),
			},
			path:       "/api/v1/weather/lyon",
			wantAction: "ByName",
			wantValues: Values{{Key: "key", Value: "lyon"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := Type("WeatherAPIService", newWeather).Operation(tt.ops...)
			desc := weatherDescriptor(tt.params...)
			if tt.verb != "" {
				desc.Verb = tt.verb
			}

			action, err := SelectAction(typ, desc, tt.path)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, CodeOf(err))
				assert.Nil(t, action)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, action.Operation.Name())
			if tt.wantValues != nil {
				assert.Equal(t, tt.wantValues, action.Values)
			}
		})
	}
}

func TestSelectAction_AmbiguousNamesRoute(t *testing.T) {
	one := func(*WeatherAPIService, string) {}
	typ := Type("WeatherAPIService", newWeather).Operation(
		Op("Today", one, "city").Route("forecast/{city}").QueryParamEqual(Any),
		Op("Tomorrow", one, "city").Route("forecast/{city}"),
	)

	_, err := SelectAction(typ, weatherDescriptor(), "/api/v1/weather/forecast/paris")
	require.Error(t, err)

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, CodeActionAlreadyDeclared, svcErr.Code)
	assert.Equal(t, "forecast/{city}", svcErr.Details["route"])
	assert.Equal(t, "weather", svcErr.Details["service"])
}
