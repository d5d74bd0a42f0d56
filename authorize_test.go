package apiservice

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name           string
		service        *countingAuthorizer
		op             *countingAuthorizer
		wantCode       ErrorCode
		wantOpConsults int
	}{
		{name: "no predicates"},
		{name: "service allows", service: &countingAuthorizer{allow: true}},
		{name: "operation allows", op: &countingAuthorizer{allow: true}, wantOpConsults: 1},
		{
			name:           "both allow",
			service:        &countingAuthorizer{allow: true},
			op:             &countingAuthorizer{allow: true},
			wantOpConsults: 1,
		},
		{
			name:     "service denies",
			service:  &countingAuthorizer{allow: false},
			op:       &countingAuthorizer{allow: true},
			wantCode: CodeServiceUnauthorized,
		},
		{
			name:           "operation denies",
			service:        &countingAuthorizer{allow: true},
			op:             &countingAuthorizer{allow: false},
			wantCode:       CodeServiceUnauthorized,
			wantOpConsults: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := Type("WeatherAPIService", newWeather)
			op := Op("Today", (*WeatherAPIService).Today, "city")
			if tt.service != nil {
				typ.Authorize(tt.service)
			}
			if tt.op != nil {
				op.Authorize(tt.op)
			}

			err := Authorize(context.Background(), typ, op, NewRequest("GET", "/", nil), "weather")
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
			if tt.service != nil {
				assert.Equal(t, 1, tt.service.calls)
			}
			if tt.op != nil {
				assert.Equal(t, tt.wantOpConsults, tt.op.calls)
			}
		})
	}
}

func TestAuthorizerFunc(t *testing.T) {
	byHeader := AuthorizerFunc(func(_ context.Context, req Request) bool {
		return req.Header().Get("X-Token") == "letmein"
	})

	hr, _ := http.NewRequest(http.MethodGet, "/api/v1/weather/today", nil)
	assert.False(t, byHeader.Authorize(context.Background(), FromHTTPRequest(hr)))

	hr.Header.Set("X-Token", "letmein")
	assert.True(t, byHeader.Authorize(context.Background(), FromHTTPRequest(hr)))
}
