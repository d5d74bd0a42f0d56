package apiservice

import (
	"context"
	"fmt"
)

type WeatherAPIService struct {
	sc *ServiceContext
}

func (s *WeatherAPIService) SetServiceContext(sc *ServiceContext) { s.sc = sc }

func (s *WeatherAPIService) Today(city string) string {
	return "today in " + city
}

func (s *WeatherAPIService) Forecast(city string, days int) string {
	return fmt.Sprintf("%d days in %s", days, city)
}

func (s *WeatherAPIService) Path() string {
	return s.sc.Request.Path()
}

func newWeather() any { return &WeatherAPIService{} }

// weatherType declares Today and Forecast on the same route; they are told
// apart by parameter count.
func weatherType() *HandlerType {
	return Type("WeatherAPIService", newWeather).Operation(
		Op("Today", (*WeatherAPIService).Today, "city").Route("forecast/{city}"),
		Op("Forecast", (*WeatherAPIService).Forecast, "city", "days").Route("forecast/{city}"),
	)
}

func weatherDescriptor(params ...Param) *ServiceDescriptor {
	return &ServiceDescriptor{
		Name:       "weather",
		Version:    "v1",
		Route:      "api/v1/weather/",
		Verb:       "GET",
		Parameters: params,
	}
}

type sourceFunc func() ([]*HandlerType, error)

func (f sourceFunc) Types() ([]*HandlerType, error) { return f() }

// countingAuthorizer returns a fixed answer and counts its calls.
type countingAuthorizer struct {
	allow bool
	calls int
}

func (a *countingAuthorizer) Authorize(_ context.Context, _ Request) bool {
	a.calls++
	return a.allow
}
