// Package demo is the handler catalog served by "apiservice serve".
package demo

import (
	"context"
	"fmt"
	"strings"

	"github.com/broady/apiservice"
)

// APIKeyHeader is checked by the invoices service.
const APIKeyHeader = "X-Api-Key"

// Forecast is a weather forecast.
type Forecast struct {
	City string `json:"city" xml:"city"`
	Days int    `json:"days" xml:"days"`
	Sky  string `json:"sky" xml:"sky"`
}

func (f *Forecast) String() string {
	return fmt.Sprintf("%s: %s for %d day(s)", f.City, f.Sky, f.Days)
}

// WeatherAPIService serves forecasts.
//
//apiservice:version v1 v2
type WeatherAPIService struct{}

// Today returns the forecast for the current day.
func (s *WeatherAPIService) Today(city string) *Forecast {
	return s.forecast(city, 1)
}

// Forecast returns the forecast for the next days.
func (s *WeatherAPIService) Forecast(city string, days int) (*Forecast, error) {
	if days < 1 || days > 14 {
		return nil, apiservice.Errorf(apiservice.CodeExecuteAction, "days must be between 1 and 14, got %d", days).
			WithDetail("days", days)
	}
	return s.forecast(city, days), nil
}

// Report renders the forecast in the format named by the "format" query parameter.
func (s *WeatherAPIService) Report(city string) *Forecast {
	return s.forecast(city, 3)
}

func (s *WeatherAPIService) forecast(city string, days int) *Forecast {
	skies := []string{"sunny", "cloudy", "rainy"}
	return &Forecast{City: strings.ToLower(city), Days: days, Sky: skies[len(city)%len(skies)]}
}

// Invoice is a stored invoice.
type Invoice struct {
	ID     int     `json:"id" xml:"id"`
	Amount float64 `json:"amount" xml:"amount"`
	Path   string  `json:"path" xml:"path"`
}

// BillingAPIService answers as "invoices" and requires an API key.
//
//apiservice:alias invoices
type BillingAPIService struct {
	sc *apiservice.ServiceContext
}

// SetServiceContext implements apiservice.ContextReceiver.
func (s *BillingAPIService) SetServiceContext(sc *apiservice.ServiceContext) {
	s.sc = sc
}

// Get returns an invoice by ID.
func (s *BillingAPIService) Get(ctx context.Context, id int) (*Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Invoice{ID: id, Amount: float64(id) * 9.5, Path: s.sc.Request.Path()}, nil
}

// Search lists invoice IDs matching the given tags.
func (s *BillingAPIService) Search(tags ...string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, "invoice-"+t)
	}
	return out
}

func apiKey(ctx context.Context, req apiservice.Request) bool {
	return req.Header().Get(APIKeyHeader) == "demo"
}

// Catalog returns the demo handler types.
func Catalog() *apiservice.Catalog {
	weather := apiservice.Type("WeatherAPIService", func() any { return &WeatherAPIService{} }).
		Versions("v1", "v2").
		Operation(
			// Today and Forecast share a route and are told apart by the
			// number of parameters.
			apiservice.Op("Today", (*WeatherAPIService).Today, "city").
				Route("forecast/{city}").
				Constraints("city", "[a-z]+").
				Verb("GET"),
			apiservice.Op("Forecast", (*WeatherAPIService).Forecast, "city", "days").
				Route("forecast/{city}").
				Constraints("city", "[a-z]+").
				Verb("GET"),
			apiservice.Op("Report", (*WeatherAPIService).Report, "city").
				Route("report/{city}").
				MimeTypeParam("format"),
		)

	billing := apiservice.Type("BillingAPIService", func() any { return &BillingAPIService{} }).
		Alias("invoices").
		Authorize(apiservice.AuthorizerFunc(apiKey)).
		Operation(
			apiservice.Op("Get", (*BillingAPIService).Get, "id").
				Route("{id}").
				Constraints("id", "[0-9]+").
				Verb("GET"),
			apiservice.Op("Search", (*BillingAPIService).Search, "tag").
				Prefix("search/").
				Route("{tag}").
				QueryParamEqual(apiservice.Any),
		)

	return apiservice.NewCatalog(weather, billing)
}
