// Package apiservice dispatches requests to service handler operations
// declared in a static registration table.
//
// A handler type is declared with Type and its operations with Op. Each
// operation carries route metadata: a route segment with {name} values,
// optional constraints, an optional verb, an optional mime-type query
// parameter and a parameter-count policy used to tell apart operations that
// share a route.
//
//	type WeatherAPIService struct{}
//
//	func (s *WeatherAPIService) Forecast(city, days string) (*Forecast, error) { ... }
//
//	weather := apiservice.Type("WeatherAPIService", func() any { return &WeatherAPIService{} }).
//	    Operation(apiservice.Op("Forecast", (*WeatherAPIService).Forecast, "city", "days").
//	        Route("forecast/{city}").
//	        Verb("GET"))
//
// A Dispatcher resolves a ServiceDescriptor to a handler type through a
// Registry, which caches the (name, version) lookup, then selects the
// operation for the request path, authorizes the caller, binds parameters
// and calls the operation. Every failure is an *Error with one of the Code
// constants.
package apiservice
