// Package weatherapi provides a Go client for the dashboard's weather and
// geocoding gateway.
//
// The gateway exposes three HTTP/JSON endpoints under one base URL:
// a forecast lookup by coordinate, a place search by name, and a reverse
// geocode by coordinate. The client wraps all three.
//
// Basic Usage:
//
//	client := weatherapi.NewClient("http://localhost:5000", 10*time.Second)
//
//	snapshot, err := client.FetchForecast(ctx, geo.Coordinate{
//		Latitude:  56.9496, // Riga
//		Longitude: 24.1052,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Now: %.1f°C, code %d\n",
//		snapshot.Current.Temperature,
//		snapshot.Current.WeatherCode)
//
// Endpoints:
//
// - FetchForecast(): GET /api/weather?lat={lat}&lon={lon}
// - Search(): GET /api/geocode?city={query}
// - ReverseLookup(): GET /api/reverse-geocode?lat={lat}&lon={lon}
//
// Errors are typed: transport failures surface as *NetworkError, non-2xx
// statuses as *APIError, and undecodable or inconsistent payloads as
// *ParseError. Callers decide which failures are user-visible.
package weatherapi
