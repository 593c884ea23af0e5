// Package main provides the StratusDeck weather dashboard entry point and CLI interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stratusdeck/stratusdeck/conditions"
	"github.com/stratusdeck/stratusdeck/dashboard"
	"github.com/stratusdeck/stratusdeck/geo"
	"github.com/stratusdeck/stratusdeck/locate"
	"github.com/stratusdeck/stratusdeck/timefmt"
	"github.com/stratusdeck/stratusdeck/weatherapi"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	// Command line flags
	var (
		configFile = flag.String("config", "config.json", "Configuration file path")
		once       = flag.Bool("once", false, "Fetch the forecast once, print it, and exit")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	config, err := loadConfig(*configFile)
	if err != nil {
		fmt.Println("Error loading configuration:", err)
		return
	}

	if *once {
		runOnce(config)
		return
	}

	fmt.Printf("Starting StratusDeck with the following configuration:\n")
	fmt.Printf("  API Base URL: %s\n", config.APIBaseURL)
	fmt.Printf("  Location Source: %s\n", config.LocationSource)
	fmt.Printf("  Search Debounce: %s\n", config.SearchDebounce)
	fmt.Printf("  Clock Interval: %s\n", config.ClockInterval)
	fmt.Printf("  HTTP Port: %d\n", config.HTTPPort)

	if config.PostgresConnString != "" {
		fmt.Printf("  History: PostgreSQL recording enabled\n")
	}
	fmt.Println()

	// Create logger
	logger := log.New(os.Stdout, "[DASHBOARD] ", log.LstdFlags)

	// Create the API client and location provider
	client := weatherapi.NewClient(config.APIBaseURL, config.APITimeout)
	searcher := weatherapi.NewRateLimitedSearcher(client, config.GeocodeRateRPS, config.GeocodeRateBurst)
	locator := newLocator(config)

	store := dashboard.New(config, searcher, client, client, locator, logger)

	var history *dashboard.History
	if config.PostgresConnString != "" {
		history, err = dashboard.NewHistory(config.PostgresConnString, logger)
		if err != nil {
			logger.Printf("Forecast history disabled: %v", err)
			history = nil
		} else {
			store.SetHistory(history)
			defer history.Close()
		}
	}

	if err := store.Start(); err != nil {
		fmt.Println("Error starting dashboard:", err)
		return
	}

	webServer := dashboard.NewWebServer(store, history, config.HTTPPort)
	if err := webServer.Start(); err != nil {
		logger.Printf("Error starting web server: %v", err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Printf("Dashboard started. Press Ctrl+C to stop...")

	// Wait for shutdown signal
	<-sigChan
	logger.Printf("Shutdown signal received, stopping dashboard...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logger.Printf("Error stopping web server: %v", err)
	}
	store.Stop()

	logger.Printf("Dashboard stopped successfully")
}

// loadConfig reads the configuration file when it exists and falls back to
// defaults otherwise. Environment overrides apply in both cases.
func loadConfig(filename string) (*dashboard.Config, error) {
	config := dashboard.DefaultConfig()

	if _, err := os.Stat(filename); err == nil {
		loaded, err := dashboard.LoadConfig(filename)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// newLocator picks the startup location provider for the configured source.
func newLocator(config *dashboard.Config) locate.Provider {
	switch config.LocationSource {
	case "manual":
		return locate.Fixed{Coordinate: geo.Coordinate{Latitude: config.Latitude, Longitude: config.Longitude}}
	case "ip":
		return locate.NewIPLocator(config.IPLookupURL, config.APITimeout)
	default:
		return locate.Unavailable{}
	}
}

func runOnce(config *dashboard.Config) {
	logger := log.New(os.Stdout, "[FETCH] ", log.LstdFlags)

	client := weatherapi.NewClient(config.APIBaseURL, config.APITimeout)
	locator := newLocator(config)

	ctx, cancel := context.WithTimeout(context.Background(), config.APITimeout)
	defer cancel()

	coord, err := locator.Locate(ctx)
	if err != nil {
		logger.Printf("Error determining location: %v", err)
		return
	}

	label := "Current Location"
	if place, err := client.ReverseLookup(ctx, coord); err == nil && place != nil {
		label = place.Label()
	}

	logger.Printf("Fetching forecast for %s (%s)...", label, coord)
	snapshot, err := client.FetchForecast(ctx, coord)
	if err != nil {
		logger.Printf("Error fetching forecast: %v", err)
		return
	}

	fmt.Println("\n========================================")
	fmt.Printf("WEATHER FOR %s\n", label)
	fmt.Println("========================================")
	fmt.Printf("Conditions:  %s\n", conditions.Describe(snapshot.Current.WeatherCode))
	fmt.Printf("Temperature: %.1f°C\n", snapshot.Current.Temperature)
	fmt.Printf("Humidity:    %d%%\n", snapshot.Current.Humidity)
	fmt.Printf("Wind:        %.1f km/h %s\n", snapshot.Current.WindSpeed, conditions.Direction(snapshot.Current.WindDirection))

	days := snapshot.DailyRows()
	if len(days) == 0 {
		return
	}

	fmt.Println()
	fmt.Println("┌──────────────┬──────────────────────────────┬────────┬────────┬────────┬──────────┐")
	fmt.Println("│     Day      │          Conditions          │  High  │  Low   │ Precip │ Wind Max │")
	fmt.Println("│              │                              │  (°C)  │  (°C)  │  (mm)  │  (km/h)  │")
	fmt.Println("├──────────────┼──────────────────────────────┼────────┼────────┼────────┼──────────┤")

	for i, day := range days {
		dayLabel := day.Date
		if formatted, err := timefmt.DayLabel(day.Date, i == 0); err == nil {
			dayLabel = formatted
		}
		fmt.Printf("│ %-12s │ %-28s │ %5.1f  │ %5.1f  │ %5.1f  │  %6.1f  │\n",
			dayLabel,
			conditions.Describe(day.WeatherCode),
			day.TemperatureMax,
			day.TemperatureMin,
			day.PrecipitationSum,
			day.WindSpeedMax,
		)
	}

	fmt.Println("└──────────────┴──────────────────────────────┴────────┴────────┴────────┴──────────┘")
}

func showHelp() {
	fmt.Println("StratusDeck - Weather dashboard with location search and live forecasts")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  A weather dashboard that locates the viewer at startup, fetches current,")
	fmt.Println("  hourly, and daily forecasts from an Open-Meteo style backend, and serves a")
	fmt.Println("  live web dashboard with debounced city search.")
	fmt.Println()
	fmt.Println("  Key Features:")
	fmt.Println("  - Automatic startup location via IP geolocation")
	fmt.Println("  - Debounced city search with stale result suppression")
	fmt.Println("  - Hourly and seven day forecast views with sunrise/sunset times")
	fmt.Println("  - Real-time web dashboard over WebSocket")
	fmt.Println("  - Optional forecast history recording in PostgreSQL")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  stratusdeck [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Basic usage with default settings")
	fmt.Println("  stratusdeck")
	fmt.Println()
	fmt.Println("  # Custom configuration")
	fmt.Println("  stratusdeck --config=config.json")
	fmt.Println()
	fmt.Println("  # Fetch the forecast once and print it")
	fmt.Println("  stratusdeck -once")
	fmt.Println()
	fmt.Println("  # Show this help")
	fmt.Println("  stratusdeck -help")
}
