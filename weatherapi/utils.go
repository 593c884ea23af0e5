package weatherapi

// HourlyRow is one hourly slot assembled from the parallel sequences.
type HourlyRow struct {
	Time          string
	Temperature   float64
	Humidity      int
	WeatherCode   int
	WindSpeed     float64
	WindDirection float64
}

// DailyRow is one daily slot assembled from the parallel sequences.
type DailyRow struct {
	Date             string
	WeatherCode      int
	TemperatureMax   float64
	TemperatureMin   float64
	PrecipitationSum float64
	WindSpeedMax     float64
}

// HourlyRows converts the hourly parallel sequences into row form. It
// assumes a validated snapshot and is nil-safe.
func (s *Snapshot) HourlyRows() []HourlyRow {
	if s == nil || len(s.Hourly.Time) == 0 {
		return nil
	}

	rows := make([]HourlyRow, len(s.Hourly.Time))
	for i := range s.Hourly.Time {
		rows[i] = HourlyRow{
			Time:          s.Hourly.Time[i],
			Temperature:   s.Hourly.Temperature[i],
			Humidity:      s.Hourly.Humidity[i],
			WeatherCode:   s.Hourly.WeatherCode[i],
			WindSpeed:     s.Hourly.WindSpeed[i],
			WindDirection: s.Hourly.WindDirection[i],
		}
	}
	return rows
}

// DailyRows converts the daily parallel sequences into row form. It
// assumes a validated snapshot and is nil-safe.
func (s *Snapshot) DailyRows() []DailyRow {
	if s == nil || len(s.Daily.Time) == 0 {
		return nil
	}

	rows := make([]DailyRow, len(s.Daily.Time))
	for i := range s.Daily.Time {
		rows[i] = DailyRow{
			Date:             s.Daily.Time[i],
			WeatherCode:      s.Daily.WeatherCode[i],
			TemperatureMax:   s.Daily.TemperatureMax[i],
			TemperatureMin:   s.Daily.TemperatureMin[i],
			PrecipitationSum: s.Daily.PrecipitationSum[i],
			WindSpeedMax:     s.Daily.WindSpeedMax[i],
		}
	}
	return rows
}
