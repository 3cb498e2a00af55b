package models

// GroupByMonth partitions a daily forecast series into contiguous calendar
// months. Day order within a month and month order across the result follow
// the order of the input series. The function is pure: concatenating the
// days of every returned month reproduces the input exactly.
func GroupByMonth(daily []DailyForecast) []MonthForecast {
	if len(daily) == 0 {
		return nil
	}

	var months []MonthForecast
	for _, day := range daily {
		year, month := day.Date.Year(), day.Date.Month()

		if n := len(months); n > 0 && months[n-1].Year == year && months[n-1].Month == month {
			months[n-1].Days = append(months[n-1].Days, day)
			continue
		}

		months = append(months, MonthForecast{
			Name:  month.String(),
			Year:  year,
			Month: month,
			Days:  []DailyForecast{day},
		})
	}

	return months
}
