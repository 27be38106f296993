// src/processors/fxrate.go
package processors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/gainledger/src/logger"
	"github.com/username/gainledger/src/models"
)

// rateCache holds ECB observations keyed by currency and date.
var rateCache = cache.New(24*time.Hour, 48*time.Hour)

// RateTable maps a statement currency to its CNY conversion rate for the
// report year, as supplied on the request form.
type RateTable map[string]float64

// ParseRateTable reads user-entered rates ("HKD" -> "0.92"). Blank and
// unparsable entries are dropped so a missing rate surfaces as an absent
// key rather than a zero conversion.
func ParseRateTable(values map[string]string) RateTable {
	table := make(RateTable)
	for currency, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate <= 0 {
			logger.L.Warn("Ignoring invalid exchange rate", "currency", currency, "value", raw)
			continue
		}
		table[strings.ToUpper(strings.TrimSpace(currency))] = rate
	}
	return table
}

// Rate resolves the CNY rate for a currency, first from the user table and
// then from the ECB cross rate for the given date. The second return is
// false when neither source can supply one.
func (t RateTable) Rate(currency string, date time.Time) (float64, bool) {
	currency = strings.ToUpper(currency)
	if currency == "CNY" || currency == "CNH" {
		return 1.0, true
	}
	if rate, ok := t[currency]; ok {
		return rate, true
	}
	rate, err := ecbCrossRateToCNY(currency, date)
	if err != nil {
		logger.L.Warn("No exchange rate available", "currency", currency, "error", err)
		return 0, false
	}
	return rate, true
}

// ecbCrossRateToCNY derives CURRENCY->CNY from the ECB's EUR-based daily
// series: rate = EUR->CNY / EUR->CURRENCY.
func ecbCrossRateToCNY(currency string, date time.Time) (float64, error) {
	perEURTarget, err := fetchECBRate("CNY", date)
	if err != nil {
		return 0, err
	}
	perEURSource, err := fetchECBRate(currency, date)
	if err != nil {
		return 0, err
	}
	if perEURSource == 0 {
		return 0, fmt.Errorf("zero ECB rate for %s", currency)
	}
	return perEURTarget / perEURSource, nil
}

// fetchECBRate retrieves the EUR->currency rate from the ECB API, walking
// back up to 7 days to skip weekends and holidays. Results are cached.
func fetchECBRate(currency string, date time.Time) (float64, error) {
	if currency == "EUR" {
		return 1.0, nil
	}

	cacheKey := fmt.Sprintf("rate-%s-%s", currency, date.Format("2006-01-02"))
	if rate, found := rateCache.Get(cacheKey); found {
		return rate.(float64), nil
	}

	for i := 0; i < 7; i++ {
		queryDate := date.AddDate(0, 0, -i)
		dateStr := queryDate.Format("2006-01-02")

		seriesKey := fmt.Sprintf("D.%s.EUR.SP00.A", currency)
		url := fmt.Sprintf(
			"https://data-api.ecb.europa.eu/service/data/EXR/%s?startPeriod=%s&endPeriod=%s&format=jsondata",
			seriesKey,
			dateStr,
			dateStr,
		)

		resp, err := http.Get(url)
		if err != nil {
			logger.L.Warn("Failed to make ECB API request", "url", url, "error", err)
			continue
		}

		// 404 means no observation for this day (weekend or holiday).
		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			continue
		}
		if resp.StatusCode != http.StatusOK {
			logger.L.Warn("ECB API returned non-OK status", "status", resp.Status, "url", url)
			resp.Body.Close()
			continue
		}

		var ecbData models.ECBResponse
		err = json.NewDecoder(resp.Body).Decode(&ecbData)
		resp.Body.Close()
		if err != nil {
			logger.L.Warn("Failed to decode ECB API response", "url", url, "error", err)
			continue
		}

		rate, err := extractRateFromResponse(ecbData)
		if err != nil {
			logger.L.Warn("Could not extract rate from ECB response", "date", dateStr, "error", err)
			continue
		}

		rateCache.Set(cacheKey, rate, cache.DefaultExpiration)
		return rate, nil
	}

	return 0, fmt.Errorf("exchange rate not found for %s on or before %s", currency, date.Format("2006-01-02"))
}

// extractRateFromResponse navigates the ECB JSON structure to the single
// observation value.
func extractRateFromResponse(data models.ECBResponse) (float64, error) {
	if len(data.DataSets) == 0 {
		return 0, fmt.Errorf("no dataSets in response")
	}

	for _, seriesData := range data.DataSets[0].Series {
		if observations, ok := seriesData.Observations["0"]; ok {
			if len(observations) > 0 {
				return observations[0], nil
			}
		}
	}

	return 0, fmt.Errorf("observation value not found in the expected structure")
}
