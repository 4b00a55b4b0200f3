package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// RatesAPIClient talks to an exchangerate-api style service:
// GET {baseURL}/{CODE} returns the conversion rates of CODE.
type RatesAPIClient struct {
	http    *http.Client
	baseURL string
}

type apiResponse struct {
	Result          string             `json:"result"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
	ErrorType       string             `json:"error-type"`
}

func (c *RatesAPIClient) GetExchangeRates(ctx context.Context, code string) (map[string]float64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("currency code is required")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + code

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for currency %q: %w", code, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request for currency %q: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status code %d for currency %q: %s", resp.StatusCode, code, resp.Status)
	}

	var body apiResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response for currency %q: %w", code, err)
	}
	if body.Result != "success" {
		return nil, fmt.Errorf("api returned non-success result for currency %q: %s %s", code, body.Result, body.ErrorType)
	}
	if body.BaseCode != "" && !strings.EqualFold(body.BaseCode, code) {
		return nil, fmt.Errorf("api answered for %q, requested %q", body.BaseCode, code)
	}

	rates := make(map[string]float64, len(body.ConversionRates))
	for quote, v := range body.ConversionRates {
		if v <= 0 {
			logrus.WithFields(logrus.Fields{"base": code, "quote": quote}).Warn("dropping non-positive rate")
			continue
		}
		rates[strings.ToUpper(quote)] = v
	}
	return rates, nil
}

func NewRatesAPIClient(httpClient *http.Client, baseURL string) *RatesAPIClient {
	return &RatesAPIClient{http: httpClient, baseURL: baseURL}
}
