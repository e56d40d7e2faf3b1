package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fundwise/fundwise/internal/config"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrRatesUnavailable = errors.New("exchange rates unavailable")

// Rates holds how much of each currency one unit of Base buys.
type Rates struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

type Client interface {
	Latest(ctx context.Context, base string) (Rates, error) // GET /latest?base={base}
}

type ClientImpl struct {
	baseURL string
	client  *http.Client
}

// NewClient talks to a Frankfurter compatible rates API over httpClient. When a
// client id is configured, requests carry an OAuth2 client-credentials token
// fetched through the same client.
func NewClient(cfg config.Rates, httpClient *http.Client) *ClientImpl {
	client := httpClient
	if cfg.ClientId != "" {
		credentials := clientcredentials.Config{
			ClientID:     cfg.ClientId,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		client = credentials.Client(tokenCtx)
		client.Timeout = httpClient.Timeout
	}
	return &ClientImpl{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  client,
	}
}

func (c *ClientImpl) Latest(ctx context.Context, base string) (Rates, error) {
	endpoint := c.baseURL + "/latest?base=" + url.QueryEscape(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return Rates{}, err
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("Failed to execute rates request: %v", err)
		return Rates{}, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	defer resp.Body.Close()
	log.Debugf("rates for %s fetched in %s", base, time.Since(started))

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: rates API returned status %d", ErrRatesUnavailable, resp.StatusCode)
		log.Error(err)
		return Rates{}, err
	}

	var rates Rates
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		log.Errorf("Failed to decode rates response: %v", err)
		return Rates{}, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	if rates.Base == "" {
		rates.Base = base
	}
	return rates, nil
}
