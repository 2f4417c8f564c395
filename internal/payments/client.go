// Package payments talks to the external payment provider. Settlement never
// trusts client input: the paid state and the coin amount come from the
// provider, pushed by webhook or pulled through Client.Confirm.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Confirmation is the provider's view of a checkout session.
type Confirmation struct {
	Paid    bool
	Coins   int
	BuyerID uuid.UUID
}

// Client queries the provider's checkout-session API with a secret key.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

func NewClient(baseURL, key string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionResponse struct {
	ID            string `json:"id"`
	PaymentStatus string `json:"payment_status"`
	Metadata      struct {
		BuyerID string `json:"buyer_id"`
		Coins   int    `json:"coins"`
	} `json:"metadata"`
}

// Confirm fetches the session's paid state. An unknown session reads as not
// paid; transport and auth failures are errors.
func (c *Client) Confirm(ctx context.Context, sessionID string) (Confirmation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return Confirmation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.http.Do(req)
	if err != nil {
		return Confirmation{}, fmt.Errorf("query payment provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Confirmation{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Confirmation{}, fmt.Errorf("payment provider responded %d", resp.StatusCode)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Confirmation{}, fmt.Errorf("decode provider session: %w", err)
	}
	conf := Confirmation{Paid: sr.PaymentStatus == "paid", Coins: sr.Metadata.Coins}
	if id, err := uuid.Parse(sr.Metadata.BuyerID); err == nil {
		conf.BuyerID = id
	}
	return conf, nil
}
