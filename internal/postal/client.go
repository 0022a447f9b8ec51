// Package postal resolves Brazilian postal codes (CEP) against a
// ViaCEP-compatible service.
package postal

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"storefront/internal/domain"
)

var (
	ErrNotFound = errors.New("postal code not found")

	reCode = regexp.MustCompile(`^[0-9]{8}$`)
)

// Valid reports whether code is exactly 8 ASCII digits.
func Valid(code string) bool { return reCode.MatchString(code) }

// viaCEPResponse mirrors the service's JSON. "erro" has been sent both as a
// boolean and as the string "true".
type viaCEPResponse struct {
	Logradouro string `json:"logradouro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

func (r viaCEPResponse) notFound() bool {
	switch v := r.Erro.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *gocache.Cache
}

// NewClient builds a client for baseURL (e.g. https://viacep.com.br).
// Found addresses are cached for cacheTTL; a zero TTL disables caching.
func NewClient(baseURL string, timeout, cacheTTL time.Duration) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	if cacheTTL > 0 {
		c.cache = gocache.New(cacheTTL, 2*cacheTTL)
	}
	return c
}

// Lookup returns the address for code, ErrNotFound, or a transport error.
func (c *Client) Lookup(ctx context.Context, code string) (domain.Address, error) {
	if !Valid(code) {
		return domain.Address{}, errors.Errorf("postal: invalid code %q", code)
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(code); ok {
			if a, ok := v.(domain.Address); ok {
				return a, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ws/"+code+"/json/", nil)
	if err != nil {
		return domain.Address{}, errors.Wrap(err, "postal: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Address{}, errors.Wrap(err, "postal: service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Address{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Address{}, errors.Errorf("postal: service returned %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Address{}, errors.Wrap(err, "postal: decode response")
	}
	if body.notFound() {
		return domain.Address{}, ErrNotFound
	}

	a := domain.Address{Street: body.Logradouro, City: body.Localidade, Region: body.UF}
	if c.cache != nil {
		c.cache.SetDefault(code, a)
	}
	return a, nil
}
