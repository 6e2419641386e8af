package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Info is the relay information document a relay serves over HTTP.
type Info struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Pubkey        string `json:"pubkey"`
	Contact       string `json:"contact"`
	SupportedNIPs []int  `json:"supported_nips"`
	Software      string `json:"software"`
	Version       string `json:"version"`
}

func (i Info) Supports(nip int) bool {
	for _, n := range i.SupportedNIPs {
		if n == nip {
			return true
		}
	}
	return false
}

type InfoClient struct {
	http *http.Client
}

func NewInfoClient(httpClient *http.Client) *InfoClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &InfoClient{http: httpClient}
}

// Fetch reads the information document of the relay at relayURL, which may
// be given with its ws:// or wss:// scheme.
func (c *InfoClient) Fetch(ctx context.Context, relayURL string) (Info, error) {
	endpoint, err := infoURL(relayURL)
	if err != nil {
		return Info{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Info{}, fmt.Errorf("build relay info request: %w", err)
	}
	req.Header.Set("Accept", "application/nostr+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("relay info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Info{}, fmt.Errorf("relay info failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info Info
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMessageSize)).Decode(&info); err != nil {
		return Info{}, fmt.Errorf("decode relay info response: %w", err)
	}
	return info, nil
}

func infoURL(relayURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(relayURL))
	if err != nil {
		return "", fmt.Errorf("invalid relay url %q: %w", relayURL, err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported relay url scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid relay url host: %q", relayURL)
	}
	return u.String(), nil
}
