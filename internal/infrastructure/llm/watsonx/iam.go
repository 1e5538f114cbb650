package watsonx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTokenURL = "https://iam.cloud.ibm.com/identity/token"

// tokenSource exchanges the service API key for a bearer token and caches it
// until shortly before expiry. All requests share one cached token; the
// exchange is serialized so a burst of expired callers does not stampede IAM.
type tokenSource struct {
	tokenURL   string
	apiKey     string
	httpClient *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(tokenURL, apiKey string, httpClient *http.Client) *tokenSource {
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	return &tokenSource{
		tokenURL:   tokenURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (t *tokenSource) bearer(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expires) {
		return t.token, nil
	}

	form := url.Values{
		"grant_type": {"urn:ibm:params:oauth:grant-type:apikey"},
		"apikey":     {t.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("iam token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &HTTPStatusError{
			Operation:  "token",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty iam access token")
	}

	t.token = tokenResp.AccessToken
	// Refresh a minute early so in-flight calls never carry a dying token.
	t.expires = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - time.Minute)
	return t.token, nil
}

func (t *tokenSource) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expires = time.Time{}
}
