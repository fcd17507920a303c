package pushbullet

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/bulletd/bulletd/tool"
	"github.com/bulletd/bulletd/types"
)

// historyLimit is how many items one GetPushes call asks for. Only the
// newest item is ever used, the rest is slack for server-side filtering.
const historyLimit = 20

// Account is the narrow REST collaborator: push history retrieval and
// payload decryption. It is not a general Pushbullet client.
type Account struct {
	apiBase  string
	token    string
	password string
	client   *http.Client

	// key material, derived on first decrypt
	userIden string
	key      []byte
}

// NewAccount builds an account handle. password may be empty; decryption
// then fails at the point of use.
func NewAccount(cfg types.AppConfig, token, password string) *Account {
	return &Account{
		apiBase:  cfg.APIBase,
		token:    token,
		password: password,
		client:   newHTTPClient(cfg),
	}
}

// newHTTPClient creates the REST client, honoring the optional proxy
// from config.
func newHTTPClient(cfg types.AppConfig) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.ProxyHost != "" {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("%s:%d", cfg.ProxyHost, cfg.ProxyPort),
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

type pushList struct {
	Pushes []types.Push `json:"pushes"`
}

// GetPushes returns the most recent active push history items, newest
// first.
func (a *Account) GetPushes() ([]types.Push, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(historyLimit))
	query.Set("active", "true")

	body, err := a.get("/pushes?" + query.Encode())
	if err != nil {
		return nil, err
	}
	var list pushList
	if err := sonic.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse push history: %v", err)
	}
	return list.Pushes, nil
}

type userInfo struct {
	Iden string `json:"iden"`
}

// fetchUserIden retrieves the account identifier used as the key
// derivation salt.
func (a *Account) fetchUserIden() (string, error) {
	body, err := a.get("/users/me")
	if err != nil {
		return "", err
	}
	var user userInfo
	if err := sonic.Unmarshal(body, &user); err != nil {
		return "", fmt.Errorf("failed to parse user info: %v", err)
	}
	if user.Iden == "" {
		return "", fmt.Errorf("user info carries no iden")
	}
	return user.Iden, nil
}

func (a *Account) get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, a.apiBase+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Access-Token", a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %v", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("request to %s failed with status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}
	return body, nil
}
