package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
)

// Client talks to the platform portal API. Every request goes out through
// the wallet's own proxy, so each wallet keeps a stable exit IP.
type Client struct {
	cfg     config.PortalConfig
	wallets storage.WalletRepository
}

// NewClient creates a portal API client.
func NewClient(cfg config.PortalConfig, wallets storage.WalletRepository) *Client {
	return &Client{cfg: cfg, wallets: wallets}
}

// httpClient builds a client routed through the given proxy.
func (c *Client) httpClient(proxy string) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{
		Timeout:   c.cfg.Timeout,
		Transport: transport,
	}, nil
}

// apiError is the portal's error envelope.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// errRateLimited is a marker wrapped into doJSON errors on HTTP 429.
type rateLimitError struct {
	msg string
}

func (e *rateLimitError) Error() string { return e.msg }

// doJSON performs an authenticated JSON request through the wallet's proxy.
// Network-level failures come back as *domain.TransportError.
func (c *Client) doJSON(
	ctx context.Context,
	wallet *domain.Wallet,
	method, path string,
	body any,
	out any,
) error {
	return c.doJSONVia(ctx, wallet, wallet.Proxy, method, path, body, out)
}

// doJSONVia is doJSON with an explicit exit proxy. Discord traffic uses a
// separate proxy pool from the rest of the portal flow.
func (c *Client) doJSONVia(
	ctx context.Context,
	wallet *domain.Wallet,
	proxy string,
	method, path string,
	body any,
	out any,
) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if wallet.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+wallet.AuthToken)
	}

	client, err := c.httpClient(proxy)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return &domain.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: "read " + path, Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &rateLimitError{msg: string(respBody)}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("portal %s: %s", path, apiErr.Message)
		}
		return fmt.Errorf("portal %s: http %d: %s", path, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// ensureAuth logs the wallet in when it has no session token yet. The portal
// uses a nonce + personal-sign login flow.
func (c *Client) ensureAuth(ctx context.Context, wallet *domain.Wallet) error {
	if wallet.AuthToken != "" {
		return nil
	}

	var nonceResp struct {
		Nonce string `json:"nonce"`
	}
	path := "/auth/nonce?address=" + url.QueryEscape(wallet.Address)
	if err := c.doJSON(ctx, wallet, http.MethodGet, path, nil, &nonceResp); err != nil {
		return fmt.Errorf("fetch nonce: %w", err)
	}

	sig, err := signMessage(wallet.PrivateKey, nonceResp.Nonce)
	if err != nil {
		return err
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	loginReq := map[string]string{
		"address":   wallet.Address,
		"signature": sig,
		"invite":    c.cfg.InviteCode,
	}
	if err := c.doJSON(ctx, wallet, http.MethodPost, "/auth/login", loginReq, &loginResp); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	wallet.AuthToken = loginResp.Token
	if err := c.wallets.Update(ctx, wallet); err != nil {
		return fmt.Errorf("persist auth token: %w", err)
	}
	return nil
}

func signMessage(pkHex, msg string) (string, error) {
	key, err := crypto.HexToECDSA(trimHexPrefix(pkHex))
	if err != nil {
		return "", fmt.Errorf("invalid private key: %w", err)
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return "0x" + fmt.Sprintf("%x", sig), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
