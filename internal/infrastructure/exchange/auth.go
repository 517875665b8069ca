package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

const (
	pathToken   = "/oauth2/tokenP"
	pathHashKey = "/uapi/hashkey"
)

// KISAuth issues access tokens and order hash keys. Neither endpoint needs a
// bearer token.
type KISAuth struct {
	baseURL   string
	appKey    string
	appSecret string
	client    *http.Client
	logger    *zap.Logger
}

func NewKISAuth(baseURL, appKey, appSecret string, timeout time.Duration, logger *zap.Logger) *KISAuth {
	if baseURL == "" {
		baseURL = KISBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &KISAuth{
		baseURL:   baseURL,
		appKey:    appKey,
		appSecret: appSecret,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

func (a *KISAuth) post(ctx context.Context, path string, payload any, withKeys bool) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if withKeys {
		req.Header.Set("appkey", a.appKey)
		req.Header.Set("appsecret", a.appSecret)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// RequestNewToken performs the client-credentials grant.
func (a *KISAuth) RequestNewToken(ctx context.Context) (string, error) {
	payload := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     a.appKey,
		"appsecret":  a.appSecret,
	}
	body, err := a.post(ctx, pathToken, payload, false)
	if err != nil {
		a.logger.Error("Token request failed", zap.Error(err))
		return "", fmt.Errorf("token request: %w", err)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token response without access_token: %w", domain.ErrTokenUnavailable)
	}
	return result.AccessToken, nil
}

// IntegrityHash returns the HASH computed by the provider for payload.
func (a *KISAuth) IntegrityHash(ctx context.Context, payload domain.OrderPayload) (string, error) {
	body, err := a.post(ctx, pathHashKey, payload, true)
	if err != nil {
		a.logger.Error("Hash key request failed", zap.Error(err))
		return "", fmt.Errorf("hashkey request: %w", err)
	}

	var result struct {
		Hash string `json:"HASH"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("hashkey response: %w", err)
	}
	if result.Hash == "" {
		return "", domain.ErrHashUnavailable
	}
	return result.Hash, nil
}
