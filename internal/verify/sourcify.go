package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lgns/provisioner/internal/logger"
)

// Client talks to a Sourcify-compatible verification server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

type (
	checkResponse struct {
		Address  string          `json:"address"`
		Status   string          `json:"status"`
		ChainIDs json.RawMessage `json:"chainIds"`
	}

	chainStatus struct {
		ChainID string `json:"chainId"`
		Status  string `json:"status"`
	}

	verifyRequest struct {
		Address string            `json:"address"`
		Chain   string            `json:"chain"`
		Files   map[string]string `json:"files"`
	}

	verifyResponse struct {
		Error  string `json:"error"`
		Result []struct {
			Address string `json:"address"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"result"`
	}
)

// NewClient creates a client for endpoint, e.g. https://sourcify.roninchain.com/server/.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		logger:     logger.Named("sourcify_client"),
	}
}

// Check reports whether address already has a full or partial match on chainID.
func (c *Client) Check(ctx context.Context, chainID uint64, address common.Address) (bool, error) {
	query := url.Values{}
	query.Set("addresses", address.Hex())
	query.Set("chainIds", strconv.FormatUint(chainID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/check-by-addresses?"+query.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to query verification status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read verification status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verification status request failed with %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var entries []checkResponse
	if err := json.Unmarshal(body, &entries); err != nil {
		return false, fmt.Errorf("failed to parse verification status: %w", err)
	}

	for _, entry := range entries {
		if !strings.EqualFold(entry.Address, address.Hex()) {
			continue
		}
		if isMatch(entry.Status) {
			return true, nil
		}
		var statuses []chainStatus
		if err := json.Unmarshal(entry.ChainIDs, &statuses); err == nil {
			for _, s := range statuses {
				if s.ChainID == strconv.FormatUint(chainID, 10) && isMatch(s.Status) {
					return true, nil
				}
			}
		}
	}

	return false, nil
}

// Verify submits the compiler metadata and sources for address.
func (c *Client) Verify(ctx context.Context, chainID uint64, address common.Address, files map[string]string) error {
	payload, err := json.Marshal(verifyRequest{
		Address: address.Hex(),
		Chain:   strconv.FormatUint(chainID, 10),
		Files:   files,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/verify", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit verification: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read verification response: %w", err)
	}

	var result verifyResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode != http.StatusOK {
		message := result.Error
		if decodeErr != nil || message == "" {
			message = strings.TrimSpace(string(body))
		}
		return fmt.Errorf("verification rejected with %d: %s", resp.StatusCode, message)
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode verification response: %w", decodeErr)
	}
	if len(result.Result) == 0 {
		return fmt.Errorf("verification response has no result: %s", strings.TrimSpace(string(body)))
	}

	for _, r := range result.Result {
		if !isMatch(r.Status) {
			return fmt.Errorf("verification returned status %q: %s", r.Status, r.Message)
		}
	}

	c.logger.With("address", address.Hex()).With("chain_id", chainID).Debug("verification accepted")

	return nil
}

func isMatch(status string) bool {
	return status == "perfect" || status == "partial"
}
