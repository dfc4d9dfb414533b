package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// LeaseDirectoryClient talks to the lease/tenant directory service over
// HTTP. The directory owns lease data; the ledger only reads what the audit
// report needs.
type LeaseDirectoryClient struct {
	baseURL string
	client  *http.Client
}

func NewLeaseDirectoryClient(baseURL string) *LeaseDirectoryClient {
	return &LeaseDirectoryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *LeaseDirectoryClient) ActiveLeases(ctx context.Context, propertyID int64) ([]Lease, error) {
	url := fmt.Sprintf("%s/properties/%d/leases?status=active", c.baseURL, propertyID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lease directory returned status %d", resp.StatusCode)
	}

	var payload struct {
		Leases []struct {
			LeaseID         int64           `json:"lease_id"`
			TenantID        int64           `json:"tenant_id"`
			RequiredDeposit decimal.Decimal `json:"required_deposit"`
		} `json:"leases"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	leases := make([]Lease, 0, len(payload.Leases))
	for _, l := range payload.Leases {
		leases = append(leases, Lease{
			LeaseID:         l.LeaseID,
			TenantID:        l.TenantID,
			RequiredDeposit: l.RequiredDeposit,
		})
	}
	return leases, nil
}
