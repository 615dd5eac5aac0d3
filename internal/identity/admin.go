package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/iamsyg/artisian-dashboard/pkg/httpclient"
)

// AdminClient calls the identity provider's admin API with the service key.
type AdminClient struct {
	baseURL    string
	serviceKey string
	doer       httpclient.Doer
}

// NewAdminClient creates an AdminClient for baseURL.
func NewAdminClient(baseURL, serviceKey string, doer httpclient.Doer) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		doer:       doer,
	}
}

// DeleteUser removes the identity userID. A user that is already gone
// counts as deleted.
func (c *AdminClient) DeleteUser(ctx context.Context, userID string) error {
	endpoint := c.baseURL + "/admin/users/" + url.PathEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return fmt.Errorf("delete user %s: %w", userID, httpclient.ReadStatusError(resp, "identity"))
	}
	return nil
}
