package kliento

import "context"

// ensureFreshToken rotates the access token after a 401. The gate guarantees
// at most one AuthProvider.RefreshToken call is in flight per client
// instance; concurrent 401s join the same call and share its outcome. The
// gate slot is released when the call returns, success or failure, so a
// later 401 can trigger a new rotation.
func (c *Client) ensureFreshToken(ctx context.Context) error {
	if c.auth == nil {
		return NewAPIError("no auth provider configured", 401, CodeAuthRefreshFailed)
	}

	err := c.refreshGate.Do(ctx, func() error {
		if c.debugOn() && c.debug.LogRefresh {
			c.logger.Info("refreshing access token")
		}
		return c.auth.RefreshToken(ctx)
	})
	if err != nil {
		c.metrics.RecordRefresh("failure")
		if c.debugOn() && c.debug.LogRefresh {
			c.logger.Warn("token refresh failed", "error", err.Error())
		}
		refreshErr := NewAPIError("Authentication refresh failed", 401, CodeAuthRefreshFailed)
		refreshErr.Cause = err
		return refreshErr
	}

	c.metrics.RecordRefresh("success")
	return nil
}
