package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// GetProfile fetches the directory record for one user.
func (c *Client) GetProfile(ctx context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, errors.New("uid is required")
	}

	var profile Profile
	path := fmt.Sprintf("/v1/profiles/%s", uid)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// BlockUser adds a target to the user's block list.
func (c *Client) BlockUser(ctx context.Context, userID, targetID string) error {
	return c.updateBlock(ctx, userID, targetID, true)
}

// UnblockUser removes a target from the user's block list.
func (c *Client) UnblockUser(ctx context.Context, userID, targetID string) error {
	return c.updateBlock(ctx, userID, targetID, false)
}

func (c *Client) updateBlock(ctx context.Context, userID, targetID string, blocked bool) error {
	if userID == "" {
		return errors.New("user ID is required")
	}
	if targetID == "" {
		return errors.New("target ID is required")
	}
	if userID == targetID {
		return errors.New("cannot block yourself")
	}

	path := fmt.Sprintf("/v1/profiles/%s/blocks/%s", userID, targetID)
	method := http.MethodPut
	if !blocked {
		method = http.MethodDelete
	}
	return c.doJSON(ctx, method, path, nil, nil)
}
