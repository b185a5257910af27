package velmoadmin

import (
	"context"
	"fmt"
)

// invalidateAfterMutation clears the views a successful mutation made
// stale. A failed fan-out leaves stale entries behind in a shared store,
// so failures are logged instead of dropped.
func (c *Client) invalidateAfterMutation(ctx context.Context, kinds []Kind, keys ...Key) {
	for _, kind := range kinds {
		if err := c.fetch.invalidateKind(ctx, kind); err != nil {
			c.log.Warn("post-mutation invalidation failed", "kind", string(kind), "error", err)
		}
	}
	for _, key := range keys {
		if err := c.fetch.invalidate(ctx, key); err != nil {
			c.log.Warn("post-mutation invalidation failed", "key", key.String(), "error", err)
		}
	}
}

// UpdateUserStatus sets a user's moderation status. The is_active flag
// follows the status so legacy consumers keyed on it stay consistent.
// On success every cached view the user appears in is invalidated; on
// failure the cache is left untouched.
func (c *Client) UpdateUserStatus(ctx context.Context, userID string, status UserStatus) error {
	if userID == "" {
		return fmt.Errorf("velmoadmin: user id is required: %w", ErrValidation)
	}
	_, err := c.q.Mutate(ctx, "users",
		map[string]any{"id": userID},
		map[string]any{
			"status":    string(status),
			"is_active": status == UserActive,
		})
	if err != nil {
		return fmt.Errorf("velmoadmin: failed to update user %s status: %w", userID, err)
	}

	c.invalidateAfterMutation(ctx, []Kind{KindAllUsers},
		UserDetailKey(userID), PlatformStatsKey())
	return nil
}

// UpdateShopStatus sets a shop's moderation status. Invalidation covers
// the overview list, the shop's detail aggregate and the platform stats.
func (c *Client) UpdateShopStatus(ctx context.Context, shopID string, status ShopStatus) error {
	if shopID == "" {
		return fmt.Errorf("velmoadmin: shop id is required: %w", ErrValidation)
	}
	_, err := c.q.Mutate(ctx, "shops",
		map[string]any{"id": shopID},
		map[string]any{
			"status":    string(status),
			"is_active": status == ShopActive,
		})
	if err != nil {
		return fmt.Errorf("velmoadmin: failed to update shop %s status: %w", shopID, err)
	}

	c.invalidateAfterMutation(ctx, []Kind{KindShopOverview},
		ShopDetailKey(shopID), PlatformStatsKey())
	return nil
}

// OnlineSettingsPatch carries the online storefront fields an admin can
// change. Nil fields are left untouched.
type OnlineSettingsPatch struct {
	IsPublic     *bool
	IsVerified   *bool
	Slug         *string
	Location     *string
	Whatsapp     *string
	OpeningHours *string
	Description  *string
}

// UpdateOnlineSettings patches a shop's online storefront settings and
// invalidates the views that render them.
func (c *Client) UpdateOnlineSettings(ctx context.Context, shopID string, patch OnlineSettingsPatch) error {
	if shopID == "" {
		return fmt.Errorf("velmoadmin: shop id is required: %w", ErrValidation)
	}

	values := map[string]any{}
	if patch.IsPublic != nil {
		values["is_public"] = *patch.IsPublic
	}
	if patch.IsVerified != nil {
		values["is_verified"] = *patch.IsVerified
	}
	if patch.Slug != nil {
		values["slug"] = *patch.Slug
	}
	if patch.Location != nil {
		values["location"] = *patch.Location
	}
	if patch.Whatsapp != nil {
		values["whatsapp"] = *patch.Whatsapp
	}
	if patch.OpeningHours != nil {
		values["opening_hours"] = *patch.OpeningHours
	}
	if patch.Description != nil {
		values["description"] = *patch.Description
	}
	if len(values) == 0 {
		return fmt.Errorf("velmoadmin: empty settings patch: %w", ErrValidation)
	}

	_, err := c.q.Mutate(ctx, "shops", map[string]any{"id": shopID}, values)
	if err != nil {
		return fmt.Errorf("velmoadmin: failed to update shop %s online settings: %w", shopID, err)
	}

	c.invalidateAfterMutation(ctx, []Kind{KindShopOverview, KindCustomerOrders},
		ShopDetailKey(shopID), OnlineSettingsKey(shopID))
	return nil
}
