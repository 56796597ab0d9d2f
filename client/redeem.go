// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"regexp"
)

// giftCodePattern matches a gift code either inside a gift URL or
// standing bare: 16 to 24 alphanumeric characters. The capture group
// is the code itself.
var giftCodePattern = regexp.MustCompile(`(?:discord(?:app)?\.com/gifts/)?\b([A-Za-z0-9]{16,24})\b`)

// extractGiftCodes pulls every distinct gift code out of free-form
// text, preserving first-occurrence order.
func extractGiftCodes(text string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, match := range giftCodePattern.FindAllStringSubmatch(text, -1) {
		code := match[1]
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes
}

type redeemRequest struct {
	ChannelID string `json:"channel_id,omitempty"`
}

// RedeemCode extracts every gift code from text and redeems each one,
// at most once per client lifetime (the used set resets hourly). A
// code is marked used before its redemption request goes out, so a
// failed attempt is not retried until the next reset.
//
// With failFast the first redemption error is returned immediately;
// otherwise failures are logged and the remaining codes still run.
// Either way the boolean reports whether at least one redemption
// succeeded.
func (c *Client) RedeemCode(ctx context.Context, text, channelID string, failFast bool) (bool, error) {
	redeemed := false
	for _, code := range extractGiftCodes(text) {
		if !c.markCodeUsed(code) {
			c.logger.Debug("skipping already-attempted gift code", "code", code)
			continue
		}

		_, err := c.rest.Post(ctx, "/entitlements/gift-codes/"+code+"/redeem",
			c.currentToken(), redeemRequest{ChannelID: channelID})
		if err != nil {
			if failFast {
				return redeemed, fmt.Errorf("client: redeeming gift code %s: %w", code, err)
			}
			c.logger.Warn("gift code redemption failed", "code", code, "error", err)
			continue
		}
		redeemed = true
		c.logger.Info("gift code redeemed", "code", code)
	}
	return redeemed, nil
}

// markCodeUsed records a redemption attempt. Returns false if the
// code was already attempted within the current window.
func (c *Client) markCodeUsed(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usedCodes[code] {
		return false
	}
	c.usedCodes[code] = true
	return true
}
