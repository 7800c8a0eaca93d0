package core

import (
	"context"
	"fmt"
)

// handleTokenEvent reacts to token lifecycle events emitted synchronously by
// wire clients mid-call.
//
// For a rotation the ordering is load-bearing: every affected registry entry
// is invalidated BEFORE its stored connection details are updated, so no
// caller can grab a cached client still holding the dead token while the new
// one is being persisted. A custodian session can back more than one account,
// so the event fans out to every wallet whose stored token and endpoint match.
func (s *Service) handleTokenEvent(ctx context.Context, event TokenEvent) {
	if s == nil {
		return
	}
	switch event.Kind {
	case TokenEventRotated:
		s.handleTokenRotated(ctx, event)
	case TokenEventExpired:
		s.handleTokenExpired(ctx, event)
	default:
		s.logger.Warn("ignoring unknown token event", "kind", string(event.Kind))
	}
}

func (s *Service) handleTokenRotated(ctx context.Context, event TokenEvent) {
	wallets, err := s.accountStore.ListWallets(ctx)
	if err != nil {
		s.logError(ctx, "token rotation: wallet listing failed", map[string]any{
			"api_base_url": event.APIBaseURL,
			"error":        err.Error(),
		})
		return
	}

	endpoint := canonicalAPIBaseURL(event.APIBaseURL)
	updated := 0
	for _, wallet := range wallets {
		if wallet.Details.RefreshToken != event.OldRefreshToken {
			continue
		}
		if canonicalAPIBaseURL(wallet.Details.APIBaseURL) != endpoint {
			continue
		}

		s.registry.Invalidate(wallet.Account.Address)

		details := wallet.Details
		details.RefreshToken = event.NewRefreshToken
		if err := s.accountStore.UpdateWalletDetails(ctx, wallet.Account.ID, details); err != nil {
			s.logError(ctx, "token rotation: wallet update failed", map[string]any{
				"account_id":   wallet.Account.ID,
				"api_base_url": event.APIBaseURL,
				"error":        err.Error(),
			})
			continue
		}
		updated++
	}

	s.logInfo(ctx, "refresh token rotated", map[string]any{
		"api_base_url":    event.APIBaseURL,
		"wallets_updated": updated,
	})
}

func (s *Service) handleTokenExpired(ctx context.Context, event TokenEvent) {
	s.logError(ctx, "refresh token expired, reauthentication required", map[string]any{
		"api_base_url":       event.APIBaseURL,
		"dead_token_hash":    event.OldRefreshTokenHash,
		"reauthenticate_url": event.ReauthURL,
	})
	message := "Your custodian session has expired. Please reconnect your accounts."
	if event.ReauthURL != "" {
		message = fmt.Sprintf("%s Visit %s to reauthenticate.", message, event.ReauthURL)
	}
	s.renderer.ShowErrorMessage(ctx, message)
}
