package core

import (
	"context"
	"errors"
	"testing"
)

func TestDeepLinkResolver_CustodianFailureFallsBack(t *testing.T) {
	client := newFakeClient(CustodianTypeGen3)
	client.getTxLinkFn = func(context.Context, string) (DeepLink, error) {
		return DeepLink{}, errors.New("link service down")
	}

	resolver := NewDeepLinkResolver(nil)
	link := resolver.Resolve(context.Background(), client, RequestTypeTransaction, "tx-1")
	if link.Text != fallbackDeepLinkText {
		t.Fatalf("expected fallback text, got %q", link.Text)
	}
	if link.ID != "tx-1" || link.Action != "view" {
		t.Fatalf("unexpected fallback link %+v", link)
	}
}

func TestDeepLinkResolver_FillsMissingFields(t *testing.T) {
	client := newFakeClient(CustodianTypeGen3)
	client.getMessageLinkFn = func(context.Context, string) (DeepLink, error) {
		return DeepLink{URL: "https://custodian.example/msg/msg-1"}, nil
	}

	resolver := NewDeepLinkResolver(nil)
	link := resolver.Resolve(context.Background(), client, RequestTypeMessage, "msg-1")
	if link.Text != fallbackDeepLinkText {
		t.Fatalf("empty text must fall back, got %q", link.Text)
	}
	if link.ID != "msg-1" {
		t.Fatalf("empty id must default to the custodian id, got %q", link.ID)
	}
	if link.URL != "https://custodian.example/msg/msg-1" {
		t.Fatalf("custodian url must be preserved, got %q", link.URL)
	}
}

func TestDeepLinkResolver_BlankCustodianIDFallsBack(t *testing.T) {
	resolver := NewDeepLinkResolver(nil)
	link := resolver.Resolve(context.Background(), newFakeClient(CustodianTypeGen3), RequestTypeTransaction, "  ")
	if link.Text != fallbackDeepLinkText {
		t.Fatalf("expected fallback, got %q", link.Text)
	}
}
