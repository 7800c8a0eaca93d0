package core

import (
	"context"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// fallbackDeepLinkText is shown when the custodian cannot produce a link for
// a pending request. The request itself is unaffected.
const fallbackDeepLinkText = "Complete in Custodian App"

// DeepLinkResolver fetches the custodian surface link for a pending request.
// Resolution is best effort: any failure degrades to a generic fallback and is
// logged, never propagated, so link problems cannot fail a submission.
type DeepLinkResolver struct {
	logger Logger
}

func NewDeepLinkResolver(logger Logger) *DeepLinkResolver {
	return &DeepLinkResolver{logger: glog.Ensure(logger)}
}

func (r *DeepLinkResolver) Resolve(ctx context.Context, client CustodianClient, requestType RequestType, custodianID string) DeepLink {
	fallback := DeepLink{
		Text:   fallbackDeepLinkText,
		ID:     custodianID,
		Action: "view",
	}
	if r == nil || client == nil || strings.TrimSpace(custodianID) == "" {
		return fallback
	}

	var (
		link DeepLink
		err  error
	)
	switch requestType {
	case RequestTypeTransaction:
		link, err = client.GetTransactionLink(ctx, custodianID)
	case RequestTypeMessage:
		link, err = client.GetSignedMessageLink(ctx, custodianID)
	default:
		return fallback
	}
	if err != nil {
		r.logger.Warn("deep link resolution failed, using fallback",
			"custodian_request_id", custodianID,
			"request_type", string(requestType),
			"error", err.Error(),
		)
		return fallback
	}
	if strings.TrimSpace(link.Text) == "" {
		link.Text = fallbackDeepLinkText
	}
	if strings.TrimSpace(link.ID) == "" {
		link.ID = custodianID
	}
	if strings.TrimSpace(link.Action) == "" {
		link.Action = "view"
	}
	return link
}
