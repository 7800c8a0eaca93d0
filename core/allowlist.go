package core

import "strings"

// CustodianMetadata is one allow-list entry describing a known custodian
// deployment.
type CustodianMetadata struct {
	APIBaseURL            string
	Name                  string
	DisplayName           string
	PublishesTransactions bool
	APIVersion            CustodianType
	Production            bool
}

// DefaultCustodianAllowList lists the custodian deployments account creation
// trusts in strict mode.
func DefaultCustodianAllowList() []CustodianMetadata {
	return []CustodianMetadata{
		{
			APIBaseURL:            "https://api.keyhaven.io",
			Name:                  "keyhaven-prod",
			DisplayName:           "KeyHaven",
			PublishesTransactions: true,
			APIVersion:            CustodianTypeGen3,
			Production:            true,
		},
		{
			APIBaseURL:            "https://custody.vaultbridge.com",
			Name:                  "vaultbridge-prod",
			DisplayName:           "VaultBridge",
			PublishesTransactions: false,
			APIVersion:            CustodianTypeGen3,
			Production:            true,
		},
		{
			APIBaseURL:            "https://api.signatory.legacy.example.com",
			Name:                  "signatory-legacy",
			DisplayName:           "Signatory",
			PublishesTransactions: true,
			APIVersion:            CustodianTypeGen1,
			Production:            true,
		},
		{
			APIBaseURL:            "https://api.staging.keyhaven.io",
			Name:                  "keyhaven-staging",
			DisplayName:           "KeyHaven Staging",
			PublishesTransactions: true,
			APIVersion:            CustodianTypeGen3,
			Production:            false,
		},
	}
}

// LookupCustodianMetadata matches an API base URL against the allow list,
// ignoring case and trailing slashes.
func LookupCustodianMetadata(allowList []CustodianMetadata, apiBaseURL string) (CustodianMetadata, bool) {
	needle := canonicalAPIBaseURL(apiBaseURL)
	if needle == "" {
		return CustodianMetadata{}, false
	}
	for _, entry := range allowList {
		if canonicalAPIBaseURL(entry.APIBaseURL) == needle {
			return entry, true
		}
	}
	return CustodianMetadata{}, false
}

func canonicalAPIBaseURL(value string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(value)), "/")
}
