package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CustodyErrorBadInput            = "CUSTODY_BAD_INPUT"
	CustodyErrorNotFound            = "CUSTODY_NOT_FOUND"
	CustodyErrorMethodUnsupported   = "CUSTODY_METHOD_UNSUPPORTED"
	CustodyErrorNotImplemented      = "CUSTODY_NOT_IMPLEMENTED"
	CustodyErrorDuplicateAddress    = "CUSTODY_DUPLICATE_ADDRESS"
	CustodyErrorUnknownCustodian    = "CUSTODY_UNKNOWN_CUSTODIAN"
	CustodyErrorRegistrationVetoed  = "CUSTODY_REGISTRATION_VETOED"
	CustodyErrorRefreshTokenInvalid = "CUSTODY_REFRESH_TOKEN_INVALID"
	CustodyErrorCustodianCallFailed = "CUSTODY_CUSTODIAN_CALL_FAILED"
	CustodyErrorInternal            = "CUSTODY_INTERNAL_ERROR"
)

// opaqueSubmitMessage replaces unexpected internal failures during request
// submission in strict mode so custodian internals never leak to the calling
// origin.
const opaqueSubmitMessage = "The request could not be completed"

func custodyErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureCustodyErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newCustodyError(err.Error(), goerrors.CategoryNotFound, CustodyErrorNotFound)
	case strings.Contains(msg, "refresh token") && (strings.Contains(msg, "invalid") || strings.Contains(msg, "expired")):
		return newCustodyError(err.Error(), goerrors.CategoryAuth, CustodyErrorRefreshTokenInvalid)
	case strings.Contains(msg, "method") && strings.Contains(msg, "support"):
		return newCustodyError(err.Error(), goerrors.CategoryOperation, CustodyErrorMethodUnsupported)
	case strings.Contains(msg, "custodian") && strings.Contains(msg, "call"):
		return newCustodyError(err.Error(), goerrors.CategoryExternal, CustodyErrorCustodianCallFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newCustodyError(err.Error(), goerrors.CategoryBadInput, CustodyErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureCustodyErrorEnvelope(mapped)
}

func newCustodyError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureCustodyErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureCustodyErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = custodyHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultCustodyTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultCustodyTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return CustodyErrorBadInput
	case goerrors.CategoryNotFound:
		return CustodyErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return CustodyErrorRefreshTokenInvalid
	case goerrors.CategoryConflict:
		return CustodyErrorDuplicateAddress
	case goerrors.CategoryOperation:
		return CustodyErrorMethodUnsupported
	case goerrors.CategoryExternal:
		return CustodyErrorCustodianCallFailed
	default:
		return CustodyErrorInternal
	}
}

func custodyHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsPassthroughError reports whether an error belongs to the caller-actionable
// classes that strict mode surfaces verbatim: validation, not-found and
// unsupported-operation failures.
func IsPassthroughError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch richErr.Category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation,
		goerrors.CategoryNotFound, goerrors.CategoryOperation,
		goerrors.CategoryConflict:
		return true
	default:
		return false
	}
}

func errAccountNotFound(id string) *goerrors.Error {
	return goerrors.New("core: account not found: "+id, goerrors.CategoryNotFound).
		WithTextCode(CustodyErrorNotFound).
		WithCode(http.StatusNotFound)
}

func errWalletNotFound(address string) *goerrors.Error {
	return goerrors.New("core: no wallet connection for address "+address, goerrors.CategoryNotFound).
		WithTextCode(CustodyErrorNotFound).
		WithCode(http.StatusNotFound)
}

func errMethodUnsupported(method SigningMethod) *goerrors.Error {
	return goerrors.New("core: signing method not supported by account: "+string(method), goerrors.CategoryOperation).
		WithTextCode(CustodyErrorMethodUnsupported).
		WithCode(http.StatusMethodNotAllowed)
}

func errNotImplemented(operation string) *goerrors.Error {
	return goerrors.New("core: operation not supported by custodial keyring: "+operation, goerrors.CategoryOperation).
		WithTextCode(CustodyErrorNotImplemented).
		WithCode(http.StatusNotImplemented)
}

func errDuplicateAddress(address string) *goerrors.Error {
	return goerrors.New("core: address already belongs to a custodial wallet: "+address, goerrors.CategoryConflict).
		WithTextCode(CustodyErrorDuplicateAddress).
		WithCode(http.StatusConflict)
}

func errUnknownCustodian(apiBaseURL string) *goerrors.Error {
	return goerrors.New("core: custodian api url is not on the allow list: "+apiBaseURL, goerrors.CategoryConflict).
		WithTextCode(CustodyErrorUnknownCustodian).
		WithCode(http.StatusConflict)
}

func errRegistrationVetoed(reason string) *goerrors.Error {
	message := "core: account registration was rejected by the host"
	if strings.TrimSpace(reason) != "" {
		message += ": " + strings.TrimSpace(reason)
	}
	return goerrors.New(message, goerrors.CategoryConflict).
		WithTextCode(CustodyErrorRegistrationVetoed).
		WithCode(http.StatusConflict)
}
