package core

import (
	"context"
	"fmt"
	"time"
)

// PollPendingRequests sweeps unresolved requests and asks each owning
// custodian for its current state. Resolution is one-way: a request leaves
// pending exactly once and is never touched again. Individual custodian
// failures are logged and skipped; they never abort the sweep.
func (s *Service) PollPendingRequests(ctx context.Context) (resolved int, err error) {
	if s == nil {
		return 0, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		fields["resolved"] = resolved
		s.observeOperation(ctx, startedAt, "requests_poll", err, fields)
	}()

	records, listErr := s.requestStore.ListRequests(ctx)
	if listErr != nil {
		err = s.mapError(listErr)
		return 0, err
	}

	batchSize := s.config.Polling.BatchSize
	processed := 0
	for _, record := range records {
		if record.Status != RequestStatusPending {
			continue
		}
		if batchSize > 0 && processed >= batchSize {
			break
		}
		processed++

		if s.pollRequest(ctx, record) {
			resolved++
		}
	}
	return resolved, nil
}

// pollRequest checks one pending record against its custodian and persists
// the resolution if the custodian reports it finished. Returns true when the
// record left pending.
func (s *Service) pollRequest(ctx context.Context, record SigningRequest) bool {
	logFields := map[string]any{
		"request_id":   record.ID,
		"account_id":   record.AccountID,
		"custodian_id": record.CustodianID,
	}

	client, err := s.registry.GetOrCreate(ctx, record.Address)
	if err != nil {
		s.logError(ctx, "poll: client unavailable for request", withError(logFields, err))
		return false
	}

	var status CustodianStatus
	switch record.Type {
	case RequestTypeTransaction:
		transaction, txErr := client.GetTransactionByID(ctx, record.CustodianID)
		if txErr != nil {
			s.logError(ctx, "poll: transaction status fetch failed", withError(logFields, txErr))
			return false
		}
		record.Transaction = &transaction
		status = transaction.Status
	case RequestTypeMessage:
		message, msgErr := client.GetSignedMessageByID(ctx, record.CustodianID)
		if msgErr != nil {
			s.logError(ctx, "poll: message status fetch failed", withError(logFields, msgErr))
			return false
		}
		record.Message = &message
		record.Signature = message.Signature
		status = message.Status
	default:
		s.logError(ctx, "poll: unknown request type", logFields)
		return false
	}

	if !status.Finished {
		return false
	}

	next := RequestStatusRejected
	if status.Success {
		next = RequestStatusFulfilled
	}
	if transitionErr := record.TransitionTo(next, s.now()); transitionErr != nil {
		s.logError(ctx, "poll: status transition rejected", withError(logFields, transitionErr))
		return false
	}
	if upsertErr := s.requestStore.UpsertRequest(ctx, record); upsertErr != nil {
		s.logError(ctx, "poll: request persist failed", withError(logFields, upsertErr))
		return false
	}

	if record.Rejected() {
		reason := status.Reason
		if reason == "" {
			reason = status.DisplayText
		}
		message := "Your request was rejected by the custodian."
		if reason != "" {
			message = fmt.Sprintf("%s %s", message, reason)
		}
		s.renderer.ShowErrorMessage(ctx, message)
	}

	logFields["status"] = string(record.Status)
	s.logInfo(ctx, "poll: request resolved", logFields)
	return true
}

func withError(fields map[string]any, err error) map[string]any {
	out := cloneFields(fields)
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}
