package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-custody/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestStore struct {
	db   *bun.DB
	repo repository.Repository[*signingRequestRecord]
}

func (s *RequestStore) UpsertRequest(ctx context.Context, request core.SigningRequest) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: request store is not configured")
	}
	if strings.TrimSpace(request.ID) == "" {
		return fmt.Errorf("sqlstore: signing request id is required")
	}
	record := newSigningRequestRecord(request)
	_, err := s.db.NewInsert().Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("custodian_id = EXCLUDED.custodian_id").
		Set("status = EXCLUDED.status").
		Set("signature = EXCLUDED.signature").
		Set("message = EXCLUDED.message").
		Set("transaction_details = EXCLUDED.transaction_details").
		Set("payload = EXCLUDED.payload").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	return err
}

func (s *RequestStore) GetRequest(ctx context.Context, id string) (core.SigningRequest, bool, error) {
	if s == nil || s.db == nil {
		return core.SigningRequest{}, false, fmt.Errorf("sqlstore: request store is not configured")
	}
	record := &signingRequestRecord{}
	err := s.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SigningRequest{}, false, nil
	}
	if err != nil {
		return core.SigningRequest{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *RequestStore) ListRequests(ctx context.Context) ([]core.SigningRequest, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: request store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.SigningRequest, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.RequestStore = (*RequestStore)(nil)
