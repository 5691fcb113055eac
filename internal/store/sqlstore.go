package store

import (
	"context"
	"errors"
	"strings"

	"genstudio/internal/infra"
	"genstudio/internal/sqlinline"
)

// SQLStore persists blobs in the blobs table through an SQLExecutor.
type SQLStore struct {
	sql infra.SQLExecutor
}

func NewSQLStore(sql infra.SQLExecutor) *SQLStore {
	return &SQLStore{sql: sql}
}

func (s *SQLStore) Save(ctx context.Context, name string, blob []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("store: blob name is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertBlob, name, blob)
	return err
}

func (s *SQLStore) Load(ctx context.Context, name string) ([]byte, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectBlob, name)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return payload, nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteBlob, name)
	return err
}

var _ BlobStore = (*SQLStore)(nil)
