package pgstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/juku/core"
)

const (
	getDocumentQuery = `SELECT collection, id, data, updated_at FROM documents WHERE collection = $1 AND id = $2`

	replaceDocumentQuery = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	// jsonb || jsonb overlays the top-level keys of the right operand.
	mergeDocumentQuery = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = NOW()`

	deleteDocumentQuery = `DELETE FROM documents WHERE collection = $1 AND id = $2`

	listDocumentIDsQuery = `SELECT id FROM documents WHERE collection = $1 AND id LIKE $2 ESCAPE '\' ORDER BY id`
)

type (
	document struct {
		Collection string    `db:"collection"`
		ID         string    `db:"id"`
		Data       null.JSON `db:"data"`
		UpdatedAt  null.Time `db:"updated_at"`
	}

	documentID struct {
		ID string `boil:"id"`
	}

	// Store keeps every logical collection in the single JSONB "documents" table.
	Store struct {
		db *sqlx.DB
	}
)

var _ core.DocStore = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

func (s *Store) exec() core.DBExecutor {
	return s.db
}

func (s *Store) GetDocument(ctx context.Context, collection, id string) ([]byte, error) {
	var doc document
	if err := s.db.GetContext(ctx, &doc, getDocumentQuery, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrDocumentNotFound
		}
		return nil, errors.Wrapf(err, "getting document %s/%s", collection, id)
	}
	if !doc.Data.Valid {
		return nil, core.ErrDocumentNotFound
	}
	return doc.Data.JSON, nil
}

func (s *Store) SetDocument(ctx context.Context, collection, id string, data []byte, opts core.SetOptions) error {
	q := replaceDocumentQuery
	if opts.Merge {
		q = mergeDocumentQuery
	}
	if _, err := s.exec().ExecContext(ctx, q, collection, id, string(data)); err != nil {
		return errors.Wrapf(err, "setting document %s/%s", collection, id)
	}
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := s.exec().ExecContext(ctx, deleteDocumentQuery, collection, id); err != nil {
		return errors.Wrapf(err, "deleting document %s/%s", collection, id)
	}
	return nil
}

func (s *Store) ListDocumentIDs(ctx context.Context, collection, idPrefix string) ([]string, error) {
	var rows []documentID
	err := queries.Raw(listDocumentIDsQuery, collection, likePrefix(idPrefix)).Bind(ctx, s.db, &rows)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(err, "listing documents %s/%s*", collection, idPrefix)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns an id prefix into a LIKE pattern; ids contain "_" which must match literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
