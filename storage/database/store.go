package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
	"github.com/trezcool/juku/storage/database/inmem"
	"github.com/trezcool/juku/storage/database/mongo"
	"github.com/trezcool/juku/storage/database/postgres"
)

// Backend is the opened document store of the configured driver.
type Backend struct {
	Store core.DocStore
	// SQL is set for the postgres driver only.
	SQL   *sql.DB
	close func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore opens the document store selected by conf.Store.Driver.
// With migrate, the postgres role, database and schema are created first.
func OpenStore(ctx context.Context, conf *core.Config, migrate bool) (*Backend, error) {
	switch conf.Store.Driver {
	case core.StorePostgres:
		if migrate {
			if err := CreateIfNotExist(conf); err != nil {
				return nil, err
			}
		}
		db, err := Open(conf)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err = Migrate(db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return &Backend{Store: pgstore.NewStore(db), SQL: db, close: db.Close}, nil

	case core.StoreMongo:
		client, err := mongostore.Connect(ctx, conf.Store.Mongo)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store: mongostore.NewStore(client, conf.Store.Mongo.Database),
			close: func() error { return client.Disconnect(context.Background()) },
		}, nil

	case core.StoreMemory:
		return &Backend{Store: inmemdb.Open()}, nil

	default:
		return nil, errors.Errorf("unknown store driver %q", conf.Store.Driver)
	}
}
