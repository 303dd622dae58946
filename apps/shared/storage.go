package shared

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/trezcool/asm/core"
	"github.com/trezcool/asm/storage/database"
	"github.com/trezcool/asm/storage/database/gormrepos"
	inmemdb "github.com/trezcool/asm/storage/database/inmem"
	"github.com/trezcool/asm/storage/database/sqlxrepos"
)

const (
	BackendSqlx  = "sqlx"
	BackendGorm  = "gorm"
	BackendInmem = "inmem"
)

// Storage is an opened storage backend. DB is nil for the in-memory backend.
type Storage struct {
	Backend database.Backend
	DB      *sql.DB
}

// Stores returns the store-narrowed views of the backend.
func (st Storage) Stores() database.Stores {
	return database.NewStores(st.Backend)
}

func (st Storage) Close() error {
	return st.Backend.Close()
}

// OpenStorage opens the backend named by conf.Database.Backend.
// Postgres backends create the database if needed and apply pending migrations when migrate is set.
func OpenStorage(conf *core.Config, migrate bool) (Storage, error) {
	if conf.Database.Backend == BackendInmem {
		return Storage{Backend: inmemdb.New()}, nil
	}

	db, err := setUpDB(conf, migrate)
	if err != nil {
		return Storage{}, err
	}

	switch conf.Database.Backend {
	case BackendSqlx, "":
		return Storage{Backend: sqlxrepos.New(db), DB: db}, nil
	case BackendGorm:
		backend, err := gormrepos.New(db, conf.Debug)
		if err != nil {
			_ = db.Close()
			return Storage{}, err
		}
		return Storage{Backend: backend, DB: db}, nil
	default:
		_ = db.Close()
		return Storage{}, errors.Errorf("unknown database backend %q", conf.Database.Backend)
	}
}

func setUpDB(conf *core.Config, migrate bool) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if migrate {
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}
