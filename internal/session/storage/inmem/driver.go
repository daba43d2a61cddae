package inmem

import (
	"context"
	"github.com/hashicorp/go-memdb"
	"github.com/skybi/reservation-console/internal/session"
	"math"
	"time"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"tabs": {
			Name: "tabs",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "TabID"},
				},
			},
		},
	},
}

type entry struct {
	TabID   string
	Token   string
	Expires int64
}

// Driver represents the in-memory token storage driver built using hashicorp/go-memdb
type Driver struct {
	db       *memdb.MemDB
	lifetime time.Duration
	now      func() time.Time
}

var _ session.TokenStorage = (*Driver)(nil)

// New creates a new empty in-memory token storage driver.
// Tokens are forgotten after they were not accessed for lifetime; a non-positive lifetime keeps them forever.
func New(lifetime time.Duration) (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{
		db:       db,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Load retrieves the token persisted for a tab and extends its lifetime
func (driver *Driver) Load(_ context.Context, tabID string) (string, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	obj, err := txn.First("tabs", "id", tabID)
	if err != nil {
		return "", err
	}
	if obj == nil {
		return "", nil
	}
	found := obj.(*entry)
	if found.Expires <= driver.now().Unix() {
		return "", nil
	}

	touched := &entry{
		TabID:   found.TabID,
		Token:   found.Token,
		Expires: driver.expiry(),
	}
	if err := txn.Insert("tabs", touched); err != nil {
		return "", err
	}
	txn.Commit()

	return touched.Token, nil
}

// Save persists the token of a tab
func (driver *Driver) Save(_ context.Context, tabID, token string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("tabs", &entry{TabID: tabID, Token: token, Expires: driver.expiry()}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Clear removes the token of a tab
func (driver *Driver) Clear(_ context.Context, tabID string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("tabs", "id", tabID); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateExpired removes the tokens of all tabs that outlived their lifetime
func (driver *Driver) TerminateExpired(_ context.Context) (int, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get("tabs", "id")
	if err != nil {
		return 0, err
	}

	now := driver.now().Unix()
	var expired []*entry
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if tab := obj.(*entry); tab.Expires <= now {
			expired = append(expired, tab)
		}
	}
	for _, tab := range expired {
		if err := txn.Delete("tabs", tab); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}

func (driver *Driver) expiry() int64 {
	if driver.lifetime <= 0 {
		return math.MaxInt64
	}
	return driver.now().Add(driver.lifetime).Unix()
}
