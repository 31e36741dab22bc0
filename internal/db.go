package internal

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB is the snapshot database: discovery and inventory runs record what they
// saw so successive runs can be diffed without touching the directory again.
type DB struct {
	*sqlx.DB
}

// NewDB creates and initializes a new in-memory database connection.
// All operations run in-memory for performance. Use SaveToDisk/LoadFromDisk
// to persist or restore data.
func NewDB() (*DB, error) {
	// Pin to a single connection — each :memory: connection is a separate
	// database, so connection pooling must be disabled. PRAGMAs are set via
	// the DSN so they apply automatically to reconnections.
	dsn := "file::memory:?_pragma=temp_store(2)&_pragma=journal_mode(off)&_pragma=synchronous(off)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	dbObj := &DB{DB: db}

	if err := dbObj.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	slog.Debug("database initialized")

	return dbObj, nil
}

// SaveToDisk writes the in-memory database to a file at the given path.
// Uses VACUUM INTO which produces a clean, compact copy in a single operation.
func (db *DB) SaveToDisk(path string) error {
	_, err := db.Exec("VACUUM INTO ?", path)
	if err != nil {
		return fmt.Errorf("saving database to %s: %w", path, err)
	}
	slog.Info("database saved to disk", "path", path)
	return nil
}

// LoadFromDisk loads prior discovery and inventory snapshots from an on-disk
// database into the in-memory database. The file is read once and detached.
func (db *DB) LoadFromDisk(path string) error {
	_, err := db.Exec("ATTACH DATABASE ? AS diskdb", path)
	if err != nil {
		return fmt.Errorf("attaching database %s: %w", path, err)
	}
	defer func() {
		if _, err := db.Exec("DETACH DATABASE diskdb"); err != nil {
			slog.Warn("detaching database", "path", path, "error", err)
		}
	}()

	_, err = db.Exec("INSERT OR IGNORE INTO discovered_objects SELECT * FROM diskdb.discovered_objects")
	if err != nil {
		return fmt.Errorf("loading discovered objects from %s: %w", path, err)
	}

	_, err = db.Exec("INSERT OR IGNORE INTO inventory_items SELECT * FROM diskdb.inventory_items")
	if err != nil {
		return fmt.Errorf("loading inventory items from %s: %w", path, err)
	}

	slog.Info("database loaded from disk", "path", path)
	return nil
}

func (db *DB) initSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS discovered_objects (
			tenant_id     text NOT NULL,
			app_id        text NOT NULL,
			object_id     text NOT NULL,
			display_name  text,
			object_kind   text NOT NULL,
			discovered_at timestamp NOT NULL,
			PRIMARY KEY(tenant_id, object_id, object_kind)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating discovered_objects table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS inventory_items (
			tenant_id       text NOT NULL,
			app_id          text NOT NULL,
			object_kind     text NOT NULL,
			alias           text,
			thumbprint      text NOT NULL,
			has_private_key boolean NOT NULL,
			not_before      timestamp,
			not_after       timestamp,
			pem             blob NOT NULL,
			captured_at     timestamp NOT NULL,
			PRIMARY KEY(tenant_id, app_id, object_kind, thumbprint)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating inventory_items table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_inventory_thumbprint ON inventory_items (thumbprint);
	`)
	if err != nil {
		return fmt.Errorf("creating thumbprint index on inventory_items table: %w", err)
	}
	return nil
}

// InsertDiscoveredObject records one discovered object, ignoring duplicates.
func (db *DB) InsertDiscoveredObject(rec DiscoveredObjectRecord) error {
	_, err := db.NamedExec(`
		INSERT OR IGNORE INTO discovered_objects (tenant_id, app_id, object_id, display_name, object_kind, discovered_at)
		VALUES (:tenant_id, :app_id, :object_id, :display_name, :object_kind, :discovered_at)
	`, rec)
	if err != nil {
		return fmt.Errorf("inserting discovered object: %w", err)
	}
	return nil
}

// InsertInventoryItem records one inventoried certificate, ignoring duplicates.
func (db *DB) InsertInventoryItem(rec InventoryItemRecord) error {
	_, err := db.NamedExec(`
		INSERT OR IGNORE INTO inventory_items (tenant_id, app_id, object_kind, alias, thumbprint, has_private_key, not_before, not_after, pem, captured_at)
		VALUES (:tenant_id, :app_id, :object_kind, :alias, :thumbprint, :has_private_key, :not_before, :not_after, :pem, :captured_at)
	`, rec)
	if err != nil {
		return fmt.Errorf("inserting inventory item: %w", err)
	}
	return nil
}

// GetDiscoveredObjects returns all recorded discovery results.
func (db *DB) GetDiscoveredObjects() ([]DiscoveredObjectRecord, error) {
	var recs []DiscoveredObjectRecord
	err := db.Select(&recs, "SELECT * FROM discovered_objects ORDER BY tenant_id, app_id")
	if err != nil {
		return nil, fmt.Errorf("getting discovered objects: %w", err)
	}
	return recs, nil
}

// GetInventoryItems returns the recorded inventory for one object.
func (db *DB) GetInventoryItems(tenantID, appID, kind string) ([]InventoryItemRecord, error) {
	var recs []InventoryItemRecord
	err := db.Select(&recs,
		"SELECT * FROM inventory_items WHERE tenant_id = ? AND app_id = ? AND object_kind = ? ORDER BY alias, thumbprint",
		tenantID, appID, kind)
	if err != nil {
		return nil, fmt.Errorf("getting inventory items: %w", err)
	}
	return recs, nil
}
