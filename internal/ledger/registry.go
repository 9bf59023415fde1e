package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"graminstore-backend/internal/logger"

	"gorm.io/gorm"
)

const tablePrefix = "transaction_"

// TableName returns the deterministic ledger table name for a merchant.
// The format is load-bearing: existing deployments already contain
// tables named this way.
func TableName(merchantID uint) string {
	return fmt.Sprintf("%s%d", tablePrefix, merchantID)
}

// Registry maps merchant ids to their ledger tables and owns lazy table
// creation. Constructed once at startup and handed to everything that
// touches a ledger; there is no package-level instance.
type Registry struct {
	db *gorm.DB

	mu     sync.RWMutex
	tables map[uint]struct{}
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		db:     db,
		tables: make(map[uint]struct{}),
	}
}

// Has reports whether the merchant's ledger table is known to this
// process, either created here or discovered at startup.
func (r *Registry) Has(merchantID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[merchantID]
	return ok
}

// EnsureTable creates the merchant's ledger table if it does not exist
// and returns its name. Idempotent: safe to call on every write. The
// CREATE TABLE IF NOT EXISTS makes concurrent creation from another
// process a no-op rather than an error.
func (r *Registry) EnsureTable(merchantID uint) (string, error) {
	name := TableName(merchantID)

	r.mu.RLock()
	_, cached := r.tables[merchantID]
	r.mu.RUnlock()
	if cached {
		return name, nil
	}

	if err := r.db.Exec(r.createDDL(name)).Error; err != nil {
		return "", fmt.Errorf("create ledger table %s: %w", name, err)
	}

	r.mu.Lock()
	r.tables[merchantID] = struct{}{}
	r.mu.Unlock()

	return name, nil
}

// LoadExisting discovers ledger tables created in previous process
// lifetimes and populates the cache. Call once at startup. A table name
// whose suffix does not parse as a merchant id is logged and skipped.
func (r *Registry) LoadExisting() (int, error) {
	log := logger.Get()

	var names []string
	if err := r.db.Raw(r.discoveryQuery()).Scan(&names).Error; err != nil {
		return 0, fmt.Errorf("discover ledger tables: %w", err)
	}

	loaded := 0
	for _, name := range names {
		suffix := strings.TrimPrefix(name, tablePrefix)
		merchantID, err := strconv.ParseUint(suffix, 10, 64)
		if err != nil {
			log.WithField("table", name).Warn("skipping ledger table with non-numeric merchant id")
			continue
		}

		r.mu.Lock()
		r.tables[uint(merchantID)] = struct{}{}
		r.mu.Unlock()
		loaded++
	}

	log.WithField("count", loaded).Info("loaded existing ledger tables")
	return loaded, nil
}

// createDDL builds the eight-column ledger schema. Column order matches
// the historical layout: transaction_id, user_id, timestamp, amount,
// type, description, payment_method, guest_user_id.
func (r *Registry) createDDL(name string) string {
	pk := "BIGINT AUTO_INCREMENT PRIMARY KEY"
	if r.db.Dialector.Name() == "sqlite" {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		transaction_id %s,
		user_id BIGINT NULL,
		timestamp DATETIME NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		type VARCHAR(20) NOT NULL,
		description TEXT NULL,
		payment_method VARCHAR(50) NULL,
		guest_user_id BIGINT NULL
	)`, name, pk)
}

func (r *Registry) discoveryQuery() string {
	if r.db.Dialector.Name() == "sqlite" {
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'transaction_%'`
	}
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name LIKE 'transaction\_%'`
}
