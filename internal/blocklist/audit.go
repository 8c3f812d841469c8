package blocklist

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// AuditEntry is one blocklist decision, persisted for later review. This
// is a decision log, not link-state: the gateway never reads it back to
// make routing decisions.
type AuditEntry struct {
	ID        uint `gorm:"primaryKey"`
	Timestamp time.Time
	Callsign  string
	Blocked   bool
	Source    string // peer address or "rf"
}

// Auditor persists blocklist check outcomes to a SQLite database.
type Auditor struct {
	db *gorm.DB
}

// NewAuditor opens (creating if needed) the audit database at path, using
// the pure-Go SQLite driver rather than CGo.
func NewAuditor(path string) (*Auditor, error) {
	dialector := sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&AuditEntry{}); err != nil {
		return nil, err
	}
	return &Auditor{db: db}, nil
}

// Record appends one audit row. Failures are swallowed; the audit log
// is diagnostic, never load-bearing for routing decisions.
func (a *Auditor) Record(callsign, source string, blocked bool) {
	if a == nil || a.db == nil {
		return
	}
	a.db.Create(&AuditEntry{
		Timestamp: time.Now(),
		Callsign:  callsign,
		Blocked:   blocked,
		Source:    source,
	})
}

// Close releases the underlying database handle.
func (a *Auditor) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
