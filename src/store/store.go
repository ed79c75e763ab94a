// Package store is the disk backed mirror of watched governance accounts.
package store

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/stake-plus/solana-gov-watch/src/realms"
)

// ErrNotFound is returned when a record is missing from a partition.
var ErrNotFound = errors.New("record not found")

// NotifCacheKeyPrefix namespaces notification bookkeeping keys.
const NotifCacheKeyPrefix = "notif_cache_entry-"

type realmRecord struct {
	Key   []byte `gorm:"primaryKey;size:32"`
	Value []byte `gorm:"not null"`
}

func (realmRecord) TableName() string { return "realm_records" }

type governanceRecord struct {
	Key   []byte `gorm:"primaryKey;size:32"`
	Value []byte `gorm:"not null"`
}

func (governanceRecord) TableName() string { return "governance_records" }

type proposalRecord struct {
	Key   []byte `gorm:"primaryKey;size:32"`
	Value []byte `gorm:"not null"`
}

func (proposalRecord) TableName() string { return "proposal_records" }

type notifCacheRecord struct {
	Key   string `gorm:"primaryKey;size:128"`
	Value []byte `gorm:"not null"`
}

func (notifCacheRecord) TableName() string { return "notif_cache_records" }

// Store wraps the embedded database. Writes are overwrite-by-key; callers
// serialize access per governance, so no additional locking happens here.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path and migrates the four
// partitions.
func Open(path string) (*Store, error) {
	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	if err := db.AutoMigrate(&realmRecord{}, &governanceRecord{}, &proposalRecord{}, &notifCacheRecord{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) upsert(rec interface{}) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(rec).Error
}

// PutRealm overwrites the cached realm snapshot.
func (s *Store) PutRealm(realm *realms.RealmWrapper) error {
	value, err := encodeRealm(realm)
	if err != nil {
		return err
	}
	return s.upsert(&realmRecord{Key: realm.Key.Bytes(), Value: value})
}

// GetRealm loads a cached realm snapshot.
func (s *Store) GetRealm(key solana.PublicKey) (*realms.RealmWrapper, error) {
	var rec realmRecord
	if err := s.db.First(&rec, "key = ?", key.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("realm %s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return decodeRealm(rec.Value)
}

// ListRealms returns every cached realm snapshot, unordered.
func (s *Store) ListRealms() ([]*realms.RealmWrapper, error) {
	var recs []realmRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*realms.RealmWrapper, 0, len(recs))
	for _, rec := range recs {
		realm, err := decodeRealm(rec.Value)
		if err != nil {
			log.Printf("store: skipping undecodable realm record: %v", err)
			continue
		}
		out = append(out, realm)
	}
	return out, nil
}

// PutGovernance overwrites the cached governance snapshot.
func (s *Store) PutGovernance(governance *realms.GovernanceWrapper) error {
	value, err := encodeGovernance(governance)
	if err != nil {
		return err
	}
	return s.upsert(&governanceRecord{Key: governance.Key.Bytes(), Value: value})
}

// GetGovernance loads a cached governance snapshot.
func (s *Store) GetGovernance(key solana.PublicKey) (*realms.GovernanceWrapper, error) {
	var rec governanceRecord
	if err := s.db.First(&rec, "key = ?", key.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("governance %s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return decodeGovernance(rec.Value)
}

// ListGovernances returns every cached governance snapshot, unordered.
func (s *Store) ListGovernances() ([]*realms.GovernanceWrapper, error) {
	var recs []governanceRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*realms.GovernanceWrapper, 0, len(recs))
	for _, rec := range recs {
		governance, err := decodeGovernance(rec.Value)
		if err != nil {
			log.Printf("store: skipping undecodable governance record: %v", err)
			continue
		}
		out = append(out, governance)
	}
	return out, nil
}

// PutProposal overwrites the cached proposal snapshot.
func (s *Store) PutProposal(proposal *realms.ProposalWrapper) error {
	value, err := encodeProposal(proposal)
	if err != nil {
		return err
	}
	return s.upsert(&proposalRecord{Key: proposal.Key.Bytes(), Value: value})
}

// GetProposal loads a cached proposal snapshot.
func (s *Store) GetProposal(key solana.PublicKey) (*realms.ProposalWrapper, error) {
	var rec proposalRecord
	if err := s.db.First(&rec, "key = ?", key.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("proposal %s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return decodeProposal(rec.Value)
}

// ListProposals returns every cached proposal snapshot, unordered.
func (s *Store) ListProposals() ([]*realms.ProposalWrapper, error) {
	var recs []proposalRecord
	if err := s.db.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*realms.ProposalWrapper, 0, len(recs))
	for _, rec := range recs {
		proposal, err := decodeProposal(rec.Value)
		if err != nil {
			log.Printf("store: skipping undecodable proposal record: %v", err)
			continue
		}
		out = append(out, proposal)
	}
	return out, nil
}

// PutNotifCache overwrites the notification bookkeeping for a governance.
func (s *Store) PutNotifCache(entry *NotifCacheEntry) error {
	value, err := encodeNotifCache(entry)
	if err != nil {
		return err
	}
	return s.upsert(&notifCacheRecord{Key: notifCacheKey(entry.GovernanceKey), Value: value})
}

// GetNotifCache loads the notification bookkeeping for a governance.
func (s *Store) GetNotifCache(governanceKey solana.PublicKey) (*NotifCacheEntry, error) {
	var rec notifCacheRecord
	if err := s.db.First(&rec, "key = ?", notifCacheKey(governanceKey)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("notif cache %s: %w", governanceKey, ErrNotFound)
		}
		return nil, err
	}
	return decodeNotifCache(rec.Value)
}

// Flush forces a durability barrier; a producing cycle is not complete until
// its flush returns.
func (s *Store) Flush() error {
	return s.db.Exec("PRAGMA wal_checkpoint(FULL)").Error
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		log.Printf("store: flush on close: %v", err)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notifCacheKey(governanceKey solana.PublicKey) string {
	return NotifCacheKeyPrefix + governanceKey.String()
}
