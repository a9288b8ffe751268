package state

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// Books bundles every state book of the overlay. Handlers operate on a
// Books value; the Store persists and restores it as one snapshot.
type Books struct {
	Ledger     *Ledger
	Registry   *Registry
	Crowdsales *CrowdsaleBook
	Channels   *ChannelBook
	Oracles    *OracleBook
	KYC        *KYCBook
}

// NewBooks returns empty books.
func NewBooks() *Books {
	return &Books{
		Ledger:     NewLedger(),
		Registry:   NewRegistry(),
		Crowdsales: NewCrowdsaleBook(),
		Channels:   NewChannelBook(),
		Oracles:    NewOracleBook(),
		KYC:        NewKYCBook(),
	}
}

// Store persists book snapshots into a badger database, one gob-encoded
// value per book under a fixed key, plus the processed-block watermark.
type Store struct {
	db  *badger.DB
	log *logrus.Entry
}

// Keys of the persisted snapshots.
var (
	keyLedger     = []byte("s:ledger")
	keyRegistry   = []byte("s:registry")
	keyCrowdsales = []byte("s:crowdsales")
	keyChannels   = []byte("s:channels")
	keyOracles    = []byte("s:oracles")
	keyKYC        = []byte("s:kyc")
	keyWatermark  = []byte("meta:block")
)

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	return &Store{
		db:  db,
		log: logrus.WithField("module", "state"),
	}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type registrySnapshot struct {
	Entries map[uint32]*Property
	NextID  uint32
}

// Save writes one snapshot of all books at the given block watermark.
func (s *Store) Save(books *Books, block idx.Block) error {
	regEntries, regNext := books.Registry.snapshot()

	snapshots := []struct {
		key   []byte
		value interface{}
	}{
		{keyLedger, books.Ledger.snapshot()},
		{keyRegistry, registrySnapshot{Entries: regEntries, NextID: regNext}},
		{keyCrowdsales, books.Crowdsales.snapshot()},
		{keyChannels, books.Channels.snapshot()},
		{keyOracles, books.Oracles.snapshot()},
		{keyKYC, books.KYC.snapshot()},
		{keyWatermark, block},
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, snap := range snapshots {
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(snap.value); err != nil {
				return fmt.Errorf("encode %s: %w", snap.key, err)
			}
			if err := txn.Set(snap.key, buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("state: save snapshot: %w", err)
	}

	s.log.WithField("block", block).Debug("state snapshot saved")
	return nil
}

// Load restores the books from the last saved snapshot and returns its
// block watermark. Books stay empty when no snapshot exists.
func (s *Store) Load(books *Books) (idx.Block, error) {
	var watermark idx.Block

	err := s.db.View(func(txn *badger.Txn) error {
		var ledger map[string]map[uint32]*Tally
		if ok, err := decodeKey(txn, keyLedger, &ledger); err != nil {
			return err
		} else if !ok {
			return nil // no snapshot yet
		}
		books.Ledger.restore(ledger)

		var reg registrySnapshot
		if _, err := decodeKey(txn, keyRegistry, &reg); err != nil {
			return err
		}
		books.Registry.restore(reg.Entries, reg.NextID)

		var crowds map[string]*Crowdsale
		if _, err := decodeKey(txn, keyCrowdsales, &crowds); err != nil {
			return err
		}
		books.Crowdsales.restore(crowds)

		var channels channelSnapshot
		if _, err := decodeKey(txn, keyChannels, &channels); err != nil {
			return err
		}
		books.Channels.restore(channels)

		var oracles map[uint32]map[idx.Block]PricePoint
		if _, err := decodeKey(txn, keyOracles, &oracles); err != nil {
			return err
		}
		books.Oracles.restore(oracles)

		var kyc kycSnapshot
		if _, err := decodeKey(txn, keyKYC, &kyc); err != nil {
			return err
		}
		books.KYC.restore(kyc)

		_, err := decodeKey(txn, keyWatermark, &watermark)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("state: load snapshot: %w", err)
	}
	return watermark, nil
}

func decodeKey(txn *badger.Txn, key []byte, dst interface{}) (bool, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = item.Value(func(val []byte) error {
		return gob.NewDecoder(bytes.NewReader(val)).Decode(dst)
	})
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
