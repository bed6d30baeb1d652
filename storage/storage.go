// Package storage persists the member list and the rumors on disk, so that a
// restarted member rejoins the ring with what it has learned before.
package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/fxamacker/cbor/v2"

	"github.com/maxpoletaev/butterfly/internal/binario"
	"github.com/maxpoletaev/butterfly/membership"
	"github.com/maxpoletaev/butterfly/rumor"
)

const (
	prefixMember uint8 = 'm'
	prefixRumor  uint8 = 'r'
)

var ErrUnknownPrefix = errors.New("storage: unknown key prefix")

// Store is a pebble database holding a single snapshot of the gossip state.
type Store struct {
	db *pebble.DB
}

type Option func(o *pebble.Options)

// WithFS replaces the file system, mostly for vfs.NewMem in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *pebble.Options) {
		o.FS = fs
	}
}

// Open opens or creates the database in the directory.
func Open(dirname string, opts ...Option) (*Store, error) {
	o := &pebble.Options{}
	for _, opt := range opts {
		opt(o)
	}

	db, err := pebble.Open(dirname, o)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble database at %s: %w", dirname, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// encodeKey builds a [prefix][kind][key][id] key. Strings are length-prefixed,
// so keys of one prefix and kind share a common byte prefix.
func encodeKey(prefix uint8, key rumor.Key) []byte {
	buf := bytes.Buffer{}
	w := binario.NewWriter(&buf, binary.BigEndian)

	// Writes to bytes.Buffer never fail.
	_ = w.WriteUint8(prefix)
	_ = w.WriteUint8(uint8(key.Kind))
	_ = w.WriteString(key.Key)
	_ = w.WriteString(key.ID)

	return buf.Bytes()
}

func decodeKey(b []byte) (uint8, rumor.Key, error) {
	r := binario.NewReader(bytes.NewReader(b), binary.BigEndian)

	prefix, err := r.ReadUint8()
	if err != nil {
		return 0, rumor.Key{}, err
	}

	kind, err := r.ReadUint8()
	if err != nil {
		return 0, rumor.Key{}, err
	}

	key, err := r.ReadString()
	if err != nil {
		return 0, rumor.Key{}, err
	}

	id, err := r.ReadString()
	if err != nil {
		return 0, rumor.Key{}, err
	}

	return prefix, rumor.Key{Kind: rumor.Kind(kind), Key: key, ID: id}, nil
}

// Save replaces the stored snapshot with the given one atomically.
func (s *Store) Save(members []membership.Membership, rumors []rumor.Envelope) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange([]byte{prefixMember}, []byte{prefixMember + 1}, nil); err != nil {
		return err
	}

	if err := batch.DeleteRange([]byte{prefixRumor}, []byte{prefixRumor + 1}, nil); err != nil {
		return err
	}

	for _, m := range members {
		value, err := cbor.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode member %s: %w", m.Member.ID, err)
		}

		if err := batch.Set(encodeKey(prefixMember, rumor.MemberKey(m.Member.ID)), value, nil); err != nil {
			return err
		}
	}

	for _, env := range rumors {
		key, err := env.Key()
		if err != nil {
			return fmt.Errorf("invalid rumor envelope: %w", err)
		}

		value, err := cbor.Marshal(env)
		if err != nil {
			return fmt.Errorf("failed to encode rumor %s: %w", key, err)
		}

		if err := batch.Set(encodeKey(prefixRumor, key), value, nil); err != nil {
			return err
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// Load reads the stored snapshot. An empty database yields an empty snapshot.
func (s *Store) Load() ([]membership.Membership, []rumor.Envelope, error) {
	var (
		members []membership.Membership
		rumors  []rumor.Envelope
	)

	iter := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{prefixMember},
		UpperBound: []byte{prefixRumor + 1},
	})

	for iter.First(); iter.Valid(); iter.Next() {
		prefix, key, err := decodeKey(iter.Key())
		if err != nil {
			_ = iter.Close()
			return nil, nil, fmt.Errorf("corrupt key %x: %w", iter.Key(), err)
		}

		switch prefix {
		case prefixMember:
			var m membership.Membership
			if err := cbor.Unmarshal(iter.Value(), &m); err != nil {
				_ = iter.Close()
				return nil, nil, fmt.Errorf("failed to decode member %s: %w", key.ID, err)
			}

			members = append(members, m)

		case prefixRumor:
			var env rumor.Envelope
			if err := cbor.Unmarshal(iter.Value(), &env); err != nil {
				_ = iter.Close()
				return nil, nil, fmt.Errorf("failed to decode rumor %s: %w", key, err)
			}

			rumors = append(rumors, env)

		default:
			_ = iter.Close()
			return nil, nil, ErrUnknownPrefix
		}
	}

	if err := iter.Close(); err != nil {
		return nil, nil, err
	}

	return members, rumors, nil
}
