package transcript

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"codingbuddy/internal/models"
)

var messagesBucket = []byte("messages")

// BoltDB implements Store on a BoltDB file, so the transcript of the running session survives
// a server restart. It still holds exactly one transcript; there is no chat history beyond it.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens the database at path, creating it with 0600 permissions if it doesn't exist,
// and initializes the messages bucket.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(messagesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create messages bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// Close releases the underlying database file.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

func messageKey(seq uint64) []byte {
	// Zero-padded keys keep bucket iteration in insertion order.
	return []byte(fmt.Sprintf("%012d", seq))
}

// Messages retrieves the transcript in insertion order.
func (b *BoltDB) Messages(context.Context) ([]models.Message, error) {
	var messages []models.Message
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messagesBucket)
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(_, v []byte) error {
			var message models.Message
			if err := json.Unmarshal(v, &message); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			messages = append(messages, message)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// Append stores a new message at the end of the transcript.
func (b *BoltDB) Append(_ context.Context, message models.Message) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messagesBucket)
		if bkt == nil {
			return fmt.Errorf("messages bucket is missing")
		}

		seq, err := bkt.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}

		v, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		return bkt.Put(messageKey(seq), v)
	})
}

// Update rewrites the stored message carrying the same ID in place.
func (b *BoltDB) Update(_ context.Context, message models.Message) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(messagesBucket)
		if bkt == nil {
			return fmt.Errorf("messages bucket is missing")
		}

		var key []byte
		err := bkt.ForEach(func(k, v []byte) error {
			var stored models.Message
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("failed to unmarshal message: %w", err)
			}
			if stored.ID == message.ID {
				key = append([]byte(nil), k...)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if key == nil {
			return fmt.Errorf("message %s not found", message.ID)
		}

		v, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		return bkt.Put(key, v)
	})
}

// Clear drops the whole transcript and resets the sequence counter.
func (b *BoltDB) Clear(context.Context) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(messagesBucket); err != nil {
			return fmt.Errorf("failed to delete messages bucket: %w", err)
		}
		_, err := tx.CreateBucket(messagesBucket)
		return err
	})
}
