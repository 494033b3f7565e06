package store

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/confabhq/confab/pkg/meeting"
)

// Key layout (one keyspace, ':' separated):
//
//	seg:<meetingID>:<seq>      transcript rows, seq is a zero-padded counter
//	alert:<meetingID>:<id>     alert rows
//	dec:<meetingID>:<id>       decision rows
//	ins:<meetingID>:<id>       insight rows
//	status:<meetingID>         meeting status fields
//	segseq:<meetingID>         next segment sequence number

// Badger is a Store backed by BadgerDB v4. Values are msgpack-encoded.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the Badger store.
type BadgerOptions struct {
	// Dir is the directory for data files. Required unless InMemory.
	Dir string

	// InMemory runs badger without disk persistence. For tests.
	InMemory bool

	// Logger sets the badger logger. Nil silences badger output.
	Logger badger.Logger
}

// NewBadger opens a BadgerDB-backed store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(opts.Logger)
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) AppendSegments(_ context.Context, segments []*meeting.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	return b.db.Update(func(txn *badger.Txn) error {
		for _, seg := range segments {
			seq, err := nextSeq(txn, seg.MeetingID)
			if err != nil {
				return err
			}
			val, err := msgpack.Marshal(seg)
			if err != nil {
				return fmt.Errorf("store: encode segment: %w", err)
			}
			key := fmt.Sprintf("seg:%s:%012d", seg.MeetingID, seq)
			if err := txn.Set([]byte(key), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// nextSeq increments and returns the per-meeting segment counter.
func nextSeq(txn *badger.Txn, meetingID string) (uint64, error) {
	key := []byte("segseq:" + meetingID)
	var seq uint64
	item, err := txn.Get(key)
	switch {
	case err == nil:
		err = item.Value(func(v []byte) error {
			return msgpack.Unmarshal(v, &seq)
		})
		if err != nil {
			return 0, err
		}
	case errors.Is(err, badger.ErrKeyNotFound):
		// first segment
	default:
		return 0, err
	}
	seq++
	val, err := msgpack.Marshal(seq)
	if err != nil {
		return 0, err
	}
	return seq, txn.Set(key, val)
}

func (b *Badger) ListSegments(_ context.Context, meetingID string) ([]*meeting.Segment, error) {
	var out []*meeting.Segment
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("seg:" + meetingID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var seg meeting.Segment
			err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &seg)
			})
			if err != nil {
				return err
			}
			out = append(out, &seg)
		}
		return nil
	})
	return out, err
}

func (b *Badger) UpsertAlert(_ context.Context, alert *meeting.Alert) error {
	return b.put("alert:"+alert.MeetingID+":"+alert.ID, alert)
}

func (b *Badger) ListAlerts(_ context.Context, meetingID string) ([]*meeting.Alert, error) {
	var out []*meeting.Alert
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("alert:" + meetingID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var a meeting.Alert
			err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &a)
			})
			if err != nil {
				return err
			}
			out = append(out, &a)
		}
		return nil
	})
	return out, err
}

func (b *Badger) UpsertDecision(_ context.Context, d *meeting.Decision) error {
	return b.put("dec:"+d.MeetingID+":"+d.ID, d)
}

func (b *Badger) ListDecisions(_ context.Context, meetingID string) ([]*meeting.Decision, error) {
	var out []*meeting.Decision
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("dec:" + meetingID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var d meeting.Decision
			err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &d)
			})
			if err != nil {
				return err
			}
			out = append(out, &d)
		}
		return nil
	})
	return out, err
}

func (b *Badger) UpsertInsight(_ context.Context, ins *meeting.Insight) error {
	return b.put("ins:"+ins.MeetingID+":"+ins.ID, ins)
}

func (b *Badger) ListInsights(_ context.Context, meetingID string) ([]*meeting.Insight, error) {
	var out []*meeting.Insight
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("ins:" + meetingID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ins meeting.Insight
			err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &ins)
			})
			if err != nil {
				return err
			}
			out = append(out, &ins)
		}
		return nil
	})
	return out, err
}

func (b *Badger) UpdateMeetingStatus(_ context.Context, upd *meeting.StatusUpdate) error {
	return b.put("status:"+upd.MeetingID, upd)
}

// put msgpack-encodes v under key.
func (b *Badger) put(key string, v any) error {
	val, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), val)
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}
