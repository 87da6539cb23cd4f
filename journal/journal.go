// Package journal is a diagnostic, append-only event log per node, grounded
// on the teacher's network/coordinator/log_manager.go LogManager. It exists
// for the structured log surface spec.md §6 asks for and for test forensics
// — the recovery reasoner (node/recovery.go) never reads it back, so it
// carries none of the "no persistent protocol state" burden spec.md's
// Non-goals exclude.
package journal

import (
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/wal"

	"raytree/configs"
)

// Event is one journaled occurrence: a CS entry/exit, a crash, or a
// recovery completion, spec.md §6's "structured INFO lines ... on every
// state transition".
type Event struct {
	NodeID uint64      `json:"node_id"`
	Kind   string      `json:"kind"`
	Detail interface{} `json:"detail,omitempty"`
}

const (
	KindEnterCS  = "enter_cs"
	KindExitCS   = "exit_cs"
	KindCrash    = "crash"
	KindRecovery = "recovery_complete"
)

// Journal batches events into a tidwall/wal log, flushed on
// configs.LogBatchInterval exactly as the teacher's LogManager does. When
// configs.UseWAL is false it is a no-op, so tests and simulations don't pay
// for disk I/O they never asked for.
type Journal struct {
	latch  sync.Mutex
	lsn    uint64
	logs   *wal.Log
	buffer *wal.Batch
	stop   chan struct{}
}

// Open creates (or reopens) the journal at dir/name. When configs.UseWAL is
// false the returned Journal is inert: Write is a cheap no-op.
func Open(dir, name string) *Journal {
	j := &Journal{stop: make(chan struct{})}
	if !configs.UseWAL {
		return j
	}
	log, err := wal.Open(fmt.Sprintf("%s/%s", dir, name), nil)
	if err != nil {
		panic(err)
	}
	j.logs = log
	j.lsn, err = log.LastIndex()
	if err != nil {
		panic(err)
	}
	j.buffer = &wal.Batch{}
	go j.batchSync()
	return j
}

// Write appends one event to the in-memory batch. It never blocks on disk:
// the actual WriteBatch happens off the caller's goroutine on
// configs.LogBatchInterval.
func (j *Journal) Write(e Event) {
	if !configs.UseWAL {
		return
	}
	j.latch.Lock()
	defer j.latch.Unlock()
	j.lsn++
	j.buffer.Write(j.lsn, []byte(configs.JToString(e)))
}

func (j *Journal) batchSync() {
	lastLSN := j.lsn
	for {
		select {
		case <-time.After(configs.LogBatchInterval):
			j.latch.Lock()
			if j.lsn == lastLSN {
				j.latch.Unlock()
				continue
			}
			if err := j.logs.WriteBatch(j.buffer); err != nil {
				j.latch.Unlock()
				panic(err)
			}
			j.buffer.Clear()
			lastLSN = j.lsn
			j.latch.Unlock()
		case <-j.stop:
			return
		}
	}
}

// Close stops the batch syncer and flushes any trailing writes.
func (j *Journal) Close() error {
	if !configs.UseWAL {
		return nil
	}
	close(j.stop)
	j.latch.Lock()
	defer j.latch.Unlock()
	if j.buffer.Len() > 0 {
		if err := j.logs.WriteBatch(j.buffer); err != nil {
			return err
		}
		j.buffer.Clear()
	}
	return j.logs.Close()
}

// LastIndex is exposed for tests asserting the journal actually advanced.
func (j *Journal) LastIndex() uint64 {
	j.latch.Lock()
	defer j.latch.Unlock()
	return j.lsn
}
