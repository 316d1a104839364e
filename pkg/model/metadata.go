package model

import (
	"fmt"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/log"
)

// MetadataPrefix introduces metadata keys in entity names and change-set
// lines.
const MetadataPrefix = "*METADATA."

type metadataEntry struct {
	value string
	stamp uint64
}

// metadataTable holds the global client-settable keys. The key set is
// fixed at Open.
type metadataTable struct {
	mu      sync.Mutex
	keys    []string
	entries map[string]*metadataEntry
}

func newMetadataTable() *metadataTable {
	return &metadataTable{entries: make(map[string]*metadataEntry)}
}

// AddMetadataKey declares a metadata key. Keys start out empty.
func (r *Registry) AddMetadataKey(key string) error {
	if err := r.checkConfiguring(); err != nil {
		return err
	}
	if !validName(key, MaxNameLength) {
		return r.configError(MetadataPrefix+key, ErrInvalidName)
	}
	if _, ok := r.metadata.entries[key]; ok {
		return r.configError(MetadataPrefix+key, fmt.Errorf("%w: %s", ErrMetadataRepeat, key))
	}
	r.metadata.keys = append(r.metadata.keys, key)
	r.metadata.entries[key] = &metadataEntry{stamp: changeindex.InitialStamp}
	return nil
}

// MetadataKeys returns the declared keys in declaration order.
func (r *Registry) MetadataKeys() []string {
	out := make([]string, len(r.metadata.keys))
	copy(out, r.metadata.keys)
	return out
}

// Metadata returns the value of a key.
func (r *Registry) Metadata(key string) (string, error) {
	if err := r.checkOpen(); err != nil {
		return "", err
	}
	m := r.metadata
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", requestError(MetadataPrefix+key, ErrNoSuchMetadata)
	}
	return e.value, nil
}

// PutMetadata sets the value of a key.
func (r *Registry) PutMetadata(key, value string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	entity := MetadataPrefix + key
	m := r.metadata
	var stamp uint64
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok {
		stamp = r.clock.Advance()
		e.value = value
		e.stamp = stamp
	}
	m.mu.Unlock()

	var err error
	if !ok {
		err = requestError(entity, ErrNoSuchMetadata)
	}
	r.metrics.ObservePut(log.PutMetadata.String(), err)
	ev := &log.PutEvent{Kind: log.PutMetadata, Value: value}
	if err != nil {
		ev.Error = Message(err)
	} else {
		ev.Stamp = stamp
	}
	r.logEvent(log.Event{Category: log.CategoryPut, Entity: entity, Put: ev})
	return err
}

// changed returns the keys stamped after reportIndex with their values.
func (m *metadataTable) changed(reportIndex uint64) (keys, values []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.keys {
		if e := m.entries[k]; e.stamp > reportIndex {
			keys = append(keys, k)
			values = append(values, e.value)
		}
	}
	return keys, values
}
