// Package state saves and restores the parameter values of a node.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/justyntemme/envnode/pkg/framework/param"
)

const magic = "ENVNODE1"

// ErrInvalidState is returned when a stream is not a snapshot.
var ErrInvalidState = errors.New("invalid state format")

// Manager handles parameter snapshots of one node
type Manager struct {
	version  uint32
	kind     string
	registry *param.Registry
	exclude  map[uint32]bool
}

// NewManager creates a manager for the parameters in registry. kind names
// the node type and is checked on Load. Excluded ids are neither saved nor
// restored.
func NewManager(kind string, registry *param.Registry, exclude ...uint32) *Manager {
	m := &Manager{
		version:  1,
		kind:     kind,
		registry: registry,
		exclude:  make(map[uint32]bool, len(exclude)),
	}
	for _, id := range exclude {
		m.exclude[id] = true
	}
	return m
}

// Save writes the normalized value of every parameter to w
func (m *Manager) Save(w io.Writer) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, m.version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(m.kind))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, m.kind); err != nil {
		return err
	}

	params := make([]*param.Parameter, 0, m.registry.Count())
	for _, p := range m.registry.All() {
		if !m.exclude[p.ID] {
			params = append(params, p)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(params))); err != nil {
		return err
	}

	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.GetValue()); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a snapshot from r and writes its values to the registry.
// Unknown and excluded parameters are skipped. Nothing is written unless the
// whole snapshot reads cleanly.
func (m *Manager) Load(r io.Reader) error {
	header := make([]byte, len(magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if string(header) != magic {
		return ErrInvalidState
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version > m.version {
		return fmt.Errorf("state version %d is newer than supported version %d", version, m.version)
	}

	var kindLen uint16
	if err := binary.Read(r, binary.LittleEndian, &kindLen); err != nil {
		return err
	}
	kind := make([]byte, kindLen)
	if _, err := io.ReadFull(r, kind); err != nil {
		return err
	}
	if string(kind) != m.kind {
		return fmt.Errorf("%w: snapshot is for %q, not %q", ErrInvalidState, kind, m.kind)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}
	if count > uint32(m.registry.Count())*4+64 {
		return fmt.Errorf("%w: %d parameters", ErrInvalidState, count)
	}

	type entry struct {
		p     *param.Parameter
		value float64
	}
	entries := make([]entry, 0, count)
	for i := uint32(0); i < count; i++ {
		var id uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return err
		}
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return err
		}
		if math.IsNaN(value) {
			return fmt.Errorf("%w: parameter %d is NaN", ErrInvalidState, id)
		}

		// Ignore unknown parameters for forward compatibility
		p := m.registry.Get(id)
		if p == nil || m.exclude[id] {
			continue
		}
		entries = append(entries, entry{p, value})
	}

	for _, e := range entries {
		e.p.SetValue(e.value)
	}
	return nil
}
