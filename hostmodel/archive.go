package hostmodel

import (
	"sync"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/ref"
)

// Archive is an in-memory persistency byte stream. It carries its own
// lock so the host can inspect it while the plug-in is still streaming.
type Archive struct {
	mu   sync.Mutex
	data []byte
}

// Bytes returns the archive's current contents.
func (a *Archive) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]byte, len(a.data))
	copy(out, a.data)
	return out
}

// NewArchiveWriter opens a fresh archive for the plug-in to store into.
// The returned Archive fills as the plug-in writes.
func (m *Model) NewArchiveWriter() (ara.ArchiveWriterHostRef, *Archive) {
	a := &Archive{}
	m.mu.Lock()
	defer m.mu.Unlock()
	return ara.ArchiveWriterHostRef(m.writers.Insert(a)), a
}

// NewArchiveReader exposes stored bytes for the plug-in to restore from.
func (m *Model) NewArchiveReader(data []byte) ara.ArchiveReaderHostRef {
	a := &Archive{data: make([]byte, len(data))}
	copy(a.data, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	return ara.ArchiveReaderHostRef(m.readers.Insert(a))
}

// CloseArchiveWriter invalidates a writer ref after the store finished.
func (m *Model) CloseArchiveWriter(r ara.ArchiveWriterHostRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.writers.Remove(ref.Ref(r))
	return err
}

// CloseArchiveReader invalidates a reader ref after the restore finished.
func (m *Model) CloseArchiveReader(r ara.ArchiveReaderHostRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.readers.Remove(ref.Ref(r))
	return err
}

func (m *Model) reader(r ara.ArchiveReaderHostRef) (*Archive, error) {
	v, err := m.readers.Lookup(ref.Ref(r))
	if err != nil {
		return nil, err
	}
	return v.(*Archive), nil
}

// GetArchiveSize implements ara.ArchivingController.
func (m *Model) GetArchiveSize(archive ara.ArchiveReaderHostRef) (int64, error) {
	a, err := m.reader(archive)
	if err != nil {
		return 0, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(len(a.data)), nil
}

// ReadArchiveBytes implements ara.ArchivingController.
func (m *Model) ReadArchiveBytes(archive ara.ArchiveReaderHostRef, position, count int64) ([]byte, error) {
	a, err := m.reader(archive)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	// Checked without summing position+count, which could wrap.
	if position < 0 || count < 0 || position > int64(len(a.data)) ||
		count > int64(len(a.data))-position {
		return nil, errors.InvalidData(errors.PhaseDispatch,
			"archive read of %d bytes at %d outside %d bytes", count, position, len(a.data))
	}
	out := make([]byte, count)
	copy(out, a.data[position:position+count])
	return out, nil
}

// WriteArchiveBytes implements ara.ArchivingController. Writes may
// extend the archive but must not leave holes.
func (m *Model) WriteArchiveBytes(archive ara.ArchiveWriterHostRef, position int64, data []byte) error {
	v, err := m.writers.Lookup(ref.Ref(archive))
	if err != nil {
		return err
	}
	a := v.(*Archive)
	a.mu.Lock()
	defer a.mu.Unlock()
	if position < 0 || position > int64(len(a.data)) {
		return errors.InvalidData(errors.PhaseDispatch,
			"archive write at %d past end of %d bytes", position, len(a.data))
	}
	end := position + int64(len(data))
	if end > int64(len(a.data)) {
		a.data = append(a.data, make([]byte, end-int64(len(a.data)))...)
	}
	copy(a.data[position:end], data)
	return nil
}
