package hostmodel

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/ref"
)

// Model is the host's document model plus the object tables backing the
// refs it hands to the plug-in.
type Model struct {
	mu       sync.Mutex
	document ara.Document
	sources  *ref.Table
	readers  *ref.Table
	writers  *ref.Table

	progress map[ara.AudioSourceHostRef]float32
	changed  map[ara.AudioSourceHostRef]int

	log *zap.Logger
}

var (
	_ ara.AudioAccessController   = (*Model)(nil)
	_ ara.ArchivingController     = (*Model)(nil)
	_ ara.ContentAccessController = (*Model)(nil)
	_ ara.ModelUpdateController   = (*Model)(nil)
)

// New builds an empty model for a named document.
func New(name string) *Model {
	return &Model{
		document: ara.Document{Properties: ara.DocumentProperties{Name: name}},
		sources:  ref.NewTable("hostAudioSource"),
		readers:  ref.NewTable("archiveReader"),
		writers:  ref.NewTable("archiveWriter"),
		progress: make(map[ara.AudioSourceHostRef]float32),
		changed:  make(map[ara.AudioSourceHostRef]int),
		log:      Logger(),
	}
}

// DocumentProperties returns the document's properties.
func (m *Model) DocumentProperties() ara.DocumentProperties {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.document.Properties
}

// AddAudioSource registers a source with the model and returns the
// host ref the plug-in will identify it by.
func (m *Model) AddAudioSource(src *ara.AudioSource) ara.AudioSourceHostRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.document.Sources = append(m.document.Sources, src)
	return ara.AudioSourceHostRef(m.sources.Insert(src))
}

// RemoveAudioSource drops a source. Its ref is stale afterwards.
func (m *Model) RemoveAudioSource(r ara.AudioSourceHostRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.sources.Remove(ref.Ref(r))
	if err != nil {
		return err
	}
	src := v.(*ara.AudioSource)
	for i, s := range m.document.Sources {
		if s == src {
			m.document.Sources = append(m.document.Sources[:i], m.document.Sources[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Model) source(r ara.AudioSourceHostRef) (*ara.AudioSource, error) {
	v, err := m.sources.Lookup(ref.Ref(r))
	if err != nil {
		return nil, err
	}
	return v.(*ara.AudioSource), nil
}

// ReadAudioSamples implements ara.AudioAccessController.
func (m *Model) ReadAudioSamples(source ara.AudioSourceHostRef, position, count int64) ([]float32, error) {
	src, err := m.source(source)
	if err != nil {
		return nil, err
	}
	return src.Read(position, count)
}

// GetNotes implements ara.ContentAccessController.
func (m *Model) GetNotes(source ara.AudioSourceHostRef) ([]ara.Note, error) {
	src, err := m.source(source)
	if err != nil {
		return nil, err
	}
	notes := make([]ara.Note, len(src.Notes))
	copy(notes, src.Notes)
	return notes, nil
}

// NotifyAudioSourceContentChanged implements ara.ModelUpdateController.
func (m *Model) NotifyAudioSourceContentChanged(source ara.AudioSourceHostRef) error {
	if _, err := m.source(source); err != nil {
		return err
	}
	m.mu.Lock()
	m.changed[source]++
	m.mu.Unlock()
	m.log.Debug("content changed", zap.Int64("source", int64(source)))
	return nil
}

// NotifyAudioSourceAnalysisProgress implements ara.ModelUpdateController.
func (m *Model) NotifyAudioSourceAnalysisProgress(source ara.AudioSourceHostRef, progress float32) error {
	if _, err := m.source(source); err != nil {
		return err
	}
	if progress < 0 || progress > 1 {
		return errors.InvalidData(errors.PhaseDispatch, "analysis progress %f outside [0, 1]", progress)
	}
	m.mu.Lock()
	m.progress[source] = progress
	m.mu.Unlock()
	return nil
}

// ContentChanges returns how many change notifications a source got.
func (m *Model) ContentChanges(source ara.AudioSourceHostRef) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed[source]
}

// AnalysisProgress returns the last reported progress for a source.
func (m *Model) AnalysisProgress(source ara.AudioSourceHostRef) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress[source]
}

// Interfaces bundles the model for registration with a connection.
func (m *Model) Interfaces() ara.HostInterfaces {
	return ara.HostInterfaces{
		AudioAccess:   m,
		Archiving:     m,
		ContentAccess: m,
		ModelUpdate:   m,
	}
}
