package sineplug

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/ref"
)

// Factory builds document controllers bound to one host connection.
type Factory struct {
	host ara.HostInterfaces
	log  *zap.Logger
}

var _ ara.DocumentControllerFactory = (*Factory)(nil)

// NewFactory binds the plug-in to the host's interfaces.
func NewFactory(host ara.HostInterfaces) *Factory {
	return &Factory{host: host, log: Logger()}
}

// CreateDocumentController implements ara.DocumentControllerFactory.
func (f *Factory) CreateDocumentController(props ara.DocumentProperties) (ara.DocumentController, ara.PlaybackRenderer, error) {
	c := &controller{
		host:    f.host,
		props:   props,
		sources: ref.NewTable("audioSource"),
		log:     f.log.With(zap.String("document", props.Name)),
	}
	return c, &renderer{c: c}, nil
}

// audioSource is the plug-in's object for one host audio source.
type audioSource struct {
	hostRef ara.AudioSourceHostRef
	props   ara.AudioSourceProperties
	notes   []ara.Note
}

// controller implements ara.DocumentController for the demonstration
// plug-in. Host refs are handed straight back to the host on sample
// reads, so the plug-in needs no audio storage of its own.
type controller struct {
	host  ara.HostInterfaces
	props ara.DocumentProperties
	log   *zap.Logger

	mu       sync.Mutex
	editing  bool
	restored []string // persistent IDs awaiting rebinding
	sources  *ref.Table
}

var _ ara.DocumentController = (*controller)(nil)

// CreateAudioSource implements ara.DocumentController. It runs the
// plug-in's "analysis" inline, which calls back into the host's audio
// and content access while the host's create call is still pending.
func (c *controller) CreateAudioSource(host ara.AudioSourceHostRef, props ara.AudioSourceProperties) (ara.AudioSourceRef, error) {
	c.mu.Lock()
	if !c.editing {
		c.mu.Unlock()
		return 0, errors.ProtocolViolation(errors.PhaseDispatch, "createAudioSource outside an edit cycle")
	}
	c.mu.Unlock()

	src := &audioSource{hostRef: host, props: props}
	if err := c.analyze(src); err != nil {
		return 0, err
	}

	c.mu.Lock()
	r := c.sources.Insert(src)
	c.mu.Unlock()
	c.log.Info("audio source created",
		zap.String("name", props.Name),
		zap.Int64("samples", props.SampleCount),
		zap.Int64("ref", int64(r)))
	return ara.AudioSourceRef(r), nil
}

// analyze peeks at the source's audio and musical content and reports
// progress, touching every read path the host exposes.
func (c *controller) analyze(src *audioSource) error {
	if mu := c.host.ModelUpdate; mu != nil {
		if err := mu.NotifyAudioSourceAnalysisProgress(src.hostRef, 0); err != nil {
			return err
		}
	}
	if aa := c.host.AudioAccess; aa != nil && src.props.SampleCount > 0 {
		peek := src.props.SampleCount
		if peek > 256 {
			peek = 256
		}
		if _, err := aa.ReadAudioSamples(src.hostRef, 0, peek); err != nil {
			return err
		}
	}
	if ca := c.host.ContentAccess; ca != nil {
		notes, err := ca.GetNotes(src.hostRef)
		if err != nil {
			return err
		}
		src.notes = notes
	}
	if mu := c.host.ModelUpdate; mu != nil {
		if err := mu.NotifyAudioSourceAnalysisProgress(src.hostRef, 1); err != nil {
			return err
		}
		if err := mu.NotifyAudioSourceContentChanged(src.hostRef); err != nil {
			return err
		}
	}
	return nil
}

// UpdateAudioSourceProperties implements ara.DocumentController.
func (c *controller) UpdateAudioSourceProperties(source ara.AudioSourceRef, props ara.AudioSourceProperties) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing {
		return errors.ProtocolViolation(errors.PhaseDispatch, "updateAudioSourceProperties outside an edit cycle")
	}
	v, err := c.sources.Lookup(ref.Ref(source))
	if err != nil {
		return err
	}
	v.(*audioSource).props = props
	return nil
}

// DestroyAudioSource implements ara.DocumentController.
func (c *controller) DestroyAudioSource(source ara.AudioSourceRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing {
		return errors.ProtocolViolation(errors.PhaseDispatch, "destroyAudioSource outside an edit cycle")
	}
	_, err := c.sources.Remove(ref.Ref(source))
	return err
}

// BeginEditing implements ara.DocumentController.
func (c *controller) BeginEditing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editing {
		return errors.ProtocolViolation(errors.PhaseDispatch, "nested beginEditing")
	}
	c.editing = true
	return nil
}

// EndEditing implements ara.DocumentController.
func (c *controller) EndEditing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing {
		return errors.ProtocolViolation(errors.PhaseDispatch, "endEditing without beginEditing")
	}
	c.editing = false
	return nil
}

// Archive layout: one entry per source keyed in strides of 8, count at
// key 0, each entry a nested message of the restorable properties.
const (
	archiveKeyCount message.Key = 0

	entryKeyPersistentID message.Key = 0
	entryKeySampleCount  message.Key = 8
	entryKeySampleRate   message.Key = 16
)

// StoreObjectsToArchive implements ara.DocumentController. State is
// streamed through the host's archive writer while the host's store
// call is pending.
func (c *controller) StoreObjectsToArchive(archive ara.ArchiveWriterHostRef) (bool, error) {
	if c.host.Archiving == nil {
		return false, errors.Unsupported(errors.PhaseDispatch, "archiving controller")
	}
	c.mu.Lock()
	m := message.New()
	if err := m.AppendSize(archiveKeyCount, uint64(c.sources.Len())); err != nil {
		c.mu.Unlock()
		return false, err
	}
	i := 0
	var encErr error
	c.sources.Each(func(_ ref.Ref, v any) bool {
		src := v.(*audioSource)
		e := message.New()
		if encErr = e.AppendString(entryKeyPersistentID, src.props.PersistentID); encErr != nil {
			return false
		}
		if encErr = e.AppendInt64(entryKeySampleCount, src.props.SampleCount); encErr != nil {
			return false
		}
		if encErr = e.AppendDouble(entryKeySampleRate, src.props.SampleRate); encErr != nil {
			return false
		}
		i++
		encErr = m.AppendMessage(message.Key(i)*8, e)
		return encErr == nil
	})
	c.mu.Unlock()
	if encErr != nil {
		return false, encErr
	}

	blob, err := message.Binary.Encode(m)
	if err != nil {
		return false, err
	}
	if err := c.host.Archiving.WriteArchiveBytes(archive, 0, blob); err != nil {
		return false, err
	}
	c.log.Info("archive stored", zap.Int("bytes", len(blob)), zap.Int("sources", i))
	return true, nil
}

// RestoreObjectsFromArchive implements ara.DocumentController. Restored
// persistent IDs are kept until the host recreates the matching sources.
func (c *controller) RestoreObjectsFromArchive(archive ara.ArchiveReaderHostRef) (bool, error) {
	if c.host.Archiving == nil {
		return false, errors.Unsupported(errors.PhaseDispatch, "archiving controller")
	}
	size, err := c.host.Archiving.GetArchiveSize(archive)
	if err != nil {
		return false, err
	}
	if size < 0 {
		return false, errors.InvalidData(errors.PhaseDecode, "archive size %d", size)
	}
	blob, err := c.host.Archiving.ReadArchiveBytes(archive, 0, size)
	if err != nil {
		return false, err
	}
	m, err := message.Binary.Decode(blob)
	if err != nil {
		return false, err
	}
	count, err := m.Size(archiveKeyCount)
	if err != nil {
		return false, err
	}
	ids := make([]string, 0, count)
	for i := uint64(1); i <= count; i++ {
		e, err := m.Sub(message.Key(i) * 8)
		if err != nil {
			return false, err
		}
		id, err := e.String(entryKeyPersistentID)
		if err != nil {
			return false, err
		}
		ids = append(ids, id)
	}

	c.mu.Lock()
	c.restored = ids
	c.mu.Unlock()
	c.log.Info("archive restored", zap.Int64("bytes", size), zap.Int("sources", len(ids)))
	return true, nil
}

// RestoredPersistentIDs returns the IDs recovered by the last restore.
func (c *controller) RestoredPersistentIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.restored))
	copy(out, c.restored)
	return out
}

// Destroy implements ara.DocumentController.
func (c *controller) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.sources.Len(); n > 0 {
		c.log.Warn("destroying controller with live audio sources", zap.Int("count", n))
	}
	c.sources.Clear()
	return nil
}

// renderer implements ara.PlaybackRenderer by passing host audio
// through unchanged.
type renderer struct {
	c *controller
}

var _ ara.PlaybackRenderer = (*renderer)(nil)

// RenderSamples implements ara.PlaybackRenderer. It reads the rendered
// range back out of the host while the host's render call is pending.
func (r *renderer) RenderSamples(source ara.AudioSourceRef, position, count int64) ([]float32, error) {
	r.c.mu.Lock()
	v, err := r.c.sources.Lookup(ref.Ref(source))
	r.c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	src := v.(*audioSource)
	if r.c.host.AudioAccess == nil {
		return nil, errors.Unsupported(errors.PhaseDispatch, "audio access controller")
	}
	if position < 0 || count < 0 || position > src.props.SampleCount ||
		count > src.props.SampleCount-position {
		return nil, errors.InvalidData(errors.PhaseDispatch,
			"render of %d samples at %d outside source of %d samples", count, position, src.props.SampleCount)
	}
	return r.c.host.AudioAccess.ReadAudioSamples(src.hostRef, position, count)
}
