package proxy

import (
	"go.uber.org/zap"

	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/method"
	"github.com/wippyai/ara-ipc/ref"
	"github.com/wippyai/ara-ipc/remote"
)

// Host is the plug-in's typed view of the host process. It implements
// the host-callable interfaces by sending requests back across the
// connection, so a plug-in implementation can hold it wherever it would
// hold in-process host interfaces.
type Host struct {
	conn *remote.Connection
}

var (
	_ ara.AudioAccessController   = (*Host)(nil)
	_ ara.ArchivingController     = (*Host)(nil)
	_ ara.ContentAccessController = (*Host)(nil)
	_ ara.ModelUpdateController   = (*Host)(nil)
)

// NewHost wraps the plug-in side of a connection.
func NewHost(conn *remote.Connection) *Host {
	return &Host{conn: conn}
}

// Interfaces bundles the host proxy into the form plug-in code consumes.
func (h *Host) Interfaces() ara.HostInterfaces {
	return ara.HostInterfaces{
		AudioAccess:   h,
		Archiving:     h,
		ContentAccess: h,
		ModelUpdate:   h,
	}
}

// ReadAudioSamples pulls samples out of the host's model. Large reads
// are split into MaxSamplesPerCall pieces; audio travels on the
// other-threads channel since reads happen on render and analysis
// threads.
func (h *Host) ReadAudioSamples(source ara.AudioSourceHostRef, position, count int64) ([]float32, error) {
	return ReadAudioChunked(position, count, func(position, count int64) ([]float32, error) {
		body := message.New()
		if err := appendRef(body, keyTarget, int64(source)); err != nil {
			return nil, err
		}
		if err := body.AppendInt64(keyArg0, position); err != nil {
			return nil, err
		}
		if err := body.AppendInt64(keyArg1, count); err != nil {
			return nil, err
		}
		reply, err := h.conn.CallRender(idReadAudioSamples, body)
		if err != nil {
			return nil, err
		}
		blob, err := reply.Bytes(keyTarget)
		if err != nil {
			return nil, err
		}
		samples, err := bytesToSamples(blob)
		if err != nil {
			return nil, err
		}
		if int64(len(samples)) != count {
			return nil, errors.InvalidData(errors.PhaseDecode,
				"read reply has %d samples, requested %d", len(samples), count)
		}
		return samples, nil
	})
}

// GetArchiveSize returns the byte size of a host archive stream.
func (h *Host) GetArchiveSize(archive ara.ArchiveReaderHostRef) (int64, error) {
	body := message.New()
	if err := appendRef(body, keyTarget, int64(archive)); err != nil {
		return 0, err
	}
	reply, err := h.conn.Call(idGetArchiveSize, body)
	if err != nil {
		return 0, err
	}
	return reply.Int64(keyTarget)
}

// ReadArchiveBytes reads count bytes at position from a host archive
// stream, split into MaxBytesPerCall pieces.
func (h *Host) ReadArchiveBytes(archive ara.ArchiveReaderHostRef, position, count int64) ([]byte, error) {
	return ReadBytesChunked(position, count, func(position, count int64) ([]byte, error) {
		body := message.New()
		if err := appendRef(body, keyTarget, int64(archive)); err != nil {
			return nil, err
		}
		if err := body.AppendInt64(keyArg0, position); err != nil {
			return nil, err
		}
		if err := body.AppendInt64(keyArg1, count); err != nil {
			return nil, err
		}
		reply, err := h.conn.Call(idReadArchiveBytes, body)
		if err != nil {
			return nil, err
		}
		data, err := reply.Bytes(keyTarget)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) != count {
			return nil, errors.InvalidData(errors.PhaseDecode,
				"archive read returned %d bytes, requested %d", len(data), count)
		}
		return data, nil
	})
}

// WriteArchiveBytes writes data at position into a host archive stream,
// split into MaxBytesPerCall pieces.
func (h *Host) WriteArchiveBytes(archive ara.ArchiveWriterHostRef, position int64, data []byte) error {
	return WriteBytesChunked(position, data, func(position int64, data []byte) error {
		body := message.New()
		if err := appendRef(body, keyTarget, int64(archive)); err != nil {
			return err
		}
		if err := body.AppendInt64(keyArg0, position); err != nil {
			return err
		}
		if err := body.AppendBytes(keyArg1, data); err != nil {
			return err
		}
		_, err := h.conn.Call(idWriteArchiveBytes, body)
		return err
	})
}

// GetNotes returns the host's musical content for a source.
func (h *Host) GetNotes(source ara.AudioSourceHostRef) ([]ara.Note, error) {
	body := message.New()
	if err := appendRef(body, keyTarget, int64(source)); err != nil {
		return nil, err
	}
	reply, err := h.conn.Call(idGetNotes, body)
	if err != nil {
		return nil, err
	}
	sub, err := reply.Sub(keyTarget)
	if err != nil {
		return nil, err
	}
	return decodeNotes(sub)
}

// NotifyAudioSourceContentChanged tells the host a source's analysis
// results changed.
func (h *Host) NotifyAudioSourceContentChanged(source ara.AudioSourceHostRef) error {
	body := message.New()
	if err := appendRef(body, keyTarget, int64(source)); err != nil {
		return err
	}
	_, err := h.conn.Call(idNotifyContentChanged, body)
	return err
}

// NotifyAudioSourceAnalysisProgress reports analysis progress in [0, 1].
func (h *Host) NotifyAudioSourceAnalysisProgress(source ara.AudioSourceHostRef, progress float32) error {
	body := message.New()
	if err := appendRef(body, keyTarget, int64(source)); err != nil {
		return err
	}
	if err := body.AppendFloat(keyArg0, progress); err != nil {
		return err
	}
	_, err := h.conn.Call(idNotifyAnalysisProgress, body)
	return err
}

// controllerEntry pairs one live document controller with its renderer.
type controllerEntry struct {
	dc ara.DocumentController
	pr ara.PlaybackRenderer
}

// RegisterPlugIn installs the plug-in side dispatch tables: the factory
// servicing createDocumentController and the per-controller method
// dispatchers. Controller refs handed to the host come from an internal
// table, so a call on a destroyed controller fails as a stale ref
// instead of touching freed state.
func RegisterPlugIn(conn *remote.Connection, factory ara.DocumentControllerFactory) {
	controllers := ref.NewTable("documentController")
	log := Logger()

	conn.RegisterFactory(remote.HandlerFunc(
		func(_ method.ID, body *message.Message) (*message.Message, error) {
			doc, err := body.Sub(keyTarget)
			if err != nil {
				return nil, err
			}
			name, err := doc.String(propKeyName)
			if err != nil {
				return nil, err
			}
			dc, pr, err := factory.CreateDocumentController(ara.DocumentProperties{Name: name})
			if err != nil {
				return nil, err
			}
			r := controllers.Insert(&controllerEntry{dc: dc, pr: pr})
			log.Info("created document controller",
				zap.String("document", name),
				zap.Int64("ref", int64(r)))
			reply := message.New()
			if err := appendRef(reply, keyTarget, int64(r)); err != nil {
				return nil, err
			}
			return reply, nil
		}))

	conn.RegisterHandler(method.TagDocumentController, remote.HandlerFunc(
		func(id method.ID, body *message.Message) (*message.Message, error) {
			target, err := readRef(body, keyTarget)
			if err != nil {
				return nil, err
			}
			v, err := controllers.Lookup(target)
			if err != nil {
				return nil, err
			}
			entry := v.(*controllerEntry)
			if id == idDestroyDocumentController {
				if _, err := controllers.Remove(target); err != nil {
					return nil, err
				}
				if err := entry.dc.Destroy(); err != nil {
					return nil, err
				}
				return message.New(), nil
			}
			return dispatchDocumentController(entry.dc, id, body)
		}))

	conn.RegisterHandler(method.TagPlaybackRenderer, remote.HandlerFunc(
		func(id method.ID, body *message.Message) (*message.Message, error) {
			if id != idRenderSamples {
				return nil, errors.Unsupported(errors.PhaseDispatch, id.String())
			}
			target, err := readRef(body, keyTarget)
			if err != nil {
				return nil, err
			}
			v, err := controllers.Lookup(target)
			if err != nil {
				return nil, err
			}
			entry := v.(*controllerEntry)
			source, err := readRef(body, keyArg0)
			if err != nil {
				return nil, err
			}
			position, err := body.Int64(keyArg1)
			if err != nil {
				return nil, err
			}
			count, err := body.Int64(keyArg2)
			if err != nil {
				return nil, err
			}
			samples, err := entry.pr.RenderSamples(ara.AudioSourceRef(source), position, count)
			if err != nil {
				return nil, err
			}
			reply := message.New()
			if err := reply.AppendBytes(keyTarget, samplesToBytes(samples)); err != nil {
				return nil, err
			}
			return reply, nil
		}))
}

func dispatchDocumentController(dc ara.DocumentController, id method.ID, body *message.Message) (*message.Message, error) {
	switch id {
	case idCreateAudioSource:
		host, err := readRef(body, keyArg0)
		if err != nil {
			return nil, err
		}
		sub, err := body.Sub(keyArg1)
		if err != nil {
			return nil, err
		}
		props, err := decodeAudioSourceProperties(sub)
		if err != nil {
			return nil, err
		}
		source, err := dc.CreateAudioSource(ara.AudioSourceHostRef(host), props)
		if err != nil {
			return nil, err
		}
		reply := message.New()
		if err := appendRef(reply, keyTarget, int64(source)); err != nil {
			return nil, err
		}
		return reply, nil

	case idUpdateAudioSourceProps:
		source, err := readRef(body, keyArg0)
		if err != nil {
			return nil, err
		}
		sub, err := body.Sub(keyArg1)
		if err != nil {
			return nil, err
		}
		props, err := decodeAudioSourceProperties(sub)
		if err != nil {
			return nil, err
		}
		if err := dc.UpdateAudioSourceProperties(ara.AudioSourceRef(source), props); err != nil {
			return nil, err
		}
		return message.New(), nil

	case idDestroyAudioSource:
		source, err := readRef(body, keyArg0)
		if err != nil {
			return nil, err
		}
		if err := dc.DestroyAudioSource(ara.AudioSourceRef(source)); err != nil {
			return nil, err
		}
		return message.New(), nil

	case idBeginEditing:
		if err := dc.BeginEditing(); err != nil {
			return nil, err
		}
		return message.New(), nil

	case idEndEditing:
		if err := dc.EndEditing(); err != nil {
			return nil, err
		}
		return message.New(), nil

	case idStoreObjectsToArchive:
		archive, err := readRef(body, keyArg0)
		if err != nil {
			return nil, err
		}
		ok, err := dc.StoreObjectsToArchive(ara.ArchiveWriterHostRef(archive))
		if err != nil {
			return nil, err
		}
		return boolReply(ok)

	case idRestoreObjectsFromArchive:
		archive, err := readRef(body, keyArg0)
		if err != nil {
			return nil, err
		}
		ok, err := dc.RestoreObjectsFromArchive(ara.ArchiveReaderHostRef(archive))
		if err != nil {
			return nil, err
		}
		return boolReply(ok)
	}
	return nil, errors.Unsupported(errors.PhaseDispatch, id.String())
}
