package proxy

import (
	"github.com/wippyai/ara-ipc/ara"
	"github.com/wippyai/ara-ipc/errors"
	"github.com/wippyai/ara-ipc/message"
	"github.com/wippyai/ara-ipc/method"
	"github.com/wippyai/ara-ipc/remote"
)

// PlugIn is the host's typed view of the remote plug-in process.
type PlugIn struct {
	conn *remote.Connection
}

// NewPlugIn wraps a connection and exposes host's interfaces to the
// peer's callbacks.
func NewPlugIn(conn *remote.Connection, host ara.HostInterfaces) *PlugIn {
	registerHostInterfaces(conn, host)
	return &PlugIn{conn: conn}
}

// CreateDocumentController asks the plug-in to build a document
// controller and its playback renderer for a new document.
func (p *PlugIn) CreateDocumentController(props ara.DocumentProperties) (*DocumentController, *PlaybackRenderer, error) {
	doc := message.New()
	if err := doc.AppendString(propKeyName, props.Name); err != nil {
		return nil, nil, err
	}
	body := message.New()
	if err := body.AppendMessage(keyTarget, doc); err != nil {
		return nil, nil, err
	}
	reply, err := p.conn.Call(method.IDCreateDocumentController, body)
	if err != nil {
		return nil, nil, err
	}
	rawRef, err := reply.Size(keyTarget)
	if err != nil {
		return nil, nil, err
	}
	dcRef := ara.DocumentControllerRef(refFromWire(rawRef))
	dc := &DocumentController{conn: p.conn, ref: dcRef}
	pr := &PlaybackRenderer{conn: p.conn, ref: dcRef}
	return dc, pr, nil
}

// DocumentController proxies one remote plug-in document controller.
// Its methods block on the main channel, so they must not be called
// from inside a host-interface callback servicing the same channel.
type DocumentController struct {
	conn *remote.Connection
	ref  ara.DocumentControllerRef
}

// Ref returns the plug-in-assigned controller ref.
func (dc *DocumentController) Ref() ara.DocumentControllerRef {
	return dc.ref
}

func (dc *DocumentController) request() (*message.Message, error) {
	body := message.New()
	if err := appendRef(body, keyTarget, int64(dc.ref)); err != nil {
		return nil, err
	}
	return body, nil
}

// CreateAudioSource announces a host audio source to the plug-in and
// returns the plug-in's ref for it.
func (dc *DocumentController) CreateAudioSource(host ara.AudioSourceHostRef, props ara.AudioSourceProperties) (ara.AudioSourceRef, error) {
	body, err := dc.request()
	if err != nil {
		return 0, err
	}
	if err := appendRef(body, keyArg0, int64(host)); err != nil {
		return 0, err
	}
	sub, err := encodeAudioSourceProperties(props)
	if err != nil {
		return 0, err
	}
	if err := body.AppendMessage(keyArg1, sub); err != nil {
		return 0, err
	}
	reply, err := dc.conn.Call(idCreateAudioSource, body)
	if err != nil {
		return 0, err
	}
	raw, err := reply.Size(keyTarget)
	if err != nil {
		return 0, err
	}
	return ara.AudioSourceRef(refFromWire(raw)), nil
}

// UpdateAudioSourceProperties pushes changed properties to the plug-in.
func (dc *DocumentController) UpdateAudioSourceProperties(source ara.AudioSourceRef, props ara.AudioSourceProperties) error {
	body, err := dc.request()
	if err != nil {
		return err
	}
	if err := appendRef(body, keyArg0, int64(source)); err != nil {
		return err
	}
	sub, err := encodeAudioSourceProperties(props)
	if err != nil {
		return err
	}
	if err := body.AppendMessage(keyArg1, sub); err != nil {
		return err
	}
	_, err = dc.conn.Call(idUpdateAudioSourceProps, body)
	return err
}

// DestroyAudioSource drops the plug-in's object for a source.
func (dc *DocumentController) DestroyAudioSource(source ara.AudioSourceRef) error {
	body, err := dc.request()
	if err != nil {
		return err
	}
	if err := appendRef(body, keyArg0, int64(source)); err != nil {
		return err
	}
	_, err = dc.conn.Call(idDestroyAudioSource, body)
	return err
}

// BeginEditing opens a model edit cycle.
func (dc *DocumentController) BeginEditing() error {
	body, err := dc.request()
	if err != nil {
		return err
	}
	_, err = dc.conn.Call(idBeginEditing, body)
	return err
}

// EndEditing closes the current model edit cycle.
func (dc *DocumentController) EndEditing() error {
	body, err := dc.request()
	if err != nil {
		return err
	}
	_, err = dc.conn.Call(idEndEditing, body)
	return err
}

// StoreObjectsToArchive persists the plug-in's model state through the
// given archive writer. While the call is pending the plug-in streams
// bytes back through the host's archiving controller.
func (dc *DocumentController) StoreObjectsToArchive(archive ara.ArchiveWriterHostRef) (bool, error) {
	body, err := dc.request()
	if err != nil {
		return false, err
	}
	if err := appendRef(body, keyArg0, int64(archive)); err != nil {
		return false, err
	}
	reply, err := dc.conn.Call(idStoreObjectsToArchive, body)
	if err != nil {
		return false, err
	}
	return replyBool(reply)
}

// RestoreObjectsFromArchive rebuilds the plug-in's model state from the
// given archive reader.
func (dc *DocumentController) RestoreObjectsFromArchive(archive ara.ArchiveReaderHostRef) (bool, error) {
	body, err := dc.request()
	if err != nil {
		return false, err
	}
	if err := appendRef(body, keyArg0, int64(archive)); err != nil {
		return false, err
	}
	reply, err := dc.conn.Call(idRestoreObjectsFromArchive, body)
	if err != nil {
		return false, err
	}
	return replyBool(reply)
}

// Destroy tears the remote controller down. The proxy is dead afterwards.
func (dc *DocumentController) Destroy() error {
	body, err := dc.request()
	if err != nil {
		return err
	}
	_, err = dc.conn.Call(idDestroyDocumentController, body)
	return err
}

// PlaybackRenderer proxies the remote plug-in's renderer. Calls travel
// on the other-threads channel so they never contend with model-thread
// traffic.
type PlaybackRenderer struct {
	conn *remote.Connection
	ref  ara.DocumentControllerRef
}

// RenderSamples pulls count rendered samples starting at position.
// Reads larger than MaxSamplesPerCall are split transparently.
func (pr *PlaybackRenderer) RenderSamples(source ara.AudioSourceRef, position, count int64) ([]float32, error) {
	return ReadAudioChunked(position, count, func(position, count int64) ([]float32, error) {
		body := message.New()
		if err := appendRef(body, keyTarget, int64(pr.ref)); err != nil {
			return nil, err
		}
		if err := appendRef(body, keyArg0, int64(source)); err != nil {
			return nil, err
		}
		if err := body.AppendInt64(keyArg1, position); err != nil {
			return nil, err
		}
		if err := body.AppendInt64(keyArg2, count); err != nil {
			return nil, err
		}
		reply, err := pr.conn.CallRender(idRenderSamples, body)
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
				"render reply has %d samples, requested %d", len(samples), count)
		}
		return samples, nil
	})
}

// registerHostInterfaces installs the dispatchers that let the plug-in
// call back into the host's model.
func registerHostInterfaces(conn *remote.Connection, host ara.HostInterfaces) {
	conn.RegisterHandler(method.TagAudioAccessController, remote.HandlerFunc(
		func(id method.ID, body *message.Message) (*message.Message, error) {
			if id != idReadAudioSamples {
				return nil, errors.Unsupported(errors.PhaseDispatch, id.String())
			}
			if host.AudioAccess == nil {
				return nil, errors.Unsupported(errors.PhaseDispatch, "audio access controller")
			}
			source, err := readRef(body, keyTarget)
			if err != nil {
				return nil, err
			}
			position, err := body.Int64(keyArg0)
			if err != nil {
				return nil, err
			}
			count, err := body.Int64(keyArg1)
			if err != nil {
				return nil, err
			}
			samples, err := host.AudioAccess.ReadAudioSamples(ara.AudioSourceHostRef(source), position, count)
			if err != nil {
				return nil, err
			}
			reply := message.New()
			if err := reply.AppendBytes(keyTarget, samplesToBytes(samples)); err != nil {
				return nil, err
			}
			return reply, nil
		}))

	conn.RegisterHandler(method.TagArchivingController, remote.HandlerFunc(
		func(id method.ID, body *message.Message) (*message.Message, error) {
			if host.Archiving == nil {
				return nil, errors.Unsupported(errors.PhaseDispatch, "archiving controller")
			}
			return dispatchArchiving(host.Archiving, id, body)
		}))

	conn.RegisterHandler(method.TagContentAccessController, remote.HandlerFunc(
		func(id method.ID, body *message.Message) (*message.Message, error) {
			if id != idGetNotes {
				return nil, errors.Unsupported(errors.PhaseDispatch, id.String())
			}
			if host.ContentAccess == nil {
				return nil, errors.Unsupported(errors.PhaseDispatch, "content access controller")
			}
			source, err := readRef(body, keyTarget)
			if err != nil {
				return nil, err
			}
			notes, err := host.ContentAccess.GetNotes(ara.AudioSourceHostRef(source))
			if err != nil {
				return nil, err
			}
			sub, err := encodeNotes(notes)
			if err != nil {
				return nil, err
			}
			reply := message.New()
			if err := reply.AppendMessage(keyTarget, sub); err != nil {
				return nil, err
			}
			return reply, nil
		}))

	conn.RegisterHandler(method.TagModelUpdateController, remote.HandlerFunc(
		func(id method.ID, body *message.Message) (*message.Message, error) {
			if host.ModelUpdate == nil {
				return nil, errors.Unsupported(errors.PhaseDispatch, "model update controller")
			}
			source, err := readRef(body, keyTarget)
			if err != nil {
				return nil, err
			}
			switch id {
			case idNotifyContentChanged:
				if err := host.ModelUpdate.NotifyAudioSourceContentChanged(ara.AudioSourceHostRef(source)); err != nil {
					return nil, err
				}
			case idNotifyAnalysisProgress:
				progress, err := body.Float(keyArg0)
				if err != nil {
					return nil, err
				}
				if err := host.ModelUpdate.NotifyAudioSourceAnalysisProgress(ara.AudioSourceHostRef(source), progress); err != nil {
					return nil, err
				}
			default:
				return nil, errors.Unsupported(errors.PhaseDispatch, id.String())
			}
			return message.New(), nil
		}))
}

func dispatchArchiving(arch ara.ArchivingController, id method.ID, body *message.Message) (*message.Message, error) {
	archive, err := readRef(body, keyTarget)
	if err != nil {
		return nil, err
	}
	switch id {
	case idGetArchiveSize:
		size, err := arch.GetArchiveSize(ara.ArchiveReaderHostRef(archive))
		if err != nil {
			return nil, err
		}
		reply := message.New()
		if err := reply.AppendInt64(keyTarget, size); err != nil {
			return nil, err
		}
		return reply, nil
	case idReadArchiveBytes:
		position, err := body.Int64(keyArg0)
		if err != nil {
			return nil, err
		}
		count, err := body.Int64(keyArg1)
		if err != nil {
			return nil, err
		}
		data, err := arch.ReadArchiveBytes(ara.ArchiveReaderHostRef(archive), position, count)
		if err != nil {
			return nil, err
		}
		reply := message.New()
		if err := reply.AppendBytes(keyTarget, data); err != nil {
			return nil, err
		}
		return reply, nil
	case idWriteArchiveBytes:
		position, err := body.Int64(keyArg0)
		if err != nil {
			return nil, err
		}
		data, err := body.Bytes(keyArg1)
		if err != nil {
			return nil, err
		}
		if err := arch.WriteArchiveBytes(ara.ArchiveWriterHostRef(archive), position, data); err != nil {
			return nil, err
		}
		return message.New(), nil
	}
	return nil, errors.Unsupported(errors.PhaseDispatch, id.String())
}
