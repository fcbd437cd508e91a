package ara

import (
	"github.com/wippyai/ara-ipc/ref"
)

// APIVersion is the API generation this build implements. Connections
// negotiate down to the lower of the two sides' versions during the
// handshake; optional struct members introduced by later minor versions
// are simply absent when talking to an older peer.
const APIVersion = "2.3.0"

// Host-owned object refs, assigned by the host process.
type (
	AudioSourceHostRef   ref.Ref
	ArchiveReaderHostRef ref.Ref
	ArchiveWriterHostRef ref.Ref
)

// Plug-in-owned object refs, assigned by the plug-in process.
type (
	DocumentControllerRef ref.Ref
	AudioSourceRef        ref.Ref
)

// DocumentProperties describes the top-level document.
type DocumentProperties struct {
	Name string
}

// Color is an optional display color. It was added in a later API
// generation, so it travels only when both sides know about it.
type Color struct {
	R, G, B float32
}

// AudioSourceProperties describes one audio source of the document.
type AudioSourceProperties struct {
	Name         string
	PersistentID string
	SampleCount  int64
	SampleRate   float64
	ChannelCount int32
	Color        *Color // optional, later API generation
}

// Note is one entry of an audio source's musical content.
type Note struct {
	Frequency float32 // Hz
	Position  float64 // seconds
	Duration  float64 // seconds
}

// AudioAccessController is the host-callable interface for pulling audio
// samples out of the host's model.
type AudioAccessController interface {
	// ReadAudioSamples returns count samples of the source starting at
	// position. Short reads are errors; out-of-range reads fail.
	ReadAudioSamples(source AudioSourceHostRef, position, count int64) ([]float32, error)
}

// ArchivingController is the host-callable interface for document
// persistency byte streams.
type ArchivingController interface {
	GetArchiveSize(archive ArchiveReaderHostRef) (int64, error)
	ReadArchiveBytes(archive ArchiveReaderHostRef, position, count int64) ([]byte, error)
	WriteArchiveBytes(archive ArchiveWriterHostRef, position int64, data []byte) error
}

// ContentAccessController is the host-callable interface for musical
// content the host knows about its audio sources.
type ContentAccessController interface {
	GetNotes(source AudioSourceHostRef) ([]Note, error)
}

// ModelUpdateController is the host-callable interface for change
// notifications flowing from the plug-in's analysis back to the host.
type ModelUpdateController interface {
	NotifyAudioSourceContentChanged(source AudioSourceHostRef) error
	NotifyAudioSourceAnalysisProgress(source AudioSourceHostRef, progress float32) error
}

// HostInterfaces bundles everything the host process exposes to the
// plug-in across one connection.
type HostInterfaces struct {
	AudioAccess   AudioAccessController
	Archiving     ArchivingController
	ContentAccess ContentAccessController
	ModelUpdate   ModelUpdateController
}

// DocumentController is the plug-in-callable interface managing the
// plug-in's copy of the model. All calls happen on the model thread.
type DocumentController interface {
	CreateAudioSource(host AudioSourceHostRef, props AudioSourceProperties) (AudioSourceRef, error)
	UpdateAudioSourceProperties(source AudioSourceRef, props AudioSourceProperties) error
	DestroyAudioSource(source AudioSourceRef) error

	BeginEditing() error
	EndEditing() error

	StoreObjectsToArchive(archive ArchiveWriterHostRef) (bool, error)
	RestoreObjectsFromArchive(archive ArchiveReaderHostRef) (bool, error)

	// Destroy tears the controller and all its remaining objects down.
	Destroy() error
}

// PlaybackRenderer is the plug-in-callable interface producing rendered
// output. Unlike document controller calls it may run concurrently with
// editing, on a render thread.
type PlaybackRenderer interface {
	RenderSamples(source AudioSourceRef, position, count int64) ([]float32, error)
}

// DocumentControllerFactory creates the plug-in-side controller when the
// host's createDocumentController message arrives.
type DocumentControllerFactory interface {
	CreateDocumentController(props DocumentProperties) (DocumentController, PlaybackRenderer, error)
}
