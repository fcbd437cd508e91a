package proxy

import "github.com/wippyai/ara-ipc/method"

// Method IDs of every remotable interface member. Offsets count in
// method.Stride steps in declaration order; both processes derive the
// same IDs from these tables, so order changes break the wire protocol.
var (
	// DocumentController, plug-in callable.
	idDestroyDocumentController = method.Pack(method.TagDocumentController, 0*method.Stride)
	idCreateAudioSource         = method.Pack(method.TagDocumentController, 1*method.Stride)
	idUpdateAudioSourceProps    = method.Pack(method.TagDocumentController, 2*method.Stride)
	idDestroyAudioSource        = method.Pack(method.TagDocumentController, 3*method.Stride)
	idBeginEditing              = method.Pack(method.TagDocumentController, 4*method.Stride)
	idEndEditing                = method.Pack(method.TagDocumentController, 5*method.Stride)
	idStoreObjectsToArchive     = method.Pack(method.TagDocumentController, 6*method.Stride)
	idRestoreObjectsFromArchive = method.Pack(method.TagDocumentController, 7*method.Stride)

	// PlaybackRenderer, plug-in callable.
	idRenderSamples = method.Pack(method.TagPlaybackRenderer, 0*method.Stride)

	// AudioAccessController, host callable.
	idReadAudioSamples = method.Pack(method.TagAudioAccessController, 0*method.Stride)

	// ArchivingController, host callable.
	idGetArchiveSize    = method.Pack(method.TagArchivingController, 0*method.Stride)
	idReadArchiveBytes  = method.Pack(method.TagArchivingController, 1*method.Stride)
	idWriteArchiveBytes = method.Pack(method.TagArchivingController, 2*method.Stride)

	// ContentAccessController, host callable.
	idGetNotes = method.Pack(method.TagContentAccessController, 0*method.Stride)

	// ModelUpdateController, host callable.
	idNotifyContentChanged   = method.Pack(method.TagModelUpdateController, 0*method.Stride)
	idNotifyAnalysisProgress = method.Pack(method.TagModelUpdateController, 1*method.Stride)
)

// allMethodIDs exists for the uniqueness test.
func allMethodIDs() []method.ID {
	return []method.ID{
		method.IDHandshake,
		method.IDCreateDocumentController,
		method.IDTerminate,
		idDestroyDocumentController,
		idCreateAudioSource,
		idUpdateAudioSourceProps,
		idDestroyAudioSource,
		idBeginEditing,
		idEndEditing,
		idStoreObjectsToArchive,
		idRestoreObjectsFromArchive,
		idRenderSamples,
		idReadAudioSamples,
		idGetArchiveSize,
		idReadArchiveBytes,
		idWriteArchiveBytes,
		idGetNotes,
		idNotifyContentChanged,
		idNotifyAnalysisProgress,
	}
}
