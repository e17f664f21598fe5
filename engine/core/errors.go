package core

import (
	"github.com/cockroachdb/errors"
)

// Failure taxonomy of the GPU core. Callers classify with errors.Is; the
// concrete cause is carried by wrapping.
var (
	// ErrNoSuitableDevice means no physical adapter satisfies the queue
	// and feature requirements. Fatal at startup.
	ErrNoSuitableDevice = errors.New("no suitable physical device")

	// ErrOutOfDeviceMemory means the allocator could not grow its backing
	// storage. Fatal to the operation in progress; the process may free
	// assets and retry.
	ErrOutOfDeviceMemory = errors.New("out of device memory")

	// ErrSwapchainBooting signals that the swapchain was resized or
	// recreated mid-frame. The frame is abandoned and retried; never
	// surfaced past the render loop.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")

	// ErrShaderMismatch means shader bytecode does not declare the
	// set/binding signature the pipeline layout expects. Fatal for that
	// pipeline only.
	ErrShaderMismatch = errors.New("shader binding signature mismatch")

	// ErrMalformedSceneGraph means a node hierarchy contains a cycle or an
	// out-of-range reference.
	ErrMalformedSceneGraph = errors.New("malformed scene graph")

	// ErrAssetImportFailed wraps any failure while making an asset
	// GPU-resident. Partial resources are released before it is returned.
	ErrAssetImportFailed = errors.New("asset import failed")

	// ErrDeviceLost is unrecoverable in place; full context teardown and
	// reconstruction is required.
	ErrDeviceLost = errors.New("device lost")
)

// WrapFatal tags err with its GPU object class so the render loop can
// report which class of object failed before terminating.
func WrapFatal(err error, objectClass string) error {
	return errors.Wrapf(err, "gpu object class %q", objectClass)
}
