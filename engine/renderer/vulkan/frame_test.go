package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFrameDevice records the call sequence and lets individual calls be
// forced to fail.
type fakeFrameDevice struct {
	calls []string

	acquireErr error
	presentErr error
	rebuilds   int
	nextImage  uint32
}

func (d *fakeFrameDevice) WaitForFence(slot *FrameSlot) error {
	d.calls = append(d.calls, "wait")
	return nil
}

func (d *fakeFrameDevice) ResetFrameResources(slot *FrameSlot) error {
	d.calls = append(d.calls, "reset")
	return nil
}

func (d *fakeFrameDevice) AcquireImage(slot *FrameSlot) (uint32, error) {
	d.calls = append(d.calls, "acquire")
	if d.acquireErr != nil {
		err := d.acquireErr
		d.acquireErr = nil
		return 0, err
	}
	return d.nextImage, nil
}

func (d *fakeFrameDevice) Submit(slot *FrameSlot, imageIndex uint32) error {
	d.calls = append(d.calls, "submit")
	return nil
}

func (d *fakeFrameDevice) Present(slot *FrameSlot, imageIndex uint32) error {
	d.calls = append(d.calls, "present")
	if d.presentErr != nil {
		err := d.presentErr
		d.presentErr = nil
		return err
	}
	return nil
}

func (d *fakeFrameDevice) RebuildSwapchain() error {
	d.calls = append(d.calls, "rebuild")
	d.rebuilds++
	return nil
}

func newTestCycler(device frameDevice, count int) *FrameCycler {
	slots := make([]*FrameSlot, count)
	for i := range slots {
		slots[i] = &FrameSlot{Index: uint32(i), State: FRAME_STATE_IDLE}
	}
	return NewFrameCycler(device, slots)
}

func TestFrameCycleOrder(t *testing.T) {
	device := &fakeFrameDevice{nextImage: 1}
	cycler := newTestCycler(device, 2)

	slot, err := cycler.BeginFrame()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot.Index)
	assert.Equal(t, FRAME_STATE_RECORDING, slot.State)
	assert.Equal(t, uint32(1), cycler.ImageIndex())

	require.NoError(t, cycler.EndFrame())
	assert.Equal(t, FRAME_STATE_IDLE, slot.State)

	// The fence wait precedes the acquire; the reset happens only after
	// the acquire committed.
	assert.Equal(t, []string{"wait", "acquire", "reset", "submit", "present"}, device.calls)
}

func TestFrameCyclerAdvancesRing(t *testing.T) {
	device := &fakeFrameDevice{}
	cycler := newTestCycler(device, 3)

	for _, want := range []uint32{0, 1, 2, 0} {
		slot, err := cycler.BeginFrame()
		require.NoError(t, err)
		assert.Equal(t, want, slot.Index)
		require.NoError(t, cycler.EndFrame())
	}
}

func TestFrameCyclerBootOnAcquire(t *testing.T) {
	device := &fakeFrameDevice{acquireErr: core.ErrSwapchainBooting}
	cycler := newTestCycler(device, 2)

	_, err := cycler.BeginFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrSwapchainBooting))
	assert.Equal(t, 1, device.rebuilds)

	// The abandoned frame must not advance the ring or consume the slot.
	assert.Equal(t, uint32(0), cycler.CurrentSlot().Index)
	assert.Equal(t, FRAME_STATE_IDLE, cycler.CurrentSlot().State)

	// The retry on the next tick succeeds with the same slot.
	slot, err := cycler.BeginFrame()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), slot.Index)
	require.NoError(t, cycler.EndFrame())
}

func TestFrameCyclerBootOnPresent(t *testing.T) {
	device := &fakeFrameDevice{presentErr: core.ErrSwapchainBooting}
	cycler := newTestCycler(device, 2)

	_, err := cycler.BeginFrame()
	require.NoError(t, err)

	// A stale surface at present time is not an error; the submitted
	// work still counts and the ring advances.
	require.NoError(t, cycler.EndFrame())
	assert.Equal(t, 1, device.rebuilds)
	assert.Equal(t, uint32(1), cycler.CurrentSlot().Index)
}

func TestFrameCyclerResetsOncePerFrame(t *testing.T) {
	device := &fakeFrameDevice{}
	cycler := newTestCycler(device, 2)

	for i := 0; i < 3; i++ {
		_, err := cycler.BeginFrame()
		require.NoError(t, err)
		require.NoError(t, cycler.EndFrame())
	}

	resets := 0
	for _, call := range device.calls {
		if call == "reset" {
			resets++
		}
	}
	assert.Equal(t, 3, resets)
}

func TestFrameCyclerSkipsResetOnAbandonedFrame(t *testing.T) {
	device := &fakeFrameDevice{acquireErr: core.ErrSwapchainBooting}
	cycler := newTestCycler(device, 2)

	_, err := cycler.BeginFrame()
	require.Error(t, err)

	// The abandoned frame must leave the fence and transient pool intact
	// for the retry, so no reset may have happened.
	assert.NotContains(t, device.calls, "reset")
}

func TestFrameCyclerRejectsDoubleBegin(t *testing.T) {
	device := &fakeFrameDevice{}
	cycler := newTestCycler(device, 2)

	_, err := cycler.BeginFrame()
	require.NoError(t, err)
	_, err = cycler.BeginFrame()
	assert.Error(t, err)
}

func TestFrameCyclerRejectsEndWithoutBegin(t *testing.T) {
	device := &fakeFrameDevice{}
	cycler := newTestCycler(device, 2)

	assert.Error(t, cycler.EndFrame())
}

func TestFrameCyclerPropagatesAcquireFailure(t *testing.T) {
	device := &fakeFrameDevice{acquireErr: core.ErrDeviceLost}
	cycler := newTestCycler(device, 2)

	_, err := cycler.BeginFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeviceLost))
	// Device loss is not a swapchain rebuild trigger.
	assert.Equal(t, 0, device.rebuilds)
}
