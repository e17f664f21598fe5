package vulkan

import (
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spirvModule assembles a minimal module: the five-word header followed
// by OpDecorate instructions for the given (set, binding) pairs.
func spirvModule(pairs []ShaderBinding) []uint32 {
	words := []uint32{spirvMagic, 0x00010000, 0, 100, 0}
	id := uint32(10)
	for _, p := range pairs {
		words = append(words, 4<<16|opDecorate, id, decorationDescriptorSet, p.Set)
		words = append(words, 4<<16|opDecorate, id, decorationBinding, p.Binding)
		id++
	}
	return words
}

func wordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}

func TestSpirvWordsRejectsGarbage(t *testing.T) {
	_, err := SpirvWords([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = SpirvWords(make([]byte, 24))
	assert.Error(t, err, "zero magic must be rejected")
}

func TestSpirvWordsHandlesBothByteOrders(t *testing.T) {
	words := spirvModule(nil)

	got, err := SpirvWords(wordsToBytes(words))
	require.NoError(t, err)
	assert.Equal(t, words, got)

	// The same module stored big-endian.
	flipped := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(flipped[i*4:], w)
	}
	got, err = SpirvWords(flipped)
	require.NoError(t, err)
	assert.Equal(t, words, got)
}

func TestReflectBindings(t *testing.T) {
	declared := []ShaderBinding{
		{Set: 1, Binding: 3},
		{Set: 0, Binding: 0},
		{Set: 1, Binding: 0},
	}
	got, err := ReflectBindings(spirvModule(declared))
	require.NoError(t, err)

	assert.Equal(t, []ShaderBinding{
		{Set: 0, Binding: 0},
		{Set: 1, Binding: 0},
		{Set: 1, Binding: 3},
	}, got)
}

func TestReflectBindingsIgnoresHalfDecoratedIds(t *testing.T) {
	words := spirvModule(nil)
	// Binding decoration with no matching descriptor set decoration.
	words = append(words, 4<<16|opDecorate, 50, decorationBinding, 2)

	got, err := ReflectBindings(words)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReflectBindingsRejectsTruncatedInstruction(t *testing.T) {
	words := spirvModule(nil)
	words = append(words, 9<<16|opDecorate, 50)

	_, err := ReflectBindings(words)
	assert.Error(t, err)
}

func TestVerifyBindingSignature(t *testing.T) {
	layout := append(GlobalSetBindings(), MaterialSetBindings()...)

	subset := []ShaderBinding{
		{Set: 0, Binding: 0},
		{Set: 1, Binding: 0},
		{Set: 1, Binding: 5},
	}
	assert.NoError(t, VerifyBindingSignature(subset, layout))
	assert.NoError(t, VerifyBindingSignature(nil, layout))

	outside := []ShaderBinding{{Set: 2, Binding: 0}}
	err := VerifyBindingSignature(outside, layout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrShaderMismatch))

	tooHigh := []ShaderBinding{{Set: 1, Binding: 6}}
	err = VerifyBindingSignature(tooHigh, layout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrShaderMismatch))
}
