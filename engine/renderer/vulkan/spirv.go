package vulkan

import (
	"encoding/binary"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/lantern-engine/lantern/engine/core"
)

// Enough of the SPIR-V instruction set to read resource bindings out of a
// compiled module without a full reflection library.
const (
	spirvMagic        = 0x07230203
	spirvMagicFlipped = 0x03022307

	opDecorate = 71

	decorationBinding       = 33
	decorationDescriptorSet = 34
)

// ShaderBinding is one (set, binding) pair declared by a shader module.
type ShaderBinding struct {
	Set     uint32
	Binding uint32
}

// SpirvWords converts a .spv byte stream to host-order words, honouring
// the magic number's byte order.
func SpirvWords(code []byte) ([]uint32, error) {
	if len(code) < 20 || len(code)%4 != 0 {
		return nil, errors.Newf("SPIR-V stream of %d bytes is not a whole number of words", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	switch words[0] {
	case spirvMagic:
		return words, nil
	case spirvMagicFlipped:
		for i := range words {
			w := words[i]
			words[i] = w<<24 | (w&0xff00)<<8 | (w>>8)&0xff00 | w>>24
		}
		return words, nil
	default:
		return nil, errors.Newf("bad SPIR-V magic 0x%08x", words[0])
	}
}

// ReflectBindings scans a module's decorations and returns every declared
// (set, binding) pair, sorted by set then binding. Ids decorated with only
// one of the two decorations are ignored; a descriptor resource always
// carries both.
func ReflectBindings(words []uint32) ([]ShaderBinding, error) {
	if len(words) < 5 {
		return nil, errors.New("truncated SPIR-V module")
	}

	sets := map[uint32]uint32{}
	bindings := map[uint32]uint32{}

	// Instructions start after the five-word header.
	i := 5
	for i < len(words) {
		wordCount := int(words[i] >> 16)
		opcode := words[i] & 0xffff
		if wordCount == 0 || i+wordCount > len(words) {
			return nil, errors.Newf("malformed SPIR-V instruction at word %d", i)
		}
		if opcode == opDecorate && wordCount >= 4 {
			target := words[i+1]
			switch words[i+2] {
			case decorationDescriptorSet:
				sets[target] = words[i+3]
			case decorationBinding:
				bindings[target] = words[i+3]
			}
		}
		i += wordCount
	}

	out := make([]ShaderBinding, 0, len(bindings))
	for target, binding := range bindings {
		set, ok := sets[target]
		if !ok {
			continue
		}
		out = append(out, ShaderBinding{Set: set, Binding: binding})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Set != out[b].Set {
			return out[a].Set < out[b].Set
		}
		return out[a].Binding < out[b].Binding
	})
	return out, nil
}

// VerifyBindingSignature checks that every binding the shader declares is
// one the pipeline layout provides. Shaders may use a subset of the
// layout; a binding outside it means module and layout were built from
// different interface versions and the pipeline is refused with
// core.ErrShaderMismatch.
func VerifyBindingSignature(declared []ShaderBinding, layout []ShaderBinding) error {
	allowed := make(map[ShaderBinding]struct{}, len(layout))
	for _, b := range layout {
		allowed[b] = struct{}{}
	}
	for _, b := range declared {
		if _, ok := allowed[b]; !ok {
			err := errors.Wrapf(core.ErrShaderMismatch, "shader declares set %d binding %d outside the pipeline layout", b.Set, b.Binding)
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}
