package vulkan

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/core"
)

// VulkanShaderStage is one compiled stage of a pipeline, validated
// against the layout's binding signature before the module is created.
type VulkanShaderStage struct {
	Handle                vk.ShaderModule
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
	Bindings              []ShaderBinding
}

// NewShaderStage creates a shader module from compiled SPIR-V bytes. The
// module's declared bindings must fall inside layoutBindings or the stage
// is refused with core.ErrShaderMismatch.
func NewShaderStage(context *VulkanContext, code []byte, stageFlag vk.ShaderStageFlagBits, layoutBindings []ShaderBinding) (*VulkanShaderStage, error) {
	words, err := SpirvWords(code)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	declared, err := ReflectBindings(words)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if err := VerifyBindingSignature(declared, layoutBindings); err != nil {
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := errors.Newf("vkCreateShaderModule failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanShaderStage{
		Handle: handle,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stageFlag,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
		Bindings: declared,
	}, nil
}

// LoadShaderStage reads shaders/<name>.<type>.spv from shaderDir and
// builds the stage.
func LoadShaderStage(context *VulkanContext, shaderDir, name, typeStr string, stageFlag vk.ShaderStageFlagBits, layoutBindings []ShaderBinding) (*VulkanShaderStage, error) {
	fileName := filepath.Join(shaderDir, name+"."+typeStr+".spv")
	code, err := os.ReadFile(fileName)
	if err != nil {
		core.LogError("unable to read shader module %s: %v", fileName, err)
		return nil, errors.Wrapf(err, "reading shader module %s", fileName)
	}
	return NewShaderStage(context, code, stageFlag, layoutBindings)
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullShaderModule
	}
}
