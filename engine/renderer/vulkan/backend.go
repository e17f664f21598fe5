package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/lantern-engine/lantern/engine/assets"
	"github.com/lantern-engine/lantern/engine/core"
	"github.com/lantern-engine/lantern/engine/platform"
	"github.com/lantern-engine/lantern/engine/scene"
)

// GlobalUniform is the per-frame camera block at set 0 binding 0.
type GlobalUniform struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// PushConstants travel with every draw: the composed world transform,
// the clock the vertex shader derives its rotation from, and whether that
// rotation is applied at all.
type PushConstants struct {
	Model mgl32.Mat4
	Time  float32
	Spin  uint32
	_     [2]uint32
}

// VulkanRenderer drives the whole GPU side: device ownership, the frame
// cycle, resident assets and draw submission. It also implements
// assets.GPUUploader.
type VulkanRenderer struct {
	platform    *platform.Platform
	config      *core.EngineConfig
	FrameNumber uint64
	context     *VulkanContext

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	cycler *FrameCycler

	globalSetLayout vk.DescriptorSetLayout
	globalBuffers   []*VulkanBuffer

	defaultTextures []*VulkanTexture
	materialBinder  *MaterialBinder
	pipelines       *PipelineCache

	vertexStage   *VulkanShaderStage
	fragmentStage *VulkanShaderStage

	textureHandles  *core.HandleAllocator
	geometryHandles *core.HandleAllocator
	materialHandles *core.HandleAllocator
	textures        map[core.Handle]*VulkanTexture
	geometries      map[core.Handle]*VulkanGeometry
	materialDescs   map[core.Handle]PipelineDesc

	debug bool
}

const maxMaterialSets = 1024

func New(p *platform.Platform, config *core.EngineConfig) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		config:   config,
		context:  &VulkanContext{},

		textureHandles:  core.NewHandleAllocator(),
		geometryHandles: core.NewHandleAllocator(),
		materialHandles: core.NewHandleAllocator(),
		textures:        make(map[core.Handle]*VulkanTexture),
		geometries:      make(map[core.Handle]*VulkanGeometry),
		materialDescs:   make(map[core.Handle]PipelineDesc),

		debug: true,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, appWidth, appHeight uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := errors.New("Vulkan loader not available")
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize the Vulkan bindings: %v", err)
		return err
	}

	vr.context.FramebufferWidth = appWidth
	vr.context.FramebufferHeight = appHeight

	if err := vr.createInstance(appName); err != nil {
		return err
	}

	if vr.debug {
		vr.createDebugger()
	}

	core.LogDebug("Creating Vulkan surface...")
	surfacePtr, err := vr.platform.Window.CreateWindowSurface(vr.context.Instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %v", err)
		return errors.Wrap(err, "creating window surface")
	}
	vr.context.Surface = vk.SurfaceFromPointer(surfacePtr)

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	vr.context.Memory = NewGPUAllocator(vr.context)

	sc, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight, vr.config.Renderer.VSync)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	rp, err := RenderpassCreate(vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.2, 1.0,
		1.0, 0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = rp

	if err := vr.regenerateFramebuffers(); err != nil {
		return err
	}

	framesInFlight := vr.config.Renderer.FramesInFlight
	vr.context.Frames = make([]*FrameSlot, framesInFlight)
	for i := range vr.context.Frames {
		slot, err := NewFrameSlot(vr.context, uint32(i))
		if err != nil {
			return err
		}
		vr.context.Frames[i] = slot
	}
	vr.cycler = NewFrameCycler(
		newContextFrameDevice(vr.context, vr.config.Renderer.VSync, vr.recreateSwapchain),
		vr.context.Frames,
	)

	vr.defaultTextures, err = CreateDefaultTextures(vr.context)
	if err != nil {
		return err
	}

	vr.materialBinder, err = NewMaterialBinder(vr.context, maxMaterialSets, vr.defaultTextures)
	if err != nil {
		return err
	}

	if err := vr.createGlobalDescriptors(); err != nil {
		return err
	}

	if err := vr.createShaderStages(); err != nil {
		return err
	}

	vr.pipelines = NewPipelineCache(vr.buildPipeline)

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Lantern Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredExtensionNames()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var validationLayers []string
	if vr.debug {
		validationLayers = vr.availableValidationLayers()
	}
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := errors.Newf("vkCreateInstance failed with %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")
	return nil
}

// availableValidationLayers returns the Khronos validation layer when the
// loader offers it. Missing layers only lose diagnostics.
func (vr *VulkanRenderer) availableValidationLayers() []string {
	wanted := "VK_LAYER_KHRONOS_validation"

	var layerCount uint32
	if res := vk.EnumerateInstanceLayerProperties(&layerCount, nil); res != vk.Success {
		return nil
	}
	layers := make([]vk.LayerProperties, layerCount)
	if res := vk.EnumerateInstanceLayerProperties(&layerCount, layers); res != vk.Success {
		return nil
	}
	for i := range layers {
		layers[i].Deref()
		end := FindFirstZeroInByteArray(layers[i].LayerName[:])
		if wanted == vk.ToString(layers[i].LayerName[:end+1]) {
			return []string{wanted}
		}
	}
	core.LogWarn("validation layer %s not present, continuing without it", wanted)
	return nil
}

func (vr *VulkanRenderer) createDebugger() {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		core.LogWarn("vkCreateDebugReportCallbackEXT failed: %v", err)
		return
	}
	vr.context.debugMessenger = dbg
}

// createGlobalDescriptors creates the set 0 layout and one camera uniform
// buffer per frame slot. The descriptor sets themselves are transient,
// allocated per frame from the slot's pool in DrawScene.
func (vr *VulkanRenderer) createGlobalDescriptors() error {
	layout, err := NewGlobalSetLayout(vr.context)
	if err != nil {
		return err
	}
	vr.globalSetLayout = layout

	frameCount := uint32(len(vr.context.Frames))
	uniformSize := uint64(unsafe.Sizeof(GlobalUniform{}))
	vr.globalBuffers = make([]*VulkanBuffer, frameCount)
	for i := uint32(0); i < frameCount; i++ {
		buffer, err := NewVulkanBuffer(vr.context, uniformSize,
			vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
			uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
		if err != nil {
			return err
		}
		vr.globalBuffers[i] = buffer
	}
	return nil
}

func (vr *VulkanRenderer) createShaderStages() error {
	layoutBindings := append(GlobalSetBindings(), MaterialSetBindings()...)

	vertexStage, err := LoadShaderStage(vr.context, vr.config.Assets.ShaderDir, "scene", "vert", vk.ShaderStageVertexBit, layoutBindings)
	if err != nil {
		return err
	}
	vr.vertexStage = vertexStage

	fragmentStage, err := LoadShaderStage(vr.context, vr.config.Assets.ShaderDir, "scene", "frag", vk.ShaderStageFragmentBit, layoutBindings)
	if err != nil {
		vertexStage.Destroy(vr.context)
		vr.vertexStage = nil
		return err
	}
	vr.fragmentStage = fragmentStage
	return nil
}

func (vr *VulkanRenderer) buildPipeline(desc PipelineDesc) (*VulkanPipeline, error) {
	return NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           vr.context.MainRenderpass,
		Stride:               desc.Stride,
		Attributes:           vertexAttributes(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{vr.globalSetLayout, vr.materialBinder.Layout()},
		Stages: []vk.PipelineShaderStageCreateInfo{
			vr.vertexStage.ShaderStageCreateInfo,
			vr.fragmentStage.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			X: 0, Y: float32(vr.context.FramebufferHeight),
			Width:    float32(vr.context.FramebufferWidth),
			Height:   -float32(vr.context.FramebufferHeight),
			MinDepth: 0, MaxDepth: 1,
		},
		Scissor: vk.Rect2D{
			Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
		},
		CullMode:         desc.CullMode,
		IsWireframe:      desc.IsWireframe,
		DepthTest:        desc.DepthTest,
		DepthWrite:       desc.DepthWrite,
		AlphaBlend:       desc.AlphaBlend,
		PushConstantSize: uint32(unsafe.Sizeof(PushConstants{})),
	})
}

// vertexAttributes matches the assets.Vertex layout: position, normal,
// tangent, five texcoord channels, colour.
func vertexAttributes() []vk.VertexInputAttributeDescription {
	attributes := []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 24},
	}
	offset := uint32(40)
	for location := uint32(3); location < 8; location++ {
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Location: location, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: offset,
		})
		offset += 8
	}
	attributes = append(attributes, vk.VertexInputAttributeDescription{
		Location: 8, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: offset,
	})
	return attributes
}

func (vr *VulkanRenderer) Shutdown() error {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	// Destroy in the opposite order of creation.
	for handle := range vr.geometries {
		vr.ReleaseGeometry(handle)
	}
	for handle := range vr.textures {
		vr.ReleaseTexture(handle)
	}

	if vr.pipelines != nil {
		vr.pipelines.Destroy(vr.context)
	}
	if vr.fragmentStage != nil {
		vr.fragmentStage.Destroy(vr.context)
	}
	if vr.vertexStage != nil {
		vr.vertexStage.Destroy(vr.context)
	}

	for _, buffer := range vr.globalBuffers {
		buffer.Destroy(vr.context)
	}
	vr.globalBuffers = nil
	if vr.globalSetLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, vr.globalSetLayout, vr.context.Allocator)
		vr.globalSetLayout = vk.NullDescriptorSetLayout
	}

	if vr.materialBinder != nil {
		vr.materialBinder.Destroy()
	}
	for _, texture := range vr.defaultTextures {
		texture.Destroy(vr.context)
	}
	vr.defaultTextures = nil

	for _, slot := range vr.context.Frames {
		slot.Destroy(vr.context)
	}
	vr.context.Frames = nil

	vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	vr.context.Memory.Shutdown()

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vr.context)

	core.LogDebug("Destroying Vulkan surface...")
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}

	if vr.debug && vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
	}

	core.LogDebug("Destroying Vulkan instance...")
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
	return nil
}

// Resized records the new size; the swapchain is rebuilt lazily at the
// next frame boundary.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
	core.LogDebug("renderer resized: w/h/gen %d/%d/%d", width, height, vr.context.FramebufferSizeGeneration)
}

func (vr *VulkanRenderer) recreateSwapchain() error {
	if vr.context.RecreatingSwapchain {
		return nil
	}
	width := vr.cachedFramebufferWidth
	height := vr.cachedFramebufferHeight
	if width == 0 || height == 0 {
		// Minimized; retry once the window has an extent again.
		width = vr.context.FramebufferWidth
		height = vr.context.FramebufferHeight
	}
	if width == 0 || height == 0 {
		core.LogDebug("swapchain recreate skipped, window has no extent")
		return nil
	}
	vr.context.RecreatingSwapchain = true
	defer func() { vr.context.RecreatingSwapchain = false }()

	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, width, height, vr.config.Renderer.VSync)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	vr.context.FramebufferWidth = sc.Extent.Width
	vr.context.FramebufferHeight = sc.Extent.Height
	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration

	return vr.regenerateFramebuffers()
}

func (vr *VulkanRenderer) regenerateFramebuffers() error {
	swapchain := vr.context.Swapchain
	swapchain.Framebuffers = make([]*VulkanFramebuffer, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		attachments := []vk.ImageView{
			swapchain.Views[i],
			swapchain.DepthAttachment.View,
		}
		fb, err := FramebufferCreate(vr.context, vr.context.MainRenderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight, attachments)
		if err != nil {
			return err
		}
		swapchain.Framebuffers[i] = fb
	}
	return nil
}

// ResolvePipeline maps a bound material to its pipeline fingerprint for
// draw ordering. Unknown materials fall back to the default opaque
// configuration.
func (vr *VulkanRenderer) ResolvePipeline(material core.Handle) uint64 {
	if desc, ok := vr.materialDescs[material]; ok {
		return desc.Fingerprint()
	}
	return defaultPipelineDesc().Fingerprint()
}

// DrawScene renders one frame of sorted draw records. A booting swapchain
// skips the frame without error; the next tick retries.
func (vr *VulkanRenderer) DrawScene(records []scene.DrawRecord, camera *scene.Camera, elapsed float32) error {
	slot, err := vr.cycler.BeginFrame()
	if err != nil {
		if errors.Is(err, core.ErrSwapchainBooting) {
			return nil
		}
		return err
	}

	uniform := GlobalUniform{
		View:       camera.View(),
		Projection: camera.Projection(vr.context.FramebufferWidth, vr.context.FramebufferHeight),
	}
	uniformBytes := unsafe.Slice((*byte)(unsafe.Pointer(&uniform)), unsafe.Sizeof(uniform))
	if err := vr.globalBuffers[slot.Index].LoadData(vr.context, 0, uniformBytes); err != nil {
		return core.WrapFatal(err, "uniform buffer")
	}

	// The global set is transient, allocated fresh from the slot's pool
	// each frame. The pool reset in the next cycle reclaims it.
	globalSet, err := AllocateDescriptorSet(vr.context, slot.DescriptorPool, vr.globalSetLayout)
	if err != nil {
		return core.WrapFatal(err, "descriptor pool")
	}
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: vr.globalBuffers[slot.Index].Handle,
		Offset: 0,
		Range:  vk.DeviceSize(unsafe.Sizeof(uniform)),
	}
	globalWrite := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          globalSet,
		DstBinding:      0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(vr.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{globalWrite}, 0, nil)

	commandBuffer := slot.CommandBuffer
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return core.WrapFatal(err, "command buffer")
	}

	viewport := vk.Viewport{
		X: 0, Y: float32(vr.context.FramebufferHeight),
		Width:    float32(vr.context.FramebufferWidth),
		Height:   -float32(vr.context.FramebufferHeight),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{Width: vr.context.FramebufferWidth, Height: vr.context.FramebufferHeight},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	imageIndex := vr.cycler.ImageIndex()
	vr.context.MainRenderpass.RenderpassBegin(commandBuffer, vr.context.Swapchain.Framebuffers[imageIndex].Handle)

	scene.SortDrawRecords(records)

	spin := uint32(0)
	if vr.config.Renderer.Spin {
		spin = 1
	}

	var boundPipeline uint64
	var boundMaterial core.Handle
	var currentLayout vk.PipelineLayout
	firstDraw := true
	for i := range records {
		record := &records[i]
		geometry, ok := vr.geometries[record.Geometry]
		if !ok {
			core.LogWarn("draw record references unknown geometry %d/%d", record.Geometry.Index, record.Geometry.Generation)
			continue
		}
		material, ok := vr.materialBinder.Lookup(record.Material)
		if !ok {
			core.LogWarn("draw record references unbound material %d/%d", record.Material.Index, record.Material.Generation)
			continue
		}

		if firstDraw || record.Pipeline != boundPipeline {
			desc, ok := vr.materialDescs[record.Material]
			if !ok {
				desc = defaultPipelineDesc()
			}
			pipeline, err := vr.pipelines.Get(desc)
			if err != nil {
				return core.WrapFatal(err, "pipeline")
			}
			pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
			currentLayout = pipeline.PipelineLayout
			vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics,
				currentLayout, DESCRIPTOR_SET_GLOBAL, 1, []vk.DescriptorSet{globalSet}, 0, nil)
			boundPipeline = record.Pipeline
			boundMaterial = core.InvalidHandle
		}

		if firstDraw || record.Material != boundMaterial {
			vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics,
				currentLayout, DESCRIPTOR_SET_MATERIAL, 1, []vk.DescriptorSet{material.DescriptorSet}, 0, nil)
			boundMaterial = record.Material
		}
		firstDraw = false

		push := PushConstants{
			Model: record.World,
			Time:  elapsed,
			Spin:  spin,
		}
		vk.CmdPushConstants(commandBuffer.Handle, currentLayout,
			vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			0, uint32(unsafe.Sizeof(push)), unsafe.Pointer(&push))

		geometry.Draw(commandBuffer)
	}

	vr.context.MainRenderpass.RenderpassEnd(commandBuffer)
	if err := commandBuffer.End(); err != nil {
		return core.WrapFatal(err, "command buffer")
	}

	vr.FrameNumber++
	return vr.cycler.EndFrame()
}

func defaultPipelineDesc() PipelineDesc {
	return PipelineDesc{
		ShaderName: "scene",
		CullMode:   FaceCullModeBack,
		DepthTest:  true,
		DepthWrite: true,
		Stride:     uint32(unsafe.Sizeof(assets.Vertex{})),
	}
}

// UploadTexture implements assets.GPUUploader.
func (vr *VulkanRenderer) UploadTexture(image *assets.ImageAsset) (core.Handle, error) {
	texture, err := NewVulkanTexture(vr.context, image.Width, image.Height, image.Pixels)
	if err != nil {
		return core.InvalidHandle, err
	}
	handle := vr.textureHandles.Acquire()
	vr.textures[handle] = texture
	return handle, nil
}

// UploadGeometry implements assets.GPUUploader.
func (vr *VulkanRenderer) UploadGeometry(mesh *assets.MeshAsset) (core.Handle, error) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return core.InvalidHandle, errors.Newf("mesh %q has no geometry", mesh.Name)
	}
	vertexData := unsafe.Slice((*byte)(unsafe.Pointer(&mesh.Vertices[0])), len(mesh.Vertices)*int(unsafe.Sizeof(assets.Vertex{})))
	indexData := unsafe.Slice((*byte)(unsafe.Pointer(&mesh.Indices[0])), len(mesh.Indices)*4)

	geometry, err := NewVulkanGeometry(vr.context, vertexData, indexData, uint32(len(mesh.Indices)))
	if err != nil {
		return core.InvalidHandle, err
	}
	handle := vr.geometryHandles.Acquire()
	vr.geometries[handle] = geometry
	return handle, nil
}

// BindMaterial implements assets.GPUUploader. Binding the same handle
// twice is a no-op in the binder, so re-imports stay cheap.
func (vr *VulkanRenderer) BindMaterial(material *assets.MaterialAsset, textures assets.MaterialTextureSet) (core.Handle, error) {
	info := materialInfoFromAsset(material)

	var set MaterialTextures
	for channel, handle := range []core.Handle{
		textures.BaseColor,
		textures.MetallicRoughness,
		textures.Normal,
		textures.Occlusion,
		textures.Emissive,
	} {
		if !handle.Valid() {
			continue
		}
		texture, ok := vr.textures[handle]
		if !ok {
			return core.InvalidHandle, errors.Newf("material %q references unknown texture handle %d/%d", material.Name, handle.Index, handle.Generation)
		}
		set[channel] = texture
	}

	handle := vr.materialHandles.Acquire()
	if _, err := vr.materialBinder.Bind(handle, info, set); err != nil {
		vr.materialHandles.Release(handle)
		return core.InvalidHandle, err
	}

	desc := defaultPipelineDesc()
	if material.DoubleSided {
		desc.CullMode = FaceCullModeNone
	}
	if info.Flags.AlphaMode() == MATERIAL_FLAG_ALPHA_MODE_BLEND {
		desc.AlphaBlend = true
		desc.DepthWrite = false
	}
	vr.materialDescs[handle] = desc

	return handle, nil
}

// ReleaseTexture implements assets.GPUUploader.
func (vr *VulkanRenderer) ReleaseTexture(handle core.Handle) {
	texture, ok := vr.textures[handle]
	if !ok {
		return
	}
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	texture.Destroy(vr.context)
	delete(vr.textures, handle)
	vr.textureHandles.Release(handle)
}

// ReleaseGeometry implements assets.GPUUploader.
func (vr *VulkanRenderer) ReleaseGeometry(handle core.Handle) {
	geometry, ok := vr.geometries[handle]
	if !ok {
		return
	}
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	geometry.Destroy(vr.context)
	delete(vr.geometries, handle)
	vr.geometryHandles.Release(handle)
}

// ReleaseMaterial implements assets.GPUUploader.
func (vr *VulkanRenderer) ReleaseMaterial(handle core.Handle) {
	if !vr.materialBinder.Bound(handle) {
		return
	}
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	vr.materialBinder.Release(handle)
	delete(vr.materialDescs, handle)
	vr.materialHandles.Release(handle)
}

func materialInfoFromAsset(material *assets.MaterialAsset) MaterialInfo {
	info := MaterialInfo{
		BaseColor:         mgl32.Vec4{material.BaseColorFactor[0], material.BaseColorFactor[1], material.BaseColorFactor[2], material.BaseColorFactor[3]},
		Emissive:          mgl32.Vec3{material.EmissiveFactor[0], material.EmissiveFactor[1], material.EmissiveFactor[2]},
		MetallicRoughness: mgl32.Vec2{material.MetallicFactor, material.RoughnessFactor},
		NormalScale:       material.NormalScale,
		OcclusionStrength: material.OcclusionStrength,
		AlphaCutoff:       material.AlphaCutoff,
	}

	switch material.AlphaMode {
	case assets.ALPHA_MODE_MASK:
		info.Flags |= MATERIAL_FLAG_ALPHA_MODE_MASK
	case assets.ALPHA_MODE_BLEND:
		info.Flags |= MATERIAL_FLAG_ALPHA_MODE_BLEND
	default:
		info.Flags |= MATERIAL_FLAG_ALPHA_MODE_OPAQUE
	}
	if material.DoubleSided {
		info.Flags |= MATERIAL_FLAG_DOUBLE_SIDED
	}
	if material.MetallicRoughnessTexture >= 0 {
		info.Flags |= MATERIAL_FLAG_HAS_METALLIC_ROUGHNESS_TEXTURE
	}
	if material.NormalTexture >= 0 {
		info.Flags |= MATERIAL_FLAG_HAS_NORMAL_TEXTURE
	}
	if material.OcclusionTexture >= 0 {
		info.Flags |= MATERIAL_FLAG_HAS_OCCLUSION_TEXTURE
	}
	if material.EmissiveTexture >= 0 {
		info.Flags |= MATERIAL_FLAG_HAS_EMISSIVE_TEXTURE
	}
	return info
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
