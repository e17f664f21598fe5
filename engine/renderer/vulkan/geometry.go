package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanGeometry is one indexed triangle list resident in device-local
// memory.
type VulkanGeometry struct {
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	IndexCount   uint32
}

// NewVulkanGeometry uploads interleaved vertex bytes and 32 bit indices
// through staging buffers.
func NewVulkanGeometry(context *VulkanContext, vertexData, indexData []byte, indexCount uint32) (*VulkanGeometry, error) {
	vertexBuffer, err := NewDeviceLocalBuffer(context, vertexData, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	indexBuffer, err := NewDeviceLocalBuffer(context, indexData, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertexBuffer.Destroy(context)
		return nil, err
	}
	return &VulkanGeometry{
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		IndexCount:   indexCount,
	}, nil
}

func (g *VulkanGeometry) Destroy(context *VulkanContext) {
	if g.IndexBuffer != nil {
		g.IndexBuffer.Destroy(context)
		g.IndexBuffer = nil
	}
	if g.VertexBuffer != nil {
		g.VertexBuffer.Destroy(context)
		g.VertexBuffer = nil
	}
	g.IndexCount = 0
}

// Draw binds the buffers and issues one indexed draw.
func (g *VulkanGeometry) Draw(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{g.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, g.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, g.IndexCount, 1, 0, 0, 0)
}
