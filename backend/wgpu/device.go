// Package wgpu implements the hardware driver over wgpu's hardware
// abstraction layer. Shaders are compiled from WGSL to SPIR-V with naga at
// pipeline build time, so malformed source fails the build instead of the
// first dispatch.
package wgpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/forge"
	"github.com/gogpu/forge/backend"
)

func init() {
	backend.Register(backend.DriverWGPU, func() (forge.Device, error) {
		return New()
	})
}

const fenceTimeout = 5 * time.Second

// Driver errors.
var (
	// ErrNoAdapter is returned when no usable GPU adapter is found.
	ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

	// ErrClosed is returned for operations on a closed device.
	ErrClosed = errors.New("wgpu: device closed")

	// ErrUnknownID is returned for an ID the device never issued.
	ErrUnknownID = errors.New("wgpu: unknown device ID")
)

type textureEntry struct {
	texture hal.Texture
	view    hal.TextureView
	desc    forge.TextureDescriptor
}

type pipelineEntry struct {
	// Compute pipelines carry the full hal object chain. Render pipelines
	// only validate and hold the descriptor; see CreateRenderPipeline.
	compute    hal.ComputePipeline
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	shader     hal.ShaderModule
}

// Device is the hal-backed forge.Device.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool

	name   string
	limits forge.Limits

	nextID    uint64
	buffers   map[forge.BufferID]hal.Buffer
	textures  map[forge.TextureID]*textureEntry
	pipelines map[forge.PipelineID]*pipelineEntry
	closed    bool
}

// New opens the best available GPU adapter through the Vulkan hal backend.
func New() (*Device, error) {
	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d := newDevice(openDev.Device, openDev.Queue, false)
	d.instance = instance
	d.name = fmt.Sprintf("wgpu (%s)", selected.Info.Name)
	forge.Logger().Info("wgpu device opened", "adapter", selected.Info.Name)
	return d, nil
}

// NewWithDevice wraps an externally owned hal device and queue. Close
// releases the driver's own objects but leaves the device alone.
func NewWithDevice(device hal.Device, queue hal.Queue) *Device {
	return newDevice(device, queue, true)
}

// FromProvider adapts a shared device from a gpucontext provider. The
// provider must hand out hal types underneath.
func FromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	device, ok := p.Device().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider device is not hal.Device")
	}
	queue, ok := p.Queue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider queue is not hal.Queue")
	}
	return NewWithDevice(device, queue), nil
}

func newDevice(device hal.Device, queue hal.Queue, external bool) *Device {
	halLimits := gputypes.DefaultLimits()
	return &Device{
		device:   device,
		queue:    queue,
		external: external,
		name:     "wgpu",
		limits: forge.Limits{
			MaxBufferSize:                    halLimits.MaxBufferSize,
			MaxTextureDimension2D:            halLimits.MaxTextureDimension2D,
			MaxBindSlots:                     forge.DefaultLimits().MaxBindSlots,
			MaxComputeWorkgroupsPerDimension: forge.DefaultLimits().MaxComputeWorkgroupsPerDimension,
		},
		buffers:   make(map[forge.BufferID]hal.Buffer),
		textures:  make(map[forge.TextureID]*textureEntry),
		pipelines: make(map[forge.PipelineID]*pipelineEntry),
	}
}

// Name returns the driver identifier including the adapter name.
func (d *Device) Name() string { return d.name }

// Limits returns the device capabilities.
func (d *Device) Limits() forge.Limits { return d.limits }

func (d *Device) issueID() uint64 {
	d.nextID++
	return d.nextID
}

// CreateBuffer allocates a hal buffer.
func (d *Device) CreateBuffer(desc *forge.BufferDescriptor) (forge.BufferID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return forge.InvalidID, fmt.Errorf("wgpu: create buffer: %w", err)
	}
	id := forge.BufferID(d.issueID())
	d.buffers[id] = buf
	return id, nil
}

// DestroyBuffer releases a buffer. Unknown IDs are ignored.
func (d *Device) DestroyBuffer(id forge.BufferID) {
	if buf, ok := d.buffers[id]; ok {
		d.device.DestroyBuffer(buf)
		delete(d.buffers, id)
	}
}

// CreateTexture allocates a hal texture. Textures with texture-binding
// usage get a default 2D view so they can appear in bind groups.
func (d *Device) CreateTexture(desc *forge.TextureDescriptor) (forge.TextureID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Size.Width,
			Height:             desc.Size.Height,
			DepthOrArrayLayers: desc.Size.DepthOrArrayLayers,
		},
		MipLevelCount: desc.MipLevelCount,
		SampleCount:   desc.SampleCount,
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return forge.InvalidID, fmt.Errorf("wgpu: create texture: %w", err)
	}

	entry := &textureEntry{texture: tex, desc: *desc}
	if desc.Usage&gputypes.TextureUsageTextureBinding != 0 {
		view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:         desc.Label,
			Format:        desc.Format,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: desc.MipLevelCount,
		})
		if err != nil {
			d.device.DestroyTexture(tex)
			return forge.InvalidID, fmt.Errorf("wgpu: create texture view: %w", err)
		}
		entry.view = view
	}

	id := forge.TextureID(d.issueID())
	d.textures[id] = entry
	return id, nil
}

// DestroyTexture releases a texture. Unknown IDs are ignored.
func (d *Device) DestroyTexture(id forge.TextureID) {
	entry, ok := d.textures[id]
	if !ok {
		return
	}
	if entry.view != nil {
		d.device.DestroyTextureView(entry.view)
	}
	d.device.DestroyTexture(entry.texture)
	delete(d.textures, id)
}

// CreateComputePipeline compiles the shader with naga and builds the full
// hal pipeline chain: shader module, bind group layout, pipeline layout,
// compute pipeline. Any failure tears down the partial chain.
func (d *Device) CreateComputePipeline(desc *forge.ComputePipelineDescriptor) (forge.PipelineID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}

	spirv, err := compileWGSL(desc.Shader.WGSL)
	if err != nil {
		return forge.InvalidID, fmt.Errorf("wgpu: compile %q: %w", desc.Shader.Label, err)
	}

	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Shader.Label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return forge.InvalidID, fmt.Errorf("wgpu: shader module %q: %w", desc.Shader.Label, err)
	}

	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: layoutEntries(desc.Bindings),
	})
	if err != nil {
		d.device.DestroyShaderModule(shader)
		return forge.InvalidID, fmt.Errorf("wgpu: bind group layout: %w", err)
	}

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		d.device.DestroyBindGroupLayout(bindLayout)
		d.device.DestroyShaderModule(shader)
		return forge.InvalidID, fmt.Errorf("wgpu: pipeline layout: %w", err)
	}

	entryPoint := desc.EntryPoint
	if entryPoint == "" {
		entryPoint = "main"
	}
	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   desc.Label,
		Layout:  pipeLayout,
		Compute: hal.ComputeState{Module: shader, EntryPoint: entryPoint},
	})
	if err != nil {
		d.device.DestroyPipelineLayout(pipeLayout)
		d.device.DestroyBindGroupLayout(bindLayout)
		d.device.DestroyShaderModule(shader)
		return forge.InvalidID, fmt.Errorf("wgpu: compute pipeline: %w", err)
	}

	id := forge.PipelineID(d.issueID())
	d.pipelines[id] = &pipelineEntry{
		compute:    pipeline,
		bindLayout: bindLayout,
		pipeLayout: pipeLayout,
		shader:     shader,
	}
	return id, nil
}

// CreateRenderPipeline validates the shader with naga and reserves an ID.
// hal does not expose render pipeline creation yet, so the pipeline is a
// tracked placeholder and render passes encode no hal commands.
// TODO: build the hal pipeline chain once hal.RenderPipelineDescriptor
// lands.
func (d *Device) CreateRenderPipeline(desc *forge.RenderPipelineDescriptor) (forge.PipelineID, error) {
	if d.closed {
		return forge.InvalidID, ErrClosed
	}
	if _, err := compileWGSL(desc.Shader.WGSL); err != nil {
		return forge.InvalidID, fmt.Errorf("wgpu: compile %q: %w", desc.Shader.Label, err)
	}
	id := forge.PipelineID(d.issueID())
	d.pipelines[id] = &pipelineEntry{}
	return id, nil
}

// DestroyPipeline releases a pipeline. Unknown IDs are ignored.
func (d *Device) DestroyPipeline(id forge.PipelineID) {
	entry, ok := d.pipelines[id]
	if !ok {
		return
	}
	if entry.compute != nil {
		d.device.DestroyComputePipeline(entry.compute)
	}
	if entry.pipeLayout != nil {
		d.device.DestroyPipelineLayout(entry.pipeLayout)
	}
	if entry.bindLayout != nil {
		d.device.DestroyBindGroupLayout(entry.bindLayout)
	}
	if entry.shader != nil {
		d.device.DestroyShaderModule(entry.shader)
	}
	delete(d.pipelines, id)
}

// WriteBuffer copies data into a buffer through the queue.
func (d *Device) WriteBuffer(id forge.BufferID, offset uint64, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("wgpu: write buffer %d: %w", id, ErrUnknownID)
	}
	d.queue.WriteBuffer(buf, offset, data)
	return nil
}

// WriteTexture copies pixel rows into mip level 0 through the queue.
func (d *Device) WriteTexture(id forge.TextureID, data []byte, bytesPerRow uint32) error {
	if d.closed {
		return ErrClosed
	}
	entry, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("wgpu: write texture %d: %w", id, ErrUnknownID)
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  entry.texture,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: entry.desc.Size.Height,
		},
		&hal.Extent3D{
			Width:              entry.desc.Size.Width,
			Height:             entry.desc.Size.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// NewEncoder opens a hal command encoding session.
func (d *Device) NewEncoder(label string) (forge.CommandEncoder, error) {
	if d.closed {
		return nil, ErrClosed
	}
	halEnc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := halEnc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	return &encoder{dev: d, label: label, enc: halEnc}, nil
}

// Submit hands the command buffer to the queue and blocks on a fence until
// the GPU finishes. Bind groups created during encoding are released once
// the fence signals.
func (d *Device) Submit(buf forge.CommandBuffer) error {
	if d.closed {
		return ErrClosed
	}
	cb, ok := buf.(*commandBuffer)
	if !ok {
		return fmt.Errorf("wgpu: submit: foreign command buffer %T", buf)
	}
	defer func() {
		for _, bg := range cb.bindGroups {
			d.device.DestroyBindGroup(bg)
		}
		cb.bindGroups = nil
	}()

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cb.halBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	done, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !done {
		return fmt.Errorf("wgpu: GPU timeout after %v", fenceTimeout)
	}
	return nil
}

// Close releases every live object, then the device and instance unless
// they are externally owned.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true

	for id := range d.pipelines {
		entry := d.pipelines[id]
		if entry.compute != nil {
			d.device.DestroyComputePipeline(entry.compute)
		}
		if entry.pipeLayout != nil {
			d.device.DestroyPipelineLayout(entry.pipeLayout)
		}
		if entry.bindLayout != nil {
			d.device.DestroyBindGroupLayout(entry.bindLayout)
		}
		if entry.shader != nil {
			d.device.DestroyShaderModule(entry.shader)
		}
	}
	for _, entry := range d.textures {
		if entry.view != nil {
			d.device.DestroyTextureView(entry.view)
		}
		d.device.DestroyTexture(entry.texture)
	}
	for _, buf := range d.buffers {
		d.device.DestroyBuffer(buf)
	}
	d.pipelines = nil
	d.textures = nil
	d.buffers = nil

	if !d.external {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// layoutEntries maps forge binding layouts to hal bind group layout entries.
func layoutEntries(bindings []forge.BindingLayout) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		entry := gputypes.BindGroupLayoutEntry{Binding: b.Binding}
		if b.Visibility&forge.StageVertex != 0 {
			entry.Visibility |= gputypes.ShaderStageVertex
		}
		if b.Visibility&forge.StageFragment != 0 {
			entry.Visibility |= gputypes.ShaderStageFragment
		}
		if b.Visibility&forge.StageCompute != 0 {
			entry.Visibility |= gputypes.ShaderStageCompute
		}
		switch b.Type {
		case forge.BindingUniformBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case forge.BindingStorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		case forge.BindingReadOnlyStorageBuffer:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		case forge.BindingTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
