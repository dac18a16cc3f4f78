package engine

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// DefaultShaderPath is where the compiled SPIR-V for the PBKDF2 compute
// pipeline is looked up when no explicit path is configured. The GLSL source
// lives under internal/engine/shader/.
const DefaultShaderPath = "shaders/pbkdf2_hmac_sha1.spv"

// Storage buffer layout shared with the compute shader.
const (
	workgroupSize    = GPUBatchSize
	passwordStride   = 64 // 1 length byte + up to 63 passphrase bytes
	saltBufferSize   = 36 // 4-byte length + up to 32 SSID bytes
	outputStride     = pmkLength
	pushConstantSize = 8 // {passwordCount, iterations}, two uint32
)

// gpuBackend drives a Vulkan compute queue: one shader invocation derives one
// PMK. Callers serialize access through the engine mutex; nothing here is
// safe for concurrent use.
type gpuBackend struct {
	shaderPath string

	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32

	commandPool   vk.CommandPool
	commandBuffer vk.CommandBuffer

	descriptorSetLayout vk.DescriptorSetLayout
	descriptorPool      vk.DescriptorPool
	descriptorSet       vk.DescriptorSet
	pipelineLayout      vk.PipelineLayout
	pipeline            vk.Pipeline
	shaderModule        vk.ShaderModule

	passwordBuffer vk.Buffer
	passwordMemory vk.DeviceMemory
	saltBuffer     vk.Buffer
	saltMemory     vk.DeviceMemory
	outputBuffer   vk.Buffer
	outputMemory   vk.DeviceMemory

	deviceName  string
	initialized bool
}

func newGPUBackend(shaderPath string) *gpuBackend {
	if shaderPath == "" {
		shaderPath = DefaultShaderPath
	}
	return &gpuBackend{shaderPath: shaderPath}
}

func (g *gpuBackend) name() string {
	if g.deviceName == "" {
		return "GPU"
	}
	return g.deviceName
}

func (g *gpuBackend) init() error {
	if g.initialized {
		return nil
	}

	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return fmt.Errorf("load vulkan loader: %w", err)
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("init vulkan: %w", err)
	}

	if err := g.createDevice(); err != nil {
		return err
	}
	if err := g.createPipeline(); err != nil {
		return err
	}
	if err := g.allocateBuffers(); err != nil {
		return err
	}

	g.initialized = true
	return nil
}

func (g *gpuBackend) createDevice() error {
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   "wpacrack\x00",
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        "pbkdf2-compute\x00",
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.MakeVersion(1, 1, 0),
		},
	}, nil, &g.instance)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create instance: %w", err)
	}

	var deviceCount uint32
	vk.EnumeratePhysicalDevices(g.instance, &deviceCount, nil)
	if deviceCount == 0 {
		return fmt.Errorf("no vulkan-capable device found")
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	vk.EnumeratePhysicalDevices(g.instance, &deviceCount, devices)
	g.physicalDevice = devices[0]

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(g.physicalDevice, &props)
	props.Deref()
	g.deviceName = vk.ToString(props.DeviceName[:])

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(g.physicalDevice, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(g.physicalDevice, &familyCount, families)

	found := false
	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			g.queueFamily = uint32(i)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no compute queue family on %s", g.deviceName)
	}

	ret = vk.CreateDevice(g.physicalDevice, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: g.queueFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
	}, nil, &g.device)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create device: %w", err)
	}

	var queue vk.Queue
	vk.GetDeviceQueue(g.device, g.queueFamily, 0, &queue)
	g.queue = queue

	ret = vk.CreateCommandPool(g.device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: g.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &g.commandPool)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create command pool: %w", err)
	}

	cmdBufs := make([]vk.CommandBuffer, 1)
	ret = vk.AllocateCommandBuffers(g.device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        g.commandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmdBufs)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("allocate command buffer: %w", err)
	}
	g.commandBuffer = cmdBufs[0]

	return nil
}

func (g *gpuBackend) createPipeline() error {
	code, err := os.ReadFile(g.shaderPath)
	if err != nil {
		return fmt.Errorf("load shader: %w", err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return fmt.Errorf("load shader: %s is not valid SPIR-V (%d bytes)", g.shaderPath, len(code))
	}

	ret := vk.CreateShaderModule(g.device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    repackUint32(code),
	}, nil, &g.shaderModule)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}

	// Bindings 0-2: password records, salt, PMK output.
	bindings := make([]vk.DescriptorSetLayoutBinding, 3)
	for i := range bindings {
		bindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}
	}

	ret = vk.CreateDescriptorSetLayout(g.device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}, nil, &g.descriptorSetLayout)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create descriptor set layout: %w", err)
	}

	ret = vk.CreatePipelineLayout(g.device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{g.descriptorSetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       pushConstantSize,
		}},
	}, nil, &g.pipelineLayout)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}

	pipelines := make([]vk.Pipeline, 1)
	ret = vk.CreateComputePipelines(g.device, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: g.shaderModule,
			PName:  "main\x00",
		},
		Layout: g.pipelineLayout,
	}}, nil, pipelines)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	g.pipeline = pipelines[0]

	ret = vk.CreateDescriptorPool(g.device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 3,
		}},
	}, nil, &g.descriptorPool)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("create descriptor pool: %w", err)
	}

	ret = vk.AllocateDescriptorSets(g.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     g.descriptorPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{g.descriptorSetLayout},
	}, &g.descriptorSet)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("allocate descriptor set: %w", err)
	}

	return nil
}

func (g *gpuBackend) allocateBuffers() error {
	var err error
	passwordSize := vk.DeviceSize(workgroupSize * passwordStride)
	outputSize := vk.DeviceSize(workgroupSize * outputStride)

	if g.passwordBuffer, g.passwordMemory, err = g.createBuffer(passwordSize); err != nil {
		return fmt.Errorf("password buffer: %w", err)
	}
	if g.saltBuffer, g.saltMemory, err = g.createBuffer(saltBufferSize); err != nil {
		return fmt.Errorf("salt buffer: %w", err)
	}
	if g.outputBuffer, g.outputMemory, err = g.createBuffer(outputSize); err != nil {
		return fmt.Errorf("output buffer: %w", err)
	}

	infos := []vk.DescriptorBufferInfo{
		{Buffer: g.passwordBuffer, Offset: 0, Range: passwordSize},
		{Buffer: g.saltBuffer, Offset: 0, Range: saltBufferSize},
		{Buffer: g.outputBuffer, Offset: 0, Range: outputSize},
	}

	writes := make([]vk.WriteDescriptorSet, len(infos))
	for i := range infos {
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          g.descriptorSet,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo:     infos[i : i+1],
		}
	}
	vk.UpdateDescriptorSets(g.device, uint32(len(writes)), writes, 0, nil)

	return nil
}

func (g *gpuBackend) createBuffer(size vk.DeviceSize) (vk.Buffer, vk.DeviceMemory, error) {
	var buf vk.Buffer
	ret := vk.CreateBuffer(g.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if err := vk.Error(ret); err != nil {
		return buf, nil, fmt.Errorf("create buffer: %w", err)
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(g.device, buf, &memReq)
	memReq.Deref()

	memType, err := g.findMemoryType(memReq.MemoryTypeBits,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return buf, nil, err
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(g.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if err := vk.Error(ret); err != nil {
		return buf, mem, fmt.Errorf("allocate memory: %w", err)
	}

	vk.BindBufferMemory(g.device, buf, mem, 0)
	return buf, mem, nil
}

func (g *gpuBackend) findMemoryType(typeFilter uint32, want vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(g.physicalDevice, &memProps)
	memProps.Deref()

	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && memProps.MemoryTypes[i].PropertyFlags&want == want {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no host-visible coherent memory type")
}

// derive uploads up to one workgroup of candidates, dispatches the pipeline
// and reads the PMKs back in input order.
func (g *gpuBackend) derive(passwords []string, ssid string) ([][]byte, error) {
	if !g.initialized {
		return nil, fmt.Errorf("gpu backend not initialized")
	}
	if len(passwords) > workgroupSize {
		return nil, fmt.Errorf("batch of %d exceeds workgroup size %d", len(passwords), workgroupSize)
	}

	records := make([]byte, len(passwords)*passwordStride)
	for i, pw := range passwords {
		if len(pw) > passwordStride-1 {
			return nil, fmt.Errorf("password %d exceeds %d bytes", i, passwordStride-1)
		}
		rec := records[i*passwordStride:]
		rec[0] = byte(len(pw))
		copy(rec[1:], pw)
	}
	if err := g.upload(g.passwordMemory, records); err != nil {
		return nil, err
	}

	salt := make([]byte, saltBufferSize)
	binary.LittleEndian.PutUint32(salt[0:4], uint32(len(ssid)))
	copy(salt[4:], ssid)
	if err := g.upload(g.saltMemory, salt); err != nil {
		return nil, err
	}

	ret := vk.BeginCommandBuffer(g.commandBuffer, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := vk.Error(ret); err != nil {
		return nil, fmt.Errorf("begin command buffer: %w", err)
	}

	vk.CmdBindPipeline(g.commandBuffer, vk.PipelineBindPointCompute, g.pipeline)
	vk.CmdBindDescriptorSets(g.commandBuffer, vk.PipelineBindPointCompute, g.pipelineLayout,
		0, 1, []vk.DescriptorSet{g.descriptorSet}, 0, nil)

	push := [2]uint32{uint32(len(passwords)), pbkdf2Iterations}
	vk.CmdPushConstants(g.commandBuffer, g.pipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageComputeBit), 0, pushConstantSize, unsafe.Pointer(&push[0]))

	groups := (uint32(len(passwords)) + workgroupSize - 1) / workgroupSize
	vk.CmdDispatch(g.commandBuffer, groups, 1, 1)

	if err := vk.Error(vk.EndCommandBuffer(g.commandBuffer)); err != nil {
		return nil, fmt.Errorf("end command buffer: %w", err)
	}

	ret = vk.QueueSubmit(g.queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{g.commandBuffer},
	}}, vk.NullFence)
	if err := vk.Error(ret); err != nil {
		return nil, fmt.Errorf("queue submit: %w", err)
	}
	if err := vk.Error(vk.QueueWaitIdle(g.queue)); err != nil {
		return nil, fmt.Errorf("queue wait: %w", err)
	}

	out := make([]byte, len(passwords)*outputStride)
	if err := g.download(g.outputMemory, out); err != nil {
		return nil, err
	}

	pmks := make([][]byte, len(passwords))
	for i := range pmks {
		pmks[i] = out[i*outputStride : (i+1)*outputStride : (i+1)*outputStride]
	}
	return pmks, nil
}

func (g *gpuBackend) upload(mem vk.DeviceMemory, data []byte) error {
	var ptr unsafe.Pointer
	ret := vk.MapMemory(g.device, mem, 0, vk.DeviceSize(len(data)), 0, &ptr)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("map memory: %w", err)
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(g.device, mem)
	return nil
}

func (g *gpuBackend) download(mem vk.DeviceMemory, dst []byte) error {
	var ptr unsafe.Pointer
	ret := vk.MapMemory(g.device, mem, 0, vk.DeviceSize(len(dst)), 0, &ptr)
	if err := vk.Error(ret); err != nil {
		return fmt.Errorf("map memory: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(ptr), len(dst)))
	vk.UnmapMemory(g.device, mem)
	return nil
}

func (g *gpuBackend) release() {
	if g.device != nil {
		vk.DeviceWaitIdle(g.device)
	}

	if g.pipeline != nil {
		vk.DestroyPipeline(g.device, g.pipeline, nil)
	}
	if g.pipelineLayout != nil {
		vk.DestroyPipelineLayout(g.device, g.pipelineLayout, nil)
	}
	if g.shaderModule != nil {
		vk.DestroyShaderModule(g.device, g.shaderModule, nil)
	}
	if g.descriptorPool != nil {
		vk.DestroyDescriptorPool(g.device, g.descriptorPool, nil)
	}
	if g.descriptorSetLayout != nil {
		vk.DestroyDescriptorSetLayout(g.device, g.descriptorSetLayout, nil)
	}

	if g.passwordBuffer != nil {
		vk.DestroyBuffer(g.device, g.passwordBuffer, nil)
	}
	if g.saltBuffer != nil {
		vk.DestroyBuffer(g.device, g.saltBuffer, nil)
	}
	if g.outputBuffer != nil {
		vk.DestroyBuffer(g.device, g.outputBuffer, nil)
	}
	if g.passwordMemory != nil {
		vk.FreeMemory(g.device, g.passwordMemory, nil)
	}
	if g.saltMemory != nil {
		vk.FreeMemory(g.device, g.saltMemory, nil)
	}
	if g.outputMemory != nil {
		vk.FreeMemory(g.device, g.outputMemory, nil)
	}

	if g.commandPool != nil {
		vk.DestroyCommandPool(g.device, g.commandPool, nil)
	}
	if g.device != nil {
		vk.DestroyDevice(g.device, nil)
	}
	if g.instance != nil {
		vk.DestroyInstance(g.instance, nil)
	}

	*g = gpuBackend{shaderPath: g.shaderPath}
}

func repackUint32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}
