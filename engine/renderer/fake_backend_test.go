package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/config"
	"github.com/spaghettifunk/vesta/engine/renderer/memory"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

type command struct {
	op            string
	pipeline      string
	buffers       []*metadata.Buffer
	set           *metadata.DescriptorSet
	data          []byte
	clip          metadata.Rect
	indexCount    uint32
	instanceCount uint32
	firstIndex    uint32
	vertexOffset  int32
}

// fakeBackend keeps buffer contents in memory and records every command of
// the last frame.
type fakeBackend struct {
	commands []command
	contents map[*metadata.Buffer][]byte

	pipelinesBuilt     int
	pipelinesDestroyed int
	liveBuffers        int
	liveTextures       int
	liveSets           int
	uploads            int
	writes             int
	waitIdles          int
	ends               int

	beginErr error
	endErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{contents: make(map[*metadata.Buffer][]byte)}
}

func (f *fakeBackend) Initialize() error            { return nil }
func (f *fakeBackend) Shutdown() error              { return nil }
func (f *fakeBackend) Resized(width, height uint32) {}
func (f *fakeBackend) WaitIdle() error {
	f.waitIdles++
	return nil
}
func (f *fakeBackend) FramebufferSize() (uint32, uint32) { return 800, 600 }
func (f *fakeBackend) MemoryStats() memory.Stats         { return memory.Stats{} }

func (f *fakeBackend) BeginFrame(clear [4]float32) (uint32, error) {
	if f.beginErr != nil {
		return 0, f.beginErr
	}
	f.commands = nil
	return 0, nil
}

func (f *fakeBackend) EndFrame(image uint32) error {
	f.ends++
	return f.endErr
}

func (f *fakeBackend) CreatePipeline(config *metadata.PipelineConfig, vertexCode, fragmentCode []uint32) (*metadata.Pipeline, error) {
	if len(vertexCode) == 0 || len(fragmentCode) == 0 {
		return nil, errors.New("empty shader")
	}
	f.pipelinesBuilt++
	return &metadata.Pipeline{Name: config.Name, Config: *config}, nil
}

func (f *fakeBackend) DestroyPipeline(pipeline *metadata.Pipeline) {
	f.pipelinesDestroyed++
}

func (f *fakeBackend) CreateBuffer(usage metadata.BufferUsage, size uint64, hostVisible bool) (*metadata.Buffer, error) {
	b := &metadata.Buffer{Size: size, Usage: usage, HostVisible: hostVisible, Backing: memory.Direct{}}
	f.contents[b] = make([]byte, size)
	f.liveBuffers++
	return b, nil
}

func (f *fakeBackend) copyInto(buffer *metadata.Buffer, offset uint64, data []byte) error {
	dst, ok := f.contents[buffer]
	if !ok {
		return errors.New("unknown buffer")
	}
	if offset+uint64(len(data)) > uint64(len(dst)) {
		return errors.Newf("write of %d bytes at %d overflows %d", len(data), offset, len(dst))
	}
	copy(dst[offset:], data)
	return nil
}

func (f *fakeBackend) UploadBuffer(buffer *metadata.Buffer, offset uint64, data []byte) error {
	f.uploads++
	return f.copyInto(buffer, offset, data)
}

func (f *fakeBackend) WriteBuffer(buffer *metadata.Buffer, offset uint64, data []byte) error {
	if !buffer.HostVisible {
		return errors.New("buffer is not host visible")
	}
	f.writes++
	return f.copyInto(buffer, offset, data)
}

func (f *fakeBackend) ReadBuffer(buffer *metadata.Buffer, offset, size uint64) ([]byte, error) {
	src, ok := f.contents[buffer]
	if !ok {
		return nil, errors.New("unknown buffer")
	}
	return append([]byte(nil), src[offset:offset+size]...), nil
}

func (f *fakeBackend) DestroyBuffer(buffer *metadata.Buffer) {
	if _, ok := f.contents[buffer]; ok {
		delete(f.contents, buffer)
		f.liveBuffers--
	}
}

func (f *fakeBackend) CreateTexture(layers []metadata.TextureData) (*metadata.Texture, error) {
	f.liveTextures++
	return &metadata.Texture{
		Width:  layers[0].Width,
		Height: layers[0].Height,
		Layers: uint32(len(layers)),
		Set:    &metadata.DescriptorSet{Layout: metadata.DescriptorLayoutTexture},
	}, nil
}

func (f *fakeBackend) DestroyTexture(texture *metadata.Texture) {
	f.liveTextures--
}

func (f *fakeBackend) CreateSkinningSet(joints, camera *metadata.Buffer) (*metadata.DescriptorSet, error) {
	f.liveSets++
	return &metadata.DescriptorSet{Layout: metadata.DescriptorLayoutSkinned}, nil
}

func (f *fakeBackend) DestroyDescriptorSet(set *metadata.DescriptorSet) {
	f.liveSets--
}

func (f *fakeBackend) record(c command) {
	f.commands = append(f.commands, c)
}

func (f *fakeBackend) BindPipeline(pipeline *metadata.Pipeline) {
	f.record(command{op: "pipeline", pipeline: pipeline.Name})
}

func (f *fakeBackend) BindVertexBuffers(buffers ...*metadata.Buffer) {
	f.record(command{op: "vertex", buffers: buffers})
}

func (f *fakeBackend) BindIndexBuffer(buffer *metadata.Buffer) {
	f.record(command{op: "index", buffers: []*metadata.Buffer{buffer}})
}

func (f *fakeBackend) BindDescriptorSet(pipeline *metadata.Pipeline, set *metadata.DescriptorSet) {
	f.record(command{op: "set", pipeline: pipeline.Name, set: set})
}

func (f *fakeBackend) PushConstants(pipeline *metadata.Pipeline, pushRange metadata.PushConstantRange, data []byte) {
	f.record(command{op: "push", pipeline: pipeline.Name, data: append([]byte(nil), data...)})
}

func (f *fakeBackend) SetScissor(clip metadata.Rect) {
	f.record(command{op: "scissor", clip: clip})
}

func (f *fakeBackend) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32) {
	f.record(command{op: "draw", indexCount: indexCount, instanceCount: instanceCount, firstIndex: firstIndex, vertexOffset: vertexOffset})
}

func (f *fakeBackend) ops(op string) []command {
	var out []command
	for _, c := range f.commands {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

// fakeAssets serves a minimal SPIR-V module for every shader and the
// placeholder checker for every image.
type fakeAssets struct {
	loaded []string
}

func (a *fakeAssets) LoadAsset(name string, resourceType loaders.ResourceType, params interface{}) (*loaders.Resource, error) {
	a.loaded = append(a.loaded, name)
	switch resourceType {
	case loaders.ResourceTypeShader:
		return &loaders.Resource{Name: name, Data: []uint32{loaders.SPIRVMagic, 0x00010000}}, nil
	case loaders.ResourceTypeImage:
		return &loaders.Resource{Name: name, Data: metadata.PlaceholderTexture()}, nil
	}
	return nil, errors.Newf("no fake asset for %s", name)
}

func (a *fakeAssets) Resolve(name string) string {
	return "assets/" + name
}

func newTestRenderer() (*Renderer, *fakeBackend, *fakeAssets) {
	backend := newFakeBackend()
	assets := &fakeAssets{}
	r := New(backend, assets, config.Default().Renderer)
	if err := r.Initialize(); err != nil {
		panic(err)
	}
	return r, backend, assets
}
