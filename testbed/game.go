package testbed

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine"
	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/jobs"
	"github.com/spaghettifunk/vesta/engine/renderer/components"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
	"github.com/spaghettifunk/vesta/engine/ui"
)

const (
	gridSide       = 32
	waveResolution = 48
	hudFont        = "fonts/ubuntu_mono_21.fnt"
	crateTexture   = "textures/crate.png"
	teapotModel    = "models/teapot.obj"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
	time   float32

	cubes         int
	grid          int
	wave          int
	bar           int
	barCrowd      int
	quads         int
	teapot        int
	cubeIsPyramid bool
	colorIndex    int

	camera *components.Camera
	orbit  bool

	hud     *ui.HUD
	stats   *ui.Text
	help    *ui.Text
	showHUD bool
}

// Skinned meshes push no model matrix, so placement is folded into the
// joints.
var barPlacement = mgl32.Translate3D(-1.2, -0.5, 0)

var palette = []mgl32.Vec4{{1, 1, 1, 1}, {1, 0.4, 0.4, 1}, {0.4, 1, 0.4, 1}, {0.4, 0.6, 1, 1}}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{grid: -1, teapot: -1, showHUD: true, orbit: true, camera: components.NewCamera()},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.Renderer == nil {
		return errors.New("the engine did not provide a renderer")
	}
	s := g.state()
	r := g.Renderer

	var err error
	vertices, indices := cube(0.25)
	s.cubes, err = r.AddMesh(vertices, indices, cubeTransforms(0))
	if err != nil {
		return errors.Wrap(err, "adding cubes")
	}

	small, smallIndices := cube(0.03)
	s.grid, err = r.AddMeshInstanced(small, smallIndices, gridPositions(0))
	if err != nil {
		return errors.Wrap(err, "adding instanced grid")
	}

	waveVerts, waveIndices := wavePlane(waveResolution, 3, 0)
	s.wave, err = r.AddMesh(waveVerts, waveIndices, []mgl32.Mat4{mgl32.Translate3D(0, -1, 0)})
	if err != nil {
		return errors.Wrap(err, "adding wave plane")
	}

	barVerts, barIndices := skinnedBar(8, 1, 0.08)
	s.bar, err = r.AddSkinnedMesh(barVerts, barIndices, []mgl32.Mat4{mgl32.Ident4()}, placeJoints(barPlacement, barJoints(0)))
	if err != nil {
		return errors.Wrap(err, "adding skinned bar")
	}
	s.barCrowd, err = r.AddSkinnedMeshInstanced(barVerts, barIndices, [][3]float32{{1.2, -0.5, 0}, {1.5, -0.5, -0.3}, {0.9, -0.5, -0.3}}, barJoints(0))
	if err != nil {
		return errors.Wrap(err, "adding skinned crowd")
	}

	quadVerts, quadIndices := texturedQuad(0, -0.6)
	secondVerts, secondIndices := texturedQuad(1, 0.6)
	for _, i := range secondIndices {
		quadIndices = append(quadIndices, i+uint32(len(quadVerts)))
	}
	quadVerts = append(quadVerts, secondVerts...)
	layers := []metadata.TextureData{
		checker(64, 8, [4]uint8{240, 240, 240, 255}, [4]uint8{30, 30, 30, 255}),
		checker(16, 4, [4]uint8{200, 60, 60, 255}, [4]uint8{60, 60, 200, 255}),
	}
	s.quads, err = r.AddTexturedMesh(quadVerts, quadIndices, []mgl32.Mat4{mgl32.Translate3D(0, 0.9, -0.5)}, layers)
	if err != nil {
		return errors.Wrap(err, "adding textured quads")
	}

	g.loadOptionalAssets()

	g.Events.Register(core.EventKeyPressed, g, g.onKey)
	core.LogInfo("Testbed ready with %d meshes.", r.MeshCount())
	return nil
}

// loadOptionalAssets adds what is found under the asset root. Missing files
// only disable the matching feature. The model and the font are decoded on
// the job system and handed to the renderer once they are ready.
func (g *TestGame) loadOptionalAssets() {
	s := g.state()
	r := g.Renderer

	if err := r.SetMeshTextureFromFile(s.cubes, crateTexture); err != nil {
		core.LogWarn("crate texture unavailable, cubes stay untextured: %s", err)
	}

	err := g.Jobs.Submit(jobs.Task{
		Name: teapotModel,
		Run: func() (interface{}, error) {
			return g.Assets.LoadAsset(teapotModel, loaders.ResourceTypeModel, nil)
		},
		OnComplete: func(v interface{}) {
			model := v.(*loaders.Resource).Data.(*loaders.ModelData)
			transform := mgl32.Translate3D(0, -0.6, 0.5).Mul4(mgl32.Scale3D(0.1, 0.1, 0.1))
			index, err := r.AddMesh(model.Vertices, model.Indices, []mgl32.Mat4{transform})
			if err != nil {
				core.LogWarn("teapot upload failed: %s", err)
				return
			}
			s.teapot = index
		},
		OnFailure: func(err error) {
			core.LogWarn("teapot model unavailable: %s", err)
		},
	})
	if err != nil {
		core.LogWarn("could not queue the teapot: %s", err)
	}

	err = g.Jobs.Submit(jobs.Task{
		Name: hudFont,
		Run: func() (interface{}, error) {
			return g.Assets.LoadAsset(hudFont, loaders.ResourceTypeBitmapFont, nil)
		},
		OnComplete: func(v interface{}) {
			s.hud = ui.NewHUD(v.(*loaders.Resource).Data.(*loaders.FontData))
			s.stats = s.hud.AddText("", 12, 12, [4]uint8{255, 255, 255, 255})
			s.help = s.hud.AddText("[space] pipeline  [c] color  [r] replace  [del] grid  [h] hud  [o] orbit  [wasd/arrows] fly", 12, 40, [4]uint8{200, 200, 120, 255})
		},
		OnFailure: func(err error) {
			core.LogWarn("HUD font unavailable, overlay disabled: %s", err)
		},
	})
	if err != nil {
		core.LogWarn("could not queue the HUD font: %s", err)
	}
}

func (g *TestGame) Update(deltaTime float64) error {
	s := g.state()
	r := g.Renderer
	s.time += float32(deltaTime)
	g.updateCamera(float32(deltaTime))

	r.UpdateMeshTransforms(s.cubes, cubeTransforms(s.time))
	if s.grid >= 0 {
		if err := r.UpdateMeshInstances(s.grid, gridPositions(s.time)); err != nil {
			return err
		}
	}

	waveVerts, _ := wavePlane(waveResolution, 3, s.time)
	if err := r.UpdateMeshVerticesFull(s.wave, waveVerts); err != nil {
		return err
	}

	if err := r.UpdateMeshJointMatrices(s.bar, placeJoints(barPlacement, barJoints(s.time))); err != nil {
		return err
	}
	if err := r.UpdateMeshJointMatrices(s.barCrowd, barJoints(-s.time)); err != nil {
		return err
	}
	return nil
}

func (g *TestGame) Render(deltaTime float64) (metadata.Camera, error) {
	s := g.state()
	if s.hud != nil && s.showHUD {
		stats := g.Renderer.FrameStats()
		mem := g.Renderer.MemoryStats()
		s.stats.Content = fmt.Sprintf("%.0f fps  %.2f ms  %d meshes  %s", stats.FPS(), stats.FrameTime(), g.Renderer.MeshCount(), mem)
		primitives, delta := s.hud.Frame(s.width, s.height)
		g.Renderer.SubmitOverlay(primitives, delta)
	}
	return s.camera.Frame(s.width, s.height), nil
}

const (
	cameraSpeed = 2.0
	turnSpeed   = 1.5
)

// updateCamera orbits the scene until the orbit is switched off, then flies
// the camera from the keyboard.
func (g *TestGame) updateCamera(dt float32) {
	s := g.state()
	c := s.camera
	if s.orbit {
		c.Orbit(mgl32.Vec3{0, -0.2, 0}, 3.5, 1.2, s.time*0.2)
		return
	}

	in := g.Input
	if in.IsKeyDown(core.KeyCode('W')) {
		c.MoveForward(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyCode('S')) {
		c.MoveBackward(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyCode('A')) {
		c.MoveLeft(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyCode('D')) {
		c.MoveRight(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyCode('Q')) {
		c.MoveDown(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyCode('E')) {
		c.MoveUp(cameraSpeed * dt)
	}
	if in.IsKeyDown(core.KeyLeft) {
		c.Yaw(turnSpeed * dt)
	}
	if in.IsKeyDown(core.KeyRight) {
		c.Yaw(-turnSpeed * dt)
	}
	if in.IsKeyDown(core.KeyUp) {
		c.Pitch(turnSpeed * dt)
	}
	if in.IsKeyDown(core.KeyDown) {
		c.Pitch(-turnSpeed * dt)
	}
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width = width
	s.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	g.Events.Unregister(core.EventKeyPressed, g)
	return nil
}

func (g *TestGame) onKey(ctx core.EventContext, _ interface{}) bool {
	s := g.state()
	r := g.Renderer

	switch ctx.Key {
	case core.KeySpace:
		next := metadata.PipelineTextured
		if m := r.Mesh(s.cubes); m != nil && m.Pipeline == metadata.PipelineTextured {
			next = metadata.PipelineDefault
		}
		r.SetMeshPipeline(s.cubes, next)
		core.LogInfo("Cubes now drawn with '%s'.", next)
	case core.KeyCode('C'):
		s.colorIndex = (s.colorIndex + 1) % len(palette)
		r.SetMeshColor(s.cubes, palette[s.colorIndex])
	case core.KeyCode('R'):
		vertices, indices := cube(0.25)
		if !s.cubeIsPyramid {
			vertices, indices = pyramid(0.25)
		}
		if err := r.ReplaceMesh(s.cubes, vertices, indices); err != nil {
			core.LogError("replacing cube geometry failed: %s", err)
			return true
		}
		s.cubeIsPyramid = !s.cubeIsPyramid
	case core.KeyDelete:
		if s.grid >= 0 {
			r.RemoveMesh(s.grid)
			s.grid = -1
		}
	case core.KeyCode('H'):
		s.showHUD = !s.showHUD
	case core.KeyCode('O'):
		s.orbit = !s.orbit
	default:
		return false
	}
	return true
}

// cubeTransforms places three cubes on a circle spinning around Y.
func cubeTransforms(t float32) []mgl32.Mat4 {
	transforms := make([]mgl32.Mat4, 3)
	for i := range transforms {
		angle := t + float32(i)*2*math32.Pi/3
		transforms[i] = mgl32.Translate3D(0.8*math32.Cos(angle), 0.2, 0.8*math32.Sin(angle)).
			Mul4(mgl32.HomogRotate3DY(2 * t)).
			Mul4(mgl32.HomogRotate3DX(t))
	}
	return transforms
}

// gridPositions lays out a gridSide x gridSide field rippling in time.
func gridPositions(t float32) [][3]float32 {
	positions := make([][3]float32, 0, gridSide*gridSide)
	spacing := float32(0.1)
	offset := spacing * float32(gridSide-1) / 2
	for z := 0; z < gridSide; z++ {
		for x := 0; x < gridSide; x++ {
			px := float32(x)*spacing - offset
			pz := float32(z)*spacing - offset
			d := math32.Sqrt(px*px + pz*pz)
			positions = append(positions, [3]float32{px, -0.7 + 0.1*math32.Sin(4*d-3*t), pz - 1.5})
		}
	}
	return positions
}

// barJoints keeps joint 0 fixed and bends joint 1 about the bar's middle.
func barJoints(t float32) []mgl32.Mat4 {
	pivot := float32(0.5)
	bend := mgl32.Translate3D(0, pivot, 0).
		Mul4(mgl32.HomogRotate3DZ(0.8 * math32.Sin(t*2))).
		Mul4(mgl32.Translate3D(0, -pivot, 0))
	return []mgl32.Mat4{mgl32.Ident4(), bend}
}

func placeJoints(place mgl32.Mat4, joints []mgl32.Mat4) []mgl32.Mat4 {
	placed := make([]mgl32.Mat4, len(joints))
	for i, j := range joints {
		placed[i] = place.Mul4(j)
	}
	return placed
}
