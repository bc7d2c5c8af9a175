package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/core"
)

// changedBacklog bounds how many modified paths wait for the renderer
// before further notifications are dropped.
const changedBacklog = 64

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

type AssetManager struct {
	root      string
	hotReload bool

	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changed  chan string
}

// NewAssetManager indexes assets below root. With hotReload set the tree is
// watched and modified files are reported on Changed.
func NewAssetManager(root string, hotReload bool) (*AssetManager, error) {
	am := &AssetManager{
		root:      filepath.Clean(root),
		hotReload: hotReload,
		assets:    make(map[string]AssetInfo),
		loaders:   make(map[loaders.ResourceType]Loader),
		changed:   make(chan string, changedBacklog),
		done:      make(chan struct{}),
	}
	if hotReload {
		fsWatch, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, err
		}
		am.fsnotify = fsWatch
	}
	return am, nil
}

func (am *AssetManager) Initialize() error {
	// Register loaders
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.TextureLoader{})
	am.registerLoader(loaders.ResourceTypeModel, &loaders.ModelLoader{})
	am.registerLoader(loaders.ResourceTypeBitmapFont, &loaders.BitmapFontLoader{})

	if _, err := os.Stat(am.root); err != nil {
		core.LogWarn("asset root %s is not readable, only absolute paths will load: %s", am.root, err)
		return nil
	}
	if err := am.watchRecursive(am.root); err != nil {
		return err
	}
	if am.hotReload {
		am.wg.Add(1)
		go am.start()
	}
	return nil
}

// Shutdown stops watching and closes the Changed channel.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	close(am.changed)
	if am.fsnotify != nil {
		return am.fsnotify.Close()
	}
	return nil
}

// Changed delivers the cleaned paths of modified files of a known type.
func (am *AssetManager) Changed() <-chan string {
	return am.changed
}

// Resolve maps a name relative to the asset root onto a file path.
// Absolute paths are returned unchanged.
func (am *AssetManager) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(am.root, name)
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader Loader) {
	am.loaders[assetType] = loader
}

// LoadAsset loads an asset using the appropriate loader. A resource type of
// None is inferred from the file extension.
func (am *AssetManager) LoadAsset(name string, resourceType loaders.ResourceType, params interface{}) (*loaders.Resource, error) {
	path := am.Resolve(name)
	if resourceType == loaders.ResourceTypeNone {
		resourceType = determineAssetType(path)
	}

	loader, loaderExists := am.loaders[resourceType]
	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type %d (%s)", resourceType, path)
	}

	res, err := loader.Load(path, params)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	am.assets[path] = AssetInfo{
		Path:       path,
		Type:       resourceType,
		LastLoaded: time.Now(),
	}
	am.mutex.Unlock()
	return res, nil
}

func (am *AssetManager) UnloadAsset(resourceType loaders.ResourceType, asset *loaders.Resource) error {
	loader, ok := am.loaders[resourceType]
	if !ok {
		return errors.Newf("no loader registered for asset type %d", resourceType)
	}
	return loader.Unload(asset)
}

// Asset returns the index entry of a path under the root.
func (am *AssetManager) Asset(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[am.Resolve(name)]
	return info, ok
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name); err != nil {
						core.LogWarn("could not watch new directory %s: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if am.handleFileEvent(e.Name) {
					am.notify(e.Name)
				}
			}
			// a deleted path cannot be stat'ed, drop it from both the index
			// and the watch list and ignore the error for plain files
			if e.Op&fsnotify.Remove != 0 {
				am.removeAsset(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher failed: %s", err)

		case <-am.done:
			return
		}
	}
}

// notify never blocks the watcher; a full backlog drops the path.
func (am *AssetManager) notify(path string) {
	select {
	case am.changed <- filepath.Clean(path):
	default:
		core.LogWarn("asset change backlog full, dropping notification for %s", path)
	}
}

// watchRecursive indexes every file below path and, when hot reload is on,
// adds every directory to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.fsnotify != nil {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file. Reports whether the file
// is of a known asset type.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return false
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	path = filepath.Clean(path)
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) loaders.ResourceType {
	switch filepath.Ext(path) {
	case ".spv":
		return loaders.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tiff":
		return loaders.ResourceTypeImage
	case ".obj":
		return loaders.ResourceTypeModel
	case ".fnt":
		return loaders.ResourceTypeBitmapFont
	default:
		return loaders.ResourceTypeNone
	}
}
