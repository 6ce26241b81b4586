package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultFrameResourceCount = 4
	MaxFrameResourceCount     = 16
)

/** @brief Sizes of the per-frame upload buffers, expressed in entries. */
type BufferConfig struct {
	MaxCameraCount   int `toml:"max_camera_count"`
	MaxMaterialCount int `toml:"max_material_count"`
	MaxJointCount    int `toml:"max_joint_count"`
	MaxDrawCount     int `toml:"max_draw_count"`
}

/** @brief The renderer section of the configuration file. */
type RendererConfig struct {
	/** @brief Number of rotating frame resources per multi buffer. */
	FrameResourceCount int `toml:"frame_resource_count"`
	/** @brief Offset alignment required when binding uniform blocks. */
	UniformBufferOffsetAlignment uint64 `toml:"uniform_buffer_offset_alignment"`
	/** @brief Offset alignment required when binding storage blocks. */
	StorageBufferOffsetAlignment uint64 `toml:"storage_buffer_offset_alignment"`
	/** @brief Run independent rendergraph levels concurrently. */
	ParallelExecution bool `toml:"parallel_execution"`
	/** @brief Edge length of the shadow map, in texels. */
	ShadowMapSize uint32 `toml:"shadow_map_size"`

	Buffers BufferConfig `toml:"buffers"`
}

func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		FrameResourceCount:           DefaultFrameResourceCount,
		UniformBufferOffsetAlignment: 256,
		StorageBufferOffsetAlignment: 16,
		ShadowMapSize:                2048,
		Buffers: BufferConfig{
			MaxCameraCount:   16,
			MaxMaterialCount: 256,
			MaxJointCount:    1024,
			MaxDrawCount:     4096,
		},
	}
}

func (c RendererConfig) Validate() error {
	if c.FrameResourceCount < 1 || c.FrameResourceCount > MaxFrameResourceCount {
		return fmt.Errorf("%w: frame_resource_count must be in [1, %d], got %d", ErrInvalidConfig, MaxFrameResourceCount, c.FrameResourceCount)
	}
	if c.UniformBufferOffsetAlignment == 0 || c.StorageBufferOffsetAlignment == 0 {
		return fmt.Errorf("%w: buffer offset alignments must be > 0", ErrInvalidConfig)
	}
	if c.ShadowMapSize == 0 {
		return fmt.Errorf("%w: shadow_map_size must be > 0", ErrInvalidConfig)
	}
	b := c.Buffers
	if b.MaxCameraCount <= 0 || b.MaxMaterialCount <= 0 || b.MaxJointCount <= 0 || b.MaxDrawCount <= 0 {
		return fmt.Errorf("%w: buffer entry counts must be > 0", ErrInvalidConfig)
	}
	return nil
}

/** @brief The application section of the configuration file. */
type ApplicationConfig struct {
	/** @brief The application name, reported to the renderer backend. */
	Name string `toml:"name"`
	/** @brief Initial width of the presentation surface. */
	Width uint32 `toml:"width"`
	/** @brief Initial height of the presentation surface. */
	Height uint32 `toml:"height"`
	/** @brief One of debug, info, warn, error or fatal. */
	LogLevel string `toml:"log_level"`
}

// Config is the whole configuration file.
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Renderer    RendererConfig    `toml:"renderer"`
}

func DefaultConfig() Config {
	return Config{
		Application: ApplicationConfig{
			Name:     "Framegraph",
			Width:    1280,
			Height:   720,
			LogLevel: "info",
		},
		Renderer: DefaultRendererConfig(),
	}
}

func (c Config) Validate() error {
	if c.Application.Width == 0 || c.Application.Height == 0 {
		return fmt.Errorf("%w: application size must be > 0, got %dx%d", ErrInvalidConfig, c.Application.Width, c.Application.Height)
	}
	if _, err := log.ParseLevel(c.Application.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %s", ErrInvalidConfig, err)
	}
	return c.Renderer.Validate()
}

// ParseConfig decodes a configuration file. Keys missing from data keep
// their default value.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()
	if err := DecodeTOML(data, &config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	config, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// DecodeTOML decodes data into v, rejecting keys v does not declare.
func DecodeTOML(data []byte, v interface{}) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}
	return nil
}

// EncodeTOML is the inverse of DecodeTOML.
func EncodeTOML(v interface{}) ([]byte, error) {
	return toml.Marshal(v)
}

// ConfigWatcher reports every write to a single configuration file.
type ConfigWatcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	onChange func(data []byte)

	mutex    sync.Mutex
	isClosed bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// WatchConfig starts watching path. The directory is watched rather than the
// file itself so that editors replacing the file atomically are still seen.
func WatchConfig(path string, onChange func(data []byte)) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     abs,
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.start()
	return cw, nil
}

func (cw *ConfigWatcher) start() {
	defer cw.wg.Done()
	for {
		select {
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			data, err := os.ReadFile(cw.path)
			if err != nil {
				LogWarn("config watcher: failed to read %s: %s", cw.path, err)
				continue
			}
			cw.onChange(data)

		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %s", err)

		case <-cw.done:
			return
		}
	}
}

// Close stops the watcher and waits for the event goroutine to exit.
func (cw *ConfigWatcher) Close() error {
	cw.mutex.Lock()
	if cw.isClosed {
		cw.mutex.Unlock()
		return ErrWatcherClosed
	}
	cw.isClosed = true
	cw.mutex.Unlock()

	close(cw.done)
	cw.wg.Wait()
	return cw.fsnotify.Close()
}
