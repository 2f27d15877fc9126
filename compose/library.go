package compose

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chaos-io/cutout/util"
)

var backdropExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// Library 影棚背景图库，按文件名（不含扩展名）索引，首次使用时才加载图片
type Library struct {
	dir string

	mu    sync.RWMutex
	cache map[string]image.Image
}

func NewLibrary(dir string) *Library {
	return &Library{
		dir:   dir,
		cache: make(map[string]image.Image),
	}
}

// Dir 返回背景图目录
func (l *Library) Dir() string {
	return l.dir
}

// Names 返回目录中所有背景图的小写名称，按字典序排列
func (l *Library) Names() ([]string, error) {
	files, err := l.files()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Resolve 按名称查找背景图：先精确匹配，再取第一个 name-N 变体，
// 例如 studio-light 解析为 studio-light-1
func (l *Library) Resolve(name string) (string, image.Image, error) {
	names, err := l.Names()
	if err != nil {
		return "", nil, err
	}

	resolved := ""
	for _, n := range names {
		if n == name {
			resolved = n
			break
		}
		if resolved == "" && isVariant(n, name) {
			resolved = n
		}
	}
	if resolved == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownBackdrop, name)
	}

	img, err := l.Get(resolved)
	if err != nil {
		return "", nil, err
	}
	return resolved, img, nil
}

// Get 按精确名称加载背景图，结果会被缓存
func (l *Library) Get(name string) (image.Image, error) {
	l.mu.RLock()
	img, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return img, nil
	}

	files, err := l.files()
	if err != nil {
		return nil, err
	}
	path, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackdrop, name)
	}

	img, err = util.OpenImage(path)
	if err != nil {
		return nil, fmt.Errorf("load backdrop %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = img
	l.mu.Unlock()

	return img, nil
}

func (l *Library) files() (map[string]string, error) {
	if l == nil || l.dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backdrop dir: %w", err)
	}

	files := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !backdropExts[ext] {
			continue
		}
		// 名称统一小写，与 ParseBackdrop 的查找键一致
		name := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		files[name] = filepath.Join(l.dir, e.Name())
	}
	return files, nil
}

// isVariant 判断 n 是否形如 base-<数字>
func isVariant(n, base string) bool {
	suffix, ok := strings.CutPrefix(n, base+"-")
	if !ok || suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
