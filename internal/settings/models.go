package settings

import "sync"

// ModelCatalog tracks which speech models are present on disk.
type ModelCatalog struct {
	mu         sync.RWMutex
	downloaded map[string]bool
}

func NewModelCatalog() *ModelCatalog {
	return &ModelCatalog{downloaded: make(map[string]bool)}
}

// Replace sets the downloaded list, as reported by the service.
func (c *ModelCatalog) Replace(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.downloaded = make(map[string]bool, len(names))
	for _, name := range names {
		c.downloaded[name] = true
	}
}

func (c *ModelCatalog) MarkDownloaded(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.downloaded[name] = true
}

func (c *ModelCatalog) Installed(name string) bool {
	if IsBundledModel(name) {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.downloaded[name]
}

// NeedsDownload is a Predicate over the model_size value.
func (c *ModelCatalog) NeedsDownload(value any) bool {
	name, _ := value.(string)
	if name == "" {
		return false
	}

	return !c.Installed(name)
}
