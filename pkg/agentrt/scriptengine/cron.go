package scriptengine

import (
	"fmt"

	"github.com/kandev/agentgate/pkg/agentrt/vfs"
)

// CronManager manages a VFS directory of name to target-path entries. It is
// a registry, not a ticking scheduler: nothing in this package fires a
// cron entry on its own; a host or the agent cycle reads the list and
// decides when to run each target through an Engine.
type CronManager struct {
	fs   vfs.FS
	root string
}

// NewCronManager returns a CronManager rooted at root (default "/cron"),
// creating the directory if needed.
func NewCronManager(fs vfs.FS, root string) (*CronManager, error) {
	if root == "" {
		root = "/cron"
	}
	if !fs.Exists(root) {
		if err := fs.Mkdir(root); err != nil {
			return nil, fmt.Errorf("scriptengine: create cron root: %w", err)
		}
	}
	return &CronManager{fs: fs, root: root}, nil
}

func (c *CronManager) entryPath(name string) string {
	return c.root + "/" + name
}

// Set registers or replaces the target script path for name.
func (c *CronManager) Set(name, targetPath string) error {
	if err := c.fs.Write(c.entryPath(name), []byte(targetPath)); err != nil {
		return fmt.Errorf("scriptengine: set cron entry %q: %w", name, err)
	}
	return nil
}

// Get returns the target script path registered under name.
func (c *CronManager) Get(name string) (string, error) {
	data, err := c.fs.Read(c.entryPath(name))
	if err != nil {
		return "", fmt.Errorf("scriptengine: get cron entry %q: %w", name, err)
	}
	return string(data), nil
}

// Remove deletes the cron entry named name.
func (c *CronManager) Remove(name string) error {
	if err := c.fs.Remove(c.entryPath(name)); err != nil {
		return fmt.Errorf("scriptengine: remove cron entry %q: %w", name, err)
	}
	return nil
}

// List returns every registered name to target-path entry.
func (c *CronManager) List() (map[string]string, error) {
	names, err := c.fs.ReadDir(c.root)
	if err != nil {
		return nil, fmt.Errorf("scriptengine: list cron entries: %w", err)
	}
	entries := make(map[string]string, len(names))
	for _, name := range names {
		target, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		entries[name] = target
	}
	return entries, nil
}
