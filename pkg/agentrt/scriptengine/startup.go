package scriptengine

import (
	"fmt"

	"github.com/kandev/agentgate/pkg/agentrt/vfs"
)

// DefaultStartupPath is the well-known path consulted at runtime boot.
const DefaultStartupPath = "/startup"

// StartupHook reads and writes the well-known startup script path.
type StartupHook struct {
	fs   vfs.FS
	path string
}

// NewStartupHook returns a StartupHook at path (default DefaultStartupPath).
func NewStartupHook(fs vfs.FS, path string) *StartupHook {
	if path == "" {
		path = DefaultStartupPath
	}
	return &StartupHook{fs: fs, path: path}
}

// Exists reports whether a startup script has been registered.
func (s *StartupHook) Exists() bool {
	return s.fs.Exists(s.path)
}

// Write replaces the startup script.
func (s *StartupHook) Write(script string) error {
	if err := s.fs.Write(s.path, []byte(script)); err != nil {
		return fmt.Errorf("scriptengine: write startup script: %w", err)
	}
	return nil
}

// Path returns the VFS path of the startup script, suitable for handing to
// Engine.Run.
func (s *StartupHook) Path() string {
	return s.path
}
