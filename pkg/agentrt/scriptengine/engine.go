// Package scriptengine implements the line-oriented script interpreter:
// it reads a script through the VFS, resolves {{var}} placeholders, and
// dispatches each non-skipped line through the command registry. Execution
// is synchronous, inside whichever agent cycle invoked it.
package scriptengine

import (
	"fmt"
	"path"
	"strings"

	internalse "github.com/kandev/agentgate/internal/scriptengine"
	"github.com/kandev/agentgate/pkg/agentrt/registry"
	"github.com/kandev/agentgate/pkg/agentrt/vfs"
)

// Result is the accumulated output of running a script: one formatted line
// per dispatched command, plus any captured errors. A script never aborts
// on a single line's failure.
type Result struct {
	Log []string
}

// Engine ties the VFS, the command registry, and placeholder resolution
// together into the line-oriented interpreter described for script
// execution.
type Engine struct {
	fs       vfs.FS
	registry *registry.Registry
	resolver *internalse.Resolver
}

// New returns an Engine. resolver may be nil, in which case placeholders are
// left unresolved.
func New(fs vfs.FS, reg *registry.Registry, resolver *internalse.Resolver) *Engine {
	return &Engine{fs: fs, registry: reg, resolver: resolver}
}

// Run reads scriptPath via the VFS and executes it line by line. Relative
// `run <path>` targets resolve against scriptPath's directory.
func (e *Engine) Run(scriptPath string, env map[string]string) (Result, error) {
	data, err := e.fs.Read(scriptPath)
	if err != nil {
		return Result{}, fmt.Errorf("scriptengine: read %s: %w", scriptPath, err)
	}

	cwd := path.Dir(scriptPath)
	var result Result

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		resolved := trimmed
		if e.resolver != nil {
			resolved = e.resolver.Resolve(trimmed)
		}

		if target, ok := runTarget(resolved); ok {
			resolvedPath := target
			if !path.IsAbs(target) {
				resolvedPath = path.Join(cwd, target)
			}
			sub, err := e.Run(resolvedPath, env)
			if err != nil {
				result.Log = append(result.Log, fmt.Sprintf("error at line %d: %s", lineNum, err))
				continue
			}
			result.Log = append(result.Log, sub.Log...)
			continue
		}

		out, err := e.registry.Dispatch(resolved, env)
		if err != nil {
			result.Log = append(result.Log, fmt.Sprintf("error at line %d: %s", lineNum, err))
			continue
		}
		result.Log = append(result.Log, formatOutput(out))
	}

	return result, nil
}

// runTarget reports whether line is a `run <path>` directive and, if so,
// returns its target path.
func runTarget(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 2 && fields[0] == "run" {
		return fields[1], true
	}
	return "", false
}

func formatOutput(out registry.Output) string {
	switch out.Kind {
	case registry.OutputText:
		return out.Text
	case registry.OutputNone:
		return ""
	case registry.OutputClear:
		return "<clear>"
	case registry.OutputTable:
		var b strings.Builder
		b.WriteString(strings.Join(out.Table.Headers, "\t"))
		for _, row := range out.Table.Rows {
			b.WriteString("\n")
			b.WriteString(strings.Join(row, "\t"))
		}
		return b.String()
	default:
		return fmt.Sprintf("%v", out.Opaque)
	}
}
