package scriptengine

import "strconv"

// AgentProvider returns placeholders describing the agent a script is
// running under.
func AgentProvider(agentID, agentName, workspace string) PlaceholderProvider {
	return func() map[string]string {
		return map[string]string{
			"agent.id":        agentID,
			"agent.name":      agentName,
			"agent.workspace": workspace,
		}
	}
}

// CycleProvider returns the current cycle number at resolution time. It
// takes a function rather than a fixed value because scripts launched from
// `cron` or `startup` resolve placeholders lazily, after the cycle counter
// may have advanced.
func CycleProvider(cycle func() int) PlaceholderProvider {
	return func() map[string]string {
		return map[string]string{
			"agent.cycle": strconv.Itoa(cycle()),
		}
	}
}

// EnvProvider exposes environment variables supplied to the runner as
// `env.<name>` placeholders.
func EnvProvider(env map[string]string) PlaceholderProvider {
	return func() map[string]string {
		vars := make(map[string]string, len(env))
		for k, v := range env {
			vars["env."+k] = v
		}
		return vars
	}
}
