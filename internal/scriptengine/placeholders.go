package scriptengine

// PlaceholderInfo describes an available placeholder for documentation/autocomplete.
type PlaceholderInfo struct {
	Key         string `json:"key"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

// DefaultPlaceholders is the registry of all available script template
// placeholders recognized by the agent runtime's script engine.
var DefaultPlaceholders = []PlaceholderInfo{
	{
		Key:         "agent.id",
		Description: "The agent's unique identifier",
		Example:     "f4db4fa6-82f4-4d8d-b29c-6ffbd44f57de",
	},
	{
		Key:         "agent.name",
		Description: "The agent's configured display name",
		Example:     "triage-bot",
	},
	{
		Key:         "agent.cycle",
		Description: "The current cycle number, as seen at script dispatch time",
		Example:     "42",
	},
	{
		Key:         "agent.workspace",
		Description: "The VFS path the agent treats as its working directory",
		Example:     "/home/triage-bot",
	},
	{
		Key:         "env.<name>",
		Description: "An environment variable supplied to the runner at startup",
		Example:     "{{env.GITHUB_TOKEN}}",
	},
}
