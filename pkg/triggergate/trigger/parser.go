// Package trigger extracts [Action][Agent?] directives from comments on
// external work items. It never resolves permissions; it only emits a
// candidate (action, agent?, author) for the security manager to judge.
package trigger

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kandev/agentgate/pkg/triggergate"
)

// directivePattern matches a bracketed action keyword from the closed set,
// case-insensitive, with an optional bracketed agent name immediately
// following. Per spec §6's grammar (agent = 1*ALPHA), the agent capture
// is letters only.
var directivePattern = regexp.MustCompile(`(?i)\[(approved|review|close|summarize|debug)\](?:\[([A-Za-z]+)\])?`)

// Comment is one comment on the originating item.
type Comment struct {
	Body      string
	Author    string
	CreatedAt time.Time
}

// Item is the issue or pull request a trigger comment was posted on.
type Item struct {
	Body   string
	Author string
}

// Parse scans comments latest-first and falls back to the item body if
// none match. Returns ok=false if no directive is found anywhere.
func Parse(item Item, comments []Comment) (triggergate.TriggerInfo, bool) {
	ordered := make([]Comment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})

	for _, c := range ordered {
		if info, ok := match(c.Body, c.Author); ok {
			return info, true
		}
	}
	return match(item.Body, item.Author)
}

func match(body, author string) (triggergate.TriggerInfo, bool) {
	m := directivePattern.FindStringSubmatch(body)
	if m == nil {
		return triggergate.TriggerInfo{}, false
	}
	info := triggergate.TriggerInfo{
		Action:   strings.ToLower(m[1]),
		Username: author,
	}
	if agent := strings.TrimSpace(m[2]); agent != "" {
		info.Agent = &agent
	}
	return info, true
}
