package orchestrator

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gogf/gf/v2/frame/g"
)

// extractJSON pulls the JSON payload out of a completion. Providers often
// wrap structured output in markdown fences or prose; the payload starts at
// the first brace or bracket and ends at the matching last one.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")
	start := objStart
	end := strings.LastIndex(content, "}")
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start = arrStart
		end = strings.LastIndex(content, "]")
	}
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}

// parseInto decodes a structured completion into out, reporting success. A
// failed parse is logged and leaves out at its zero value so callers always
// return the declared shape.
func parseInto(ctx context.Context, content string, out any) bool {
	payload := extractJSON(content)
	if payload == "" {
		g.Log().Warningf(ctx, "completion contains no JSON payload, returning empty result")
		return false
	}
	if err := sonic.Unmarshal([]byte(payload), out); err != nil {
		g.Log().Warningf(ctx, "failed to parse structured completion, returning empty result: %v", err)
		return false
	}
	return true
}
