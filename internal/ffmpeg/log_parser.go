package ffmpeg

import "strings"

// ParseLogLevel classifies one line of ffmpeg output run with
// -loglevel level+info. Lines look like "[error] msg" or
// "[h264_nvenc @ 0x55] [error] msg"; the level tag is stripped and any
// component prefix kept. Periodic stats lines and repeat notices are
// demoted to debug so a diagnostic run does not flood the log.
func ParseLogLevel(line string) (level, msg string) {
	trimmed := strings.TrimSpace(line)
	if isStatsLine(trimmed) {
		return "debug", trimmed
	}

	component, rest := "", line
	if tag, after, ok := cutTag(rest); ok && !isLogLevel(tag) {
		component, rest = line[:len(line)-len(after)], after
	}

	tag, after, ok := cutTag(rest)
	if !ok || !isLogLevel(tag) {
		return "info", line
	}
	if strings.HasPrefix(after, "Last message repeated") {
		return "debug", component + after
	}
	return tag, component + after
}

// cutTag splits "[tag] rest" into tag and rest.
func cutTag(s string) (tag, rest string, ok bool) {
	if len(s) < 3 || s[0] != '[' {
		return "", s, false
	}
	end := strings.Index(s, "] ")
	if end == -1 {
		return "", s, false
	}
	return s[1:end], s[end+2:], true
}

func isStatsLine(s string) bool {
	return strings.HasPrefix(s, "frame=") && strings.Contains(s, "fps=")
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
