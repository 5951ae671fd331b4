package lyrics

import (
	"regexp"
	"strings"
)

var (
	lrcTimestampRe = regexp.MustCompile(`\[\d+:\d+(?:[.:]\d{1,3})?\]`)
	lrcTagRe       = regexp.MustCompile(`^\[[a-zA-Z]+:[^\]]*\]$`)
)

// StripTimestamps 把 LRC 歌词转换为纯文本：去掉 [mm:ss.xx] 时间戳和
// [ar:...] 之类的标签行，保留空行
func StripTimestamps(lrc string) string {
	lines := strings.Split(strings.ReplaceAll(lrc, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if lrcTagRe.MatchString(trimmed) {
			continue
		}
		out = append(out, strings.TrimSpace(lrcTimestampRe.ReplaceAllString(line, "")))
	}
	return strings.Join(out, "\n")
}
