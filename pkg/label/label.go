package label

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter 分隔艺术家与歌曲名
const Delimiter = " - "

var (
	ErrMalformedLabel = errors.New("malformed label")
	ErrUnknownIndex   = errors.New("label index out of range")
)

// Label 是分类器输出解析后的 (艺术家, 歌名)
type Label struct {
	Artist string
	Title  string
}

func (l Label) String() string {
	return l.Artist + Delimiter + l.Title
}

// Parse 把 "{artist} - {title}" 拆成 Label。只在第一次出现的分隔符处切分，
// 歌名本身可以包含 " - "。
func Parse(raw string) (Label, error) {
	artist, title, ok := strings.Cut(raw, Delimiter)
	if !ok {
		return Label{}, fmt.Errorf("%w: %q has no %q", ErrMalformedLabel, raw, Delimiter)
	}
	return Label{Artist: artist, Title: title}, nil
}
