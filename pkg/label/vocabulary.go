package label

import (
	"bufio"
	"fmt"
	"log"
	"strings"

	"github.com/yleoer/trackid/pkg/util"
)

// Vocabulary 是分类器输出下标与标签字符串之间的双向映射。
// 启动时加载一次，之后只读，可被多个请求并发读取。
type Vocabulary struct {
	labels []string
	index  map[string]int
}

// LoadVocabulary 从文本文件加载词表：每行一个标签，行号即下标 (从 0 开始)。
// 文件可以是 UTF-8 或 GBK 编码。
func LoadVocabulary(path string, logger *log.Logger) (*Vocabulary, error) {
	content, err := util.ReadTextFileContent(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read label vocabulary %s: %w", path, err)
	}
	var labels []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan label vocabulary %s: %w", path, err)
	}
	v, err := NewVocabulary(labels)
	if err != nil {
		return nil, fmt.Errorf("invalid label vocabulary %s: %w", path, err)
	}
	logger.Printf("Label vocabulary loaded from %s: %d labels", path, v.Len())
	return v, nil
}

// NewVocabulary 用给定顺序的标签构建词表，每个标签都必须能被 Parse 解析
func NewVocabulary(labels []string) (*Vocabulary, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	v := &Vocabulary{
		labels: make([]string, len(labels)),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range labels {
		if _, err := Parse(l); err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
		if prev, ok := v.index[l]; ok {
			return nil, fmt.Errorf("label %d duplicates label %d: %q", i, prev, l)
		}
		v.labels[i] = l
		v.index[l] = i
	}
	return v, nil
}

func (v *Vocabulary) Len() int { return len(v.labels) }

// Label 返回下标对应的标签字符串
func (v *Vocabulary) Label(i int) (string, error) {
	if i < 0 || i >= len(v.labels) {
		return "", fmt.Errorf("%w: %d (vocabulary size %d)", ErrUnknownIndex, i, len(v.labels))
	}
	return v.labels[i], nil
}

// Index 返回标签字符串对应的下标
func (v *Vocabulary) Index(label string) (int, bool) {
	i, ok := v.index[label]
	return i, ok
}

// Lookup 返回下标对应的已解析标签
func (v *Vocabulary) Lookup(i int) (Label, error) {
	raw, err := v.Label(i)
	if err != nil {
		return Label{}, err
	}
	return Parse(raw)
}
