package converter

// TextConverter 定义文本转换器接口
type TextConverter interface {
	TradToSim(text string) string // 将繁体中文转换为简体
}

// identity 不做任何转换
type identity struct{}

func (identity) TradToSim(text string) string { return text }

// Identity 返回不做转换的 TextConverter
func Identity() TextConverter { return identity{} }
