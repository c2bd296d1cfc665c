package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Formats 是 config show 支持的输出格式。
var Formats = []string{"toml", "yaml", "json"}

// Encode 把最终配置编码为 toml/yaml/json，输出以换行结尾。
func Encode(eff EffectiveConfig, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "toml":
		return toml.Marshal(eff)
	case "yaml", "yml":
		return yaml.Marshal(eff)
	case "json", "":
		b, err := json.MarshalIndent(eff, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("不支持的格式 %q（可选：%s）", format, strings.Join(Formats, ", "))
	}
}
