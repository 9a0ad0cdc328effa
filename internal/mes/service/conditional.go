package service

import (
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
)

// EvaluateShowIf 判断章节/检查点的条件显示逻辑是否满足
// conditional_logic 形如 {"show_if": {"material": "aluminum"}}，所有键值
// 都与主体元数据一致才显示；元数据缺键视为不匹配；无条件则始终显示
func EvaluateShowIf(logic entity.JSONB, metadata entity.JSONB) bool {
	if len(logic) == 0 {
		return true
	}
	showIf, ok := logic["show_if"].(map[string]interface{})
	if !ok || len(showIf) == 0 {
		return true
	}
	for key, want := range showIf {
		got, exists := metadata[key]
		if !exists {
			return false
		}
		// JSON数值统一经过float64，用字符串形式比较避免类型抖动
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
