package service

import (
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
)

func TestEvaluateShowIfEmptyLogicAlwaysShows(t *testing.T) {
	if !EvaluateShowIf(nil, entity.JSONB{"material": "aluminum"}) {
		t.Error("nil logic should always show")
	}
	if !EvaluateShowIf(entity.JSONB{}, nil) {
		t.Error("empty logic should always show")
	}
	// show_if 字段缺失或为空也视为无条件显示
	if !EvaluateShowIf(entity.JSONB{"other": "x"}, nil) {
		t.Error("logic without show_if should always show")
	}
	if !EvaluateShowIf(entity.JSONB{"show_if": map[string]interface{}{}}, nil) {
		t.Error("empty show_if should always show")
	}
}

func TestEvaluateShowIfAllConditionsMatch(t *testing.T) {
	logic := entity.JSONB{"show_if": map[string]interface{}{
		"material": "aluminum",
		"finish":   "anodized",
	}}
	metadata := entity.JSONB{
		"material": "aluminum",
		"finish":   "anodized",
		"extra":    "ignored",
	}
	if !EvaluateShowIf(logic, metadata) {
		t.Error("all conditions match, should show")
	}
}

func TestEvaluateShowIfMismatchHides(t *testing.T) {
	logic := entity.JSONB{"show_if": map[string]interface{}{
		"material": "aluminum",
		"finish":   "anodized",
	}}
	metadata := entity.JSONB{
		"material": "aluminum",
		"finish":   "painted",
	}
	if EvaluateShowIf(logic, metadata) {
		t.Error("partial match should hide")
	}
}

func TestEvaluateShowIfMissingKeyHides(t *testing.T) {
	logic := entity.JSONB{"show_if": map[string]interface{}{"material": "aluminum"}}
	if EvaluateShowIf(logic, entity.JSONB{}) {
		t.Error("missing metadata key should hide")
	}
	if EvaluateShowIf(logic, nil) {
		t.Error("nil metadata should hide when a condition exists")
	}
}

// JSONB经过序列化往返后数字会变成float64，用字符串化比较保证匹配
func TestEvaluateShowIfNumericValues(t *testing.T) {
	logic := entity.JSONB{"show_if": map[string]interface{}{"round": float64(2)}}
	metadata := entity.JSONB{"round": 2}
	if !EvaluateShowIf(logic, metadata) {
		t.Error("int 2 should match float64 2")
	}

	metadata = entity.JSONB{"round": float64(3)}
	if EvaluateShowIf(logic, metadata) {
		t.Error("round 3 should not match round 2")
	}
}
