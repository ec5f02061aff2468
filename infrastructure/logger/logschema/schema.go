package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"order_event": {
		Event:    "order_event",
		Required: []string{"event", "order_id", "symbol"},
	},
	"trade_event": {
		Event:    "trade_event",
		Required: []string{"event", "trade_id", "symbol", "price", "qty", "buy", "sell"},
	},
	"reject_event": {
		Event:    "reject_event",
		Required: []string{"event", "order_id", "symbol", "reason"},
	},
	"order_update": {
		Event:    "order_update",
		Required: []string{"trader", "order_id", "symbol", "status"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate 检查日志字段是否包含 schema 中要求的 key；未登记的事件不检查。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s missing fields: %s", event, strings.Join(missing, ","))
	}
	return nil
}
