package apihttp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// estimateSchema 约束 POST /api/estimate 的请求体，未知字段直接拒绝。
const estimateSchema = `{
  "type": "object",
  "required": ["min_weight", "max_weight"],
  "additionalProperties": false,
  "properties": {
    "min_weight": {"type": "number", "exclusiveMinimum": 0},
    "max_weight": {"type": "number", "exclusiveMinimum": 0},
    "sequences": {"type": "string"},
    "lines": {"type": "array", "items": {"type": "string"}},
    "delta_mode": {"type": "string"},
    "terminal_mode": {"type": "string"},
    "save": {"type": "boolean"}
  }
}`

func compileSchema(name, src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// validateBody 解码原始 JSON 并按 schema 校验。
func validateBody(schema *jsonschema.Schema, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return schema.Validate(doc)
}
