package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

var classesProp = map[string]interface{}{
	"type":                 "object",
	"description":          "Class table mapping each class name to its integer id, e.g. {\"helmet\": 0, \"head\": 1}",
	"additionalProperties": map[string]interface{}{"type": "integer"},
}

// splitProperties are shared by the plan and split tools.
func splitProperties() map[string]interface{} {
	return map[string]interface{}{
		"labels_dir": stringProp("Absolute path to the directory of label .txt files"),
		"classes":    classesProp,
		"minority_classes": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Minority classes by name (requires classes) or numeric id",
		},
		"train_ratio": map[string]interface{}{
			"type":        "number",
			"description": "Fraction of each list used for training. Default 0.7",
			"default":     0.7,
		},
		"val_ratio": map[string]interface{}{
			"type":        "number",
			"description": "Fraction of each list used for validation. Default 0.2",
			"default":     0.2,
		},
		"seed": map[string]interface{}{
			"type":        "integer",
			"description": "Shuffle seed. Omit or 0 for a time-based seed (returned in the result)",
		},
		"include_remaining": map[string]interface{}{
			"type":        "boolean",
			"description": "Also split images that contain no minority class. Default false",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	planProps := splitProperties()

	splitProps := splitProperties()
	splitProps["images_dir"] = stringProp("Absolute path to the image directory (images share the label file stem)")
	splitProps["output_dir"] = stringProp("Directory receiving train/, val/ and data.yaml")
	splitProps["clean"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Remove existing train/ and val/ first. Without it a non-empty train/ or val/ is an error. Default false",
	}

	return []Tool{
		{
			Name:        "dataset_convert",
			Description: "Convert every PASCAL VOC XML annotation in a directory into a normalized label file (class x_center y_center width height).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"annotations_dir": stringProp("Absolute path to the directory of .xml annotations"),
					"output_dir":      stringProp("Directory to write .txt label files into (created if missing)"),
					"classes":         classesProp,
					"images_dir":      stringProp("Optional image directory used to read sizes missing from the XML"),
				},
				"required": []string{"annotations_dir", "output_dir", "classes"},
			},
		},
		{
			Name:        "dataset_count_classes",
			Description: "Count object instances per class across a label directory and report the class distribution.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"labels_dir": stringProp("Absolute path to the directory of label .txt files"),
					"classes":    classesProp,
					"rare_threshold": map[string]interface{}{
						"type":        "number",
						"description": "Report classes whose share of instances is below this fraction. Default 0.05",
						"default":     0.05,
					},
				},
				"required": []string{"labels_dir", "classes"},
			},
		},
		{
			Name:        "dataset_plan_split",
			Description: "Plan a minority-aware train/validation split without copying files. Images shared by several minority classes are split as their own bucket so they never leak across sets.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": planProps,
				"required":   []string{"labels_dir", "minority_classes"},
			},
		},
		{
			Name:        "dataset_split",
			Description: "Split like dataset_plan_split, then copy each image and label into output_dir/train or output_dir/val. Missing files are reported and skipped.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": splitProps,
				"required":   []string{"labels_dir", "images_dir", "output_dir", "minority_classes"},
			},
		},
	}
}

func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
