package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/dataset-tools/internal/assemble"
	"github.com/ironsheep/dataset-tools/internal/classes"
	"github.com/ironsheep/dataset-tools/internal/convert"
	"github.com/ironsheep/dataset-tools/internal/labels"
	"github.com/ironsheep/dataset-tools/internal/split"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dataset_convert", "dataset_split").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "dataset_convert":
		return s.handleDatasetConvert(ctx, args)
	case "dataset_count_classes":
		return s.handleDatasetCountClasses(ctx, args)
	case "dataset_plan_split":
		return s.handleDatasetSplit(ctx, args, true)
	case "dataset_split":
		return s.handleDatasetSplit(ctx, args, false)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func requireArg(name, value string) error {
	if value == "" {
		return fmt.Errorf("missing required argument: %s", name)
	}
	return nil
}

// === Conversion ===

type datasetConvertArgs struct {
	AnnotationsDir string         `json:"annotations_dir"`
	OutputDir      string         `json:"output_dir"`
	Classes        map[string]int `json:"classes"`
	ImagesDir      string         `json:"images_dir"`
}

func (s *Server) handleDatasetConvert(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a datasetConvertArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requireArg("annotations_dir", a.AnnotationsDir); err != nil {
		return nil, err
	}
	if err := requireArg("output_dir", a.OutputDir); err != nil {
		return nil, err
	}
	table, err := classes.NewTable(a.Classes)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, errors.New("missing required argument: classes")
	}

	opts := convert.Options{Table: table, Logger: s.logger}
	if a.ImagesDir != "" {
		opts.ImageDir = a.ImagesDir
		opts.Prober = s.cache
	}
	return convert.ConvertDir(ctx, a.AnnotationsDir, a.OutputDir, opts)
}

// === Class Distribution ===

type datasetCountArgs struct {
	LabelsDir     string         `json:"labels_dir"`
	Classes       map[string]int `json:"classes"`
	RareThreshold *float64       `json:"rare_threshold"`
}

type datasetCountResult struct {
	*classes.Distribution
	Rare []classes.ClassCount `json:"rare"`
}

func (s *Server) handleDatasetCountClasses(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a datasetCountArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requireArg("labels_dir", a.LabelsDir); err != nil {
		return nil, err
	}
	table, err := classes.NewTable(a.Classes)
	if err != nil {
		return nil, err
	}
	threshold := 0.05
	if a.RareThreshold != nil {
		threshold = *a.RareThreshold
	}

	records, err := labels.Scan(ctx, a.LabelsDir, labels.ScanOptions{Logger: s.logger})
	if err != nil {
		return nil, err
	}
	dist, err := classes.Count(records, table)
	if err != nil {
		return nil, err
	}
	return &datasetCountResult{Distribution: dist, Rare: dist.Rare(threshold)}, nil
}

// === Splitting ===

type datasetSplitArgs struct {
	LabelsDir        string         `json:"labels_dir"`
	ImagesDir        string         `json:"images_dir"`
	OutputDir        string         `json:"output_dir"`
	Classes          map[string]int `json:"classes"`
	MinorityClasses  []string       `json:"minority_classes"`
	TrainRatio       *float64       `json:"train_ratio"`
	ValRatio         *float64       `json:"val_ratio"`
	Seed             uint64         `json:"seed"`
	IncludeRemaining bool           `json:"include_remaining"`
	Clean            bool           `json:"clean"`
}

type datasetSplitResult struct {
	Seed   uint64           `json:"seed"`
	Plan   *assemble.Plan   `json:"plan"`
	Report *assemble.Report `json:"report,omitempty"`
}

func (s *Server) handleDatasetSplit(ctx context.Context, args json.RawMessage, dryRun bool) (interface{}, error) {
	var a datasetSplitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := requireArg("labels_dir", a.LabelsDir); err != nil {
		return nil, err
	}
	if !dryRun {
		if err := requireArg("images_dir", a.ImagesDir); err != nil {
			return nil, err
		}
		if err := requireArg("output_dir", a.OutputDir); err != nil {
			return nil, err
		}
	}

	ratios := split.Ratios{Train: 0.7, Val: 0.2}
	if a.TrainRatio != nil {
		ratios.Train = *a.TrainRatio
	}
	if a.ValRatio != nil {
		ratios.Val = *a.ValRatio
	}

	var table *classes.Table
	if len(a.Classes) > 0 {
		t, err := classes.NewTable(a.Classes)
		if err != nil {
			return nil, err
		}
		table = t
	}
	minority, err := table.Resolve(a.MinorityClasses)
	if err != nil {
		return nil, err
	}

	rng, seed := split.NewRand(a.Seed)
	plan, report, err := assemble.Run(ctx, assemble.RunOptions{
		Assembler: assemble.Assembler{
			Layout: assemble.Layout{
				ImageDir:  a.ImagesDir,
				LabelDir:  a.LabelsDir,
				OutputDir: a.OutputDir,
				Clean:     a.Clean,
			},
			Table:  table,
			Logger: s.logger,
		},
		Plan: assemble.PlanOptions{
			Minority:         minority,
			Ratios:           ratios,
			Rand:             rng,
			IncludeRemaining: a.IncludeRemaining,
		},
		DryRun: dryRun,
	})
	if err != nil {
		return nil, err
	}
	return &datasetSplitResult{Seed: seed, Plan: plan, Report: report}, nil
}
