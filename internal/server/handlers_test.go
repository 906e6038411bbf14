package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeDataset creates labels/ and images/ under a temp root. Each entry of
// files maps a key to its label content.
func writeDataset(t *testing.T, files map[string]string) (labelsDir, imagesDir string) {
	t.Helper()
	root := t.TempDir()
	labelsDir = filepath.Join(root, "labels")
	imagesDir = filepath.Join(root, "images")
	for _, d := range []string{labelsDir, imagesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for key, content := range files {
		if err := os.WriteFile(filepath.Join(labelsDir, key+".txt"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(imagesDir, key+".png"), []byte(key), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return labelsDir, imagesDir
}

// callTool issues a tools/call request and returns the decoded text content.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (map[string]interface{}, *MCPError) {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	text := content[0]["text"].(string)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("tool result is not JSON: %v\n%s", err, text)
	}
	return out, nil
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	_, mcpErr := callTool(t, New(nil), "image_crop", map[string]interface{}{})
	if mcpErr == nil {
		t.Fatal("expected error for unknown tool")
	}
	if mcpErr.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", mcpErr.Code)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	resp := New(nil).handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"nope"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602 error, got %+v", resp.Error)
	}
}

func TestHandleDatasetConvert(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "labels")
	xml := `<annotation><size><width>100</width><height>50</height></size>
<object><name>helmet</name><bndbox><xmin>0</xmin><ymin>0</ymin><xmax>50</xmax><ymax>50</ymax></bndbox></object>
</annotation>`
	if err := os.WriteFile(filepath.Join(in, "a.xml"), []byte(xml), 0o644); err != nil {
		t.Fatal(err)
	}

	res, mcpErr := callTool(t, New(nil), "dataset_convert", map[string]interface{}{
		"annotations_dir": in,
		"output_dir":      out,
		"classes":         map[string]int{"head": 0, "helmet": 1},
	})
	if mcpErr != nil {
		t.Fatalf("Unexpected error: %+v", mcpErr)
	}
	if res["converted"] != float64(1) {
		t.Errorf("converted: got %v, want 1", res["converted"])
	}

	data, err := os.ReadFile(filepath.Join(out, "a.txt"))
	if err != nil {
		t.Fatalf("label file not written: %v", err)
	}
	if got := string(data); got != "1 0.250000 0.500000 0.500000 1.000000\n" {
		t.Errorf("label content: got %q", got)
	}
}

func TestHandleDatasetConvert_MissingClasses(t *testing.T) {
	_, mcpErr := callTool(t, New(nil), "dataset_convert", map[string]interface{}{
		"annotations_dir": t.TempDir(),
		"output_dir":      t.TempDir(),
	})
	if mcpErr == nil {
		t.Fatal("expected error without classes")
	}
}

func TestHandleDatasetCountClasses(t *testing.T) {
	labelsDir, _ := writeDataset(t, map[string]string{
		"a": "0 0.5 0.5 0.1 0.1\n0 0.2 0.2 0.1 0.1\n1 0.5 0.5 0.1 0.1\n",
		"b": "0 0.5 0.5 0.1 0.1\n",
	})

	res, mcpErr := callTool(t, New(nil), "dataset_count_classes", map[string]interface{}{
		"labels_dir":     labelsDir,
		"classes":        map[string]int{"head": 0, "helmet": 1, "vest": 2},
		"rare_threshold": 0.3,
	})
	if mcpErr != nil {
		t.Fatalf("Unexpected error: %+v", mcpErr)
	}
	if res["total_instances"] != float64(4) {
		t.Errorf("total_instances: got %v, want 4", res["total_instances"])
	}
	rare, _ := res["rare"].([]interface{})
	if len(rare) != 2 {
		t.Errorf("rare: got %d classes, want 2", len(rare))
	}
}

func TestHandleDatasetPlanSplit(t *testing.T) {
	files := map[string]string{"shared": "0 0.5 0.5 0.1 0.1\n1 0.5 0.5 0.1 0.1\n"}
	for i := 0; i < 10; i++ {
		files[fmt.Sprintf("a%d", i)] = "0 0.5 0.5 0.1 0.1\n"
	}
	labelsDir, _ := writeDataset(t, files)

	args := map[string]interface{}{
		"labels_dir":       labelsDir,
		"classes":          map[string]int{"head": 0, "helmet": 1},
		"minority_classes": []string{"head", "helmet"},
		"seed":             7,
	}
	s := New(nil)
	res, mcpErr := callTool(t, s, "dataset_plan_split", args)
	if mcpErr != nil {
		t.Fatalf("Unexpected error: %+v", mcpErr)
	}
	if res["seed"] != float64(7) {
		t.Errorf("seed: got %v, want 7", res["seed"])
	}
	if _, ok := res["report"]; ok {
		t.Error("plan should not carry a copy report")
	}

	plan := res["plan"].(map[string]interface{})
	shared := plan["shared"].([]interface{})
	if len(shared) != 1 || shared[0] != "shared" {
		t.Errorf("shared: got %v, want [shared]", shared)
	}
	if n := len(plan["train"].([]interface{})); n != 7 {
		t.Errorf("train size: got %d, want 7", n)
	}

	again, _ := callTool(t, s, "dataset_plan_split", args)
	a, _ := json.Marshal(plan)
	b, _ := json.Marshal(again["plan"])
	if string(a) != string(b) {
		t.Error("same seed produced a different plan")
	}
}

func TestHandleDatasetPlanSplit_InvalidRatio(t *testing.T) {
	labelsDir, _ := writeDataset(t, map[string]string{"a": "0 0.5 0.5 0.1 0.1\n"})

	_, mcpErr := callTool(t, New(nil), "dataset_plan_split", map[string]interface{}{
		"labels_dir":       labelsDir,
		"minority_classes": []string{"0"},
		"train_ratio":      0.9,
		"val_ratio":        0.3,
	})
	if mcpErr == nil {
		t.Fatal("expected invalid ratio error")
	}
	if data, _ := mcpErr.Data.(string); !strings.Contains(data, "invalid ratio") {
		t.Errorf("error data: got %v", mcpErr.Data)
	}
}

func TestHandleDatasetPlanSplit_NameWithoutTable(t *testing.T) {
	labelsDir, _ := writeDataset(t, map[string]string{"a": "0 0.5 0.5 0.1 0.1\n"})

	_, mcpErr := callTool(t, New(nil), "dataset_plan_split", map[string]interface{}{
		"labels_dir":       labelsDir,
		"minority_classes": []string{"helmet"},
	})
	if mcpErr == nil {
		t.Fatal("expected error for class name without table")
	}
}

func TestHandleDatasetSplit(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 10; i++ {
		files[fmt.Sprintf("a%d", i)] = "0 0.5 0.5 0.1 0.1\n"
	}
	labelsDir, imagesDir := writeDataset(t, files)
	if err := os.Remove(filepath.Join(imagesDir, "a3.png")); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "dataset")

	res, mcpErr := callTool(t, New(nil), "dataset_split", map[string]interface{}{
		"labels_dir":       labelsDir,
		"images_dir":       imagesDir,
		"output_dir":       out,
		"classes":          map[string]int{"head": 0},
		"minority_classes": []string{"head"},
		"train_ratio":      0.5,
		"val_ratio":        0.5,
		"seed":             1,
	})
	if mcpErr != nil {
		t.Fatalf("Unexpected error: %+v", mcpErr)
	}

	report := res["report"].(map[string]interface{})
	copied := report["train_copied"].(float64) + report["val_copied"].(float64)
	if copied != 9 {
		t.Errorf("copied: got %v, want 9", copied)
	}
	missing := report["missing"].([]interface{})
	if len(missing) != 1 || missing[0].(map[string]interface{})["key"] != "a3" {
		t.Errorf("missing: got %v, want [a3]", missing)
	}
	if _, err := os.Stat(filepath.Join(out, "data.yaml")); err != nil {
		t.Errorf("data.yaml not written: %v", err)
	}
}

func TestHandleDatasetSplit_RequiresOutput(t *testing.T) {
	labelsDir, imagesDir := writeDataset(t, map[string]string{"a": "0 0.5 0.5 0.1 0.1\n"})
	_, mcpErr := callTool(t, New(nil), "dataset_split", map[string]interface{}{
		"labels_dir":       labelsDir,
		"images_dir":       imagesDir,
		"minority_classes": []string{"0"},
	})
	if mcpErr == nil {
		t.Fatal("expected error without output_dir")
	}
}

func TestHandleDatasetSplit_RerunNeedsClean(t *testing.T) {
	labelsDir, imagesDir := writeDataset(t, map[string]string{
		"a": "0 0.5 0.5 0.1 0.1\n",
		"b": "0 0.5 0.5 0.1 0.1\n",
	})
	out := filepath.Join(t.TempDir(), "dataset")
	args := map[string]interface{}{
		"labels_dir":       labelsDir,
		"images_dir":       imagesDir,
		"output_dir":       out,
		"minority_classes": []string{"0"},
		"train_ratio":      0.5,
		"val_ratio":        0.5,
	}
	s := New(nil)

	if _, mcpErr := callTool(t, s, "dataset_split", args); mcpErr != nil {
		t.Fatalf("first split failed: %+v", mcpErr)
	}

	_, mcpErr := callTool(t, s, "dataset_split", args)
	if mcpErr == nil {
		t.Fatal("expected error when output already holds a split")
	}
	if data, _ := mcpErr.Data.(string); !strings.Contains(data, "not empty") {
		t.Errorf("error data: got %v", mcpErr.Data)
	}

	args["clean"] = true
	if _, mcpErr := callTool(t, s, "dataset_split", args); mcpErr != nil {
		t.Fatalf("clean split failed: %+v", mcpErr)
	}
}

func TestHandleToolsCall_CancelledContext(t *testing.T) {
	labelsDir, _ := writeDataset(t, map[string]string{"a": "0 0.5 0.5 0.1 0.1\n"})
	params, _ := json.Marshal(map[string]interface{}{
		"name": "dataset_count_classes",
		"arguments": map[string]interface{}{
			"labels_dir": labelsDir,
			"classes":    map[string]int{"head": 0},
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := New(nil).handleRequest(ctx, &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error == nil {
		t.Fatal("expected error for cancelled context")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "context canceled") {
		t.Errorf("error data: got %v", resp.Error.Data)
	}
}
