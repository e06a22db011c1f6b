// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cover

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdiddy/docforge/internal/docx"
	"github.com/pdiddy/docforge/internal/docx/docxtest"
)

func TestLoadRules(t *testing.T) {
	t.Run("reads mapping", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := "'{{title}}': 数字总师可行性报告\n'{{unit}}': 第一研究所\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		rules, err := LoadRules(path)
		if err != nil {
			t.Fatalf("LoadRules: %v", err)
		}
		if rules["{{title}}"] != "数字总师可行性报告" {
			t.Errorf("title rule = %q", rules["{{title}}"])
		}
		if len(rules) != 2 {
			t.Errorf("len(rules) = %d, want 2", len(rules))
		}
	})

	t.Run("missing file is empty, not an error", func(t *testing.T) {
		rules, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("LoadRules: %v", err)
		}
		if len(rules) != 0 {
			t.Errorf("len(rules) = %d, want 0", len(rules))
		}
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		os.WriteFile(path, []byte(":\t not yaml ["), 0o644)
		if _, err := LoadRules(path); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	in := docxtest.Write(t, dir, "cover.docx", docxtest.Doc(
		docxtest.Para("{{title}}"),
		docxtest.Para("编制单位：{{unit}}"),
	))
	out := filepath.Join(dir, "assembled.docx")

	rules := map[string]string{
		"{{title}}": "可行性报告",
		"{{unit}}":  "第一研究所",
	}

	var log bytes.Buffer
	if err := Apply(in, out, rules, "", "", &log); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pkg, err := docx.Open(out)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	data, err := pkg.Part(docx.PartDocument)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if strings.Contains(text, "{{title}}") || strings.Contains(text, "{{unit}}") {
		t.Error("placeholders survived replacement")
	}
	if !strings.Contains(text, "可行性报告") || !strings.Contains(text, "第一研究所") {
		t.Error("replacement values missing from output")
	}
}

func TestApplyNoRulesCopiesThrough(t *testing.T) {
	dir := t.TempDir()
	in := docxtest.Write(t, dir, "cover.docx", docxtest.Doc(docxtest.Para("静态封面")))
	out := filepath.Join(dir, "assembled.docx")

	var log bytes.Buffer
	if err := Apply(in, out, nil, "", "", &log); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	pkg, err := docx.Open(out)
	if err != nil {
		t.Fatalf("output is not a valid package: %v", err)
	}
	data, _ := pkg.Part(docx.PartDocument)
	if !strings.Contains(string(data), "静态封面") {
		t.Error("cover content lost in pass-through")
	}
}
