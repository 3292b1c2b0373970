package cli

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"charvision/internal/face"
	"charvision/internal/glyph"
	"charvision/internal/refset"

	"github.com/spf13/cobra"
)

func writeSheet(t *testing.T, path string, n int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60*n+40, 100))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for i := 0; i < n; i++ {
		x := 20 + 60*i
		draw.Draw(img, image.Rect(x, 30, x+20, 60), image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	root.SilenceErrors = true
	return root.Execute()
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()
	want := map[string]bool{"train": false, "match": false, "faces": false, "inspect": false, "serve": false, "version": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestOverrideString(t *testing.T) {
	cmd := &cobra.Command{Use: "x", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().String("sheet", "", "")
	cmd.Flags().String("images", "", "")
	if err := cmd.ParseFlags([]string{"--sheet", "other.png"}); err != nil {
		t.Fatal(err)
	}

	sheet, images := "training_chars.png", "images.xml"
	overrideString(cmd, "sheet", &sheet)
	overrideString(cmd, "images", &images)
	if sheet != "other.png" {
		t.Errorf("sheet = %q, want flag value", sheet)
	}
	if images != "images.xml" {
		t.Errorf("images = %q, unset flag must not override", images)
	}
}

func TestTrainInspectMatch(t *testing.T) {
	dir := t.TempDir()
	sheet := filepath.Join(dir, "sheet.png")
	cls := filepath.Join(dir, "classifications.xml")
	imgs := filepath.Join(dir, "images.yml")
	writeSheet(t, sheet, 3)

	if err := run(t, "train", "--sheet", sheet, "--labels", "7?7", "--classifications", cls, "--images", imgs); err != nil {
		t.Fatalf("train: %v", err)
	}
	p := glyph.DefaultParams()
	set, err := refset.Store{ClassificationsPath: cls, ImagesPath: imgs}.Load(p.Width, p.Height)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Len() != 2 || set.Label(0) != '7' {
		t.Errorf("trained set len=%d", set.Len())
	}

	if err := run(t, "train", "--sheet", sheet, "--labels", "7", "--append", "--classifications", cls, "--images", imgs); err != nil {
		t.Fatalf("train --append: %v", err)
	}
	set, err = refset.Store{ClassificationsPath: cls, ImagesPath: imgs}.Load(p.Width, p.Height)
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 3 {
		t.Errorf("appended set len = %d, want 3", set.Len())
	}

	if err := run(t, "inspect", "--evaluate", "--classifications", cls, "--images", imgs); err != nil {
		t.Errorf("inspect: %v", err)
	}
	if err := run(t, "match", "--image", sheet, "--classifications", cls, "--images", imgs); err != nil {
		t.Errorf("match: %v", err)
	}
}

func TestTrainMissingSheet(t *testing.T) {
	dir := t.TempDir()
	err := run(t, "train", "--sheet", filepath.Join(dir, "none.png"), "--labels", "1",
		"--classifications", filepath.Join(dir, "c.xml"), "--images", filepath.Join(dir, "i.xml"))
	if err == nil {
		t.Fatal("expected error for a missing sheet")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "c.xml")); statErr == nil {
		t.Error("nothing should be written when the sheet is missing")
	}
}

func TestMatchMissingReferenceSet(t *testing.T) {
	dir := t.TempDir()
	err := run(t, "match", "--image", "x.png", "--classifications", filepath.Join(dir, "c.xml"), "--images", filepath.Join(dir, "i.xml"))
	if err == nil {
		t.Fatal("expected error for missing reference files")
	}
}

func TestUnsupportedImageFormat(t *testing.T) {
	dir := t.TempDir()
	cls, imgs := filepath.Join(dir, "c.xml"), filepath.Join(dir, "i.xml")
	tests := []struct {
		name string
		args []string
	}{
		{"train sheet", []string{"train", "--sheet", filepath.Join(dir, "sheet.gif"), "--labels", "1"}},
		{"match image", []string{"match", "--image", filepath.Join(dir, "frame.webp")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t, append(tt.args, "--classifications", cls, "--images", imgs)...)
			if err == nil || !strings.Contains(err.Error(), "unsupported image format") {
				t.Errorf("err = %v, want unsupported image format", err)
			}
		})
	}
}

func TestTrainEmptyCharset(t *testing.T) {
	dir := t.TempDir()
	sheet := filepath.Join(dir, "sheet.png")
	cls, imgs := filepath.Join(dir, "c.xml"), filepath.Join(dir, "i.xml")
	writeSheet(t, sheet, 2)

	err := run(t, "train", "--sheet", sheet, "--labels", "12", "--charset", "", "--classifications", cls, "--images", imgs)
	if err == nil || !strings.Contains(err.Error(), "charset") {
		t.Fatalf("err = %v, want charset error", err)
	}
	for _, p := range []string{cls, imgs} {
		if _, statErr := os.Stat(p); statErr == nil {
			t.Errorf("%s written despite empty charset", p)
		}
	}
}

func TestServeMissingCascade(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.xml")
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"serve", "--no-chars", "--face-cascade", missing, "--eyes-cascade", missing})
	root.SilenceErrors = true
	root.SilenceUsage = true

	err := root.Execute()
	if !errors.Is(err, face.ErrCascade) {
		t.Fatalf("err = %v, want ErrCascade", err)
	}
	if !strings.Contains(out.String(), "Error loading face cascade") {
		t.Errorf("output = %q, want operator message", out.String())
	}
	if strings.HasPrefix(err.Error(), "Error") {
		t.Errorf("wrapped error %q should start lower case", err)
	}
}
