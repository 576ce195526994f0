package logging

import (
	"strings"
	"testing"
)

func TestLineShape(t *testing.T) {
	line := Line("", Origin(2, false), DirIncoming, "xdg_wm_base", 2, "create_positioner",
		[]RenderedArg{RenderObject("id", "xdg_positioner", 5, true)})
	if !strings.Contains(line, "client#2 -> xdg_wm_base#2.create_positioner(id: xdg_positioner#5)") {
		t.Fatalf("unexpected line shape: %s", line)
	}
}

func TestServerOrigin(t *testing.T) {
	if Origin(0, true) != "server" {
		t.Fatal("server origin must render as \"server\"")
	}
}

func TestRenderStringQuoted(t *testing.T) {
	arg := RenderString("message", `hi`)
	if arg.Value != `"hi"` {
		t.Fatalf("got %s, want quoted string", arg.Value)
	}
}

func TestRenderEnumFallback(t *testing.T) {
	arg := RenderEnum("code", 7, nil)
	if arg.Value != "7" {
		t.Fatalf("expected numeric fallback, got %s", arg.Value)
	}
	arg2 := RenderEnum("code", 7, map[uint32]string{7: "invalid_surface"})
	if arg2.Value != "invalid_surface" {
		t.Fatalf("expected symbolic name, got %s", arg2.Value)
	}
}
