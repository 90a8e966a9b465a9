package layout

import (
	"strings"
	"testing"
)

func TestContentHeight(t *testing.T) {
	if got := ContentHeight(30); got != 24 {
		t.Errorf("ContentHeight(30) = %d, want 24", got)
	}
	if got := ContentHeight(4); got != 0 {
		t.Errorf("ContentHeight(4) = %d, want 0", got)
	}
}

func TestIsTooSmall(t *testing.T) {
	if !IsTooSmall(79, 40) || !IsTooSmall(120, 23) {
		t.Error("expected small terminals to be reported")
	}
	if IsTooSmall(MinWidth, MinHeight) {
		t.Error("minimum size should be accepted")
	}
}

func TestRenderHeaderShowsUser(t *testing.T) {
	h := RenderHeader("Home", "asha", 100)
	if !strings.Contains(h, "quizcraft") || !strings.Contains(h, "asha") {
		t.Errorf("header missing app or user name:\n%s", h)
	}
	if !strings.Contains(RenderHeader("Sign in", "", 100), "not signed in") {
		t.Error("expected signed-out marker")
	}
}
