package prompt

import (
	"strings"
	"testing"

	"dressup/internal/model"
)

func TestBuildFiveStageEmbedsFragmentsInOrder(t *testing.T) {
	out := BuildFiveStage("HEAD-X", "TORSO-X", "LEGS-X", "POSE-X", "BG-X")

	last := -1
	for _, fragment := range []string{"HEAD-X", "TORSO-X", "LEGS-X", "POSE-X", "BG-X"} {
		at := strings.Index(out, fragment)
		if at < 0 {
			t.Fatalf("fragment %q missing from the composed prompt", fragment)
		}
		if at <= last {
			t.Fatalf("fragment %q out of order", fragment)
		}
		last = at
	}
}

func TestBuildFiveStageDeterministic(t *testing.T) {
	a := BuildFiveStage("h", "t", "l", "p", "b")
	b := BuildFiveStage("h", "t", "l", "p", "b")
	if a != b {
		t.Fatal("identical inputs must compose identically")
	}
}

func TestBuildFromPrompts(t *testing.T) {
	prompts := model.NewPromptMap()
	head := "a wizard hat"
	pose := "jumping"
	prompts[model.RoleHead] = &head
	prompts[model.RolePose] = &pose

	out := BuildFromPrompts(prompts)
	if !strings.Contains(out, "a wizard hat") || !strings.Contains(out, "jumping") {
		t.Fatal("set fragments must appear verbatim")
	}

	full := model.NewPromptMap()
	for _, role := range model.RoleOrder {
		v := "v-" + string(role)
		full[role] = &v
	}
	if BuildFromPrompts(full) != BuildFiveStage("v-head", "v-torso", "v-legs", "v-pose", "v-background") {
		t.Fatal("map composition must match positional composition")
	}
}
