package bots

import "testing"

func TestCatalog(t *testing.T) {
	want := []string{"assistant", "marketing", "ads", "design", "accounting"}
	got := IDs()
	if len(got) != len(want) {
		t.Fatalf("Expected %d bots, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i] != id {
			t.Errorf("Expected %s at %d, got %s", id, i, got[i])
		}
		b, ok := Get(id)
		if !ok {
			t.Fatalf("Bot %s missing from catalog", id)
		}
		if b.Name == "" || b.SystemPrompt == "" {
			t.Errorf("Bot %s is missing a name or system prompt", id)
		}
	}

	if _, ok := Get("lawyer"); ok {
		t.Error("Unknown bot should not be found")
	}
}

func TestIDsReturnsCopy(t *testing.T) {
	a := IDs()
	a[0] = "changed"
	if IDs()[0] != Assistant {
		t.Error("IDs should not expose the internal slice")
	}
}
