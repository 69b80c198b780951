package chunk

import "testing"

func TestAccessors(t *testing.T) {
	c := New(3, "grace period", 10, 23)

	if c.ID() != 3 {
		t.Errorf("ID = %d", c.ID())
	}
	if c.Text() != "grace period" {
		t.Errorf("Text = %q", c.Text())
	}
	if c.StartPos() != 10 || c.EndPos() != 23 {
		t.Errorf("positions = %d..%d", c.StartPos(), c.EndPos())
	}
	if c.Length() != len("grace period") {
		t.Errorf("Length = %d", c.Length())
	}
}

func TestAccessorsOnUnaddressableValue(t *testing.T) {
	// Accessors must work directly on a returned value, without
	// binding it to a variable first.
	if New(7, "x", 0, 1).ID() != 7 {
		t.Error("ID on constructor result")
	}
}
