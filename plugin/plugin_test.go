package plugin

import "testing"

type fakeComponent struct{}

func (fakeComponent) Initialize(HostApplication) TResult { return 0 }
func (fakeComponent) Terminate() TResult                 { return 0 }
func (fakeComponent) GetControllerClassID() (UID, TResult) {
	return UID{}, 0
}
func (fakeComponent) SetActive(bool) TResult { return 0 }

func TestUIDStringParse(t *testing.T) {
	s := ComponentIID.String()
	if s != "{0xE831FF31, 0xF2D54301, 0x928EBBEE, 0x25697802}" {
		t.Fatalf("unexpected rendering %q", s)
	}
	u, err := ParseUID(s)
	if err != nil {
		t.Fatal(err)
	}
	if u != ComponentIID {
		t.Fatalf("got %s, want %s", u, ComponentIID)
	}
	if _, err := ParseUID("E831FF31F2D54301928EBBEE2569780"); err == nil {
		t.Fatal("expected error for short uid")
	}
	if ComponentIID.Name() != "IComponent" {
		t.Fatalf("got %q", ComponentIID.Name())
	}
}

func TestCapabilities(t *testing.T) {
	c := fakeComponent{}
	if !Implements(c, ComponentIID) || !Implements(c, PluginBaseIID) || !Implements(c, FUnknownIID) {
		t.Fatal("component capabilities missing")
	}
	if Implements(c, AudioProcessorIID) {
		t.Fatal("component does not process audio")
	}
	if Implements(c, NewUID(1, 2, 3, 4)) {
		t.Fatal("unknown iid must not be implemented")
	}
	got := Capabilities(c)
	if len(got) != 3 || got[0] != FUnknownIID {
		t.Fatalf("unexpected capability list %v", got)
	}
	if Implements(nil, FUnknownIID) {
		t.Fatal("nil implements nothing")
	}
}

func TestResultTables(t *testing.T) {
	if ResultsFor(ABIWindows).NoInterface != TResult(-2147467262) {
		t.Fatalf("got %d", ResultsFor(ABIWindows).NoInterface)
	}
	if ResultsFor(ABIPosix).NoInterface != -1 {
		t.Fatalf("got %d", ResultsFor(ABIPosix).NoInterface)
	}
}
