package proto

import "testing"

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	iface, ok := r.Lookup("xdg_wm_base")
	if !ok {
		t.Fatal("expected xdg_wm_base to be registered")
	}
	msg, ok := iface.Request(1)
	if !ok || msg.Name != "create_positioner" {
		t.Fatalf("opcode 1: got %+v, ok=%v", msg, ok)
	}
	if len(msg.Args) != 1 || msg.Args[0].Kind != KindNewID || msg.Args[0].Interface != "xdg_positioner" {
		t.Fatalf("unexpected arg metadata: %+v", msg.Args)
	}
}

func TestDrmFdEventShape(t *testing.T) {
	r := NewRegistry()
	iface, ok := r.Lookup("wp_drm_lease_device_v1")
	if !ok {
		t.Fatal("expected wp_drm_lease_device_v1 to be registered")
	}
	msg, ok := iface.Event(0)
	if !ok || msg.Name != "drm_fd" {
		t.Fatalf("opcode 0: got %+v, ok=%v", msg, ok)
	}
	if len(msg.Args) != 1 || msg.Args[0].Kind != KindFd {
		t.Fatalf("expected single fd arg, got %+v", msg.Args)
	}
}

func TestSameClientOnlyFlag(t *testing.T) {
	r := NewRegistry()
	iface, _ := r.Lookup("zcosmic_overlap_notification_v1")
	enter, _ := iface.Event(0)
	if !enter.SameClientOnly {
		t.Fatal("toplevel_enter must be flagged SameClientOnly")
	}
	leave, _ := iface.Event(1)
	if !leave.SameClientOnly {
		t.Fatal("toplevel_leave must be flagged SameClientOnly")
	}
}

func TestUnknownOpcode(t *testing.T) {
	r := NewRegistry()
	iface, _ := r.Lookup("wl_surface")
	if _, ok := iface.Request(99); ok {
		t.Fatal("expected unknown opcode to report not-ok")
	}
	if iface.RequestName(99) != "?" {
		t.Fatal("expected placeholder name for unknown opcode")
	}
}
