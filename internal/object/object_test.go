package object

import "testing"

func TestPartitionBoundary(t *testing.T) {
	client := NewTable(false)
	server := NewTable(true)
	if client.Generate() >= ServerIdBase {
		t.Fatal("client table must allocate below ServerIdBase")
	}
	if server.Generate() < ServerIdBase {
		t.Fatal("server table must allocate at or above ServerIdBase")
	}
}

func TestInsertCollision(t *testing.T) {
	table := NewTable(false)
	a := New("wl_surface", "WlSurface", 1)
	b := New("wl_surface", "WlSurface", 1)
	if err := a.SetClientID(table, 5); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := b.SetClientID(table, 5); err == nil {
		t.Fatal("expected collision error on second insert at same id")
	}
}

func TestRemoveOnClientDestroy(t *testing.T) {
	table := NewTable(false)
	o := New("wl_subsurface", "WlSubsurface", 1)
	if err := o.SetClientID(table, 9); err != nil {
		t.Fatalf("SetClientID: %v", err)
	}
	o.HandleClientDestroy()
	if _, ok := table.Lookup(9); ok {
		t.Fatal("object must be removed from client table immediately on destroy")
	}
	if !o.ClientDestroyed {
		t.Fatal("ClientDestroyed flag must be set")
	}
}

func TestHandlerBorrowExclusive(t *testing.T) {
	o := New("wl_surface", "WlSurface", 1)
	release, err := o.TryBorrow()
	if err != nil {
		t.Fatalf("first TryBorrow: %v", err)
	}
	if _, err := o.TryBorrow(); err == nil {
		t.Fatal("reentrant TryBorrow must fail with HandlerBorrowed")
	}
	release()
	if _, err := o.TryBorrow(); err != nil {
		t.Fatalf("TryBorrow after release: %v", err)
	}
}
