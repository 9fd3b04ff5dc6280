package flow

import (
	"reflect"
	"testing"
)

func TestRegistryPutRejectsDuplicate(t *testing.T) {
	r := newRegistry()
	first := &animation{edgeID: "e1"}
	if !r.put(first) {
		t.Fatal("put into empty registry failed")
	}
	if r.put(&animation{edgeID: "e1"}) {
		t.Error("second put under the same id should be refused")
	}
	if r.get("e1") != first || r.len() != 1 {
		t.Error("refused put changed the registry")
	}
}

func TestRegistryOrder(t *testing.T) {
	r := newRegistry()
	for _, id := range []string{"c", "a", "b"} {
		r.put(&animation{edgeID: id})
	}
	if got := r.ids(); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("ids = %v", got)
	}

	if r.remove("a") == nil {
		t.Error("remove of a registered id returned nil")
	}
	if r.remove("a") != nil {
		t.Error("second remove should return nil")
	}
	r.put(&animation{edgeID: "a"})
	if got := r.ids(); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Errorf("ids after re-adding = %v", got)
	}
}

func TestRegistryIDsIsACopy(t *testing.T) {
	r := newRegistry()
	r.put(&animation{edgeID: "x"})
	r.put(&animation{edgeID: "y"})

	ids := r.ids()
	for _, id := range ids {
		r.remove(id)
	}
	if len(ids) != 2 || r.len() != 0 {
		t.Errorf("iterating a snapshot while removing: ids=%v len=%d", ids, r.len())
	}
}
