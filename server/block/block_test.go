package block

import "testing"

func TestActionApply(t *testing.T) {
	if _, ok := Place(Stone).Apply(Dirt); ok {
		t.Fatalf("place applied over an occupied voxel")
	}
	if b, ok := Place(Stone).Apply(Air); !ok || b != Stone {
		t.Fatalf("place on air = %v, %v", b, ok)
	}
	if _, ok := Place(Air).Apply(Air); ok {
		t.Fatalf("placing air reported applicable")
	}
	if b, ok := Destroy().Apply(Stone); !ok || b != Air {
		t.Fatalf("destroy on stone = %v, %v", b, ok)
	}
	if _, ok := Destroy().Apply(Air); ok {
		t.Fatalf("destroy applied to an air voxel")
	}
}

func TestRegistryConsistent(t *testing.T) {
	for b := Block(0); b.Valid(); b++ {
		props := b.Properties()
		if props.Name == "" {
			t.Fatalf("block %d has no name", b)
		}
		if props.Opaque && props.LightFilter != 15 {
			t.Fatalf("%v is opaque but has filter %v", b, props.LightFilter)
		}
		if props.Luminance > 15 {
			t.Fatalf("%v has luminance %v above the channel maximum", b, props.Luminance)
		}
		if b != Air && props.LightFilter == 0 {
			t.Fatalf("%v lets light through without any loss", b)
		}
	}
	if !Glowstone.Glowing() || Stone.Glowing() {
		t.Fatalf("glowing flags wrong")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("properties of an unregistered tag did not panic")
		}
	}()
	_ = Block(200).Properties()
}
