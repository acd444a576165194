package rootfs

import (
	"strings"
	"testing"
)

func TestDescriptor_Validate(t *testing.T) {
	for _, tc := range []struct {
		name string
		d    Descriptor
		ok   bool
	}{
		{"overlay", Descriptor{Overlay: &Overlay{LowerDirs: []string{"/a"}}}, true},
		{"tmpfs", Descriptor{Tmpfs: &Tmpfs{SizeLimit: 1 << 20}}, true},
		{"tmpfs unbounded", Descriptor{Tmpfs: &Tmpfs{}}, true},
		{"none", Descriptor{}, false},
		{"both", Descriptor{Overlay: &Overlay{LowerDirs: []string{"/a"}}, Tmpfs: &Tmpfs{}}, false},
		{"overlay no layers", Descriptor{Overlay: &Overlay{}}, false},
		{"overlay empty layer", Descriptor{Overlay: &Overlay{LowerDirs: []string{""}}}, false},
		{"tmpfs negative", Descriptor{Tmpfs: &Tmpfs{SizeLimit: -1}}, false},
	} {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestOverlayData_Order(t *testing.T) {
	// layers are listed lowest first; lowerdir wants highest first
	data := overlayData([]string{"/l/a", "/l/b"}, "/u", "/w")
	want := "lowerdir=/l/b:/l/a,upperdir=/u,workdir=/w"
	if data != want {
		t.Errorf("overlay data = %q, want %q", data, want)
	}
}

func TestTmpfsData(t *testing.T) {
	if got := tmpfsData(0); got != "" {
		t.Errorf("unbounded tmpfs data = %q", got)
	}
	if got := tmpfsData(64 << 20); got != "size=67108864" {
		t.Errorf("tmpfs data = %q", got)
	}
}

func TestParseSize(t *testing.T) {
	n, err := ParseSize("64m")
	if err != nil {
		t.Fatalf("parse size: %v", err)
	}
	if n != 64<<20 {
		t.Errorf("parse size = %d, want %d", n, 64<<20)
	}
	if _, err := ParseSize("many"); err == nil {
		t.Errorf("expected error for bad size")
	}
}

func TestDescriptor_String(t *testing.T) {
	d := Descriptor{Tmpfs: &Tmpfs{SizeLimit: 64 << 20}}
	if s := d.String(); !strings.Contains(s, "tmpfs") {
		t.Errorf("unexpected string: %s", s)
	}
	o := Descriptor{Overlay: &Overlay{LowerDirs: []string{"/a", "/b"}}}
	if s := o.String(); !strings.Contains(s, "2 layers") {
		t.Errorf("unexpected string: %s", s)
	}
}
