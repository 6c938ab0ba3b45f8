package closefds

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"
)

func direntName(t *testing.T, s string) *[256]int8 {
	t.Helper()

	if len(s) >= 256 {
		t.Fatalf("Name %q too long for a directory entry", s)
	}

	var name [256]int8

	for i := 0; i < len(s); i++ {
		name[i] = int8(s[i])
	}

	return &name
}

func TestParseFdName(t *testing.T) {
	for _, tc := range []struct {
		name string
		want int
	}{
		{name: "0", want: 0},
		{name: "7", want: 7},
		{name: "27", want: 27},
		{name: "1023", want: 1023},
		{name: "", want: -1},
		{name: ".", want: -1},
		{name: "..", want: -1},
		{name: "1a", want: -1},
		{name: "a1", want: -1},
		{name: "-1", want: -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := parseFdName(direntName(t, tc.name))

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("parseFdName(%q) diff (-want +got):\n%s", tc.name, diff)
			}
		})
	}
}

func TestOpenFDDir(t *testing.T) {
	fd, err := openFDDir()
	if err != nil {
		t.Fatalf("openFDDir() failed: %v", err)
	}

	t.Cleanup(func() { unix.Close(fd) })

	if !getCloseOnExec(t, uintptr(fd)) {
		t.Error("Expected the fd directory descriptor to carry close-on-exec")
	}
}
