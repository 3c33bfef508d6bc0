package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("NullCache.Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}

	if err := c.Set(ctx, "a", []byte("alpha"), 0); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "a")
	if err != nil || !hit || string(data) != "alpha" {
		t.Fatalf("Get(a) = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "old"); hit {
		t.Error("expired entry was returned")
	}

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("deleted entry was returned")
	}
	if err := c.Delete(ctx, "never"); err != nil {
		t.Errorf("Delete(missing) = %v", err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Fatalf("Clear() = %d, %v; want 3", n, err)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("%d entries left in cache dir", len(entries))
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	type report struct {
		Method string
		Ghosts []int
	}
	in := report{Method: "planecut", Ghosts: []int{3, 4}}
	if err := c.Set(ctx, "k", []byte(`{"Method":"planecut","Ghosts":[3,4]}`), TTLStack); err != nil {
		t.Fatal(err)
	}
	var out report
	hit, err := GetJSON(ctx, c, "k", &out)
	if err != nil || !hit {
		t.Fatalf("GetJSON = %v, %v", hit, err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if err := c.Set(ctx, "bad", []byte("{"), 0); err != nil {
		t.Fatal(err)
	}
	hit, err = GetJSON(ctx, c, "bad", &out)
	if hit || !errors.Is(err, ErrCorrupt) {
		t.Errorf("GetJSON(corrupt) = %v, %v; want ErrCorrupt", hit, err)
	}
	if _, hit, _ := c.Get(ctx, "bad"); hit {
		t.Error("corrupt entry was not deleted")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestHashEncoded(t *testing.T) {
	got, err := HashEncoded(func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	})
	if err != nil || got != Hash([]byte("hello")) {
		t.Errorf("HashEncoded = %q, %v; want Hash of the written bytes", got, err)
	}

	boom := errors.New("boom")
	if _, err := HashEncoded(func(io.Writer) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("HashEncoded error = %v, want %v", err, boom)
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	box := []float64{0, 0, 0, 4, 4, 4}

	a := k.StackKey("bed1", StackKeyOpts{Container: box, Method: "planecut"})
	if a != k.StackKey("bed1", StackKeyOpts{Container: box, Method: "planecut"}) {
		t.Error("StackKey should be deterministic")
	}
	for name, other := range map[string]string{
		"method":    k.StackKey("bed1", StackKeyOpts{Container: box, Method: "volumecut"}),
		"container": k.StackKey("bed1", StackKeyOpts{Container: []float64{0, 0, 0, 4, 4, 5}, Method: "planecut"}),
		"bed":       k.StackKey("bed2", StackKeyOpts{Container: box, Method: "planecut"}),
		"axes":      k.StackKey("bed1", StackKeyOpts{Container: box, Method: "planecut", Axes: "xy"}),
	} {
		if other == a {
			t.Errorf("different %s should produce a different key", name)
		}
	}
	if a[:6] != "stack:" {
		t.Errorf("StackKey prefix: %s", a)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	opts := StackKeyOpts{Method: "all"}
	scoped := NewScopedKeyer(inner, "analytic:")
	if got, want := scoped.StackKey("h", opts), "analytic:"+inner.StackKey("h", opts); got != want {
		t.Errorf("ScopedKeyer StackKey = %s, want %s", got, want)
	}
	if got := NewScopedKeyer(nil, "p:").StackKey("h", opts); got != "p:"+inner.StackKey("h", opts) {
		t.Errorf("nil inner keyer: %s", got)
	}
}
