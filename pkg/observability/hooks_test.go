package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	s := NoopStageHooks{}
	s.OnStackStart(ctx, "planecut", 10)
	s.OnStackComplete(ctx, "planecut", 7, time.Second, nil)
	s.OnFragmentComplete(ctx, "column", 11, time.Second, nil)
	s.OnPairComplete(ctx, "column", 4, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "stack")
	c.OnCacheMiss(ctx, "stack")
	c.OnCacheSet(ctx, "stack", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Stage().(NoopStageHooks); !ok {
		t.Error("Stage() should return NoopStageHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customStage := &testStageHooks{}
	SetStageHooks(customStage)
	if Stage() != customStage {
		t.Error("SetStageHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Stage().(NoopStageHooks); !ok {
		t.Error("Reset() should restore NoopStageHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testStageHooks{}
	SetStageHooks(custom)
	SetStageHooks(nil)
	if Stage() != custom {
		t.Error("SetStageHooks(nil) should be ignored")
	}
}

type testStageHooks struct{ NoopStageHooks }
type testCacheHooks struct{ NoopCacheHooks }
