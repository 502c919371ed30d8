package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	i := NoopImportHooks{}
	i.OnParseStart(ctx, "car.mpd")
	i.OnParseComplete(ctx, "car.mpd", 120, time.Second, nil)
	i.OnMeasure(ctx, "part:3001.dat", 256, time.Millisecond, nil)
	i.OnLayoutStart(ctx, 12)
	i.OnLayoutComplete(ctx, 12, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "measure")
	c.OnCacheMiss(ctx, "measure")
	c.OnCacheSet(ctx, "measure", 64)

	e := NoopEditHooks{}
	e.OnCommand(ctx, "merge_step", true, nil)
}

type testImportHooks struct{ NoopImportHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testEditHooks struct{ NoopEditHooks }

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Import().(NoopImportHooks); !ok {
		t.Error("Import() should return NoopImportHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Edit().(NoopEditHooks); !ok {
		t.Error("Edit() should return NoopEditHooks by default")
	}

	customImport := &testImportHooks{}
	SetImportHooks(customImport)
	if Import() != customImport {
		t.Error("SetImportHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customEdit := &testEditHooks{}
	SetEditHooks(customEdit)
	if Edit() != customEdit {
		t.Error("SetEditHooks should set custom hooks")
	}

	// nil is ignored
	SetImportHooks(nil)
	if Import() != customImport {
		t.Error("SetImportHooks(nil) should keep existing hooks")
	}

	Reset()
	if _, ok := Import().(NoopImportHooks); !ok {
		t.Error("Reset should restore defaults")
	}
}
