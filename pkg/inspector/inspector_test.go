package inspector

import (
	"encoding/json"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/tickrun/tickrun/pkg/core"
	"github.com/tickrun/tickrun/pkg/step"
)

func newTestInspector(t *testing.T) (*Inspector, *core.Registry, *core.ManualDriver) {
	t.Helper()
	registry := core.NewRegistry()
	driver := core.NewManualDriver()
	return New(":0", registry, WithLogger(core.NopLogger())), registry, driver
}

func serve(t *testing.T, handler fasthttp.RequestHandler, path string) *fasthttp.RequestCtx {
	t.Helper()
	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI(path)
	handler(&ctx)
	return &ctx
}

func TestInspector_Tasks(t *testing.T) {
	insp, registry, driver := newTestInspector(t)

	task, err := core.NewTask[int](step.Counter(3), driver, false,
		core.WithID[int]("counter-1"),
		core.WithLogger[int](core.NopLogger()),
		core.WithRegistry[int](registry))
	if err != nil {
		t.Fatalf("NewTask failed: %v", err)
	}
	if err := task.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	driver.Tick() // arm
	driver.Tick() // one step

	ctx := serve(t, insp.Handler(), "/tasks")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("Expected 200, got %d", ctx.Response.StatusCode())
	}
	if ct := string(ctx.Response.Header.ContentType()); ct != "application/json" {
		t.Errorf("Expected application/json, got %s", ct)
	}

	var infos []core.TaskInfo
	if err := json.Unmarshal(ctx.Response.Body(), &infos); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Expected 1 task in snapshot, got %d", len(infos))
	}
	if infos[0].ID != "counter-1" || !infos[0].Running || infos[0].Steps != 1 {
		t.Errorf("Unexpected snapshot entry: %+v", infos[0])
	}
}

func TestInspector_TasksEmpty(t *testing.T) {
	insp, _, _ := newTestInspector(t)

	ctx := serve(t, insp.Handler(), "/tasks")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("Expected 200, got %d", ctx.Response.StatusCode())
	}

	var infos []core.TaskInfo
	if err := json.Unmarshal(ctx.Response.Body(), &infos); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty snapshot, got %d entries", len(infos))
	}
}

func TestInspector_Healthz(t *testing.T) {
	insp, _, _ := newTestInspector(t)

	ctx := serve(t, insp.Handler(), "/healthz")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("Expected 200, got %d", ctx.Response.StatusCode())
	}
	if string(ctx.Response.Body()) != "ok" {
		t.Errorf("Expected body ok, got %q", ctx.Response.Body())
	}
}

func TestInspector_Metrics(t *testing.T) {
	insp, _, _ := newTestInspector(t)

	ctx := serve(t, insp.Handler(), "/metrics")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("Expected 200, got %d", ctx.Response.StatusCode())
	}
}

func TestInspector_NotFound(t *testing.T) {
	insp, _, _ := newTestInspector(t)

	ctx := serve(t, insp.Handler(), "/nope")
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Errorf("Expected 404, got %d", ctx.Response.StatusCode())
	}
}
