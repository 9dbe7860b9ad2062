package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"gopkg.in/yaml.v3"
)

type testModule struct {
	id    ModuleID
	calls *[]string

	configureErr error
	provisionErr error
	validateErr  error
	startErr     error
}

func (m *testModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID:  m.id,
		New: func() Module { return m },
	}
}

func (m *testModule) record(step string) {
	if m.calls != nil {
		*m.calls = append(*m.calls, string(m.id)+":"+step)
	}
}

func (m *testModule) Configure(*yaml.Node) error {
	m.record("configure")
	return m.configureErr
}

func (m *testModule) Provision(*AppContext) error {
	m.record("provision")
	return m.provisionErr
}

func (m *testModule) Validate() error {
	m.record("validate")
	return m.validateErr
}

func (m *testModule) Start() error {
	m.record("start")
	return m.startErr
}

func (m *testModule) Stop(context.Context) error {
	m.record("stop")
	return nil
}

func newTestContext() *AppContext {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAppContext(logger, "/tmp/data")
}

func TestModuleID_Namespace(t *testing.T) {
	t.Parallel()
	if got := ModuleID("channel.discord").Namespace(); got != "channel" {
		t.Errorf("Namespace = %q, want channel", got)
	}
	if got := ModuleID("plain").Namespace(); got != "plain" {
		t.Errorf("Namespace = %q, want plain", got)
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	RegisterModule(&testModule{id: "channel.discord"})
	RegisterModule(&testModule{id: "channel.terminal"})
	RegisterModule(&testModule{id: "mcp.server"})

	if _, ok := GetModule("channel.discord"); !ok {
		t.Error("registered module not found")
	}
	if _, ok := GetModule("channel.slack"); ok {
		t.Error("unregistered module found")
	}

	channels := GetModulesByNamespace("channel")
	if len(channels) != 2 {
		t.Fatalf("namespace lookup returned %d modules, want 2", len(channels))
	}
	if channels[0].ID != "channel.discord" || channels[1].ID != "channel.terminal" {
		t.Errorf("namespace modules not sorted: %v, %v", channels[0].ID, channels[1].ID)
	}

	all := GetModules()
	if len(all) != 3 {
		t.Errorf("GetModules returned %d, want 3", len(all))
	}
}

func TestRegisterModule_DuplicatePanics(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	RegisterModule(&testModule{id: "dup"})
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration did not panic")
		}
	}()
	RegisterModule(&testModule{id: "dup"})
}

func TestLoadModule_LifecycleOrder(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&testModule{id: "mod.a", calls: &calls})

	configs := map[string]yaml.Node{}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte("key: value"), &node); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	configs["mod.a"] = node

	ctx := newTestContext().WithModuleConfigs(configs)
	if _, err := ctx.LoadModule("mod.a"); err != nil {
		t.Fatalf("LoadModule: %v", err)
	}

	want := []string{"mod.a:configure", "mod.a:provision", "mod.a:validate"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestLoadModule_ProvisionFailure(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	RegisterModule(&testModule{id: "mod.bad", provisionErr: errors.New("boom")})

	if _, err := newTestContext().LoadModule("mod.bad"); err == nil {
		t.Error("provision failure not surfaced")
	}
}

func TestApp_StartFailureStopsStarted(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&testModule{id: "mod.first", calls: &calls})
	RegisterModule(&testModule{id: "mod.broken", calls: &calls, startErr: errors.New("boom")})

	app := NewApp(newTestContext())
	if err := app.LoadModules([]string{"mod.first", "mod.broken"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err == nil {
		t.Fatal("Start succeeded despite broken module")
	}

	var sawFirstStop bool
	for _, c := range calls {
		if c == "mod.first:stop" {
			sawFirstStop = true
		}
	}
	if !sawFirstStop {
		t.Error("previously started module was not stopped after failure")
	}
}

func TestAppContext_Services(t *testing.T) {
	t.Parallel()
	ctx := newTestContext()

	if _, ok := ctx.Service("bridge"); ok {
		t.Error("unregistered service found")
	}
	ctx.RegisterService("bridge", "the-bridge")

	// Services are shared across module scopes.
	scoped := ctx.ForModule("channel.discord")
	svc, ok := scoped.Service("bridge")
	if !ok || svc != "the-bridge" {
		t.Errorf("scoped service = %v ok=%v", svc, ok)
	}
}
