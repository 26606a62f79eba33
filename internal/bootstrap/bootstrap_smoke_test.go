package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T) {
	t.Helper()

	tmp := t.TempDir()
	yaml := fmt.Sprintf(`server:
  port: 18080
  auth:
    enabled: false
log:
  log_level: error
  log_dir: %q
web:
  enabled: false
redis:
  enabled: false
storage:
  dir: %q
`, filepath.Join(tmp, "logs"), tmp)

	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
}

func TestInitGraphOrder(t *testing.T) {
	steps := initGraph()
	want := []string{
		"config:load",
		"logging:init",
		"storage:open",
		"broadcast:init",
		"translation:init",
		"session:init-registry",
		"transport:init",
	}
	if len(steps) != len(want) {
		t.Fatalf("unexpected step count: got %d want %d", len(steps), len(want))
	}
	for i, step := range steps {
		if step.ID != want[i] {
			t.Fatalf("step %d mismatch: got %s want %s", i, step.ID, want[i])
		}
	}
}

func TestExecuteInitGraph(t *testing.T) {
	writeTestConfig(t)

	state := &appState{}
	if err := executeInitSteps(context.Background(), initGraph(), state); err != nil {
		t.Fatalf("executeInitSteps failed: %v", err)
	}
	defer state.logger.Close()

	if state.config == nil {
		t.Fatal("config is nil after init")
	}
	if state.config.Server.Port != 18080 {
		t.Errorf("port = %d", state.config.Server.Port)
	}
	if state.storage == nil {
		t.Fatal("storage is nil after init")
	}
	if state.broadcaster == nil {
		t.Fatal("broadcaster is nil after init")
	}
	if state.translator != nil {
		t.Error("translator must stay nil without an api key")
	}
	if state.registry == nil {
		t.Fatal("registry is nil after init")
	}
	if state.wsServer == nil {
		t.Fatal("websocket server is nil after init")
	}
	if state.apiServer != nil {
		t.Error("api server must stay nil when web is disabled")
	}
}
