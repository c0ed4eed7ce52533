package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"oxitortoise/internal/testutil"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.World.Width != 33 {
		t.Fatalf("unexpected world width: %d", AppConfig.World.Width)
	}
	if AppConfig.Server.ListenAddr != ":9191" {
		t.Fatalf("unexpected listen addr: %s", AppConfig.Server.ListenAddr)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("dev")
	if AppConfig.Logging.Level != "debug" {
		t.Fatalf("expected logging level debug, got %s", AppConfig.Logging.Level)
	}
	if AppConfig.Server.ListenAddr != "127.0.0.1:9191" {
		t.Fatalf("expected listen addr override")
	}
}

func TestLoadConfigFromIsolatedTree(t *testing.T) {
	ws := testutil.NewWorkspace(t)
	ws.Write("config/default.yaml", []byte("world:\n  width: 5\n  height: 7\n"))

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(ws.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.World.Width != 5 {
		t.Fatalf("expected world width 5, got %d", AppConfig.World.Width)
	}
	if AppConfig.World.Height != 7 {
		t.Fatalf("expected world height 7, got %d", AppConfig.World.Height)
	}
}
