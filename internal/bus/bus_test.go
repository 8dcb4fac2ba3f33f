package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPidManagerBasics(t *testing.T) {
	pm := &pidManager{path: filepath.Join(t.TempDir(), PidName)}

	t.Run("create and remove PID file", func(t *testing.T) {
		if err := pm.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		pidData, err := os.ReadFile(pm.path)
		if err != nil {
			t.Fatalf("failed to read PID file: %v", err)
		}
		if want := strconv.Itoa(os.Getpid()); string(pidData) != want {
			t.Errorf("PID file contains %q, expected %q", string(pidData), want)
		}

		if err := pm.remove(); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, err := os.Stat(pm.path); !os.IsNotExist(err) {
			t.Error("PID file should not exist after removal")
		}
		if err := pm.remove(); err != nil {
			t.Errorf("removing a missing PID file should not fail: %v", err)
		}
	})

	t.Run("checkExisting with no PID file", func(t *testing.T) {
		if err := pm.checkExisting(); err != nil {
			t.Errorf("checkExisting should not error when no PID file exists: %v", err)
		}
	})

	t.Run("checkExisting with live process", func(t *testing.T) {
		if err := pm.create(); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		defer pm.remove()

		if err := pm.checkExisting(); err == nil {
			t.Error("checkExisting should fail when process is running")
		}
	})

	for _, content := range []string{"99999999", "invalid"} {
		t.Run("checkExisting removes "+content, func(t *testing.T) {
			if err := os.WriteFile(pm.path, []byte(content), 0o600); err != nil {
				t.Fatalf("failed to write PID file: %v", err)
			}
			if err := pm.checkExisting(); err != nil {
				t.Errorf("checkExisting should succeed: %v", err)
			}
			if _, err := os.Stat(pm.path); !os.IsNotExist(err) {
				t.Error("stale PID file should be removed")
			}
		})
	}
}

func TestIsProcessAlive(t *testing.T) {
	pm := &pidManager{}

	if !pm.isProcessAlive(os.Getpid()) {
		t.Error("current process should be alive")
	}
	if pm.isProcessAlive(99999999) {
		t.Error("non-existent process should not be alive")
	}
	if pm.isProcessAlive(0) || pm.isProcessAlive(-1) {
		t.Error("non-positive PIDs should not be alive")
	}
}

func TestSocketManager_DialWithoutListener(t *testing.T) {
	sm := &socketManager{path: filepath.Join(t.TempDir(), SockName)}

	if _, err := sm.dial(); err == nil {
		t.Error("dial should fail when no listener exists")
	}
}

func TestSocketManager_ReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), SockName)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	sm := &socketManager{path: path}
	ln, err := sm.listen()
	if err != nil {
		t.Fatalf("listen over stale socket failed: %v", err)
	}
	ln.Close()
}

// serve answers each connection with reply(cmd).
func serve(t *testing.T, b *Bus, reply func(cmd byte) string) {
	t.Helper()

	ln, err := b.Listen()
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				line, err := bufio.NewReader(c).ReadString('\n')
				if err != nil || len(line) == 0 {
					return
				}
				fmt.Fprint(c, reply(line[0])+"\n")
			}(conn)
		}
	}()
}

func TestSendCommand(t *testing.T) {
	b := New(t.TempDir())
	serve(t, b, func(cmd byte) string {
		switch cmd {
		case CmdStatus:
			return "STATUS online=false queue=0/256"
		case CmdVersion:
			return "STATUS proto=" + ProtoVer
		case CmdOnline:
			return "OK online"
		case CmdOffline:
			return "OK offline"
		case CmdQuit:
			return "OK quitting"
		default:
			return fmt.Sprintf("ERR unknown=%q", cmd)
		}
	})

	tests := []struct {
		cmd  byte
		want string
	}{
		{CmdStatus, "STATUS online=false queue=0/256"},
		{CmdVersion, "STATUS proto=" + ProtoVer},
		{CmdOnline, "OK online"},
		{CmdOffline, "OK offline"},
		{CmdQuit, "OK quitting"},
		{'x', "ERR unknown='x'"},
	}

	for _, tt := range tests {
		t.Run(string(tt.cmd), func(t *testing.T) {
			got, err := b.SendCommand(tt.cmd)
			if err != nil {
				t.Fatalf("SendCommand(%c) error: %v", tt.cmd, err)
			}
			if got != tt.want {
				t.Errorf("SendCommand(%c) = %q, want %q", tt.cmd, got, tt.want)
			}
		})
	}
}

func TestSendCommand_NotRunning(t *testing.T) {
	b := New(t.TempDir())

	_, err := b.SendCommand(CmdStatus)
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("SendCommand() error = %v, want ErrNotRunning", err)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	b, err := Default()
	if err != nil {
		t.Fatalf("Default() error: %v", err)
	}
	if filepath.Base(b.SockPath()) != SockName || filepath.Base(filepath.Dir(b.SockPath())) != "sttbridge" {
		t.Errorf("SockPath() = %q", b.SockPath())
	}
	if filepath.Base(b.PidPath()) != PidName {
		t.Errorf("PidPath() = %q", b.PidPath())
	}
}
