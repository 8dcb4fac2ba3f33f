// Package bus is the local control channel of a running daemon: a pid file
// and a unix socket speaking one-byte commands.
package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	SockName = "control.sock"
	PidName  = "sttbridge.pid"
	ProtoVer = "0.1"
)

// Control commands, each sent as a single byte followed by a newline.
const (
	CmdStatus  byte = 's'
	CmdVersion byte = 'v'
	CmdQuit    byte = 'q'
	CmdOnline  byte = 'o'
	CmdOffline byte = 'f'
)

// ErrNotRunning is returned by SendCommand when no daemon listens on the socket.
var ErrNotRunning = errors.New("daemon is not running")

// Bus locates the pid file and control socket of one daemon.
type Bus struct {
	pid  pidManager
	sock socketManager
}

// New places the pid file and socket in dir.
func New(dir string) *Bus {
	return &Bus{
		pid:  pidManager{path: filepath.Join(dir, PidName)},
		sock: socketManager{path: filepath.Join(dir, SockName)},
	}
}

// Default uses ~/.cache/sttbridge.
func Default() (*Bus, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return New(filepath.Join(dir, "sttbridge")), nil
}

func (b *Bus) SockPath() string { return b.sock.path }
func (b *Bus) PidPath() string  { return b.pid.path }

// CheckExisting fails when another live daemon owns the pid file. Stale
// or unreadable pid files are removed.
func (b *Bus) CheckExisting() error { return b.pid.checkExisting() }
func (b *Bus) CreatePidFile() error { return b.pid.create() }
func (b *Bus) RemovePidFile() error { return b.pid.remove() }

func (b *Bus) Listen() (net.Listener, error) {
	return b.sock.listen()
}

// SendCommand sends cmd and returns the single-line reply without its
// trailing newline.
func (b *Bus) SendCommand(cmd byte) (string, error) {
	c, err := b.sock.dial()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	resp, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(resp, "\n"), nil
}

type pidManager struct {
	path string
}

func (p *pidManager) create() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p *pidManager) remove() error {
	err := os.Remove(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (p *pidManager) checkExisting() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !p.isProcessAlive(pid) {
		return p.remove()
	}
	if pid == os.Getpid() {
		return fmt.Errorf("daemon already running in this process (PID %d)", pid)
	}
	return fmt.Errorf("daemon already running with PID %d", pid)
}

func (p *pidManager) isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

type socketManager struct {
	path string
}

func (s *socketManager) listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(s.path) // stale socket from last run
	return net.Listen("unix", s.path)
}

func (s *socketManager) dial() (net.Conn, error) {
	return net.DialTimeout("unix", s.path, 2*time.Second)
}
