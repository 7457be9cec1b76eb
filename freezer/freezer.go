// Package freezer manages a cgroup v2 freezer subtree used to pause
// non-essential processes during a benchmark run, and optionally asks
// KWin to suspend compositing over DBus for the duration.
package freezer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	cgroupRoot   = "/sys/fs/cgroup"
	freezeDir    = "benchmark_freeze"
	kwinDest     = "org.kde.KWin"
	kwinPath     = "/org/kde/KWin"
	kwinIface    = "org.kde.KWin"
)

// Freezer owns the benchmark_freeze cgroup for the duration of a run.
type Freezer struct {
	dir           string
	selfPID       int
	parentPID     int
	grandparentPID int
	compositingDisabled bool
}

// New prepares (but does not yet create) a Freezer for the calling
// process's ancestry chain.
func New() *Freezer {
	self := os.Getpid()
	parent := os.Getppid()
	grandparent := 0
	if p, err := process.NewProcess(int32(parent)); err == nil {
		if gp, err := p.Ppid(); err == nil {
			grandparent = int(gp)
		}
	}
	return &Freezer{
		dir:            filepath.Join(cgroupRoot, freezeDir),
		selfPID:        self,
		parentPID:      parent,
		grandparentPID: grandparent,
	}
}

// Setup creates the cgroup directory and enables the freezer controller
// in the parent's subtree_control. It migrates no processes; that is
// MigrateEligible's job.
func (f *Freezer) Setup() error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("create freezer cgroup: %w", err)
	}
	subtreeControl := filepath.Join(cgroupRoot, "cgroup.subtree_control")
	if err := appendControl(subtreeControl, "+freezer"); err != nil {
		return fmt.Errorf("enable freezer controller: %w", err)
	}
	return nil
}

func appendControl(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(value)
	return err
}

// MigrateEligible moves every process on the host into the freezer
// cgroup except PID 1, the caller, its parent and grandparent, and
// kernel threads (identified by VmPeak == 0). Per-PID migration
// failures are logged by the caller via the returned warnings slice,
// never treated as fatal.
func (f *Freezer) MigrateEligible() (warnings []string) {
	procsFile := filepath.Join(f.dir, "cgroup.procs")
	handle, err := os.OpenFile(procsFile, os.O_WRONLY, 0)
	if err != nil {
		return []string{fmt.Sprintf("open cgroup.procs: %v", err)}
	}
	defer handle.Close()

	procs, err := process.Processes()
	if err != nil {
		return []string{fmt.Sprintf("enumerate processes: %v", err)}
	}
	for _, p := range procs {
		pid := int(p.Pid)
		if f.excluded(pid) || isKernelThread(pid) {
			continue
		}
		if _, err := handle.WriteString(strconv.Itoa(pid)); err != nil {
			warnings = append(warnings, fmt.Sprintf("migrate pid %d: %v", pid, err))
		}
	}
	return warnings
}

func (f *Freezer) excluded(pid int) bool {
	return pid == 1 || pid == f.selfPID || pid == f.parentPID || pid == f.grandparentPID
}

func isKernelThread(pid int) bool {
	raw, err := os.ReadFile(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(line, "VmPeak:") {
			fields := strings.Fields(strings.TrimPrefix(line, "VmPeak:"))
			return len(fields) == 0 || fields[0] == "0"
		}
	}
	return true // no VmPeak line at all: kernel thread
}

// Freeze writes 1 to cgroup.freeze, pausing every migrated process, and
// best-effort asks KWin to suspend compositing.
func (f *Freezer) Freeze() error {
	if err := os.WriteFile(filepath.Join(f.dir, "cgroup.freeze"), []byte("1"), 0644); err != nil {
		return fmt.Errorf("freeze cgroup: %w", err)
	}
	f.compositingDisabled = suspendCompositing()
	return nil
}

// Thaw writes 0 to cgroup.freeze and resumes compositing if this
// Freezer suspended it.
func (f *Freezer) Thaw() error {
	if f.compositingDisabled {
		resumeCompositing()
		f.compositingDisabled = false
	}
	return os.WriteFile(filepath.Join(f.dir, "cgroup.freeze"), []byte("0"), 0644)
}

// EmergencyThaw is the Watchdog's teardown path: a single raw write to
// the known cgroup.freeze path, bypassing any in-process state.
func EmergencyThaw(cgroupDir string) error {
	return os.WriteFile(filepath.Join(cgroupDir, "cgroup.freeze"), []byte("0"), 0644)
}

// Cleanup thaws (idempotent if already thawed) and removes the cgroup
// directory.
func (f *Freezer) Cleanup() error {
	_ = f.Thaw()
	return os.RemoveAll(f.dir)
}

// Dir returns the cgroup directory this Freezer manages, for the
// Watchdog's emergency-thaw path.
func (f *Freezer) Dir() string {
	return f.dir
}

func suspendCompositing() bool {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return false
	}
	defer conn.Close()
	obj := conn.Object(kwinDest, dbus.ObjectPath(kwinPath))
	call := obj.Call(kwinIface+".suspendCompositing", 0)
	return call.Err == nil
}

func resumeCompositing() {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return
	}
	defer conn.Close()
	obj := conn.Object(kwinDest, dbus.ObjectPath(kwinPath))
	obj.Call(kwinIface+".resumeCompositing", 0)
}
