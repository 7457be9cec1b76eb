// Package smi reads the Intel System Management Interrupt counter from
// IA32_SMI_COUNT (MSR 0x34) and correlates it with observed latency
// spikes.
package smi

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const (
	smiMsrOffset = 0x34
	msrDevicePathFmt = "/dev/cpu/%d/msr"
)

// IsIntelCPU inspects /proc/cpuinfo's vendor_id field. The SMI counter
// is an Intel-specific MSR; on other vendors the reader degrades to
// disabled rather than erroring.
func IsIntelCPU() bool {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "vendor_id") && strings.Contains(line, "GenuineIntel") {
			return true
		}
	}
	return false
}

func ensureMsrModuleLoaded(cpuID int) error {
	path := fmt.Sprintf(msrDevicePathFmt, cpuID)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := exec.Command("modprobe", "msr").Run(); err != nil {
		return fmt.Errorf("modprobe msr: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("msr device still absent after modprobe: %w", err)
	}
	return nil
}

// Reader reads IA32_SMI_COUNT for one logical CPU. A Reader whose
// Handle is nil is disabled: every read returns (0, false) rather than
// an error, matching spec.md's "degrade, don't fail" guidance for
// optional diagnostic capabilities.
type Reader struct {
	cpuID  int
	handle *os.File
}

// NewReader opens /dev/cpu/{cpuID}/msr for reading. If the CPU is not
// Intel, or the msr module cannot be loaded, or the open fails for
// permission reasons, it returns a disabled Reader and a diagnostic
// message rather than an error — callers run in Pure mode instead.
func NewReader(cpuID int) (*Reader, string) {
	if !IsIntelCPU() {
		return &Reader{cpuID: cpuID}, "smi reader disabled: non-Intel CPU"
	}
	if err := ensureMsrModuleLoaded(cpuID); err != nil {
		return &Reader{cpuID: cpuID}, fmt.Sprintf("smi reader disabled: %v (try: modprobe msr)", err)
	}
	f, err := os.Open(fmt.Sprintf(msrDevicePathFmt, cpuID))
	if err != nil {
		return &Reader{cpuID: cpuID}, fmt.Sprintf("smi reader disabled: %v (need CAP_SYS_RAWIO or root)", err)
	}
	return &Reader{cpuID: cpuID, handle: f}, ""
}

// Available reports whether this reader can actually read the MSR.
func (r *Reader) Available() bool {
	return r.handle != nil
}

// ReadSmiCount reads IA32_SMI_COUNT as a little-endian u64 at offset
// 0x34. ok is false when the reader is disabled or the read fails.
func (r *Reader) ReadSmiCount() (count uint64, ok bool) {
	if r.handle == nil {
		return 0, false
	}
	buf := make([]byte, 8)
	if _, err := r.handle.ReadAt(buf, smiMsrOffset); err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint64(buf), true
}

// Close releases the MSR device handle, if any.
func (r *Reader) Close() error {
	if r.handle == nil {
		return nil
	}
	return r.handle.Close()
}
