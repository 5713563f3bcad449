// Package host describes the process that invoked buildinstr, to tell a
// build driver from an interactive shell.
package host

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Info describes a process and its parent
type Info struct {
	PID        int32
	PPID       int32
	ParentName string
	ParentCmd  string
}

// driverNames are parent process names that read build directives
var driverNames = []string{"cargo", "build-script-build"}

// driverEnv are environment variables Cargo sets for build scripts
var driverEnv = []string{"CARGO", "OUT_DIR", "CARGO_MANIFEST_DIR"}

// Describe returns Info for pid. Fields that cannot be read (the parent may
// already be gone) stay empty.
func Describe(pid int32) Info {
	info := Info{PID: pid}

	p, err := process.NewProcess(pid)
	if err != nil {
		return info
	}

	if ppid, err := p.Ppid(); err == nil {
		info.PPID = ppid
	}
	if info.PPID <= 0 {
		return info
	}

	parent, err := process.NewProcess(info.PPID)
	if err != nil {
		return info
	}
	if name, err := parent.Name(); err == nil {
		info.ParentName = name
	}
	if cmdline, err := parent.Cmdline(); err == nil {
		info.ParentCmd = cmdline
	}
	return info
}

// Self describes the current process
func Self() Info {
	return Describe(int32(os.Getpid()))
}

// UnderDriver reports whether the parent looks like a build driver
func (i Info) UnderDriver() bool {
	name := strings.TrimSuffix(filepath.Base(i.ParentName), ".exe")
	for _, driver := range driverNames {
		if name == driver || strings.HasPrefix(name, driver+"-") {
			return true
		}
	}
	return false
}

// DriverEnv returns the first Cargo build script variable set in the
// environment, or "" if none is
func DriverEnv(lookup func(string) (string, bool)) string {
	for _, key := range driverEnv {
		if _, ok := lookup(key); ok {
			return key
		}
	}
	return ""
}

// UnderCargo reports whether directives written now are likely read by Cargo
func UnderCargo() bool {
	return DriverEnv(os.LookupEnv) != "" || Self().UnderDriver()
}
