//go:build windows

package processhost

import (
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// setProcessGroup starts the child in a new process group on Windows
// (spec §4.D Backend P). signalGroup below terminates only the root
// process; descendants are not signalled.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

func processAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == 259 // STILL_ACTIVE
}

// signalGroup terminates the process rooted at pid. Windows has no SIGTERM
// equivalent for arbitrary processes, so both the graceful and forceful
// paths call TerminateProcess; the grace period in backend_process.go still
// gives the agent CLI a chance to exit on its own first.
func signalGroup(pid int, force bool) {
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return
	}
	defer windows.CloseHandle(h)
	windows.TerminateProcess(h, 1)
}

// descendantPIDs returns every process descended from root (direct or
// indirect children), by walking a CreateToolhelp32Snapshot of the whole
// system process list (spec §4.G cleanup step (e): "scan for stray child
// processes... and report any").
func descendantPIDs(root int) []int {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil
	}
	defer windows.CloseHandle(snapshot)

	childrenOf := make(map[int][]int)
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32First(snapshot, &entry); err != nil {
		return nil
	}
	for {
		pid := int(entry.ProcessID)
		ppid := int(entry.ParentProcessID)
		childrenOf[ppid] = append(childrenOf[ppid], pid)
		if err := windows.Process32Next(snapshot, &entry); err != nil {
			break
		}
	}

	var descendants []int
	queue := []int{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, child := range childrenOf[parent] {
			descendants = append(descendants, child)
			queue = append(queue, child)
		}
	}
	return descendants
}
