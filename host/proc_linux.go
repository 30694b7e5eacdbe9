package host

import "syscall"

// sysProcAttr asks the kernel to kill the child if the host dies without cleaning up.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Pdeathsig: syscall.SIGKILL,
	}
}
