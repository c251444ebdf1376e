// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// fatalErrnos mark an inotify watcher that cannot recover: the watch limit
// (fs.inotify.max_user_watches) or a descriptor limit was hit.
var fatalErrnos = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}

// recoverableErrnos are reported and skipped.
var recoverableErrnos = []syscall.Errno{syscall.EPERM, syscall.EACCES, syscall.ENOENT}
