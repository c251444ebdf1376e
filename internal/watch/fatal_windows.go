// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// fatalErrnos mark a ReadDirectoryChangesW watcher that cannot recover:
// ERROR_TOO_MANY_OPEN_FILES, ERROR_INVALID_HANDLE (watched directory removed)
// and ERROR_NOT_ENOUGH_MEMORY.
var fatalErrnos = []syscall.Errno{4, 6, 8}

// recoverableErrnos are reported and skipped: ERROR_FILE_NOT_FOUND and
// ERROR_ACCESS_DENIED.
var recoverableErrnos = []syscall.Errno{2, 5}
