// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/fvttdev/fvttdev/cmd/fvttdev"

func main() {
	cmd.Execute()
}
