// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/scriptexec/cmd/scriptexec"

func main() {
	cmd.Execute()
}
