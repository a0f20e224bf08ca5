// Command vmstore exercises the backing stores of a demand-paged virtual
// memory system.
package main

import "github.com/sarchlab/vmstore/vmstore/cmd"

func main() {
	cmd.Execute()
}
