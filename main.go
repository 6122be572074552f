package main

import "github.com/frahmantamala/reimbursement-management/cmd"

func main() {
	cmd.Execute()
}
