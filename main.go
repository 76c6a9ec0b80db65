package main

import "github.com/Yarin78/morphy-sub004/dbcli"

func main() {
	dbcli.Execute()
}
