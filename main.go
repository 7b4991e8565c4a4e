package main

import (
	"etl-verify/cmd"
)

func main() {
	cmd.Execute()
}
