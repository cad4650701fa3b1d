package main

import "github.com/andresmejia3/biopass/cmd"

func main() {
	cmd.Execute()
}
