package main

import "habitforge/cmd/hf/root"

func main() {
	root.Execute()
}
