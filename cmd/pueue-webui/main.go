package main

import "github.com/michaelfortunato/pueue-webui/services/bridge/cli"

func main() {
	cli.Execute()
}
