package main

import "epubsync/cmd/epubsync/cmd"

func main() {
	cmd.Execute()
}
