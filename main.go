package main

import "github.com/surge-downloader/gamedash/cmd"

func main() {
	cmd.Execute()
}
