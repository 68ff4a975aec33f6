package main

import "github.com/luinbytes/image-auditor/cmd"

func main() {
	cmd.Execute()
}
