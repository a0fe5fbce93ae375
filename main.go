package main

import "github.com/JayjeetAtGithub/blackswan-baseliner/cmd"

func main() {
	cmd.Execute()
}
