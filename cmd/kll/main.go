package main

import "github.com/YINDEEINDY/KodLaewLong-sub000/pkg/cli"

func main() {
	cli.Execute()
}
