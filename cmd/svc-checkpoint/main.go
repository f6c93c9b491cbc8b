package main

import "github.com/architeacher/checkpoint/internal/runtime"

func main() {
	runtime.New().Run()
}
