package main

import "github.com/goplus/cyext/cmd/cyext/internal"

func main() {
	internal.Execute()
}
