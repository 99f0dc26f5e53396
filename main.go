package main

import "github.com/hooklint/hooklint/cmd/hooklint"

func main() { hooklint.Execute() }
