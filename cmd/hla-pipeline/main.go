package main

import "github.com/dsugurtuna/hla-pipeline-manager/cmd/hla-pipeline/cmd"

func main() {
	cmd.Run()
}
