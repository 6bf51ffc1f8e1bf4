package main

import (
	"github.com/gdg-garage/medislot-api/internal/cli"
)

func main() {
	cli.Execute()
}
