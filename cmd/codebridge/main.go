// Command codebridge bridges the MCP stdio tool protocol to the code
// analysis backend's HTTP API, streaming progress for long-running
// operations over SSE.
package main

import (
	"log"
	"os"

	"github.com/viant/codebridge/bridge"
)

func main() {
	if err := bridge.Run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
