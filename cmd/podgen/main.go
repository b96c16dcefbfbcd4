// Command podgen renders a Kubernetes Pod manifest from a CI job file.
package main

import "github.com/cameronsjo/podgen/internal/cmd"

func main() {
	cmd.Execute()
}
