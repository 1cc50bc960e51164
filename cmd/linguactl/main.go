// Command linguactl signs in to a lingua server from the terminal and keeps
// the session in a local file.
package main

import (
	"os"

	"github.com/Abraxas-365/lingua/pkg/logx"
)

func main() {
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
