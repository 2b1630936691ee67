package cmds

import (
	"flag"
	"os"
	"strings"
)

// ParseLoggingArgs parses the glog flags from s, e.g. "-logtostderr=true
// -v=2".
func ParseLoggingArgs(s string) {
	args := make([]string, 1, 12)
	args[0] = os.Args[0]
	args = append(args, strings.Fields(s)...)
	orgArgs := os.Args
	os.Args = args
	flag.Parse()
	os.Args = orgArgs
}
