package utils

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var dumpedEnvPrefixes = []string{`SHARDCOMM_`, `CUDA_`}

// Dump writes the command line, the SHARDCOMM_ and CUDA_ variables and the
// addresses of every network interface to w, one item per line.
func Dump(w io.Writer) {
	for i, a := range os.Args {
		fmt.Fprintf(w, "[arg] %d: %s\n", i, a)
	}
	env := os.Environ()
	slices.Sort(env)
	for _, kv := range env {
		for _, p := range dumpedEnvPrefixes {
			if strings.HasPrefix(kv, p) {
				fmt.Fprintf(w, "[env] %s\n", kv)
			}
		}
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		fmt.Fprintf(w, "[nic] %v\n", err)
		return
	}
	for _, nic := range ifaces {
		addrs, _ := nic.Addrs()
		as := make([]string, len(addrs))
		for i, a := range addrs {
			as[i] = a.String()
		}
		fmt.Fprintf(w, "[nic] %s: %s\n", nic.Name, strings.Join(as, " "))
	}
}

func ProgName() string {
	if len(os.Args) == 0 {
		return ""
	}
	return filepath.Base(os.Args[0])
}
