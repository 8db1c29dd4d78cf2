package assert

import (
	"fmt"
	"os"
	"runtime"
)

func perror(name, loc string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed at %s: %+v\n", name, loc, err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s failed at %s\n", name, loc)
}

func OK(err error) {
	if err != nil {
		_, fn, line, _ := runtime.Caller(1)
		perror(`assertOK`, fmt.Sprintf("%s:%d", fn, line), err)
		os.Exit(1)
	}
}

func True(ok bool) {
	if !ok {
		_, fn, line, _ := runtime.Caller(1)
		perror(`assertTrue`, fmt.Sprintf("%s:%d", fn, line), nil)
		os.Exit(1)
	}
}
