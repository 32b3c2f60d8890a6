package debug

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

func init() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
}

//
// Debug output is controlled by the SIMDEBUG environment variable,
// which can be a list of labels (e.g., "SIM;PLACE").
//

var (
	labels     map[Tselector]bool
	labelsOnce sync.Once
	progname   string
)

func debugLabels() map[Tselector]bool {
	labelsOnce.Do(func() {
		progname = filepath.Base(os.Args[0])
		labels = make(map[Tselector]bool)
		s := os.Getenv("SIMDEBUG")
		if s == "" {
			return
		}
		for _, l := range strings.Split(s, ";") {
			labels[Tselector(l)] = true
		}
	})
	return labels
}

func WillBePrinted(label Tselector) bool {
	m := debugLabels()
	return m[label] || label == ALWAYS
}

func DPrintf(label Tselector, format string, v ...interface{}) {
	if WillBePrinted(label) {
		log.Printf("%v %v %v", progname, label, fmt.Sprintf(format, v...))
	}
}

func DFatalf(format string, v ...interface{}) {
	debugLabels()
	// Get info for the caller.
	pc, file, line, ok := runtime.Caller(1)
	fnDetails := runtime.FuncForPC(pc)
	if ok && fnDetails != nil {
		log.Fatalf("FATAL %v %v %v:%v %v", progname, fnDetails.Name(), file, line, fmt.Sprintf(format, v...))
	} else {
		log.Fatalf("FATAL %v (missing details) %v", progname, fmt.Sprintf(format, v...))
	}
}
