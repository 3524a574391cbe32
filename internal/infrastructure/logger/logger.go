package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

const logFlags = log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

var (
	mu     sync.Mutex
	output io.Writer = os.Stdout
	level            = "info"
)

func init() {
	Info = log.New(os.Stdout, "INFO: ", logFlags)
	Error = log.New(os.Stdout, "ERROR: ", logFlags)
	Debug = log.New(io.Discard, "DEBUG: ", logFlags)
	Warn = log.New(os.Stdout, "WARN: ", logFlags)
}

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// SetLevel silences every logger below the named level.
func SetLevel(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "info"
	}
	if _, ok := levelRank[name]; !ok {
		return fmt.Errorf("unknown log level %q", name)
	}

	mu.Lock()
	defer mu.Unlock()
	level = name
	apply()
	return nil
}

// SetOutput redirects every enabled logger to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	apply()
}

func apply() {
	min := levelRank[level]
	for name, l := range map[string]*log.Logger{"debug": Debug, "info": Info, "warn": Warn, "error": Error} {
		if levelRank[name] < min {
			l.SetOutput(io.Discard)
			continue
		}
		l.SetOutput(output)
	}
}
