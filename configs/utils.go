package configs

import (
	"fmt"
	"github.com/goccy/go-json"
	"github.com/tidwall/pretty"
	"log"
	"strconv"
	"time"
)

// NodePrintf logs a line keyed by node id, gated by ShowDebugInfo. This is
// the per-node equivalent of the teacher's per-txn TxnPrint.
func NodePrintf(id uint64, format string, a ...interface{}) {
	if ShowDebugInfo {
		line := time.Now().Format("15:04:05.00") + " <---> " + "N" + strconv.FormatUint(id, 10) + ": " + format + "\n"
		if !LogToFile {
			fmt.Printf(line, a...)
		} else {
			log.Printf(line, a...)
		}
	}
}

func DPrintf(format string, a ...interface{}) {
	if ShowDebugInfo {
		line := time.Now().Format("15:04:05.00") + " <---> " + format + "\n"
		if !LogToFile {
			fmt.Printf(line, a...)
		} else {
			log.Printf(line, a...)
		}
	}
}

func LPrintf(format string, a ...interface{}) {
	if ShowRobustnessLevelChanges {
		line := time.Now().Format("15:04:05.00") + " <---> " + format + "\n"
		if !LogToFile {
			fmt.Printf(line, a...)
		} else {
			log.Printf(line, a...)
		}
	}
}

func TPrintf(format string, a ...interface{}) {
	if ShowTestInfo {
		line := time.Now().Format("15:04:05.00") + " <---> " + format + "\n"
		if !LogToFile {
			fmt.Printf(line, a...)
		} else {
			log.Printf(line, a...)
		}
	}
}

// JToString renders v as compact JSON, used to build structured log lines
// that tests can later query with gjson.
func JToString(v interface{}) string {
	byt, _ := json.Marshal(v)
	return string(byt)
}

// JPrint pretty-prints v, used for the recovery-completion state dump
// spec.md §6 requires ("final holder/asked/request_queue/using").
func JPrint(v interface{}) {
	byt, _ := json.Marshal(v)
	fmt.Println(string(pretty.Pretty(byt)))
}

func Assert(cond bool, msg string) bool {
	if !cond {
		panic("[ERROR] Assert error at " + msg + "\n")
	}
	return cond
}

// Warn logs a SEVERE-but-non-fatal line when cond is false, per spec.md §7's
// "precondition violations are logged at SEVERE, operation ignored".
func Warn(cond bool, msg string) bool {
	if ShowWarnings && !cond {
		if !LogToFile {
			fmt.Printf("[WARNING] :" + msg + "\n")
		} else {
			log.Printf("[WARNING] :" + msg + "\n")
		}
	}
	return cond
}

func CheckError(err error) {
	if err != nil {
		panic(err.Error())
	}
}
