// Package nlog provides minimal leveled logging for the profiling core.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Verbosity gates Infoln/Infof; Warningln/Errorln always print.
var Verbosity atomic.Int32

func SetVerbosity(v int32) { Verbosity.Store(v) }

func Infoln(v ...any) {
	if Verbosity.Load() <= 0 {
		return
	}
	emit("I", v...)
}

func Warningln(v ...any) { emit("W", v...) }
func Errorln(v ...any)   { emit("E", v...) }

func Infof(format string, a ...any) {
	if Verbosity.Load() <= 0 {
		return
	}
	emitf("I", format, a...)
}

func Warningf(format string, a ...any) { emitf("W", format, a...) }
func Errorf(format string, a ...any)   { emitf("E", format, a...) }

func emit(level string, v ...any) {
	fmt.Fprintln(os.Stderr, append([]any{stamp(level)}, v...)...)
}

func emitf(level string, format string, a ...any) {
	fmt.Fprintf(os.Stderr, stamp(level)+" "+format+"\n", a...)
}

func stamp(level string) string {
	return fmt.Sprintf("%s %s", level, time.Now().Format("15:04:05.000000"))
}
