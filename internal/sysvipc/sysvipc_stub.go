//go:build !linux

package sysvipc

import (
	"fmt"
	"time"
)

var errUnsupported = fmt.Errorf("sysvipc: System V IPC is only supported on linux")

func ShmGet(key int32, size int, flags int) (int, error) { return 0, errUnsupported }
func ShmAt(id int) (uintptr, error)                       { return 0, errUnsupported }
func ShmDt(addr uintptr) error                            { return errUnsupported }
func ShmCtlLock(id int) error                             { return errUnsupported }
func ShmCtlRmid(id int) error                             { return errUnsupported }
func Bytes(addr uintptr, size int) []byte                 { return nil }

func SemGet(key int32, nsems int, flags int) (int, error)      { return 0, errUnsupported }
func SemCtlSetAll(id int, values []uint16) error                { return errUnsupported }
func SemCtlGetAll(id int, n int) ([]uint16, error)               { return nil, errUnsupported }
func SemCtlSetVal(id int, semnum int, val int) error             { return errUnsupported }
func SemCtlGetVal(id int, semnum int) (int, error)               { return 0, errUnsupported }
func SemCtlRmid(id int) error                                    { return errUnsupported }
func SemOp(id int, ops []Sembuf) error                           { return errUnsupported }
func SemTimedOp(id int, ops []Sembuf, timeout time.Duration) error { return errUnsupported }
