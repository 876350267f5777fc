//go:build !(linux && cgo)

package possem

import "fmt"

// Sem is unavailable without cgo on Linux.
type Sem struct{}

var errUnsupported = fmt.Errorf("possem: requires linux and cgo")

func Open(name string, initialValue uint) (*Sem, error) { return nil, errUnsupported }
func (s *Sem) Wait() error                               { return errUnsupported }
func (s *Sem) TryWait() error                             { return errUnsupported }
func (s *Sem) Post() error                                { return errUnsupported }
func (s *Sem) Close() error                               { return errUnsupported }
func Unlink(name string) error                            { return errUnsupported }
