// Package ipckey derives the System V IPC keys the status buffer and ring
// databuf attach to, mirroring ftok(3)'s "pathname + project id" scheme so
// independently-started processes that agree on an instance id and a
// keyfile path always land on the same key.
package ipckey

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	hashpipe "github.com/hashpipe/hashpipe-go"
)

// Class distinguishes the two well-known project ids HASHPIPE reserves:
// databuf segments and the status buffer.
type Class int

const (
	ClassDatabuf Class = iota
	ClassStatus
)

const (
	databufProjBit = 0x80
	statusProjBit  = 0x40
	instanceMask   = 0x3f
)

const (
	envKeyfile    = "HASHPIPE_KEYFILE"
	envDatabufKey = "HASHPIPE_DATABUF_KEY"
	envStatusKey  = "HASHPIPE_STATUS_KEY"
)

// DatabufKey resolves the IPC key a ring databuf for instanceID attaches to.
func DatabufKey(instanceID int) (int32, error) {
	if v, ok := envOverride(envDatabufKey); ok {
		return v, nil
	}
	return key(instanceID, ClassDatabuf)
}

// StatusKey resolves the IPC key the status buffer for instanceID attaches
// to.
func StatusKey(instanceID int) (int32, error) {
	if v, ok := envOverride(envStatusKey); ok {
		return v, nil
	}
	return key(instanceID, ClassStatus)
}

func envOverride(name string) (int32, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		return 0, false
	}
	return int32(v), true
}

func key(instanceID int, class Class) (int32, error) {
	path := keyfilePath()
	projID := projID(instanceID, class)
	return ftok(path, projID)
}

func keyfilePath() string {
	if v := os.Getenv(envKeyfile); v != "" {
		return v
	}
	if v := os.Getenv("HOME"); v != "" {
		return v
	}
	return "/tmp"
}

func projID(instanceID int, class Class) byte {
	bit := byte(databufProjBit)
	if class == ClassStatus {
		bit = statusProjBit
	}
	return byte(instanceID&instanceMask) | bit
}

// ftok reproduces glibc's ftok(3): combine the low 8 bits of the project id
// with the low 8 bits of the device number and the low 16 bits of the
// inode number of path, in the same byte layout glibc uses
// ((projID & 0xff) << 24) | ((dev & 0xff) << 16) | (ino & 0xffff).
func ftok(path string, projID byte) (int32, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, hashpipe.WrapError("ipckey", "ftok", hashpipe.ErrKindParameter, err)
	}
	key := (uint32(projID) << 24) | ((uint32(st.Dev) & 0xff) << 16) | (uint32(st.Ino) & 0xffff)
	return int32(key), nil
}
