// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package copyjob

import (
	"errors"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bytesCopied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "deskrun_copy_bytes_total",
	Help: "Total bytes copied by completed background copy jobs",
})

// Mode selects how a Device is opened.
type Mode int

const (
	ReadOnly Mode = iota
	WriteOnly
)

// Device is a stream the job opens, reads or writes, and closes.
// Close must be safe to call on a device that is not open.
type Device interface {
	Open(mode Mode) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// ErrNotOpen is returned by FileDevice I/O before Open.
var ErrNotOpen = errors.New("device not open")

// FileDevice is a Device backed by a path on disk. Opening for writing
// creates or truncates the file.
type FileDevice struct {
	Path string
	Perm os.FileMode

	mu sync.Mutex
	f  *os.File
}

// NewFileDevice returns a device for path with 0644 permissions.
func NewFileDevice(path string) *FileDevice {
	return &FileDevice{Path: path, Perm: 0o644}
}

// Open implements Device.
func (d *FileDevice) Open(mode Mode) error {
	flag := os.O_RDONLY
	if mode == WriteOnly {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	perm := d.Perm
	if perm == 0 {
		perm = 0o644
	}

	f, err := os.OpenFile(d.Path, flag, perm)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.f = f
	d.mu.Unlock()
	return nil
}

// Size returns the file's current size, or 0 if it cannot be determined.
func (d *FileDevice) Size() int64 {
	info, err := os.Stat(d.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (d *FileDevice) file() *os.File {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f
}

// Read implements Device.
func (d *FileDevice) Read(p []byte) (int, error) {
	f := d.file()
	if f == nil {
		return 0, ErrNotOpen
	}
	return f.Read(p)
}

// Write implements Device.
func (d *FileDevice) Write(p []byte) (int, error) {
	f := d.file()
	if f == nil {
		return 0, ErrNotOpen
	}
	return f.Write(p)
}

// Close implements Device.
func (d *FileDevice) Close() error {
	d.mu.Lock()
	f := d.f
	d.f = nil
	d.mu.Unlock()

	if f == nil {
		return nil
	}
	return f.Close()
}
