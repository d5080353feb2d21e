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
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDevice is an in-memory Device that counts lifecycle calls.
type memDevice struct {
	mu       sync.Mutex
	data     *bytes.Reader
	out      bytes.Buffer
	openErr  error
	writeErr error
	chunk    int
	delay    time.Duration
	opens    int
	closes   int
}

func (m *memDevice) Open(Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.opens++
	return nil
}

func (m *memDevice) Read(p []byte) (int, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.chunk > 0 && len(p) > m.chunk {
		p = p[:m.chunk]
	}
	if m.data == nil {
		return 0, io.EOF
	}
	return m.data.Read(p)
}

func (m *memDevice) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.Write(p)
}

func (m *memDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

type recorder struct {
	mu       sync.Mutex
	progress []int
	hidden   int
	done     []error
	order    []string
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnProgress: func(p int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, p)
			r.order = append(r.order, "progress")
		},
		OnHide: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.hidden++
			r.order = append(r.order, "hide")
		},
		OnDone: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.done = append(r.done, err)
			r.order = append(r.order, "done")
		},
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		copied, total int64
		want          int
	}{
		{0, 100, 0},
		{1, 3, 33},
		{2, 3, 66},
		{3, 3, 100},
		{99, 100, 99},
		{150, 100, 100},
		{10, 0, 0},
		{10, -1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.copied, tt.total), "Percent(%d, %d)", tt.copied, tt.total)
	}
}

func TestStart_InputOpenFails(t *testing.T) {
	in := &memDevice{openErr: errors.New("denied")}
	out := &memDevice{}

	job, err := Start(in, out, 10, Options{}, Callbacks{})
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.False(t, openErr.Output)
	assert.Nil(t, job)
	assert.Equal(t, 0, out.opens)
}

func TestStart_OutputOpenFailsClosesInput(t *testing.T) {
	in := &memDevice{}
	out := &memDevice{openErr: errors.New("read-only")}

	job, err := Start(in, out, 10, Options{}, Callbacks{})
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.True(t, openErr.Output)
	assert.ErrorContains(t, err, "read-only")
	assert.Nil(t, job)
	assert.Equal(t, 1, in.opens)
	assert.Equal(t, 1, in.closes)
}

func TestJob_Completes(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 4096)
	in := &memDevice{data: bytes.NewReader(payload), chunk: 1024}
	out := &memDevice{}
	rec := &recorder{}

	job, err := Start(in, out, int64(len(payload)), Options{PollInterval: time.Millisecond, BufferSize: 512}, rec.callbacks())
	require.NoError(t, err)
	job.Wait()

	assert.Equal(t, payload, out.out.Bytes())
	assert.Equal(t, int64(len(payload)), job.Copied())
	require.NotEmpty(t, rec.progress)
	assert.Equal(t, 100, rec.progress[len(rec.progress)-1])
	for i := 1; i < len(rec.progress); i++ {
		assert.GreaterOrEqual(t, rec.progress[i], rec.progress[i-1])
	}
	assert.Equal(t, 1, rec.hidden)
	require.Len(t, rec.done, 1)
	assert.NoError(t, rec.done[0])
	assert.Equal(t, []string{"hide", "done"}, rec.order[len(rec.order)-2:])
	assert.Equal(t, 1, in.closes)
	assert.Equal(t, 1, out.closes)

	// Stop after completion does nothing.
	job.Stop()
	assert.Equal(t, 1, in.closes)
	assert.Len(t, rec.done, 1)
}

func TestJob_StopIsIdempotent(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1<<20)
	in := &memDevice{data: bytes.NewReader(payload), chunk: 16, delay: time.Millisecond}
	out := &memDevice{}
	rec := &recorder{}

	job, err := Start(in, out, int64(len(payload)), Options{PollInterval: 5 * time.Millisecond}, rec.callbacks())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	job.Stop()
	job.Stop()
	job.Wait()
	job.Stop()

	assert.Equal(t, 1, in.closes)
	assert.Equal(t, 1, out.closes)
	assert.Equal(t, 1, rec.hidden)
	require.Len(t, rec.done, 1)
	assert.ErrorIs(t, rec.done[0], ErrStopped)
	assert.Less(t, job.Copied(), int64(len(payload)))
	assert.Equal(t, []string{"hide", "done"}, rec.order[len(rec.order)-2:])
}

func TestJob_NoProgressAfterStop(t *testing.T) {
	for n := 0; n < 20; n++ {
		payload := bytes.Repeat([]byte("x"), 1<<20)
		in := &memDevice{data: bytes.NewReader(payload), chunk: 16, delay: 2 * time.Millisecond}
		out := &memDevice{}
		rec := &recorder{}

		job, err := Start(in, out, int64(len(payload)), Options{PollInterval: 100 * time.Microsecond}, rec.callbacks())
		require.NoError(t, err)

		time.Sleep(3 * time.Millisecond)
		job.Stop()
		rec.mu.Lock()
		seen := len(rec.progress)
		rec.mu.Unlock()
		job.Wait()

		assert.Len(t, rec.progress, seen, "iteration %d", n)
		assert.Equal(t, []string{"hide", "done"}, rec.order[len(rec.order)-2:])
	}
}

func TestJob_StopFromProgressCallback(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1<<20)
	in := &memDevice{data: bytes.NewReader(payload), chunk: 16, delay: time.Millisecond}
	out := &memDevice{}

	var job *Job
	var once sync.Once
	ready := make(chan struct{})
	var doneErr error

	cb := Callbacks{
		OnProgress: func(int) {
			<-ready
			once.Do(job.Stop)
		},
		OnDone: func(err error) { doneErr = err },
	}

	var err error
	job, err = Start(in, out, int64(len(payload)), Options{PollInterval: time.Millisecond}, cb)
	require.NoError(t, err)
	close(ready)
	job.Wait()

	assert.ErrorIs(t, doneErr, ErrStopped)
	assert.Equal(t, 1, in.closes)
}

func TestJob_WriteError(t *testing.T) {
	in := &memDevice{data: bytes.NewReader([]byte("hello"))}
	out := &memDevice{writeErr: errors.New("disk full")}
	rec := &recorder{}

	job, err := Start(in, out, 5, Options{PollInterval: time.Millisecond}, rec.callbacks())
	require.NoError(t, err)
	job.Wait()

	require.Len(t, rec.done, 1)
	assert.ErrorContains(t, rec.done[0], "disk full")
	var ioErr *IOError
	require.ErrorAs(t, rec.done[0], &ioErr)
	assert.True(t, ioErr.Output)
	assert.Equal(t, 1, out.closes)
}

func TestFileDevice_Copy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 10000)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	in := NewFileDevice(src)
	out := NewFileDevice(dst)
	rec := &recorder{}

	job, err := Start(in, out, in.Size(), Options{}, rec.callbacks())
	require.NoError(t, err)
	job.Wait()
	require.NoError(t, job.CloseError())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, 100, rec.progress[len(rec.progress)-1])
}

func TestFileDevice_NotOpen(t *testing.T) {
	d := NewFileDevice(filepath.Join(t.TempDir(), "x"))
	_, err := d.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.NoError(t, d.Close())
	assert.Equal(t, int64(0), d.Size())
}
