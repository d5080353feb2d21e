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

// Package data provides file actions and registers the File host class.
package data

import (
	"context"
	"errors"
	"sync"

	"github.com/tombee/deskrun/internal/action"
	"github.com/tombee/deskrun/internal/copyjob"
	"github.com/tombee/deskrun/internal/host"
)

// Exceptions raised by CopyFile.
const (
	ExceptionUnableToReadFile  = "UnableToReadFile"
	ExceptionUnableToWriteFile = "UnableToWriteFile"
)

// Pack is the data action pack.
type Pack struct {
	copyOpts copyjob.Options
	defs     []*action.Definition
}

// New creates the pack. opts tunes the background copy of CopyFile.
func New(opts copyjob.Options) *Pack {
	p := &Pack{copyOpts: opts}
	p.defs = []*action.Definition{
		{
			ID:          "CopyFile",
			Name:        "Copy file",
			Description: "Copies a file in the background, reporting progress",
			Parameters: []action.Parameter{
				{Name: "source", Description: "File to read", Required: true},
				{Name: "destination", Description: "File to create or overwrite", Required: true},
			},
			Exceptions: []string{ExceptionUnableToReadFile, ExceptionUnableToWriteFile},
			New:        func() action.Executor { return &copyFile{opts: p.copyOpts} },
		},
	}
	return p
}

func (p *Pack) ID() string                        { return "data" }
func (p *Pack) Name() string                      { return "Data" }
func (p *Pack) Definitions() []*action.Definition { return p.defs }

// CodeInit registers the File class.
func (p *Pack) CodeInit(b *host.Bridge) error {
	return b.RegisterFile()
}

type copyFile struct {
	opts copyjob.Options

	mu      sync.Mutex
	job     *copyjob.Job
	stopped bool
}

func (c *copyFile) StartExecution(ctx context.Context, inst *action.Instance) error {
	if ctx.Err() != nil {
		return nil
	}
	params := inst.Params()
	source, err := params.String("source")
	if err != nil {
		inst.Fail(action.ExceptionInvalidParameter, err.Error())
		return nil
	}
	destination, err := params.String("destination")
	if err != nil {
		inst.Fail(action.ExceptionInvalidParameter, err.Error())
		return nil
	}

	input := copyjob.NewFileDevice(source)
	output := copyjob.NewFileDevice(destination)

	job, err := copyjob.Start(input, output, input.Size(), c.opts, copyjob.Callbacks{
		OnProgress: inst.SetProgress,
		OnHide:     inst.HideProgress,
		OnDone: func(err error) {
			switch {
			case err == nil:
				inst.Complete()
			case errors.Is(err, copyjob.ErrStopped):
			default:
				inst.Fail(exceptionFor(err), err.Error())
			}
		},
	})
	if err != nil {
		inst.Fail(exceptionFor(err), err.Error())
		return nil
	}

	// A stop that landed before the job existed still has to end it.
	c.mu.Lock()
	c.job = job
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		job.Stop()
	}
	return nil
}

func (c *copyFile) StopExecution() {
	c.mu.Lock()
	c.stopped = true
	job := c.job
	c.mu.Unlock()
	if job != nil {
		job.Stop()
	}
}

func exceptionFor(err error) string {
	var openErr *copyjob.OpenError
	if errors.As(err, &openErr) && openErr.Output {
		return ExceptionUnableToWriteFile
	}
	var ioErr *copyjob.IOError
	if errors.As(err, &ioErr) && ioErr.Output {
		return ExceptionUnableToWriteFile
	}
	return ExceptionUnableToReadFile
}
