package io

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplay_Read(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "replay.txt")
	assert.NoError(os.WriteFile(path, []byte("AB"), 0644))

	output := &bytes.Buffer{}
	replay := NewReplay(path, strings.NewReader("C"), output)
	assert.False(replay.Exhausted())

	value, err := replay.Read()
	assert.NoError(err)
	assert.Equal(uint16('A'), value)
	assert.False(replay.Exhausted())

	value, err = replay.Read()
	assert.NoError(err)
	assert.Equal(uint16('B'), value)
	assert.True(replay.Exhausted())

	// Falls through to the live input, and records it.
	value, err = replay.Read()
	assert.NoError(err)
	assert.Equal(uint16('C'), value)
	assert.True(replay.Exhausted())
	assert.Equal(int64(3), replay.Position)

	data, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Equal("ABC", string(data))

	// Live input is now closed.
	_, err = replay.Read()
	assert.ErrorIs(err, ErrInputClosed)
}

func TestReplay_Reproducible(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "replay.txt")

	first := NewReplay(path, strings.NewReader("go\n"), &bytes.Buffer{})
	var got []uint16
	for range 3 {
		value, err := first.Read()
		assert.NoError(err)
		got = append(got, value)
	}

	second := NewReplay(path, strings.NewReader(""), &bytes.Buffer{})
	for n := range 3 {
		value, err := second.Read()
		assert.NoError(err)
		assert.Equal(got[n], value)
	}
	assert.True(second.Exhausted())
}

func TestReplay_Missing(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "missing.txt")
	replay := NewReplay(path, strings.NewReader("x"), &bytes.Buffer{})

	size, err := replay.Size()
	assert.NoError(err)
	assert.Equal(int64(0), size)
	assert.True(replay.Exhausted())

	value, err := replay.Read()
	assert.NoError(err)
	assert.Equal(uint16('x'), value)

	data, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Equal("x", string(data))
}

func TestReplay_Rewind(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "replay.txt")
	assert.NoError(os.WriteFile(path, []byte("Q"), 0644))

	replay := NewReplay(path, strings.NewReader(""), &bytes.Buffer{})
	value, err := replay.Read()
	assert.NoError(err)
	assert.Equal(uint16('Q'), value)
	assert.True(replay.Exhausted())

	replay.Rewind()
	assert.False(replay.Exhausted())
	value, err = replay.Read()
	assert.NoError(err)
	assert.Equal(uint16('Q'), value)
}

func TestReplay_Unwritable(t *testing.T) {
	assert := assert.New(t)

	// The log directory does not exist.
	path := t.TempDir()
	replay := NewReplay(filepath.Join(path, "nope", "replay.txt"), strings.NewReader("x"), &bytes.Buffer{})

	_, err := replay.Read()
	assert.Error(err)

	var replay_err *ErrReplay
	assert.True(errors.As(err, &replay_err))
}

func TestReplay_Unreadable(t *testing.T) {
	assert := assert.New(t)

	// The log's parent is a file, so the log cannot even be examined.
	parent := filepath.Join(t.TempDir(), "file")
	assert.NoError(os.WriteFile(parent, []byte("AB"), 0644))

	live := strings.NewReader("x")
	replay := NewReplay(filepath.Join(parent, "replay.txt"), live, &bytes.Buffer{})

	_, err := replay.Read()
	var replay_err *ErrReplay
	assert.True(errors.As(err, &replay_err))
	assert.False(errors.Is(err, os.ErrNotExist))

	// No live input was consumed.
	assert.Equal(1, live.Len())
	assert.Equal(int64(0), replay.Position)
}

func TestReplay_Print(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	replay := NewReplay(filepath.Join(t.TempDir(), "replay.txt"), strings.NewReader(""), output)

	assert.NoError(replay.Print('h'))
	assert.NoError(replay.Print('i'))
	replay.Halt()

	assert.Equal("hi", output.String())
	assert.True(replay.Halted)
}
