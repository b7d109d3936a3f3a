package main

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/Bren2010/mixer/pool"
)

// createNote creates the file a note will be stored in. The note is the only
// way to withdraw a deposit, so existing files are never overwritten, and the
// file is created before the deposit is made.
func createNote(file string) (*os.File, error) {
	return os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
}

// saveNote writes note to fh and closes it.
func saveNote(fh *os.File, note *pool.Note) error {
	raw, err := cbor.Marshal(note)
	if err != nil {
		fh.Close()
		return err
	}
	if _, err := fh.Write(raw); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// discardNote closes and removes a note file that was never written.
func discardNote(fh *os.File) {
	fh.Close()
	os.Remove(fh.Name())
}

func readNote(file string) (*pool.Note, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var note pool.Note
	if err := cbor.Unmarshal(raw, &note); err != nil {
		return nil, fmt.Errorf("failed to parse note %v: %w", file, err)
	}
	return &note, nil
}
